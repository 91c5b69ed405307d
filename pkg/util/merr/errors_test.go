// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := WrapErrFormat("int", "string")
	err = errors.Wrap(err, "failed to read field")
	s.ErrorIs(err, ErrFormat)
	s.Equal(Code(ErrFormat), Code(err))
	s.Equal(errUnexpected.errCode, Code(io.EOF))
	s.Equal(int32(0), Code(nil))

	sameCodeErr := newArchiveError("new error", ErrFormat.errCode, false)
	s.True(sameCodeErr.Is(ErrFormat))
}

func (s *ErrSuite) TestWrap() {
	s.ErrorIs(WrapErrResolutionConflict("main.T", "saving", "no strategy"), ErrResolutionConflict)
	s.ErrorIs(WrapErrAccessViolation("main.T", "empty grant"), ErrAccessViolation)
	s.ErrorIs(WrapErrFormat("bool", "number"), ErrFormat)
	s.ErrorIs(WrapErrTruncated("uint32"), ErrTruncated)
	s.ErrorIs(WrapErrStructure("group left open"), ErrStructure)
	s.ErrorIs(WrapErrGroupMismatch(2, 1), ErrStructure)
	s.ErrorIs(WrapErrIoFailed("write", io.ErrShortWrite), ErrIoFailed)
	s.ErrorIs(WrapErrParameterInvalid("pointer", "int"), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterInvalidMsg("bad %s", "thing"), ErrParameterInvalid)
	s.ErrorIs(WrapErrEnvelopeInvalid("bad magic"), ErrEnvelopeInvalid)
	s.ErrorIs(WrapErrConfigInvalid("formats", "yaml"), ErrConfigInvalid)
}

func (s *ErrSuite) TestAccessViolationIsResolutionConflict() {
	err := WrapErrAccessViolation("main.T")
	s.ErrorIs(err, ErrResolutionConflict)
	s.NotErrorIs(WrapErrResolutionConflict("main.T", "loading"), ErrAccessViolation)
}

func (s *ErrSuite) TestFields() {
	err := WrapErrFormat("int", "string")
	s.Contains(err.Error(), "[expected=int]")
	s.Contains(err.Error(), "[found=string]")
}

func (s *ErrSuite) TestErrorType() {
	s.True(IsInputError(WrapErrTruncated("string")))
	s.True(IsInputError(errors.Wrap(WrapErrFormat("a", "b"), "ctx")))
	s.False(IsInputError(WrapErrStructure("x")))
	s.Equal("input_error", GetErrorType(ErrFormat).String())
	s.True(IsRetryableErr(ErrIoFailed))
	s.False(IsRetryableErr(ErrFormat))
}

func (s *ErrSuite) TestCombine() {
	var (
		errFirst  = errors.New("first")
		errSecond = errors.New("second")
		errThird  = errors.New("third")
	)

	err := Combine(errFirst, errSecond)
	s.True(errors.Is(err, errFirst))
	s.True(errors.Is(err, errSecond))
	s.False(errors.Is(err, errThird))

	s.Nil(Combine(nil, nil))
	s.Equal(errFirst, Combine(nil, errFirst))

	err = Combine(WrapErrTruncated("int"), errThird)
	s.ErrorIs(err, ErrTruncated)
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
