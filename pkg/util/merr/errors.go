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
	"github.com/cockroachdb/errors"
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// Define leaf errors here,
// WARN: take care to add new error,
// check whether you can use the errors below before adding a new one.
// Name: Err + related prefix + error name
var (
	// Resolution related
	ErrResolutionConflict = newArchiveError("resolution conflict", 100, false)
	// ErrAccessViolation is reported for invalid access grants. It is a
	// resolution conflict as far as errors.Is is concerned.
	ErrAccessViolation = newArchiveError("access violation", 101, false, withParent(100))

	// Wire related
	ErrFormat    = newArchiveError("format error", 200, false, WithErrorType(InputError))
	ErrTruncated = newArchiveError("truncated input", 201, false, WithErrorType(InputError))
	ErrStructure = newArchiveError("structure error", 202, false)

	// IO related
	ErrIoFailed = newArchiveError("IO failed", 300, true)

	// Parameter related
	ErrParameterInvalid = newArchiveError("invalid parameter", 400, false)

	// Envelope related
	ErrEnvelopeInvalid = newArchiveError("invalid envelope", 500, false, WithErrorType(InputError))

	// Config related
	ErrConfigInvalid = newArchiveError("invalid config", 600, false)

	// Do NOT export this,
	// never allow programmer using this, keep only for converting unknown error to archiveError
	errUnexpected = newArchiveError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*archiveError)

func WithDetail(detail string) errorOption {
	return func(err *archiveError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *archiveError) {
		err.errType = etype
	}
}

func withParent(code int32) errorOption {
	return func(err *archiveError) {
		err.parent = code
	}
}

type archiveError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	parent    int32
	errType   ErrorType
}

func newArchiveError(msg string, code int32, retriable bool, options ...errorOption) archiveError {
	err := archiveError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e archiveError) code() int32 {
	return e.errCode
}

func (e archiveError) Error() string {
	return e.msg
}

func (e archiveError) Detail() string {
	return e.detail
}

// Is reports whether err carries the same code, or whether e is a
// specialization of err (e.g. access violation vs resolution conflict).
func (e archiveError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(archiveError); ok {
		return e.errCode == cause.errCode || (e.parent != 0 && e.parent == cause.errCode)
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// To make merr work for multi errors,
	// we need cause of multi errors, which defined as the last error
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

// Combine joins errs into one error, skipping nils.
func Combine(errs ...error) error {
	errs = filterNil(errs)
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return multiErrors{
		errs,
	}
}

func filterNil(errs []error) []error {
	out := errs[:0:0]
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
