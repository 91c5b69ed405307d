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
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code returns the error code of the given error.
// Errors that do not come from this package report the unexpected code.
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	var target archiveError
	if errors.As(err, &target) {
		return target.code()
	}
	return errUnexpected.code()
}

func IsRetryableErr(err error) bool {
	var target archiveError
	if errors.As(err, &target) {
		return target.retriable
	}
	return false
}

func GetErrorType(err error) ErrorType {
	var target archiveError
	if errors.As(err, &target) {
		return target.errType
	}
	return SystemError
}

// IsInputError reports whether err was caused by malformed input rather than
// by the program or the environment.
func IsInputError(err error) bool {
	return GetErrorType(err) == InputError
}

// Resolution related
func WrapErrResolutionConflict(typ any, direction string, msg ...string) error {
	err := wrapFields(ErrResolutionConflict,
		value("type", typ),
		value("direction", direction),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrAccessViolation(typ any, msg ...string) error {
	err := wrapFields(ErrAccessViolation, value("type", typ))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Wire related
func WrapErrFormat(expected, found string, msg ...string) error {
	err := wrapFields(ErrFormat,
		value("expected", expected),
		value("found", found),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrTruncated(reading string, msg ...string) error {
	err := wrapFields(ErrTruncated, value("reading", reading))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrStructure(reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrStructure, reason)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrGroupMismatch(expected, got any) error {
	return wrapFieldsWithDesc(ErrStructure, "groups must be closed in reverse opening order",
		value("expected", expected),
		value("got", got),
	)
}

// IO related
func WrapErrIoFailed(op string, cause error) error {
	err := wrapFields(ErrIoFailed, value("op", op))
	if cause != nil {
		err = errors.Wrap(err, cause.Error())
	}
	return err
}

// Parameter related
func WrapErrParameterInvalid[T any](expected, actual T, msg ...string) error {
	err := wrapFields(ErrParameterInvalid,
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrParameterInvalidMsg(fmt string, args ...any) error {
	return errors.Wrapf(ErrParameterInvalid, fmt, args...)
}

// Envelope related
func WrapErrEnvelopeInvalid(reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrEnvelopeInvalid, reason)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Config related
func WrapErrConfigInvalid(key string, val any, msg ...string) error {
	err := wrapFields(ErrConfigInvalid, value(key, val))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func wrapFields(err archiveError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

func wrapFieldsWithDesc(err archiveError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	err.detail = err.msg
	return err
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}
