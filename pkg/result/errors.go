// Copyright 2026 DevFlow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package result provides the fallible-return contract shared by every
// component in the core: a value-or-error result type with a small,
// closed taxonomy of error kinds instead of ad-hoc sentinel errors.
package result

import "fmt"

// Kind taxonomises why an operation failed. Components map a Kind to a
// transport-specific code at their boundary (e.g. internal/rpc maps Kind to
// a JSON-RPC error code); Kind itself carries no transport knowledge.
type Kind string

const (
	Validation   Kind = "Validation"
	NotFound     Kind = "NotFound"
	Conflict     Kind = "Conflict"
	Failure      Kind = "Failure"
	Unauthorized Kind = "Unauthorized"
	Forbidden    Kind = "Forbidden"
	Unexpected   Kind = "Unexpected"
)

// Error is the uniform error value returned across component boundaries.
type Error struct {
	Code    string
	Message string
	Kind    Kind
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap supports errors.Is/errors.As over the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap attaches an underlying cause to an existing Error and returns it
// (for fluent construction: result.NewFailure("x.y", "msg").Wrap(err)).
func (e *Error) Wrap(cause error) *Error {
	e.Cause = cause
	return e
}

func newErr(kind Kind, code, message string) *Error {
	return &Error{Code: code, Message: message, Kind: kind}
}

func NewValidation(code, message string) *Error   { return newErr(Validation, code, message) }
func NewNotFound(code, message string) *Error     { return newErr(NotFound, code, message) }
func NewConflict(code, message string) *Error     { return newErr(Conflict, code, message) }
func NewFailure(code, message string) *Error      { return newErr(Failure, code, message) }
func NewUnauthorized(code, message string) *Error { return newErr(Unauthorized, code, message) }
func NewForbidden(code, message string) *Error    { return newErr(Forbidden, code, message) }
func NewUnexpected(code, message string) *Error   { return newErr(Unexpected, code, message) }
