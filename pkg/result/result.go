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

package result

// Result carries either a value of type T or an *Error, never both.
type Result[T any] struct {
	value T
	err   *Error
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err wraps a failure.
func Err[T any](err *Error) Result[T] {
	return Result[T]{err: err}
}

// IsOk reports whether the result holds a value.
func (r Result[T]) IsOk() bool {
	return r.err == nil
}

// Error returns the wrapped error, or nil if the result is Ok.
func (r Result[T]) Error() *Error {
	return r.err
}

// Value returns the wrapped value and whether the result was Ok. Unlike
// Unwrap it never panics, and is the preferred accessor outside of code
// paths that have already checked IsOk.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.err == nil
}

// Unwrap returns the value, panicking if the result is an error. Only call
// this once IsOk() has been confirmed, or on genuine programmer-error paths.
func (r Result[T]) Unwrap() T {
	if r.err != nil {
		panic("result: Unwrap called on error result: " + r.err.Error())
	}
	return r.value
}

// Map transforms an Ok value, passing errors through unchanged.
func Map[T, U any](r Result[T], f func(T) U) Result[U] {
	if r.err != nil {
		return Err[U](r.err)
	}
	return Ok(f(r.value))
}

// Bind chains a fallible operation onto an Ok value, passing errors through
// unchanged (monadic bind).
func Bind[T, U any](r Result[T], f func(T) Result[U]) Result[U] {
	if r.err != nil {
		return Err[U](r.err)
	}
	return f(r.value)
}
