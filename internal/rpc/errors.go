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

package rpc

import "github.com/maxxentropy/devflow/pkg/result"

// mapError converts a domain *result.Error into a JSON-RPC error code per
// spec.md §4.H: NotFound only maps to -32601 when it means "unknown
// method"; everywhere else NotFound is surfaced as -32602 (it is a
// client-correctable reference to a missing entity, same bucket as
// Validation).
func mapError(err *result.Error) (int, string) {
	switch err.Kind {
	case result.Validation, result.NotFound:
		return CodeInvalidParams, err.Error()
	case result.Conflict, result.Failure, result.Unexpected:
		return CodeInternal, err.Error()
	case result.Unauthorized, result.Forbidden:
		return CodeInvalidParams, err.Error()
	default:
		return CodeInternal, err.Error()
	}
}
