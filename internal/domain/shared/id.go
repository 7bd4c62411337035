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

// Package shared holds identifier and value-object primitives shared by the
// plugin and workflow aggregates.
package shared

import (
	"strings"

	"github.com/google/uuid"

	"github.com/maxxentropy/devflow/pkg/result"
)

// ID is an opaque, string-convertible identifier. Plugins, workflows and
// workflow steps all use this one type; there are no per-kind ID types.
type ID struct {
	value string
}

// NewID mints a fresh identifier.
func NewID() ID {
	return ID{value: uuid.New().String()}
}

// ParseID parses a wire-form identifier, rejecting empty strings.
func ParseID(s string) result.Result[ID] {
	s = strings.TrimSpace(s)
	if s == "" {
		return result.Err[ID](result.NewValidation("id.empty", "identifier must not be empty"))
	}
	return result.Ok(ID{value: s})
}

func (id ID) String() string {
	return id.value
}

// IsZero reports whether the ID was never assigned.
func (id ID) IsZero() bool {
	return id.value == ""
}
