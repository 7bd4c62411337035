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

package semver

import (
	"fmt"
	"regexp"
	"strings"
)

// Operator identifies the kind of range a Constraint expresses.
type Operator string

const (
	OpExact Operator = "="
	OpCaret Operator = "^"
	OpTilde Operator = "~"
	OpGTE   Operator = ">="
)

// Constraint is a single version range as it appears in a dependency
// declaration: a strict value, caret range, tilde range, or minimum range.
type Constraint struct {
	Operator Operator
	Version  Version
	raw      string
}

var constraintRegex = regexp.MustCompile(`^(>=|\^|~|=)?\s*v?(.+)$`)

// ParseConstraint parses one of the four forms spec.md §4.E allows:
// an exact value, "^x.y.z", "~x.y.z", or ">=x.y.z".
func ParseConstraint(s string) (Constraint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Constraint{}, fmt.Errorf("semver: empty constraint")
	}

	m := constraintRegex.FindStringSubmatch(s)
	if m == nil {
		return Constraint{}, fmt.Errorf("semver: invalid constraint %q", s)
	}

	op := Operator(m[1])
	if op == "" {
		op = OpExact
	}

	v, err := Parse(m[2])
	if err != nil {
		return Constraint{}, fmt.Errorf("semver: invalid version in constraint %q: %w", s, err)
	}

	return Constraint{Operator: op, Version: v, raw: s}, nil
}

// Match reports whether v satisfies the constraint.
func (c Constraint) Match(v Version) bool {
	cmp := v.Compare(c.Version)
	switch c.Operator {
	case OpExact:
		return cmp == 0
	case OpGTE:
		return cmp >= 0
	case OpCaret:
		return v.Major == c.Version.Major && cmp >= 0
	case OpTilde:
		return v.Major == c.Version.Major && v.Minor == c.Version.Minor && cmp >= 0
	default:
		return cmp == 0
	}
}

func (c Constraint) String() string {
	if c.raw != "" {
		return c.raw
	}
	return string(c.Operator) + c.Version.String()
}

// HighestSatisfying returns the highest version in candidates that matches
// the constraint, and whether any candidate matched.
func HighestSatisfying(c Constraint, candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, v := range candidates {
		if !c.Match(v) {
			continue
		}
		if !found || v.Compare(best) > 0 {
			best = v
			found = true
		}
	}
	return best, found
}
