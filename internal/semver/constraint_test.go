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

import "testing"

func mustParse(t *testing.T, s string) Version {
	t.Helper()
	v, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return v
}

func TestConstraintMatch(t *testing.T) {
	cases := []struct {
		constraint string
		version    string
		want       bool
	}{
		{"1.2.3", "1.2.3", true},
		{"1.2.3", "1.2.4", false},
		{"^1.2.3", "1.9.0", true},
		{"^1.2.3", "2.0.0", false},
		{"^1.2.3", "1.2.2", false},
		{"~1.2.3", "1.2.9", true},
		{"~1.2.3", "1.3.0", false},
		{">=1.2.3", "5.0.0", true},
		{">=1.2.3", "1.0.0", false},
	}
	for _, c := range cases {
		constraint, err := ParseConstraint(c.constraint)
		if err != nil {
			t.Fatalf("ParseConstraint(%q): %v", c.constraint, err)
		}
		v := mustParse(t, c.version)
		if got := constraint.Match(v); got != c.want {
			t.Errorf("%q.Match(%q) = %v, want %v", c.constraint, c.version, got, c.want)
		}
	}
}

func TestHighestSatisfying(t *testing.T) {
	constraint, err := ParseConstraint("^1.2.0")
	if err != nil {
		t.Fatalf("ParseConstraint: %v", err)
	}
	candidates := []Version{
		mustParse(t, "1.2.0"),
		mustParse(t, "1.5.0"),
		mustParse(t, "1.4.9"),
		mustParse(t, "2.0.0"),
	}
	best, ok := HighestSatisfying(constraint, candidates)
	if !ok {
		t.Fatal("expected a match")
	}
	if got, want := best.String(), "1.5.0"; got != want {
		t.Errorf("HighestSatisfying = %q, want %q", got, want)
	}
}

func TestHighestSatisfyingNoMatch(t *testing.T) {
	constraint, err := ParseConstraint("^3.0.0")
	if err != nil {
		t.Fatalf("ParseConstraint: %v", err)
	}
	_, ok := HighestSatisfying(constraint, []Version{mustParse(t, "1.0.0")})
	if ok {
		t.Error("expected no match")
	}
}
