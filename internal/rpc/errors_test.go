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

import (
	"testing"

	"github.com/maxxentropy/devflow/pkg/result"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		kind result.Kind
		want int
	}{
		{result.Validation, CodeInvalidParams},
		{result.NotFound, CodeInvalidParams},
		{result.Conflict, CodeInternal},
		{result.Failure, CodeInternal},
		{result.Unexpected, CodeInternal},
		{result.Unauthorized, CodeInvalidParams},
		{result.Forbidden, CodeInvalidParams},
	}
	for _, c := range cases {
		err := &result.Error{Kind: c.kind, Code: "x.y", Message: "boom"}
		code, message := mapError(err)
		if code != c.want {
			t.Errorf("mapError(%s) code = %d, want %d", c.kind, code, c.want)
		}
		if message == "" {
			t.Errorf("mapError(%s) returned empty message", c.kind)
		}
	}
}

func TestIsArray(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{`[{"jsonrpc":"2.0"}]`, true},
		{`  [1,2,3]`, true},
		{`{"jsonrpc":"2.0"}`, false},
		{`   {}`, false},
		{``, false},
	}
	for _, c := range cases {
		if got := isArray([]byte(c.in)); got != c.want {
			t.Errorf("isArray(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
