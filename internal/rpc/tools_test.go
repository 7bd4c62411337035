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

import "testing"

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello World", "helloworld"},
		{"my-plugin_v2", "mypluginv2"},
		{"ALLCAPS", "allcaps"},
		{"already-slug", "alreadyslug"},
	}
	for _, c := range cases {
		if got := slug(c.in); got != c.want {
			t.Errorf("slug(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExecuteToolName(t *testing.T) {
	if got, want := executeToolName("My Plugin"), "execute_plugin_myplugin"; got != want {
		t.Errorf("executeToolName = %q, want %q", got, want)
	}
}

func TestFixedToolsHaveUniqueNamesAndDescriptions(t *testing.T) {
	tools := fixedTools()
	if len(tools) == 0 {
		t.Fatal("fixedTools() returned no tools")
	}
	seen := map[string]bool{}
	for _, tool := range tools {
		if seen[tool.Name] {
			t.Errorf("duplicate fixed tool name %q", tool.Name)
		}
		seen[tool.Name] = true
		if tool.Description == "" {
			t.Errorf("tool %q has no description", tool.Name)
		}
	}
}

func TestJSONSchemaType(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{true, "boolean"},
		{float64(1), "number"},
		{"x", "string"},
		{[]any{}, "array"},
		{map[string]any{}, "object"},
		{nil, "string"},
	}
	for _, c := range cases {
		if got := jsonSchemaType(c.in); got != c.want {
			t.Errorf("jsonSchemaType(%#v) = %q, want %q", c.in, got, c.want)
		}
	}
}
