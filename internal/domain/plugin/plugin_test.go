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

package plugin

import "testing"

func newAvailable(t *testing.T) *Plugin {
	t.Helper()
	meta := NewMetadata("sample-plugin", "1.0.0", "does things", LanguageManaged)
	if !meta.IsOk() {
		t.Fatalf("NewMetadata: %v", meta.Error())
	}
	p := NewPlugin(meta.Unwrap(), "/plugins/sample/entry.so", "/plugins/sample", nil, nil, nil)
	if !p.IsOk() {
		t.Fatalf("NewPlugin: %v", p.Error())
	}
	plugin := p.Unwrap()
	if err := plugin.Validate(true, ""); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return plugin
}

func TestNewMetadataValidation(t *testing.T) {
	if NewMetadata("", "1.0.0", "", LanguageManaged).IsOk() {
		t.Error("expected empty name to fail")
	}
	if NewMetadata("x", "1.0.0", "", Language("Q")).IsOk() {
		t.Error("expected invalid language to fail")
	}
	if NewMetadata("x", "not-a-version", "", LanguageManaged).IsOk() {
		t.Error("expected invalid version to fail")
	}
}

func TestNewPluginRequiresEntryPoint(t *testing.T) {
	meta := NewMetadata("x", "1.0.0", "", LanguageManaged).Unwrap()
	if NewPlugin(meta, "  ", "/p", nil, nil, nil).IsOk() {
		t.Error("expected blank entry point to fail")
	}
}

func TestValidateTransitions(t *testing.T) {
	meta := NewMetadata("x", "1.0.0", "", LanguageManaged).Unwrap()
	p := NewPlugin(meta, "/p/entry", "/p", nil, nil, nil).Unwrap()
	if p.Status != StatusRegistered {
		t.Fatalf("status = %q, want Registered", p.Status)
	}

	p.Validate(true, "")
	if p.Status != StatusAvailable {
		t.Errorf("status = %q, want Available", p.Status)
	}

	p.Validate(false, "missing toolchain")
	if p.Status != StatusError {
		t.Errorf("status = %q, want Error", p.Status)
	}
	if p.ErrorMessage != "missing toolchain" {
		t.Errorf("ErrorMessage = %q, want %q", p.ErrorMessage, "missing toolchain")
	}
}

func TestRecordExecutionRequiresAvailable(t *testing.T) {
	meta := NewMetadata("x", "1.0.0", "", LanguageManaged).Unwrap()
	p := NewPlugin(meta, "/p/entry", "/p", nil, nil, nil).Unwrap()
	if err := p.RecordExecution(); err == nil {
		t.Error("expected RecordExecution to fail while Registered")
	}

	p.Validate(true, "")
	if err := p.RecordExecution(); err != nil {
		t.Fatalf("RecordExecution: %v", err)
	}
	if p.ExecutionCount != 1 {
		t.Errorf("ExecutionCount = %d, want 1", p.ExecutionCount)
	}
	if p.LastExecutedAt == nil {
		t.Error("expected LastExecutedAt to be set")
	}
}

func TestDisableIsIdempotent(t *testing.T) {
	p := newAvailable(t)
	if err := p.Disable("maintenance"); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if p.Status != StatusDisabled {
		t.Fatalf("status = %q, want Disabled", p.Status)
	}
	if err := p.Disable("maintenance again"); err != nil {
		t.Errorf("second Disable should be a no-op success, got %v", err)
	}
}

func TestEnableRequiresDisabled(t *testing.T) {
	p := newAvailable(t)
	if err := p.Enable(); err == nil {
		t.Error("expected Enable to fail on an Available plugin")
	}
	p.Disable("x")
	if err := p.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if p.Status != StatusRegistered {
		t.Errorf("status = %q, want Registered", p.Status)
	}
	if p.LastValidatedAt != nil {
		t.Error("expected LastValidatedAt to be cleared on Enable")
	}
}

func TestDependencyLifecycle(t *testing.T) {
	p := newAvailable(t)
	dep := Dependency{Kind: DependencyPackage, Name: "left-pad", Version: "^1.0.0"}
	if err := p.AddDependency(dep); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	if err := p.AddDependency(dep); err == nil {
		t.Error("expected duplicate dependency to be rejected")
	}
	if err := p.RemoveDependency("left-pad", DependencyPackage); err != nil {
		t.Fatalf("RemoveDependency: %v", err)
	}
	if err := p.RemoveDependency("left-pad", DependencyPackage); err == nil {
		t.Error("expected RemoveDependency to fail once already removed")
	}
}

func TestReplaceDependenciesSwapsSet(t *testing.T) {
	p := newAvailable(t)
	if err := p.ReplaceDependencies([]Dependency{{Kind: DependencyPackage, Name: "a", Version: "1.0.0"}}); err != nil {
		t.Fatalf("ReplaceDependencies: %v", err)
	}
	if len(p.Dependencies) != 1 || p.Dependencies[0].Name != "a" {
		t.Fatalf("Dependencies = %#v, want single dependency %q", p.Dependencies, "a")
	}

	duplicate := []Dependency{
		{Kind: DependencyPackage, Name: "b", Version: "1.0.0"},
		{Kind: DependencyPackage, Name: "b", Version: "2.0.0"},
	}
	if err := p.ReplaceDependencies(duplicate); err == nil {
		t.Error("expected ReplaceDependencies to reject a duplicate (name, kind) pair")
	}
	if len(p.Dependencies) != 1 {
		t.Error("expected the prior dependency set to be left untouched on rejection")
	}
}

func TestCanExecute(t *testing.T) {
	meta := NewMetadata("x", "1.0.0", "", LanguageManaged).Unwrap()
	p := NewPlugin(meta, "/p/entry", "/p", nil, nil, nil).Unwrap()
	if p.CanExecute() {
		t.Error("a Registered plugin must not be executable")
	}
	p.Validate(true, "")
	if !p.CanExecute() {
		t.Error("an Available plugin must be executable")
	}
}
