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

package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/maxxentropy/devflow/internal/domain/plugin"
)

func writePlugin(t *testing.T, root, name, manifestJSON string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(manifestJSON), 0o644); err != nil {
		t.Fatalf("WriteFile manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "entry.so"), []byte("entry"), 0o644); err != nil {
		t.Fatalf("WriteFile entry: %v", err)
	}
}

func TestScanFindsValidPlugin(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "good", `{
		"name": "good-plugin",
		"version": "1.0.0",
		"language": "M",
		"entryPoint": "entry.so",
		"dependencies": ["pkg-m:left-pad^1.0.0"]
	}`)

	scanner := NewScanner(nil)
	found, errs := scanner.Scan([]string{root})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(found) != 1 {
		t.Fatalf("found %d plugins, want 1", len(found))
	}
	if found[0].Manifest.Name != "good-plugin" {
		t.Errorf("Name = %q, want %q", found[0].Manifest.Name, "good-plugin")
	}
	if len(found[0].Dependencies) != 1 || found[0].Dependencies[0].Kind != plugin.DependencyPackage {
		t.Errorf("Dependencies = %+v, want a single Package dependency", found[0].Dependencies)
	}
	if found[0].SourceHash == "" {
		t.Error("expected a non-empty SourceHash")
	}
}

func TestScanSkipsInvalidManifestButContinues(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "bad", `{"name": "", "version": "1.0.0"}`)
	writePlugin(t, root, "good", `{
		"name": "good-plugin",
		"version": "1.0.0",
		"language": "M",
		"entryPoint": "entry.so"
	}`)

	scanner := NewScanner(nil)
	found, errs := scanner.Scan([]string{root})
	if len(found) != 1 {
		t.Fatalf("found %d plugins, want 1 (bad one skipped)", len(found))
	}
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want exactly one error for the invalid manifest", errs)
	}
	if errs[0].Kind != "Validation" {
		t.Errorf("error kind = %q, want %q", errs[0].Kind, "Validation")
	}
}

func TestScanReportsMissingEntryPointAsNotFound(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "missing-entry")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	manifest := `{"name": "p", "version": "1.0.0", "language": "M", "entryPoint": "does-not-exist.so"}`
	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(manifest), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	scanner := NewScanner(nil)
	found, errs := scanner.Scan([]string{root})
	if len(found) != 0 {
		t.Fatalf("found %d plugins, want 0", len(found))
	}
	if len(errs) != 1 || errs[0].Kind != "NotFound" {
		t.Fatalf("errs = %v, want a single NotFound error", errs)
	}
}

func TestScanRejectsAbsoluteEntryPoint(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "abs-entry", `{"name": "p", "version": "1.0.0", "language": "M", "entryPoint": "/etc/passwd"}`)

	scanner := NewScanner(nil)
	found, errs := scanner.Scan([]string{root})
	if len(found) != 0 {
		t.Fatalf("found %d plugins, want 0", len(found))
	}
	if len(errs) != 1 || errs[0].Kind != "Validation" {
		t.Fatalf("errs = %v, want a single Validation error", errs)
	}
}

func TestScanHonorsIncludeGlobs(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, filepath.Join("included", "p"), `{"name": "p", "version": "1.0.0", "language": "M", "entryPoint": "entry.so"}`)
	writePlugin(t, root, filepath.Join("excluded", "q"), `{"name": "q", "version": "1.0.0", "language": "M", "entryPoint": "entry.so"}`)

	scanner := NewScanner(nil, "included/**")
	found, errs := scanner.Scan([]string{root})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(found) != 1 || found[0].Manifest.Name != "p" {
		t.Fatalf("found = %+v, want only the included plugin", found)
	}
}

func TestScanPluginRefAndFileRefDependencySchemes(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "refs", `{
		"name": "p",
		"version": "1.0.0",
		"language": "M",
		"entryPoint": "entry.so",
		"dependencies": ["pluginref:helper^1.0.0", "fileref:entry.so"]
	}`)

	scanner := NewScanner(nil)
	found, errs := scanner.Scan([]string{root})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(found) != 1 {
		t.Fatalf("found %d plugins, want 1", len(found))
	}
	deps := found[0].Dependencies
	if len(deps) != 2 {
		t.Fatalf("Dependencies = %+v, want 2 entries", deps)
	}
	if deps[0].Kind != plugin.DependencyPluginRef || deps[1].Kind != plugin.DependencyFileRef {
		t.Errorf("Dependencies = %+v, want [PluginRef, FileRef]", deps)
	}
}
