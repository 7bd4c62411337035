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
	"time"
)

func TestIsModifiedDetectsNewerManifest(t *testing.T) {
	dir := t.TempDir()
	cutoff := time.Now().Add(-time.Hour)

	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if !IsModified(dir, "entry.so", cutoff) {
		t.Error("expected a manifest written after the cutoff to be detected as modified")
	}
}

func TestIsModifiedFalseWhenUntouchedSinceScan(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	future := time.Now().Add(time.Hour)
	if IsModified(dir, "entry.so", future) {
		t.Error("expected no modification relative to a cutoff in the future")
	}
}

func TestIsModifiedIgnoresMissingFiles(t *testing.T) {
	dir := t.TempDir()
	if IsModified(dir, "entry.so", time.Now()) {
		t.Error("expected no modification reported when neither file exists")
	}
}
