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

package scripted

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maxxentropy/devflow/internal/domain/plugin"
	"github.com/maxxentropy/devflow/internal/runtime"
)

// writeEntry writes an executable shell script as a plugin's entry point
// and returns a *plugin.Plugin rooted at dir with that entry point. /bin/sh
// stands in for the language-S interpreter: the manager itself only cares
// that it is an executable taking the entry path as its sole argument.
func writeEntry(t *testing.T, body string) (*plugin.Plugin, string) {
	t.Helper()
	dir := t.TempDir()
	entry := filepath.Join(dir, "entry.sh")
	if err := os.WriteFile(entry, []byte(body), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	meta := plugin.NewMetadata("shell-plugin", "1.0.0", "", plugin.LanguageScripted)
	if !meta.IsOk() {
		t.Fatalf("NewMetadata: %v", meta.Error())
	}
	p := plugin.NewPlugin(meta.Unwrap(), "entry.sh", dir, nil, nil, nil)
	if !p.IsOk() {
		t.Fatalf("NewPlugin: %v", p.Error())
	}
	return p.Unwrap(), dir
}

func TestScriptedInitializeFailsWhenInterpreterMissing(t *testing.T) {
	m := New("/no/such/interpreter-binary", nil)
	if err := m.Initialize(context.Background()); err == nil {
		t.Error("expected Initialize to fail for a missing interpreter")
	}
}

func TestScriptedValidateRequiresEntryPointFile(t *testing.T) {
	m := New("/bin/sh", nil)
	p, dir := writeEntry(t, "#!/bin/sh\necho '{\"success\":true}'\n")
	if ok, err := m.Validate(context.Background(), p); !ok || err != nil {
		t.Fatalf("Validate() = %v, %v, want true, nil", ok, err)
	}

	if err := os.Remove(filepath.Join(dir, "entry.sh")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ok, err := m.Validate(context.Background(), p); ok || err == nil {
		t.Fatalf("Validate() = %v, %v, want false, non-nil once the entry point is gone", ok, err)
	}
}

func TestScriptedExecuteRunsInterpreterAndParsesEnvelope(t *testing.T) {
	m := New("/bin/sh", nil)
	p, _ := writeEntry(t, "#!/bin/sh\necho '{\"success\":true,\"message\":\"shelled out\"}'\n")

	res := m.Execute(context.Background(), p, runtime.Input{})
	if !res.IsOk() {
		t.Fatalf("Execute: %v", res.Error())
	}
	env := res.Unwrap().Envelope
	if !env.Success || env.Message != "shelled out" {
		t.Errorf("Envelope = %+v, want success message %q", env, "shelled out")
	}
}

func TestScriptedExecuteSurfacesNonZeroExit(t *testing.T) {
	m := New("/bin/sh", nil)
	p, _ := writeEntry(t, "#!/bin/sh\necho 'boom' >&2\nexit 1\n")

	res := m.Execute(context.Background(), p, runtime.Input{})
	if !res.IsOk() {
		t.Fatalf("Execute: %v", res.Error())
	}
	env := res.Unwrap().Envelope
	if env.Success {
		t.Error("expected a failing exit status to produce a failed envelope")
	}
}

func TestScriptedExecuteTimesOut(t *testing.T) {
	m := New("/bin/sh", nil)
	p, _ := writeEntry(t, "#!/bin/sh\nsleep 5\necho '{\"success\":true}'\n")

	res := m.Execute(context.Background(), p, runtime.Input{Deadline: 20 * time.Millisecond})
	if !res.IsOk() {
		t.Fatalf("Execute: %v", res.Error())
	}
	if got := res.Unwrap().Envelope.Error; got != "Plugin.Timeout" {
		t.Errorf("Envelope.Error = %q, want Plugin.Timeout", got)
	}
}
