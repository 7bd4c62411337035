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

package managed

import (
	"context"
	"testing"
	"time"

	"github.com/maxxentropy/devflow/internal/domain/plugin"
	"github.com/maxxentropy/devflow/internal/runtime"
)

func testPlugin(t *testing.T) *plugin.Plugin {
	t.Helper()
	meta := plugin.NewMetadata("builtin-greeter", "1.0.0", "", plugin.LanguageManaged)
	if !meta.IsOk() {
		t.Fatalf("NewMetadata: %v", meta.Error())
	}
	p := plugin.NewPlugin(meta.Unwrap(), "greet", "/builtin/greeter", nil, nil, nil)
	if !p.IsOk() {
		t.Fatalf("NewPlugin: %v", p.Error())
	}
	return p.Unwrap()
}

func TestManagedValidateReflectsRegistration(t *testing.T) {
	m := New()
	p := testPlugin(t)

	ok, err := m.Validate(context.Background(), p)
	if err != nil || ok {
		t.Fatalf("Validate() = %v, %v, want false, nil before registration", ok, err)
	}

	m.Register(p.PluginPath+"/"+p.EntryPoint, func(ctx context.Context, in runtime.Input) runtime.Envelope {
		return runtime.Envelope{Success: true}
	})

	ok, err = m.Validate(context.Background(), p)
	if err != nil || !ok {
		t.Fatalf("Validate() = %v, %v, want true, nil after registration", ok, err)
	}
}

func TestManagedExecuteRunsRegisteredEntry(t *testing.T) {
	m := New()
	p := testPlugin(t)
	m.Register(p.PluginPath+"/"+p.EntryPoint, func(ctx context.Context, in runtime.Input) runtime.Envelope {
		return runtime.Envelope{Success: true, Message: "hello"}
	})

	res := m.Execute(context.Background(), p, runtime.Input{})
	if !res.IsOk() {
		t.Fatalf("Execute: %v", res.Error())
	}
	if got := res.Unwrap().Envelope.Message; got != "hello" {
		t.Errorf("Envelope.Message = %q, want %q", got, "hello")
	}
}

func TestManagedExecuteUnregisteredFails(t *testing.T) {
	m := New()
	p := testPlugin(t)

	res := m.Execute(context.Background(), p, runtime.Input{})
	if res.IsOk() {
		t.Fatal("expected Execute to fail for an unregistered entry point")
	}
}

func TestManagedExecuteTimesOut(t *testing.T) {
	m := New()
	p := testPlugin(t)
	m.Register(p.PluginPath+"/"+p.EntryPoint, func(ctx context.Context, in runtime.Input) runtime.Envelope {
		<-ctx.Done()
		return runtime.Envelope{Success: false}
	})

	res := m.Execute(context.Background(), p, runtime.Input{Deadline: 10 * time.Millisecond})
	if !res.IsOk() {
		t.Fatalf("Execute: %v", res.Error())
	}
	env := res.Unwrap().Envelope
	if env.Success || env.Error != "Plugin.Timeout" {
		t.Errorf("Envelope = %+v, want a Plugin.Timeout failure", env)
	}
}

func TestManagedExecuteRespectsCancellation(t *testing.T) {
	m := New()
	p := testPlugin(t)
	m.Register(p.PluginPath+"/"+p.EntryPoint, func(ctx context.Context, in runtime.Input) runtime.Envelope {
		<-ctx.Done()
		return runtime.Envelope{Success: false}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	res := m.Execute(ctx, p, runtime.Input{})
	if !res.IsOk() {
		t.Fatalf("Execute: %v", res.Error())
	}
	if got := res.Unwrap().Envelope.Error; got != "Plugin.Cancelled" {
		t.Errorf("Envelope.Error = %q, want %q", got, "Plugin.Cancelled")
	}
}

func TestManagedDisposeClearsRegistry(t *testing.T) {
	m := New()
	p := testPlugin(t)
	m.Register(p.PluginPath+"/"+p.EntryPoint, func(ctx context.Context, in runtime.Input) runtime.Envelope {
		return runtime.Envelope{Success: true}
	})

	if err := m.Dispose(context.Background()); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if ok, _ := m.Validate(context.Background(), p); ok {
		t.Error("expected Validate to fail after Dispose clears the registry")
	}
}
