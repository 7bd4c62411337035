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

// Package managed implements the runtime.Manager for language M: plugins
// whose entry points are registered, same-process Go functions rather than
// spawned subprocesses. True dynamic compilation of an arbitrary managed
// language is outside Go's reach, so a "load context" here is a registry
// lookup by entry point, and "unload" is a map delete — the same shape the
// scripted/standalone managers use for a subprocess, just in-process.
package managed

import (
	"context"
	"sync"
	"time"

	"github.com/maxxentropy/devflow/internal/domain/plugin"
	"github.com/maxxentropy/devflow/internal/runtime"
	"github.com/maxxentropy/devflow/pkg/result"
)

// EntryFunc is the signature a registered managed-language entry point
// implements. It must honour ctx cancellation cooperatively: the manager
// has no process boundary to terminate on timeout.
type EntryFunc func(ctx context.Context, input runtime.Input) runtime.Envelope

// Manager is the language-M runtime.Manager.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]EntryFunc
}

var _ runtime.Manager = (*Manager)(nil)

// New creates an empty registry; plugins register their entry point via
// Register before they can be validated or executed.
func New() *Manager {
	return &Manager{entries: make(map[string]EntryFunc)}
}

// Register binds an entry point key (conventionally a plugin's
// pluginPath/entryPoint pair) to its Go implementation. Registering the
// same key twice replaces the previous binding.
func (m *Manager) Register(entryKey string, fn EntryFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entryKey] = fn
}

// Unregister removes an entry point binding (the "unload" half of the load
// context lifecycle).
func (m *Manager) Unregister(entryKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, entryKey)
}

func entryKey(p *plugin.Plugin) string {
	return p.PluginPath + "/" + p.EntryPoint
}

// Initialize is a no-op; the registry has no global state to prepare.
func (m *Manager) Initialize(ctx context.Context) error { return nil }

// Dispose clears every registered entry point.
func (m *Manager) Dispose(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]EntryFunc)
	return nil
}

// Validate reports whether p's entry point is currently registered.
func (m *Manager) Validate(ctx context.Context, p *plugin.Plugin) (bool, *result.Error) {
	m.mu.RLock()
	_, ok := m.entries[entryKey(p)]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, nil
}

// Execute invokes the registered entry point under a deadline, returning
// Plugin.Timeout if it doesn't return in time and Plugin.Cancelled if ctx
// is cancelled first.
func (m *Manager) Execute(ctx context.Context, p *plugin.Plugin, input runtime.Input) result.Result[runtime.Output] {
	m.mu.RLock()
	fn, ok := m.entries[entryKey(p)]
	m.mu.RUnlock()
	if !ok {
		return result.Err[runtime.Output](result.NewValidation("runtime.managed.not_registered", "no managed entry point registered for "+entryKey(p)))
	}

	deadline := input.Deadline
	if deadline <= 0 {
		deadline = runtime.DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	type outcome struct {
		env runtime.Envelope
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		done <- outcome{env: fn(runCtx, input)}
	}()

	select {
	case o := <-done:
		return result.Ok(runtime.Output{Envelope: o.env, DurationMs: time.Since(start).Milliseconds()})
	case <-runCtx.Done():
		code := "Plugin.Timeout"
		if ctx.Err() != nil {
			code = "Plugin.Cancelled"
		}
		return result.Ok(runtime.Output{
			Envelope:   runtime.Envelope{Success: false, Error: code},
			DurationMs: time.Since(start).Milliseconds(),
		})
	}
}
