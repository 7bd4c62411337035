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

// Package scripted implements the runtime.Manager for language S: plugins
// whose entry point is interpreted by a spawned runtime binary, fed the
// execution context as JSON on stdin.
package scripted

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/maxxentropy/devflow/internal/dependency"
	"github.com/maxxentropy/devflow/internal/domain/plugin"
	"github.com/maxxentropy/devflow/internal/runtime"
	"github.com/maxxentropy/devflow/pkg/result"
)

// Manager is the language-S runtime.Manager.
type Manager struct {
	// Interpreter is the binary invoked with the plugin's entry point as
	// its sole argument (e.g. "node", "deno run").
	Interpreter string
	Resolver    *dependency.Resolver
}

var _ runtime.Manager = (*Manager)(nil)

// New builds a Manager that spawns interpreter for each execution.
func New(interpreter string, resolver *dependency.Resolver) *Manager {
	return &Manager{Interpreter: interpreter, Resolver: resolver}
}

// Initialize verifies the interpreter binary is resolvable once up front.
func (m *Manager) Initialize(ctx context.Context) error {
	_, err := exec.LookPath(m.Interpreter)
	return err
}

// Dispose is a no-op: Manager holds no global state beyond the interpreter
// path, and in-flight subprocesses are torn down by their own ctx.
func (m *Manager) Dispose(ctx context.Context) error { return nil }

// Validate reports whether p's entry point is readable, the interpreter is
// on PATH, and its declared dependencies are resolvable.
func (m *Manager) Validate(ctx context.Context, p *plugin.Plugin) (bool, *result.Error) {
	if _, err := exec.LookPath(m.Interpreter); err != nil {
		return false, result.NewValidation("runtime.scripted.interpreter_missing", "interpreter not found: "+m.Interpreter)
	}
	entry := filepath.Join(p.PluginPath, p.EntryPoint)
	if _, err := os.Stat(entry); err != nil {
		return false, result.NewValidation("runtime.scripted.entrypoint_missing", "entry point not readable: "+p.EntryPoint)
	}
	if m.Resolver != nil {
		issues := m.Resolver.Validate(ctx, p)
		if !issues.IsOk() {
			return false, issues.Error()
		}
		if vals, _ := issues.Value(); len(vals) > 0 {
			return false, nil
		}
	}
	return true, nil
}

// Execute resolves dependencies, spawns the interpreter against p's entry
// point, and parses the resulting envelope.
func (m *Manager) Execute(ctx context.Context, p *plugin.Plugin, input runtime.Input) result.Result[runtime.Output] {
	if m.Resolver != nil && len(p.Dependencies) > 0 {
		depCtx := m.Resolver.Resolve(ctx, p)
		if !depCtx.IsOk() {
			return result.Err[runtime.Output](result.NewFailure("runtime.scripted.dependencies_failed", "dependency resolution failed").Wrap(depCtx.Error()))
		}
	}

	workDir := input.WorkingDirectory
	if workDir == "" {
		workDir = p.PluginPath
	}
	if err := runtime.EnsureDir(workDir); err != nil {
		return result.Err[runtime.Output](result.NewFailure("runtime.scripted.workdir_failed", "failed to prepare working directory").Wrap(err))
	}

	entry := filepath.Join(p.PluginPath, p.EntryPoint)
	output, err := runtime.RunProcess(ctx, workDir, m.Interpreter, []string{entry}, input)
	if err != nil {
		return result.Err[runtime.Output](result.NewFailure("runtime.scripted.execute_failed", "failed to run plugin process").Wrap(err))
	}
	return result.Ok(output)
}
