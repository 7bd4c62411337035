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

// Package standalone implements the runtime.Manager for language P:
// plugins run by a standalone interpreter, each with its own
// dependency-backed virtual environment directory (the pip/npm-style
// per-plugin scope spec.md §4.F describes for this language).
package standalone

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

// Manager is the language-P runtime.Manager.
type Manager struct {
	// Interpreter is the binary invoked with the plugin's entry point.
	Interpreter string
	Resolver    *dependency.Resolver
	// VenvRoot is where per-plugin virtual-environment directories are
	// created, named by plugin ID.
	VenvRoot string
}

var _ runtime.Manager = (*Manager)(nil)

// New builds a Manager.
func New(interpreter, venvRoot string, resolver *dependency.Resolver) *Manager {
	return &Manager{Interpreter: interpreter, VenvRoot: venvRoot, Resolver: resolver}
}

func (m *Manager) venvDir(p *plugin.Plugin) string {
	return filepath.Join(m.VenvRoot, p.ID.String())
}

// Initialize verifies the interpreter is resolvable and the venv root
// exists.
func (m *Manager) Initialize(ctx context.Context) error {
	if _, err := exec.LookPath(m.Interpreter); err != nil {
		return err
	}
	return runtime.EnsureDir(m.VenvRoot)
}

// Dispose removes every per-plugin virtual environment this manager
// created.
func (m *Manager) Dispose(ctx context.Context) error {
	if m.VenvRoot == "" {
		return nil
	}
	return os.RemoveAll(m.VenvRoot)
}

// Validate reports whether p's entry point is readable, the interpreter is
// on PATH, and its dependencies are resolvable.
func (m *Manager) Validate(ctx context.Context, p *plugin.Plugin) (bool, *result.Error) {
	if _, err := exec.LookPath(m.Interpreter); err != nil {
		return false, result.NewValidation("runtime.standalone.interpreter_missing", "interpreter not found: "+m.Interpreter)
	}
	entry := filepath.Join(p.PluginPath, p.EntryPoint)
	if _, err := os.Stat(entry); err != nil {
		return false, result.NewValidation("runtime.standalone.entrypoint_missing", "entry point not readable: "+p.EntryPoint)
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

// prepareVenv resolves p's Package dependencies and materializes their
// cache paths into p's per-plugin virtual-environment directory.
func (m *Manager) prepareVenv(ctx context.Context, p *plugin.Plugin) (string, *result.Error) {
	venv := m.venvDir(p)
	if err := runtime.EnsureDir(venv); err != nil {
		return "", result.NewFailure("runtime.standalone.venv_failed", "failed to prepare virtual environment").Wrap(err)
	}
	if m.Resolver == nil || len(p.Dependencies) == 0 {
		return venv, nil
	}

	depCtx := m.Resolver.Resolve(ctx, p)
	if !depCtx.IsOk() {
		return "", result.NewFailure("runtime.standalone.dependencies_failed", "dependency resolution failed").Wrap(depCtx.Error())
	}
	resolved := depCtx.Unwrap()
	for _, path := range resolved.LoadPaths {
		linkName := filepath.Join(venv, filepath.Base(path))
		_ = os.RemoveAll(linkName)
		if err := os.Symlink(path, linkName); err != nil {
			return "", result.NewFailure("runtime.standalone.venv_link_failed", "failed to link dependency into virtual environment").Wrap(err)
		}
	}
	return venv, nil
}

// Execute prepares the per-plugin virtual environment and spawns the
// interpreter against p's entry point. The environment's path reaches the
// plugin only as the "venvPath" execution parameter; the working directory
// and the interpreter's search path are not changed to point at it.
func (m *Manager) Execute(ctx context.Context, p *plugin.Plugin, input runtime.Input) result.Result[runtime.Output] {
	venv, err := m.prepareVenv(ctx, p)
	if err != nil {
		return result.Err[runtime.Output](err)
	}

	workDir := input.WorkingDirectory
	if workDir == "" {
		workDir = p.PluginPath
	}
	if ensureErr := runtime.EnsureDir(workDir); ensureErr != nil {
		return result.Err[runtime.Output](result.NewFailure("runtime.standalone.workdir_failed", "failed to prepare working directory").Wrap(ensureErr))
	}

	entry := filepath.Join(p.PluginPath, p.EntryPoint)
	output, runErr := runtime.RunProcess(ctx, workDir, m.Interpreter, []string{entry}, withVenv(input, venv))
	if runErr != nil {
		return result.Err[runtime.Output](result.NewFailure("runtime.standalone.execute_failed", "failed to run plugin process").Wrap(runErr))
	}
	return result.Ok(output)
}

// withVenv records the prepared virtual environment path in the execution
// parameters so the plugin process can discover its own dependency scope.
func withVenv(input runtime.Input, venv string) runtime.Input {
	params := make(map[string]any, len(input.ExecutionParameters)+1)
	for k, v := range input.ExecutionParameters {
		params[k] = v
	}
	params["venvPath"] = venv
	input.ExecutionParameters = params
	return input
}
