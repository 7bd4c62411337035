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

package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/maxxentropy/devflow/internal/domain/plugin"
	"github.com/maxxentropy/devflow/internal/observability"
	"github.com/maxxentropy/devflow/pkg/result"
)

// Composite is the language dispatcher: it holds one Manager per language
// and routes Validate/Execute calls by plugin.Metadata.Language.
type Composite struct {
	managers map[plugin.Language]Manager
}

// NewComposite builds a dispatcher over the given per-language managers.
// Any language without a registered manager fails Validate/Execute with
// Validation.
func NewComposite(managers map[plugin.Language]Manager) *Composite {
	return &Composite{managers: managers}
}

// Initialize initializes every registered manager.
func (c *Composite) Initialize(ctx context.Context) error {
	for lang, m := range c.managers {
		if err := m.Initialize(ctx); err != nil {
			return fmt.Errorf("runtime: initialize manager %s: %w", lang, err)
		}
	}
	return nil
}

// Dispose disposes every registered manager, terminating any subprocesses
// still outstanding.
func (c *Composite) Dispose(ctx context.Context) error {
	var firstErr error
	for lang, m := range c.managers {
		if err := m.Dispose(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("runtime: dispose manager %s: %w", lang, err)
		}
	}
	return firstErr
}

func (c *Composite) managerFor(lang plugin.Language) (Manager, *result.Error) {
	m, ok := c.managers[lang]
	if !ok {
		return nil, result.NewValidation("runtime.language.unsupported", fmt.Sprintf("no runtime manager registered for language %q", lang))
	}
	return m, nil
}

// Validate routes to the manager for p's language.
func (c *Composite) Validate(ctx context.Context, p *plugin.Plugin) (bool, *result.Error) {
	m, err := c.managerFor(p.Metadata.Language)
	if err != nil {
		return false, err
	}
	return m.Validate(ctx, p)
}

// Execute routes to the manager for p's language, recording the call's
// duration and terminal status as devflow_step_* metrics.
func (c *Composite) Execute(ctx context.Context, p *plugin.Plugin, input Input) result.Result[Output] {
	lang := string(p.Metadata.Language)
	start := time.Now()

	m, err := c.managerFor(p.Metadata.Language)
	if err != nil {
		observability.RecordStepExecution(lang, "routing_error", time.Since(start))
		observability.RecordPluginExecutionError(string(err.Kind))
		return result.Err[Output](err)
	}

	execResult := m.Execute(ctx, p, input)
	switch {
	case !execResult.IsOk():
		observability.RecordStepExecution(lang, "error", time.Since(start))
		observability.RecordPluginExecutionError(string(execResult.Error().Kind))
	case !execResult.Unwrap().Envelope.Success:
		observability.RecordStepExecution(lang, "envelope_failure", time.Since(start))
	default:
		observability.RecordStepExecution(lang, "success", time.Since(start))
	}
	return execResult
}
