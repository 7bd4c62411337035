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

// Package runtime executes plugins. One Manager implementation exists per
// source language; Composite dispatches to the right one by
// plugin.Metadata.Language.
package runtime

import (
	"context"
	"time"

	"github.com/maxxentropy/devflow/internal/domain/plugin"
	"github.com/maxxentropy/devflow/pkg/result"
)

// DefaultTimeout is the per-execution wall clock deadline applied when a
// caller doesn't set Input.Deadline (spec.md §5).
const DefaultTimeout = 30 * time.Second

// DefaultMaxOutputBytes caps captured stdout/stderr before truncation.
const DefaultMaxOutputBytes = 1 << 20 // 1 MiB

// KillGrace is how long a manager waits after SIGTERM before escalating to
// SIGKILL (spec.md §5 cancellation policy).
const KillGrace = 2 * time.Second

// Input is the execution context handed to a plugin, matching the
// language-neutral JSON context described in spec.md §9.
type Input struct {
	Configuration       map[string]any
	InputData           any
	WorkingDirectory     string
	ExecutionParameters map[string]any
	Deadline             time.Duration
}

// wireInput is Input's stdin JSON shape for the S and P language managers.
type wireInput struct {
	Configuration       map[string]any `json:"configuration"`
	InputData           any            `json:"inputData"`
	WorkingDirectory     string         `json:"workingDirectory"`
	ExecutionParameters map[string]any `json:"executionParameters"`
}

func (in Input) wire() wireInput {
	return wireInput{
		Configuration:       in.Configuration,
		InputData:           in.InputData,
		WorkingDirectory:     in.WorkingDirectory,
		ExecutionParameters: in.ExecutionParameters,
	}
}

// Output is the result of one plugin execution.
type Output struct {
	Envelope        Envelope
	OutputTruncated bool
	DurationMs      int64
}

// Manager executes plugins of one source language.
type Manager interface {
	// Initialize prepares manager-global state (tooling paths, worker
	// pools). Idempotent: calling it twice has the same effect as once.
	Initialize(ctx context.Context) error

	// Dispose releases manager-global state, terminating any outstanding
	// subprocesses. Idempotent.
	Dispose(ctx context.Context) error

	// Validate reports whether p could plausibly execute: entry point
	// readable, required toolchain present, dependencies resolvable.
	Validate(ctx context.Context, p *plugin.Plugin) (bool, *result.Error)

	// Execute runs p with the given input and returns its envelope.
	Execute(ctx context.Context, p *plugin.Plugin, input Input) result.Result[Output]
}
