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

package workflow

import (
	"time"

	"github.com/maxxentropy/devflow/internal/domain/shared"
	"github.com/maxxentropy/devflow/pkg/result"
)

// Step is a child entity of Workflow: it has no independent identity outside
// its parent and is never persisted except as part of the Workflow
// aggregate's cascade.
type Step struct {
	ID            shared.ID
	Name          string
	PluginID      shared.ID
	Order         int
	sequence      int // insertion order, breaks Order ties
	Configuration map[string]any
	Status        StepStatus
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	ErrorMessage  string
	Output        string
}

// newStep constructs a Pending step. order must be >= 0.
func newStep(name string, pluginID shared.ID, order int, configuration map[string]any, sequence int) result.Result[*Step] {
	if len(name) > 200 {
		return result.Err[*Step](result.NewValidation("workflow.step.name", "step name must be at most 200 characters"))
	}
	if order < 0 {
		return result.Err[*Step](result.NewValidation("workflow.step.order", "step order must be non-negative"))
	}
	if configuration == nil {
		configuration = map[string]any{}
	}
	return result.Ok(&Step{
		ID:            shared.NewID(),
		Name:          name,
		PluginID:      pluginID,
		Order:         order,
		sequence:      sequence,
		Configuration: configuration,
		Status:        StepPending,
		CreatedAt:     time.Now().UTC(),
	})
}

// RehydrateStep reconstructs a Step from persisted column values. Only
// package sqlstore should call this; domain code uses AddStep.
func RehydrateStep(id shared.ID, name string, pluginID shared.ID, order, sequence int, configuration map[string]any, status StepStatus, createdAt time.Time, startedAt, completedAt *time.Time, errorMessage, output string) *Step {
	if configuration == nil {
		configuration = map[string]any{}
	}
	return &Step{
		ID:            id,
		Name:          name,
		PluginID:      pluginID,
		Order:         order,
		sequence:      sequence,
		Configuration: configuration,
		Status:        status,
		CreatedAt:     createdAt,
		StartedAt:     startedAt,
		CompletedAt:   completedAt,
		ErrorMessage:  errorMessage,
		Output:        output,
	}
}

// Sequence exposes the insertion-order tiebreaker for persistence.
func (s *Step) Sequence() int { return s.sequence }

// ExecutionDurationMs returns the derived execution duration, or 0 if the
// step hasn't completed (or started).
func (s *Step) ExecutionDurationMs() int64 {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(*s.StartedAt).Milliseconds()
}

func (s *Step) start() *result.Error {
	if s.Status != StepPending {
		return result.NewValidation("workflow.step.start", "only a Pending step can start")
	}
	now := time.Now().UTC()
	s.StartedAt = &now
	s.Status = StepRunning
	return nil
}

func (s *Step) complete(output string) *result.Error {
	if s.Status != StepRunning {
		return result.NewValidation("workflow.step.complete", "only a Running step can complete")
	}
	now := time.Now().UTC()
	s.CompletedAt = &now
	s.Output = output
	s.Status = StepCompleted
	return nil
}

func (s *Step) fail(message string) *result.Error {
	if s.Status != StepRunning {
		return result.NewValidation("workflow.step.fail", "only a Running step can fail")
	}
	now := time.Now().UTC()
	s.CompletedAt = &now
	s.ErrorMessage = message
	s.Status = StepFailed
	return nil
}

func (s *Step) skip(reason string) *result.Error {
	if s.Status != StepPending {
		return result.NewValidation("workflow.step.skip", "only a Pending step can be skipped")
	}
	s.ErrorMessage = reason
	s.Status = StepSkipped
	return nil
}

// byOrder implements sort.Interface for []*Step, total-ordering by Order
// then by insertion sequence (spec.md invariant: "ties broken by insertion
// order").
type byOrder []*Step

func (b byOrder) Len() int      { return len(b) }
func (b byOrder) Swap(i, j int) { b[i], b[j] = b[j], b[i] }
func (b byOrder) Less(i, j int) bool {
	if b[i].Order != b[j].Order {
		return b[i].Order < b[j].Order
	}
	return b[i].sequence < b[j].sequence
}
