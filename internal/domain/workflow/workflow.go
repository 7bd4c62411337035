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
	"sort"
	"strings"
	"time"

	"github.com/maxxentropy/devflow/internal/domain/events"
	"github.com/maxxentropy/devflow/internal/domain/shared"
	"github.com/maxxentropy/devflow/pkg/result"
)

// Workflow is the aggregate root sequencing an ordered list of steps.
type Workflow struct {
	events.Recorder

	ID           shared.ID
	Name         string
	Description  string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
	Steps        []*Step
	Version      int // optimistic-concurrency row version

	nextSequence int
}

// NewWorkflow constructs a Draft workflow, validating name and description
// bounds from spec.md §3.
func NewWorkflow(name, description string) result.Result[*Workflow] {
	name = strings.TrimSpace(name)
	if len(name) < 3 || len(name) > 100 {
		return result.Err[*Workflow](result.NewValidation("workflow.name.length", "name must be between 3 and 100 characters"))
	}
	if len(description) > 1000 {
		return result.Err[*Workflow](result.NewValidation("workflow.description.length", "description must be at most 1000 characters"))
	}

	id := shared.NewID()
	now := time.Now().UTC()
	w := &Workflow{
		ID:          id,
		Name:        name,
		Description: description,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	w.Record(Created{Base: events.NewBase(id.String())})
	return result.Ok(w)
}

// Rehydrate reconstructs a Workflow from persisted column values, deriving
// nextSequence from the loaded steps. Only package sqlstore should call
// this; domain code uses NewWorkflow.
func Rehydrate(id shared.ID, name, description string, status Status, createdAt, updatedAt time.Time, startedAt, completedAt *time.Time, errorMessage string, steps []*Step, version int) *Workflow {
	next := 0
	for _, s := range steps {
		if s.Sequence() >= next {
			next = s.Sequence() + 1
		}
	}
	return &Workflow{
		ID:           id,
		Name:         name,
		Description:  description,
		Status:       status,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
		StartedAt:    startedAt,
		CompletedAt:  completedAt,
		ErrorMessage: errorMessage,
		Steps:        steps,
		Version:      version,
		nextSequence: next,
	}
}

// Rename updates the workflow's name; only permitted in Draft.
func (w *Workflow) Rename(name string) *result.Error {
	if w.Status != StatusDraft {
		return result.NewValidation("workflow.rename.not_draft", "workflow can only be renamed while Draft")
	}
	name = strings.TrimSpace(name)
	if len(name) < 3 || len(name) > 100 {
		return result.NewValidation("workflow.name.length", "name must be between 3 and 100 characters")
	}
	w.Name = name
	w.UpdatedAt = time.Now().UTC()
	w.Record(Updated{Base: events.NewBase(w.ID.String())})
	return nil
}

// AddStep appends a step; only permitted in Draft (spec.md invariant 5).
func (w *Workflow) AddStep(name string, pluginID shared.ID, order int, configuration map[string]any) result.Result[*Step] {
	if w.Status != StatusDraft {
		return result.Err[*Step](result.NewValidation("workflow.step.add.not_draft", "steps can only be added while the workflow is Draft"))
	}

	stepResult := newStep(name, pluginID, order, configuration, w.nextSequence)
	if !stepResult.IsOk() {
		return stepResult
	}
	w.nextSequence++

	step := stepResult.Unwrap()
	w.Steps = append(w.Steps, step)
	w.UpdatedAt = time.Now().UTC()
	w.Record(StepAdded{Base: events.NewBase(w.ID.String()), StepID: step.ID.String()})
	return result.Ok(step)
}

// orderedSteps returns Steps sorted by (Order, insertion sequence).
func (w *Workflow) orderedSteps() []*Step {
	sorted := append([]*Step(nil), w.Steps...)
	sort.Stable(byOrder(sorted))
	return sorted
}

// OrderedSteps exposes the total execution sequence to the workflow engine.
func (w *Workflow) OrderedSteps() []*Step {
	return w.orderedSteps()
}

// Start transitions Draft -> Running. Rejected when there are no steps
// (spec.md invariant 4).
func (w *Workflow) Start() *result.Error {
	if w.Status != StatusDraft {
		return result.NewValidation("workflow.start.not_draft", "workflow must be Draft to start")
	}
	if len(w.Steps) == 0 {
		return result.NewValidation("workflow.start.no_steps", "workflow must have at least one step to start")
	}
	now := time.Now().UTC()
	w.Status = StatusRunning
	w.StartedAt = &now
	w.UpdatedAt = now
	w.Record(Started{Base: events.NewBase(w.ID.String())})
	return nil
}

// Complete transitions Running -> Completed.
func (w *Workflow) Complete() *result.Error {
	if w.Status != StatusRunning {
		return result.NewValidation("workflow.complete.not_running", "workflow must be Running to complete")
	}
	now := time.Now().UTC()
	w.Status = StatusCompleted
	w.CompletedAt = &now
	w.UpdatedAt = now
	w.Record(Completed{Base: events.NewBase(w.ID.String())})
	return nil
}

// Fail transitions Running -> Failed(msg).
func (w *Workflow) Fail(message string) *result.Error {
	if w.Status != StatusRunning {
		return result.NewValidation("workflow.fail.not_running", "workflow must be Running to fail")
	}
	now := time.Now().UTC()
	w.Status = StatusFailed
	w.ErrorMessage = message
	w.CompletedAt = &now
	w.UpdatedAt = now
	w.Record(Failed{Base: events.NewBase(w.ID.String()), Message: message})
	return nil
}

// Pause transitions Running -> Paused. Only permitted between steps; the
// workflow engine is responsible for not calling Pause mid-step.
func (w *Workflow) Pause() *result.Error {
	if w.Status != StatusRunning {
		return result.NewValidation("workflow.pause.not_running", "workflow must be Running to pause")
	}
	w.Status = StatusPaused
	w.UpdatedAt = time.Now().UTC()
	w.Record(Paused{Base: events.NewBase(w.ID.String())})
	return nil
}

// Resume transitions Paused -> Running.
func (w *Workflow) Resume() *result.Error {
	if w.Status != StatusPaused {
		return result.NewValidation("workflow.resume.not_paused", "workflow must be Paused to resume")
	}
	w.Status = StatusRunning
	w.UpdatedAt = time.Now().UTC()
	w.Record(Resumed{Base: events.NewBase(w.ID.String())})
	return nil
}

// Cancel transitions any active (non-terminal) status -> Cancelled.
func (w *Workflow) Cancel() *result.Error {
	if w.Status.Terminal() {
		return result.NewValidation("workflow.cancel.terminal", "workflow is already in a terminal state")
	}
	now := time.Now().UTC()
	w.Status = StatusCancelled
	w.CompletedAt = &now
	w.UpdatedAt = now
	w.Record(Cancelled{Base: events.NewBase(w.ID.String())})
	return nil
}

// StartStep transitions the named step to Running.
func (w *Workflow) StartStep(stepID shared.ID) *result.Error {
	step := w.findStep(stepID)
	if step == nil {
		return result.NewNotFound("workflow.step.not_found", "no such step: "+stepID.String())
	}
	return step.start()
}

// CompleteStep transitions the named step to Completed with the given
// output, and completes the workflow if it was the last outstanding step.
func (w *Workflow) CompleteStep(stepID shared.ID, output string) *result.Error {
	step := w.findStep(stepID)
	if step == nil {
		return result.NewNotFound("workflow.step.not_found", "no such step: "+stepID.String())
	}
	if err := step.complete(output); err != nil {
		return err
	}
	if w.allStepsCompleted() {
		return w.Complete()
	}
	return nil
}

// FailStep transitions the named step to Failed, then fails the workflow
// (spec.md §4.G step 5: a step failure always propagates to the workflow).
func (w *Workflow) FailStep(stepID shared.ID, message string) *result.Error {
	step := w.findStep(stepID)
	if step == nil {
		return result.NewNotFound("workflow.step.not_found", "no such step: "+stepID.String())
	}
	if err := step.fail(message); err != nil {
		return err
	}
	return w.Fail(message)
}

// SkipStep marks a Pending step Skipped without affecting workflow status.
func (w *Workflow) SkipStep(stepID shared.ID, reason string) *result.Error {
	step := w.findStep(stepID)
	if step == nil {
		return result.NewNotFound("workflow.step.not_found", "no such step: "+stepID.String())
	}
	return step.skip(reason)
}

func (w *Workflow) allStepsCompleted() bool {
	for _, s := range w.Steps {
		if s.Status != StepCompleted && s.Status != StepSkipped {
			return false
		}
	}
	return true
}

func (w *Workflow) findStep(id shared.ID) *Step {
	for _, s := range w.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}
