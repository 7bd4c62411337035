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

// Package workflowengine sequences a Workflow's steps through the runtime
// dispatcher: transition, persist, load plugin, execute, record, persist,
// continue or abort, one step at a time in total order.
package workflowengine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/maxxentropy/devflow/internal/domain/shared"
	"github.com/maxxentropy/devflow/internal/domain/workflow"
	"github.com/maxxentropy/devflow/internal/observability"
	"github.com/maxxentropy/devflow/internal/persistence"
	"github.com/maxxentropy/devflow/internal/runtime"
	"github.com/maxxentropy/devflow/pkg/result"
)

// tracer is the package-wide OpenTelemetry tracer. With no TracerProvider
// registered (the default in tests) every span it opens is a safe no-op.
var tracer = observability.Tracer("github.com/maxxentropy/devflow/internal/workflowengine")

// Engine drives workflow execution against a persistence.Port and a
// runtime.Composite dispatcher.
type Engine struct {
	store   persistence.Port
	runtime *runtime.Composite
	logger  *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New builds an Engine.
func New(store persistence.Port, composite *runtime.Composite, logger *slog.Logger) *Engine {
	return &Engine{
		store:   store,
		runtime: composite,
		logger:  logger,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Start transitions the workflow to Running and drives its steps to
// completion or failure, synchronously, one step at a time in Order
// (ties broken by insertion sequence).
func (e *Engine) Start(ctx context.Context, id shared.ID) *result.Error {
	wfResult := e.store.GetWorkflow(ctx, id)
	if !wfResult.IsOk() {
		return wfResult.Error()
	}
	wf := wfResult.Unwrap()

	if err := wf.Start(); err != nil {
		return err
	}
	if err := e.persist(ctx, wf); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.track(id, cancel)
	defer e.untrack(id)
	defer cancel()

	runCtx, span := observability.StartWorkflowRun(runCtx, tracer, wf.ID.String(), wf.Name)
	defer span.End(e.logger)

	var previousOutput any
	for _, step := range wf.OrderedSteps() {
		if wf.Status == workflow.StatusPaused {
			break
		}
		if err := e.runStep(runCtx, wf, step, previousOutput); err != nil {
			span.RecordError(err)
			return err
		}
		previousOutput = step.Output
		if wf.Status.Terminal() {
			break
		}
	}
	if wf.Status == workflow.StatusCompleted {
		span.SetOK()
	}
	return nil
}

// runStep executes a single step and folds its outcome back into wf,
// persisting after every transition. previousOutput is the prior step's
// recorded Output (nil for the first step), passed through as the plugin's
// inputData.
func (e *Engine) runStep(ctx context.Context, wf *workflow.Workflow, step *workflow.Step, previousOutput any) *result.Error {
	if err := wf.StartStep(step.ID); err != nil {
		return err
	}
	if err := e.persist(ctx, wf); err != nil {
		return err
	}

	pluginResult := e.store.GetPlugin(ctx, step.PluginID)
	if !pluginResult.IsOk() {
		if failErr := wf.FailStep(step.ID, "plugin not found: "+pluginResult.Error().Error()); failErr != nil {
			return failErr
		}
		return e.persist(ctx, wf)
	}
	p := pluginResult.Unwrap()

	stepCtx, stepSpan := observability.StartStep(ctx, tracer, step.ID.String(), string(p.Metadata.Language))
	defer stepSpan.End(e.logger)

	input := runtime.Input{Configuration: step.Configuration, InputData: previousOutput}
	execResult := e.runtime.Execute(stepCtx, p, input)

	select {
	case <-ctx.Done():
		stepSpan.RecordError(ctx.Err())
		// Cancel comes first: FailStep moves a Running workflow to Failed,
		// a terminal status Cancel cannot leave. On a Cancelled workflow
		// FailStep still marks the step Failed("cancelled") and then
		// reports that the workflow is not Running, which is expected here.
		if cancelErr := wf.Cancel(); cancelErr != nil {
			e.logger.Error("workflow engine: cancel workflow", "workflow", wf.ID.String(), "error", cancelErr.Error())
		}
		_ = wf.FailStep(step.ID, "cancelled")
		// ctx is already cancelled, so the final state is persisted without it.
		return e.persist(context.WithoutCancel(ctx), wf)
	default:
	}

	if !execResult.IsOk() {
		stepSpan.RecordError(execResult.Error())
		if failErr := wf.FailStep(step.ID, execResult.Error().Error()); failErr != nil {
			return failErr
		}
		return e.persist(ctx, wf)
	}

	output := execResult.Unwrap()
	if !output.Envelope.Success {
		stepSpan.SetAttributes(map[string]string{"step.status": "envelope_failure"})
		if failErr := wf.FailStep(step.ID, output.Envelope.Error); failErr != nil {
			return failErr
		}
		return e.persist(ctx, wf)
	}

	if err := wf.CompleteStep(step.ID, output.Envelope.Message); err != nil {
		return err
	}

	if recErr := p.RecordExecution(); recErr != nil {
		e.logger.Error("workflow engine: record plugin execution", "workflow", wf.ID.String(), "step", step.ID.String(), "plugin", p.ID.String(), "error", recErr.Error())
	} else if updateErr := e.store.UpdatePlugin(ctx, p); updateErr != nil {
		e.logger.Error("workflow engine: persist plugin execution count", "workflow", wf.ID.String(), "step", step.ID.String(), "plugin", p.ID.String(), "error", updateErr.Error())
	}

	stepSpan.SetOK()
	return e.persist(ctx, wf)
}

// Cancel cancels a running workflow's in-flight execution, if any; the
// in-flight step is marked Failed("cancelled") and the workflow Cancelled
// by the owning Start call once it observes the cancellation.
func (e *Engine) Cancel(id shared.ID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cancel, ok := e.cancels[id.String()]
	if ok {
		cancel()
	}
	return ok
}

// Pause transitions a Running workflow to Paused; the engine checks this
// status before starting the next step, never mid-step.
func (e *Engine) Pause(ctx context.Context, id shared.ID) *result.Error {
	wfResult := e.store.GetWorkflow(ctx, id)
	if !wfResult.IsOk() {
		return wfResult.Error()
	}
	wf := wfResult.Unwrap()
	if err := wf.Pause(); err != nil {
		return err
	}
	return e.persist(ctx, wf)
}

// Resume transitions a Paused workflow back to Running and continues
// driving its remaining steps.
func (e *Engine) Resume(ctx context.Context, id shared.ID) *result.Error {
	wfResult := e.store.GetWorkflow(ctx, id)
	if !wfResult.IsOk() {
		return wfResult.Error()
	}
	wf := wfResult.Unwrap()
	if err := wf.Resume(); err != nil {
		return err
	}
	if err := e.persist(ctx, wf); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.track(id, cancel)
	defer e.untrack(id)
	defer cancel()

	runCtx, span := observability.StartWorkflowRun(runCtx, tracer, wf.ID.String(), wf.Name)
	defer span.End(e.logger)

	var previousOutput any
	for _, step := range wf.OrderedSteps() {
		if step.Status == workflow.StepCompleted {
			previousOutput = step.Output
			continue
		}
		if step.Status != workflow.StepPending {
			continue
		}
		if wf.Status == workflow.StatusPaused {
			break
		}
		if err := e.runStep(runCtx, wf, step, previousOutput); err != nil {
			span.RecordError(err)
			return err
		}
		previousOutput = step.Output
		if wf.Status.Terminal() {
			break
		}
	}
	if wf.Status == workflow.StatusCompleted {
		span.SetOK()
	}
	return nil
}

func (e *Engine) track(id shared.ID, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancels[id.String()] = cancel
}

func (e *Engine) untrack(id shared.ID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cancels, id.String())
}

func (e *Engine) persist(ctx context.Context, wf *workflow.Workflow) *result.Error {
	if err := e.store.UpdateWorkflow(ctx, wf); err != nil {
		return err
	}
	if _, err := e.store.SaveChanges(ctx); err != nil {
		e.logger.Error("workflow engine: save changes", "workflow", wf.ID.String(), "error", err.Error())
	}
	return nil
}
