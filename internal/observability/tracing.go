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

// Package observability carries the cross-cutting tracing and metrics
// concerns shared by the workflow engine and the runtime managers. Tracing
// is built directly on the global otel.Tracer/otel.SetTracerProvider
// pattern: every Tracer call is safe with no TracerProvider configured, so
// callers never need a nil check or a constructor argument to stay testable.
package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns the named tracer from the process-wide TracerProvider.
// Call once per package and hold the result in a package-level var.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// WorkflowSpan wraps an OpenTelemetry span with workflow-specific helpers
// and panic-safe accessors, so a caller holding a nil span from a disabled
// or misconfigured provider never needs its own guard.
type WorkflowSpan struct {
	span trace.Span
}

// StartWorkflowRun opens a root span for one Start/Resume drive of a
// workflow.
func StartWorkflowRun(ctx context.Context, tracer trace.Tracer, runID, workflowName string) (context.Context, *WorkflowSpan) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("workflow.run: %s", workflowName),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("workflow.name", workflowName),
			attribute.String("workflow.run_id", runID),
		),
	)
	return ctx, &WorkflowSpan{span: span}
}

// StartStep opens a child span for a single workflow step execution.
func StartStep(ctx context.Context, tracer trace.Tracer, stepID, pluginLanguage string) (context.Context, *WorkflowSpan) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("workflow.step: %s", stepID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("step.id", stepID),
			attribute.String("plugin.language", pluginLanguage),
		),
	)
	return ctx, &WorkflowSpan{span: span}
}

// SetAttributes attaches string-valued attributes to the span.
func (w *WorkflowSpan) SetAttributes(attrs map[string]string) {
	if w == nil || w.span == nil {
		return
	}
	kv := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kv = append(kv, attribute.String(k, v))
	}
	w.span.SetAttributes(kv...)
}

// RecordError records err on the span and marks it failed.
func (w *WorkflowSpan) RecordError(err error) {
	if w == nil || w.span == nil || err == nil {
		return
	}
	w.span.RecordError(err)
	w.span.SetStatus(codes.Error, err.Error())
}

// SetOK marks the span as having completed successfully.
func (w *WorkflowSpan) SetOK() {
	if w == nil || w.span == nil {
		return
	}
	w.span.SetStatus(codes.Ok, "")
}

// End closes the span, recovering from (and logging) a panic raised by a
// misbehaving exporter rather than letting it escape into workflow logic.
func (w *WorkflowSpan) End(logger *slog.Logger) {
	if w == nil || w.span == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil && logger != nil {
			logger.Warn("observability: span end panicked", "recover", r)
		}
	}()
	w.span.End()
}
