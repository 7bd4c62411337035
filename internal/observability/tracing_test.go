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

package observability

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestWorkflowRunAndStepSpansRecordAttributesAndErrors(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	tracer := tp.Tracer("test")

	ctx, runSpan := StartWorkflowRun(context.Background(), tracer, "run-1", "release")
	_, stepSpan := StartStep(ctx, tracer, "step-1", "Managed")
	stepSpan.RecordError(errors.New("build failed"))
	stepSpan.End(slog.Default())
	runSpan.RecordError(errors.New("build failed"))
	runSpan.End(slog.Default())

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	require.Equal(t, "workflow.step: step-1", spans[0].Name)
	require.Equal(t, "workflow.run: release", spans[1].Name)
	require.NotEmpty(t, spans[0].Events, "RecordError should add an exception event")
}

func TestWorkflowSpanMethodsAreNilSafe(t *testing.T) {
	var w *WorkflowSpan
	w.SetAttributes(map[string]string{"k": "v"})
	w.RecordError(errors.New("boom"))
	w.SetOK()
	w.End(slog.Default())
}

func TestGlobalTracerYieldsUsableSpan(t *testing.T) {
	ctx, span := StartWorkflowRun(context.Background(), Tracer("devflow.test"), "run-2", "noop")
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	span.SetOK()
	span.End(slog.Default())
}
