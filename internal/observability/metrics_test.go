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
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordStepExecutionUpdatesCounters(t *testing.T) {
	before := testutil.ToFloat64(stepExecutions.WithLabelValues("Managed", "success"))
	RecordStepExecution("Managed", "success", 50*time.Millisecond)
	after := testutil.ToFloat64(stepExecutions.WithLabelValues("Managed", "success"))
	require.Equal(t, before+1, after)
}

func TestRecordPluginExecutionErrorUpdatesCounter(t *testing.T) {
	before := testutil.ToFloat64(pluginExecutionErrors.WithLabelValues("Failure"))
	RecordPluginExecutionError("Failure")
	after := testutil.ToFloat64(pluginExecutionErrors.WithLabelValues("Failure"))
	require.Equal(t, before+1, after)
}

func TestHandlerServesPrometheusExposition(t *testing.T) {
	RecordStepExecution("Scripted", "success", 10*time.Millisecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "devflow_step_executions_total")
}
