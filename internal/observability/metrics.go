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
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devflow_step_duration_seconds",
			Help:    "Duration of a runtime manager's Execute call for one workflow step.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"language", "status"},
	)

	stepExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devflow_step_executions_total",
			Help: "Total workflow step executions by terminal status.",
		},
		[]string{"language", "status"},
	)

	pluginExecutionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devflow_plugin_execution_errors_total",
			Help: "Total plugin execution errors by error kind.",
		},
		[]string{"error_kind"},
	)
)

// RecordStepExecution records one runtime manager Execute call: its
// duration and terminal status, bucketed by plugin language.
func RecordStepExecution(language, status string, duration time.Duration) {
	stepDuration.WithLabelValues(language, status).Observe(duration.Seconds())
	stepExecutions.WithLabelValues(language, status).Inc()
}

// RecordPluginExecutionError increments the error counter for errKind, the
// result.Error taxonomy kind (Validation, NotFound, Conflict, Failure,
// Unauthorized, Forbidden, Unexpected) that aborted an execution.
func RecordPluginExecutionError(errKind string) {
	pluginExecutionErrors.WithLabelValues(errKind).Inc()
}

// Handler exposes the process's registered collectors in the Prometheus
// exposition format for mounting at a /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}
