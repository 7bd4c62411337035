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

// Package log provides the structured logging conventions shared across
// DevFlow: a thin wrapper over log/slog with component scoping and a small
// set of standard field keys so log lines stay greppable across packages.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler used for output.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Standard field keys, used consistently so operators can filter on them
// regardless of which component emitted the line.
const (
	PluginIDKey   = "plugin_id"
	WorkflowIDKey = "workflow_id"
	StepIDKey     = "step_id"
	ComponentKey  = "component"
	DurationKey   = "duration_ms"
)

// Config holds logger construction options.
type Config struct {
	Level     string
	Format    Format
	Output    io.Writer
	AddSource bool
}

// DefaultConfig returns sensible defaults: info level, JSON output to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: FormatJSON,
		Output: os.Stderr,
	}
}

// FromEnv builds a Config from DEVFLOW_LOG_LEVEL / DEVFLOW_LOG_FORMAT.
func FromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("DEVFLOW_LOG_LEVEL"); v != "" {
		cfg.Level = v
	}
	if v := os.Getenv("DEVFLOW_LOG_FORMAT"); v != "" {
		cfg.Format = Format(v)
	}
	return cfg
}

func levelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a *slog.Logger from Config.
func New(cfg Config) *slog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     levelFromString(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == FormatText {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	return slog.New(handler)
}

// WithComponent scopes a logger to a named component, e.g. "discovery" or
// "workflow-engine".
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String(ComponentKey, component))
}
