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
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// Envelope is the plugin return protocol (spec.md §6): one JSON object on
// stdout, everything else on stdout treated as log lines.
type Envelope struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message,omitempty"`
	Data            any      `json:"data,omitempty"`
	Error           string   `json:"error,omitempty"`
	Logs            []string `json:"logs,omitempty"`
	ExecutionTimeMs int64    `json:"executionTimeMs,omitempty"`
}

// parseEnvelope decodes the first JSON object in stdout as the Envelope;
// any remaining stdout bytes are appended to Logs as plain lines. When no
// JSON object can be decoded at all, it synthesizes a failure envelope
// carrying the raw tail (spec.md §4.F step 6 / failure mode table).
func parseEnvelope(stdout []byte) Envelope {
	reader := bytes.NewReader(stdout)
	dec := json.NewDecoder(reader)
	var env Envelope
	if err := dec.Decode(&env); err != nil {
		return Envelope{
			Success: false,
			Error:   "no parseable JSON object on stdout",
			Logs:    splitNonEmptyLines(string(stdout), maxTailLines),
		}
	}

	restBytes, _ := io.ReadAll(io.MultiReader(dec.Buffered(), reader))
	if rest := string(restBytes); strings.TrimSpace(rest) != "" {
		env.Logs = append(env.Logs, splitNonEmptyLines(rest, maxTailLines)...)
	}
	return env
}

const maxTailLines = 200

func splitNonEmptyLines(s string, max int) []string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	if len(out) > max {
		out = out[len(out)-max:]
	}
	return out
}
