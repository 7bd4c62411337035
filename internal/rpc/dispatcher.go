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

package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/maxxentropy/devflow/internal/dependency"
	"github.com/maxxentropy/devflow/internal/discovery"
	"github.com/maxxentropy/devflow/internal/domain/plugin"
	"github.com/maxxentropy/devflow/internal/persistence"
	"github.com/maxxentropy/devflow/internal/runtime"
	"github.com/maxxentropy/devflow/internal/workflowengine"
)

// Dispatcher routes parsed JSON-RPC requests to the appropriate MCP
// method or tool handler. It holds no request-scoped state; every call is
// independent (spec.md §5: "each incoming request runs on its own logical
// task").
type Dispatcher struct {
	Name    string
	Version string

	Store    persistence.Port
	Engine   *workflowengine.Engine
	Runtime  *runtime.Composite
	Resolver *dependency.Resolver
	Scanner  *discovery.Scanner
	Roots    []string

	Logger *slog.Logger
}

// Handle parses raw as either a single JSON-RPC request object or a batch
// array, dispatches every element independently preserving order, and
// marshals the response(s). A malformed root or an empty batch produces a
// single -32700 parse-error response.
func (d *Dispatcher) Handle(ctx context.Context, raw []byte) []byte {
	trimmed := json.RawMessage(raw)

	var batch []json.RawMessage
	if isArray(trimmed) {
		if err := json.Unmarshal(trimmed, &batch); err != nil || len(batch) == 0 {
			return mustMarshal(errorResponse(nil, CodeParseError, "invalid batch request"))
		}
		responses := make([]Response, len(batch))
		for i, item := range batch {
			responses[i] = d.handleOne(ctx, item)
		}
		return mustMarshal(responses)
	}

	var single json.RawMessage = trimmed
	resp := d.handleOne(ctx, single)
	return mustMarshal(resp)
}

func isArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

func (d *Dispatcher) handleOne(ctx context.Context, raw json.RawMessage) Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse(nil, CodeParseError, "invalid request: "+err.Error())
	}
	if req.Method == "" {
		return errorResponse(req.ID, CodeInvalidParams, "method must not be empty")
	}

	switch req.Method {
	case "initialize":
		return successResponse(req.ID, d.handleInitialize())
	case "tools/list":
		return successResponse(req.ID, d.handleToolsList(ctx))
	case "tools/call":
		return d.handleToolsCall(ctx, req)
	case "resources/list":
		return successResponse(req.ID, map[string]any{"resources": []any{}})
	case "resources/read":
		return errorResponse(req.ID, CodeInvalidParams, "no resources are registered")
	case "prompts/list":
		return successResponse(req.ID, map[string]any{"prompts": []any{}})
	case "prompts/get":
		return errorResponse(req.ID, CodeInvalidParams, "no prompts are registered")
	default:
		return errorResponse(req.ID, CodeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (d *Dispatcher) handleInitialize() map[string]any {
	return map[string]any{
		"name":            d.Name,
		"version":         d.Version,
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools":     map[string]any{"listChanged": true},
			"resources": map[string]any{},
			"prompts":   map[string]any{},
		},
	}
}

func (d *Dispatcher) handleToolsList(ctx context.Context) map[string]any {
	tools := fixedTools()

	pluginsResult := d.Store.ListPlugins(ctx, persistence.PluginFilter{Status: plugin.StatusAvailable})
	if pluginsResult.IsOk() {
		used := make(map[string]bool, len(tools))
		for _, p := range pluginsResult.Unwrap() {
			name := executeToolName(p.Metadata.Name)
			if used[name] {
				// Collision: spec.md §9 resolves this at registration time
				// (the second plugin is marked Error/Conflict), so a
				// well-formed Available set never reaches this branch; skip
				// defensively rather than publish a duplicate tool name.
				continue
			}
			used[name] = true
			tools = append(tools, generatedTool(p))
		}
	}

	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return map[string]any{"tools": tools}
}
