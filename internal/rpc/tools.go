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
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/maxxentropy/devflow/internal/domain/plugin"
)

const executeToolPrefix = "execute_plugin_"

// slug lowercases name and drops every non-alphanumeric byte, matching
// spec.md §4.H's generated tool naming rule.
func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func executeToolName(pluginName string) string {
	return executeToolPrefix + slug(pluginName)
}

// fixedTools returns the closed set of built-in tools, independent of the
// plugin registry's current contents.
func fixedTools() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "list_plugins",
			Description: "List registered plugins, optionally filtered by status, language, or name search.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"status":   map[string]interface{}{"type": "string"},
					"language": map[string]interface{}{"type": "string"},
					"search":   map[string]interface{}{"type": "string"},
				},
			},
		},
		{
			Name:        "get_plugin_capabilities",
			Description: "Return the declared capabilities and metadata of a single plugin by ID.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]interface{}{"pluginId": map[string]interface{}{"type": "string"}},
				Required:   []string{"pluginId"},
			},
		},
		{
			Name:        "validate_plugin",
			Description: "Re-run validation for a registered plugin and update its status.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]interface{}{"pluginId": map[string]interface{}{"type": "string"}},
				Required:   []string{"pluginId"},
			},
		},
		{
			Name:        "discover_plugins",
			Description: "Rescan the configured plugin directories and register any newly found manifests.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]interface{}{},
			},
		},
		{
			Name:        "create_workflow",
			Description: "Create a new Draft workflow.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"name":        map[string]interface{}{"type": "string"},
					"description": map[string]interface{}{"type": "string"},
				},
				Required: []string{"name"},
			},
		},
		{
			Name:        "add_workflow_step",
			Description: "Append an ordered step to a Draft workflow.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"workflowId":    map[string]interface{}{"type": "string"},
					"name":          map[string]interface{}{"type": "string"},
					"pluginId":      map[string]interface{}{"type": "string"},
					"order":         map[string]interface{}{"type": "integer"},
					"configuration": map[string]interface{}{"type": "object"},
				},
				Required: []string{"workflowId", "name", "pluginId", "order"},
			},
		},
		{
			Name:        "start_workflow",
			Description: "Transition a Draft workflow to Running and drive its steps to completion.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]interface{}{"workflowId": map[string]interface{}{"type": "string"}},
				Required:   []string{"workflowId"},
			},
		},
		{
			Name:        "get_workflow",
			Description: "Fetch a single workflow, including its steps, by ID.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]interface{}{"workflowId": map[string]interface{}{"type": "string"}},
				Required:   []string{"workflowId"},
			},
		},
		{
			Name:        "list_workflows",
			Description: "List workflows with optional status filter, search, and pagination.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"page":     map[string]interface{}{"type": "integer"},
					"pageSize": map[string]interface{}{"type": "integer"},
					"status":   map[string]interface{}{"type": "string"},
					"search":   map[string]interface{}{"type": "string"},
				},
			},
		},
	}
}

// generatedTool builds the execute_plugin_<slug> tool for an Available
// plugin, whose input schema mirrors its configuration defaults.
func generatedTool(p *plugin.Plugin) mcp.Tool {
	configProps := make(map[string]interface{}, len(p.Configuration))
	for k, v := range p.Configuration {
		configProps[k] = map[string]interface{}{"type": jsonSchemaType(v), "default": v}
	}
	return mcp.Tool{
		Name:        executeToolName(p.Metadata.Name),
		Description: "Execute plugin " + p.Metadata.Name + " (" + p.Metadata.Version.String() + "): " + p.Metadata.Description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"inputData":           map[string]interface{}{},
				"executionParameters": map[string]interface{}{"type": "object"},
				"configuration":       map[string]interface{}{"type": "object", "properties": configProps},
			},
		},
	}
}

func jsonSchemaType(v any) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "string"
	}
}
