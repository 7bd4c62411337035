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
	"strings"

	"github.com/maxxentropy/devflow/internal/domain/plugin"
	"github.com/maxxentropy/devflow/internal/domain/shared"
	"github.com/maxxentropy/devflow/internal/domain/workflow"
	"github.com/maxxentropy/devflow/internal/persistence"
	"github.com/maxxentropy/devflow/internal/runtime"
	"github.com/maxxentropy/devflow/pkg/result"
)

// toolCallParams is the wire shape of a tools/call request's params, per
// the MCP tool-call convention: a tool name plus a free-form arguments
// object (decoded per-tool below).
type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, req Request) Response {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, CodeInvalidParams, "invalid tools/call params: "+err.Error())
	}
	if params.Name == "" {
		return errorResponse(req.ID, CodeInvalidParams, "tools/call requires a tool name")
	}

	var out result.Result[any]
	switch {
	case params.Name == "list_plugins":
		out = d.toolListPlugins(ctx, params.Arguments)
	case params.Name == "get_plugin_capabilities":
		out = d.toolGetPluginCapabilities(ctx, params.Arguments)
	case params.Name == "validate_plugin":
		out = d.toolValidatePlugin(ctx, params.Arguments)
	case params.Name == "discover_plugins":
		out = d.toolDiscoverPlugins(ctx)
	case params.Name == "create_workflow":
		out = d.toolCreateWorkflow(ctx, params.Arguments)
	case params.Name == "add_workflow_step":
		out = d.toolAddWorkflowStep(ctx, params.Arguments)
	case params.Name == "start_workflow":
		out = d.toolStartWorkflow(ctx, params.Arguments)
	case params.Name == "get_workflow":
		out = d.toolGetWorkflow(ctx, params.Arguments)
	case params.Name == "list_workflows":
		out = d.toolListWorkflows(ctx, params.Arguments)
	case strings.HasPrefix(params.Name, executeToolPrefix):
		out = d.toolExecutePlugin(ctx, params.Name, params.Arguments)
	default:
		return errorResponse(req.ID, CodeInvalidParams, "unknown tool: "+params.Name)
	}

	if !out.IsOk() {
		code, message := mapError(out.Error())
		return errorResponse(req.ID, code, message)
	}
	return successResponse(req.ID, out.Unwrap())
}

func decodeArgs(raw json.RawMessage, dest any) *result.Error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return result.NewValidation("rpc.arguments.invalid", "invalid arguments: "+err.Error())
	}
	return nil
}

func parseID(raw string) (shared.ID, *result.Error) {
	r := shared.ParseID(raw)
	if !r.IsOk() {
		return shared.ID{}, r.Error()
	}
	return r.Unwrap(), nil
}

// --- plugin tools ---

func (d *Dispatcher) toolListPlugins(ctx context.Context, raw json.RawMessage) result.Result[any] {
	var args struct {
		Status   string `json:"status"`
		Language string `json:"language"`
		Search   string `json:"search"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return result.Err[any](err)
	}
	res := d.Store.ListPlugins(ctx, persistence.PluginFilter{
		Status:   plugin.Status(args.Status),
		Language: plugin.Language(args.Language),
		Search:   args.Search,
	})
	if !res.IsOk() {
		return result.Err[any](res.Error())
	}
	return result.Ok[any](map[string]any{"plugins": res.Unwrap()})
}

func (d *Dispatcher) toolGetPluginCapabilities(ctx context.Context, raw json.RawMessage) result.Result[any] {
	var args struct {
		PluginID string `json:"pluginId"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return result.Err[any](err)
	}
	id, err := parseID(args.PluginID)
	if err != nil {
		return result.Err[any](err)
	}
	res := d.Store.GetPlugin(ctx, id)
	if !res.IsOk() {
		return result.Err[any](res.Error())
	}
	p := res.Unwrap()
	return result.Ok[any](map[string]any{
		"name":         p.Metadata.Name,
		"version":      p.Metadata.Version.String(),
		"language":     p.Metadata.Language,
		"capabilities": p.Capabilities,
		"status":       p.Status,
	})
}

func (d *Dispatcher) toolValidatePlugin(ctx context.Context, raw json.RawMessage) result.Result[any] {
	var args struct {
		PluginID string `json:"pluginId"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return result.Err[any](err)
	}
	id, err := parseID(args.PluginID)
	if err != nil {
		return result.Err[any](err)
	}
	res := d.Store.GetPlugin(ctx, id)
	if !res.IsOk() {
		return result.Err[any](res.Error())
	}
	p := res.Unwrap()

	ok, validateErr := d.Runtime.Validate(ctx, p)
	message := ""
	if validateErr != nil {
		message = validateErr.Error()
	}
	if recordErr := p.Validate(ok, message); recordErr != nil {
		return result.Err[any](recordErr)
	}
	if updateErr := d.Store.UpdatePlugin(ctx, p); updateErr != nil {
		return result.Err[any](updateErr)
	}
	d.saveChanges(ctx)
	return result.Ok[any](map[string]any{"status": p.Status, "errorMessage": p.ErrorMessage})
}

func (d *Dispatcher) toolDiscoverPlugins(ctx context.Context) result.Result[any] {
	if d.Scanner == nil {
		return result.Ok[any](map[string]any{"registered": 0, "errors": []any{}})
	}
	discovered, scanErrs := d.Scanner.Scan(d.Roots)

	usedSlugs := map[string]bool{}
	if existing := d.Store.ListPlugins(ctx, persistence.PluginFilter{Status: plugin.StatusAvailable}); existing.IsOk() {
		for _, p := range existing.Unwrap() {
			usedSlugs[executeToolName(p.Metadata.Name)] = true
		}
	}

	registered := 0
	var failures []string
	for _, de := range discovered {
		exists, existsErr := d.Store.PluginExists(ctx, de.Manifest.Name, de.Manifest.Version)
		if existsErr != nil {
			failures = append(failures, existsErr.Error())
			continue
		}
		if exists {
			continue
		}

		metaResult := plugin.NewMetadata(de.Manifest.Name, de.Manifest.Version, de.Manifest.Description, plugin.Language(de.Manifest.Language))
		if !metaResult.IsOk() {
			failures = append(failures, metaResult.Error().Error())
			continue
		}
		pluginResult := plugin.NewPlugin(metaResult.Unwrap(), de.Manifest.EntryPoint, de.AbsPath, de.Manifest.Capabilities, nil, de.Manifest.Configuration)
		if !pluginResult.IsOk() {
			failures = append(failures, pluginResult.Error().Error())
			continue
		}
		p := pluginResult.Unwrap()
		p.SourceHash = de.SourceHash
		if replaceErr := p.ReplaceDependencies(de.Dependencies); replaceErr != nil {
			failures = append(failures, replaceErr.Error())
			continue
		}

		name := executeToolName(p.Metadata.Name)
		if usedSlugs[name] {
			// spec.md §9: a generated tool name collision marks the
			// second plugin Error with a Conflict, rather than
			// silently registering a plugin tools/list can't expose.
			conflict := result.NewConflict("plugin.slug.collision", "generated tool name "+name+" is already in use by another Available plugin")
			p.Validate(false, conflict.Error())
		} else if d.Resolver != nil {
			issues := d.Resolver.Validate(ctx, p)
			if !issues.IsOk() {
				p.Validate(false, issues.Error().Error())
			} else if len(issues.Unwrap()) > 0 {
				p.Validate(false, issues.Unwrap()[0].Message)
			} else {
				ok, validateErr := d.Runtime.Validate(ctx, p)
				message := ""
				if validateErr != nil {
					message = validateErr.Error()
				}
				p.Validate(ok, message)
				if ok {
					usedSlugs[name] = true
				}
			}
		}

		if addErr := d.Store.AddPlugin(ctx, p); addErr != nil {
			failures = append(failures, addErr.Error())
			continue
		}
		registered++
	}
	d.saveChanges(ctx)

	for _, se := range scanErrs {
		failures = append(failures, se.Error())
	}
	return result.Ok[any](map[string]any{"registered": registered, "errors": failures})
}

// --- workflow tools ---

func (d *Dispatcher) toolCreateWorkflow(ctx context.Context, raw json.RawMessage) result.Result[any] {
	var args struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return result.Err[any](err)
	}
	wfResult := workflow.NewWorkflow(args.Name, args.Description)
	if !wfResult.IsOk() {
		return result.Err[any](wfResult.Error())
	}
	wf := wfResult.Unwrap()
	if err := d.Store.AddWorkflow(ctx, wf); err != nil {
		return result.Err[any](err)
	}
	d.saveChanges(ctx)
	return result.Ok[any](map[string]any{"workflowId": wf.ID.String(), "status": wf.Status})
}

func (d *Dispatcher) toolAddWorkflowStep(ctx context.Context, raw json.RawMessage) result.Result[any] {
	var args struct {
		WorkflowID    string         `json:"workflowId"`
		Name          string         `json:"name"`
		PluginID      string         `json:"pluginId"`
		Order         int            `json:"order"`
		Configuration map[string]any `json:"configuration"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return result.Err[any](err)
	}
	wfID, err := parseID(args.WorkflowID)
	if err != nil {
		return result.Err[any](err)
	}
	pluginID, err := parseID(args.PluginID)
	if err != nil {
		return result.Err[any](err)
	}

	wfResult := d.Store.GetWorkflow(ctx, wfID)
	if !wfResult.IsOk() {
		return result.Err[any](wfResult.Error())
	}
	wf := wfResult.Unwrap()

	stepResult := wf.AddStep(args.Name, pluginID, args.Order, args.Configuration)
	if !stepResult.IsOk() {
		return result.Err[any](stepResult.Error())
	}
	step := stepResult.Unwrap()
	if updateErr := d.Store.UpdateWorkflow(ctx, wf); updateErr != nil {
		return result.Err[any](updateErr)
	}
	d.saveChanges(ctx)
	return result.Ok[any](map[string]any{"stepId": step.ID.String()})
}

func (d *Dispatcher) toolStartWorkflow(ctx context.Context, raw json.RawMessage) result.Result[any] {
	var args struct {
		WorkflowID string `json:"workflowId"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return result.Err[any](err)
	}
	wfID, err := parseID(args.WorkflowID)
	if err != nil {
		return result.Err[any](err)
	}
	if startErr := d.Engine.Start(ctx, wfID); startErr != nil {
		return result.Err[any](startErr)
	}
	return d.toolGetWorkflow(ctx, raw)
}

func (d *Dispatcher) toolGetWorkflow(ctx context.Context, raw json.RawMessage) result.Result[any] {
	var args struct {
		WorkflowID string `json:"workflowId"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return result.Err[any](err)
	}
	wfID, err := parseID(args.WorkflowID)
	if err != nil {
		return result.Err[any](err)
	}
	res := d.Store.GetWorkflow(ctx, wfID)
	if !res.IsOk() {
		return result.Err[any](res.Error())
	}
	return result.Ok[any](res.Unwrap())
}

func (d *Dispatcher) toolListWorkflows(ctx context.Context, raw json.RawMessage) result.Result[any] {
	var args struct {
		Page     int    `json:"page"`
		PageSize int    `json:"pageSize"`
		Status   string `json:"status"`
		Search   string `json:"search"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return result.Err[any](err)
	}
	if args.Page <= 0 {
		args.Page = 1
	}
	if args.PageSize <= 0 {
		args.PageSize = 20
	}
	res := d.Store.ListWorkflows(ctx, args.Page, args.PageSize, workflow.Status(args.Status), args.Search)
	if !res.IsOk() {
		return result.Err[any](res.Error())
	}
	return result.Ok[any](res.Unwrap())
}

// --- generated plugin-execution tools ---

func (d *Dispatcher) toolExecutePlugin(ctx context.Context, toolName string, raw json.RawMessage) result.Result[any] {
	pluginsResult := d.Store.ListPlugins(ctx, persistence.PluginFilter{Status: plugin.StatusAvailable})
	if !pluginsResult.IsOk() {
		return result.Err[any](pluginsResult.Error())
	}
	var target *plugin.Plugin
	for _, p := range pluginsResult.Unwrap() {
		if executeToolName(p.Metadata.Name) == toolName {
			target = p
			break
		}
	}
	if target == nil {
		return result.Err[any](result.NewNotFound("rpc.tool.not_found", "no Available plugin backs tool "+toolName))
	}

	var args struct {
		InputData           any            `json:"inputData"`
		ExecutionParameters map[string]any `json:"executionParameters"`
		Configuration       map[string]any `json:"configuration"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return result.Err[any](err)
	}

	configuration := target.Configuration
	if args.Configuration != nil {
		configuration = args.Configuration
	}
	input := runtime.Input{
		Configuration:       configuration,
		InputData:           args.InputData,
		ExecutionParameters: args.ExecutionParameters,
	}

	execResult := d.Runtime.Execute(ctx, target, input)
	if !execResult.IsOk() {
		return result.Err[any](execResult.Error())
	}
	output := execResult.Unwrap()

	if output.Envelope.Success {
		if recordErr := target.RecordExecution(); recordErr != nil {
			d.Logger.Error("rpc: record execution", "plugin", target.ID.String(), "error", recordErr.Error())
		} else if updateErr := d.Store.UpdatePlugin(ctx, target); updateErr != nil {
			d.Logger.Error("rpc: persist execution count", "plugin", target.ID.String(), "error", updateErr.Error())
		}
		d.saveChanges(ctx)
	}

	return result.Ok[any](output.Envelope)
}

func (d *Dispatcher) saveChanges(ctx context.Context) {
	if _, err := d.Store.SaveChanges(ctx); err != nil {
		d.Logger.Error("rpc: save changes", "error", err.Error())
	}
}
