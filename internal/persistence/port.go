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

// Package persistence defines the storage port used by the rest of the
// core: CRUD for the Plugin and Workflow aggregates, paged query adapters,
// and commit-then-publish domain event delivery. Package sqlstore is the
// concrete implementation.
package persistence

import (
	"context"

	"github.com/maxxentropy/devflow/internal/domain/plugin"
	"github.com/maxxentropy/devflow/internal/domain/shared"
	"github.com/maxxentropy/devflow/internal/domain/workflow"
	"github.com/maxxentropy/devflow/pkg/result"
)

// PluginFilter narrows listPlugins queries.
type PluginFilter struct {
	Status   plugin.Status
	Language plugin.Language
	Search   string
}

// WorkflowPage is the paged result of listWorkflows.
type WorkflowPage struct {
	Items      []*workflow.Workflow
	TotalCount int
	Page       int
	PageSize   int
}

// PluginStore is the persistence port's Plugin side.
type PluginStore interface {
	GetPlugin(ctx context.Context, id shared.ID) result.Result[*plugin.Plugin]
	AddPlugin(ctx context.Context, p *plugin.Plugin) *result.Error
	UpdatePlugin(ctx context.Context, p *plugin.Plugin) *result.Error
	RemovePlugin(ctx context.Context, p *plugin.Plugin) *result.Error
	ListPlugins(ctx context.Context, filter PluginFilter) result.Result[[]*plugin.Plugin]
	PluginExists(ctx context.Context, name, version string) (bool, *result.Error)
}

// WorkflowStore is the persistence port's Workflow side.
type WorkflowStore interface {
	GetWorkflow(ctx context.Context, id shared.ID) result.Result[*workflow.Workflow]
	AddWorkflow(ctx context.Context, w *workflow.Workflow) *result.Error
	UpdateWorkflow(ctx context.Context, w *workflow.Workflow) *result.Error
	RemoveWorkflow(ctx context.Context, w *workflow.Workflow) *result.Error
	ListWorkflows(ctx context.Context, page, pageSize int, status workflow.Status, search string) result.Result[WorkflowPage]
	WorkflowExistsWithName(ctx context.Context, name string, excludeID *shared.ID) (bool, *result.Error)
}

// Port is the full persistence contract. Each Add/Update/Remove call
// commits its own write when it returns; SaveChanges commits nothing
// itself, it publishes the domain events queued by those calls since the
// last SaveChanges and returns how many it published. No commit spans
// several calls or aggregates.
type Port interface {
	PluginStore
	WorkflowStore

	SaveChanges(ctx context.Context) (int, *result.Error)
	Close() error
}

// EventBus is the minimal publication contract the persistence
// implementation drains aggregate events into after a successful commit.
type EventBus interface {
	Publish(ctx context.Context, evt interface{ Name() string }) error
}
