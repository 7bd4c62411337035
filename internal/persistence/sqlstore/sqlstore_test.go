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

package sqlstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxxentropy/devflow/internal/domain/plugin"
	"github.com/maxxentropy/devflow/internal/domain/shared"
	"github.com/maxxentropy/devflow/internal/domain/workflow"
	"github.com/maxxentropy/devflow/internal/persistence"
)

type recordingBus struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBus) Publish(_ context.Context, evt interface{ Name() string }) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, evt.Name())
	return nil
}

func newTestStore(t *testing.T) (*Store, *recordingBus) {
	t.Helper()
	bus := &recordingBus{}
	store, err := New(context.Background(), Config{Path: ":memory:"}, bus, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, bus
}

func newTestPluginAggregate(t *testing.T, name string) *plugin.Plugin {
	t.Helper()
	meta := plugin.NewMetadata(name, "1.0.0", "", plugin.LanguageManaged)
	require.True(t, meta.IsOk())
	p := plugin.NewPlugin(meta.Unwrap(), "entry.so", "/plugins/"+name, nil, nil, nil)
	require.True(t, p.IsOk())
	return p.Unwrap()
}

func TestPluginRoundTrip(t *testing.T) {
	store, bus := newTestStore(t)
	ctx := context.Background()

	p := newTestPluginAggregate(t, "sample")
	require.Nil(t, store.AddPlugin(ctx, p))

	loaded := store.GetPlugin(ctx, p.ID)
	require.True(t, loaded.IsOk())
	require.Equal(t, p.Metadata.Name, loaded.Unwrap().Metadata.Name)
	require.Equal(t, 1, loaded.Unwrap().Version)

	n, saveErr := store.SaveChanges(ctx)
	require.Nil(t, saveErr)
	require.Equal(t, 1, n)
	require.Contains(t, bus.events, "Plugin.Registered")
}

func TestPluginUpdateOptimisticConcurrencyConflict(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	p := newTestPluginAggregate(t, "conflicted")
	require.Nil(t, store.AddPlugin(ctx, p))

	stale := store.GetPlugin(ctx, p.ID).Unwrap()

	require.Nil(t, p.Validate(true, ""))
	require.Nil(t, store.UpdatePlugin(ctx, p))
	require.Equal(t, 2, p.Version)

	require.Nil(t, stale.Disable("stale writer"))
	err := store.UpdatePlugin(ctx, stale)
	require.NotNil(t, err)
	require.Equal(t, "plugin.version_conflict", err.Code)
}

func TestPluginExistsAndDuplicateRejected(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	p := newTestPluginAggregate(t, "unique-name")
	require.Nil(t, store.AddPlugin(ctx, p))

	exists, err := store.PluginExists(ctx, "unique-name", "1.0.0")
	require.Nil(t, err)
	require.True(t, exists)

	dup := newTestPluginAggregate(t, "unique-name")
	addErr := store.AddPlugin(ctx, dup)
	require.NotNil(t, addErr)
	require.Equal(t, "plugin.duplicate", addErr.Code)
}

func TestListPluginsFiltersByStatus(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	available := newTestPluginAggregate(t, "available-one")
	require.Nil(t, available.Validate(true, ""))
	require.Nil(t, store.AddPlugin(ctx, available))

	registered := newTestPluginAggregate(t, "still-registered")
	require.Nil(t, store.AddPlugin(ctx, registered))

	res := store.ListPlugins(ctx, persistence.PluginFilter{Status: plugin.StatusAvailable})
	require.True(t, res.IsOk())
	require.Len(t, res.Unwrap(), 1)
	require.Equal(t, "available-one", res.Unwrap()[0].Metadata.Name)
}

func newTestWorkflowAggregate(t *testing.T, name string) *workflow.Workflow {
	t.Helper()
	w := workflow.NewWorkflow(name, "")
	require.True(t, w.IsOk())
	built := w.Unwrap()
	step := built.AddStep("build", shared.NewID(), 1, nil)
	require.True(t, step.IsOk())
	return built
}

func TestWorkflowRoundTripWithSteps(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	w := newTestWorkflowAggregate(t, "deploy-pipeline")
	require.Nil(t, store.AddWorkflow(ctx, w))

	loaded := store.GetWorkflow(ctx, w.ID)
	require.True(t, loaded.IsOk())
	require.Len(t, loaded.Unwrap().Steps, 1)
	require.Equal(t, "build", loaded.Unwrap().Steps[0].Name)
}

func TestWorkflowUpdateOptimisticConcurrencyConflict(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	w := newTestWorkflowAggregate(t, "conflict-flow")
	require.Nil(t, store.AddWorkflow(ctx, w))

	stale := store.GetWorkflow(ctx, w.ID).Unwrap()

	require.Nil(t, w.Start())
	require.Nil(t, store.UpdateWorkflow(ctx, w))

	require.Nil(t, stale.Rename("renamed-flow"))
	err := store.UpdateWorkflow(ctx, stale)
	require.NotNil(t, err)
	require.Equal(t, "workflow.version_conflict", err.Code)
}

func TestWorkflowExistsWithName(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	w := newTestWorkflowAggregate(t, "named-flow")
	require.Nil(t, store.AddWorkflow(ctx, w))

	exists, err := store.WorkflowExistsWithName(ctx, "named-flow", nil)
	require.Nil(t, err)
	require.True(t, exists)

	excluded, err := store.WorkflowExistsWithName(ctx, "named-flow", &w.ID)
	require.Nil(t, err)
	require.False(t, excluded)
}

func TestListWorkflowsPages(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"flow-a", "flow-b", "flow-c"} {
		require.Nil(t, store.AddWorkflow(ctx, newTestWorkflowAggregate(t, name)))
	}

	page := store.ListWorkflows(ctx, 1, 2, "", "")
	require.True(t, page.IsOk())
	require.Equal(t, 3, page.Unwrap().TotalCount)
	require.Len(t, page.Unwrap().Items, 2)
}
