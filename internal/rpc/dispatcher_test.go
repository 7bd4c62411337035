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
	"testing"

	"github.com/maxxentropy/devflow/internal/domain/plugin"
	"github.com/maxxentropy/devflow/internal/persistence/eventbus"
	"github.com/maxxentropy/devflow/internal/persistence/sqlstore"
	"github.com/maxxentropy/devflow/internal/runtime"
	"github.com/maxxentropy/devflow/internal/workflowengine"
	"github.com/maxxentropy/devflow/pkg/result"
)

// stubManager is a runtime.Manager fake used to give the dispatcher's
// language-M slot something to validate/execute against without spawning
// a subprocess.
type stubManager struct{}

func (stubManager) Initialize(context.Context) error { return nil }
func (stubManager) Dispose(context.Context) error    { return nil }
func (stubManager) Validate(context.Context, *plugin.Plugin) (bool, *result.Error) {
	return true, nil
}
func (stubManager) Execute(context.Context, *plugin.Plugin, runtime.Input) result.Result[runtime.Output] {
	return result.Ok(runtime.Output{Envelope: runtime.Envelope{Success: true, Message: "executed"}})
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	bus := eventbus.New(nil)
	store, err := sqlstore.New(context.Background(), sqlstore.Config{Path: ":memory:"}, bus, nil)
	if err != nil {
		t.Fatalf("sqlstore.New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	composite := runtime.NewComposite(map[plugin.Language]runtime.Manager{plugin.LanguageManaged: stubManager{}})
	engine := workflowengine.New(store, composite, slog.Default())

	return &Dispatcher{
		Name:    "devflow",
		Version: "test",
		Store:   store,
		Engine:  engine,
		Runtime: composite,
		Logger:  slog.Default(),
	}
}

func rawReq(id, method string, params any) []byte {
	p, _ := json.Marshal(params)
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"method":  method,
		"params":  json.RawMessage(p),
	}
	out, _ := json.Marshal(req)
	return out
}

func TestHandleInitialize(t *testing.T) {
	d := newTestDispatcher(t)
	out := d.Handle(context.Background(), rawReq(`1`, "initialize", nil))

	var resp Response
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestHandleToolsListIncludesFixedTools(t *testing.T) {
	d := newTestDispatcher(t)
	out := d.Handle(context.Background(), rawReq(`2`, "tools/list", nil))

	var resp struct {
		Result struct {
			Tools []map[string]any `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(resp.Result.Tools) != len(fixedTools()) {
		t.Errorf("tools/list returned %d tools, want %d (no Available plugins yet)", len(resp.Result.Tools), len(fixedTools()))
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	d := newTestDispatcher(t)
	out := d.Handle(context.Background(), rawReq(`3`, "no/such/method", nil))

	var resp Response
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Fatalf("Error = %+v, want CodeMethodNotFound", resp.Error)
	}
}

func TestHandleBatchPreservesOrder(t *testing.T) {
	d := newTestDispatcher(t)
	batch := []byte("[" +
		string(rawReq(`"a"`, "initialize", nil)) + "," +
		string(rawReq(`"b"`, "tools/list", nil)) +
		"]")

	out := d.Handle(context.Background(), batch)

	var responses []Response
	if err := json.Unmarshal(out, &responses); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2", len(responses))
	}
	if string(responses[0].ID) != `"a"` || string(responses[1].ID) != `"b"` {
		t.Errorf("responses out of order: %q, %q", responses[0].ID, responses[1].ID)
	}
}

func TestHandleMalformedBatchIsParseError(t *testing.T) {
	d := newTestDispatcher(t)
	out := d.Handle(context.Background(), []byte("[]"))

	var resp Response
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Fatalf("Error = %+v, want CodeParseError for an empty batch", resp.Error)
	}
}

func TestHandleInvalidJSONIsParseError(t *testing.T) {
	d := newTestDispatcher(t)
	out := d.Handle(context.Background(), []byte("{not json"))

	var resp Response
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Fatalf("Error = %+v, want CodeParseError", resp.Error)
	}
}
