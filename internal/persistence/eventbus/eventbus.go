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

// Package eventbus is an in-process domain-event publisher. It is
// intentionally simple: subscribers are plain functions, delivery is
// synchronous and ordered per spec.md §5 ordering guarantee (3), and a
// failing subscriber is logged, not propagated — publish failures must
// never roll back an already-committed persistence change (spec.md §9).
package eventbus

import (
	"context"
	"log/slog"
	"sync"
)

// Event is anything with a name; the bus doesn't need the full
// domain-events.Event interface, only enough to log and route.
type Event interface {
	Name() string
}

// Handler processes one event. Returning an error only causes a log line;
// it never affects the caller of Publish.
type Handler func(ctx context.Context, evt Event) error

// Bus is a synchronous, in-process pub/sub keyed by event name.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

// New creates a Bus. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{handlers: make(map[string][]Handler), logger: logger}
}

// Subscribe registers a handler for a named event. Use "*" to subscribe to
// every event.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish delivers evt first to handlers registered for its name, then to
// wildcard handlers, each group in registration order. Handler errors are
// logged and dropped.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	b.mu.RLock()
	handlers := append(append([]Handler(nil), b.handlers[evt.Name()]...), b.handlers["*"]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, evt); err != nil {
			b.logger.Error("event handler failed",
				slog.String("event", evt.Name()),
				slog.Any("error", err))
		}
	}
	return nil
}

// PublishAll drains and publishes a batch of events in enqueue order,
// preserving per-aggregate ordering (spec.md §5 guarantee (3)).
func (b *Bus) PublishAll(ctx context.Context, events []Event) {
	for _, evt := range events {
		_ = b.Publish(ctx, evt)
	}
}
