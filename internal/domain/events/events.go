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

// Package events defines the domain-event contract shared by the Plugin and
// Workflow aggregates, and a small composable Recorder the aggregates embed
// instead of inheriting from a base class.
package events

import "time"

// Event is anything an aggregate can enqueue and a subscriber can act on.
type Event interface {
	Name() string
	OccurredAt() time.Time
	AggregateID() string
}

// Base is embedded by concrete event types to satisfy OccurredAt/AggregateID.
type Base struct {
	aggregateID string
	occurredAt  time.Time
}

// NewBase stamps a Base with the current time.
func NewBase(aggregateID string) Base {
	return Base{aggregateID: aggregateID, occurredAt: time.Now().UTC()}
}

func (b Base) OccurredAt() time.Time   { return b.occurredAt }
func (b Base) AggregateID() string     { return b.aggregateID }

// Recorder is embedded by aggregate roots. It replaces inheritance-based
// "aggregate root" base classes with composition: an aggregate gets event
// recording by holding a Recorder field, not by extending one.
type Recorder struct {
	pending []Event
}

// Record appends an event to the aggregate's pending queue.
func (r *Recorder) Record(e Event) {
	r.pending = append(r.pending, e)
}

// Events returns the queued events without clearing them.
func (r *Recorder) Events() []Event {
	return r.pending
}

// ClearEvents drains the queue. Called by the persistence port after a
// successful commit, never by domain code itself.
func (r *Recorder) ClearEvents() {
	r.pending = nil
}
