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

package workflow

import "github.com/maxxentropy/devflow/internal/domain/events"

type Created struct{ events.Base }

func (Created) Name() string { return "Workflow.Created" }

type Started struct{ events.Base }

func (Started) Name() string { return "Workflow.Started" }

type Completed struct{ events.Base }

func (Completed) Name() string { return "Workflow.Completed" }

type Failed struct {
	events.Base
	Message string
}

func (Failed) Name() string { return "Workflow.Failed" }

type Paused struct{ events.Base }

func (Paused) Name() string { return "Workflow.Paused" }

type Resumed struct{ events.Base }

func (Resumed) Name() string { return "Workflow.Resumed" }

type Cancelled struct{ events.Base }

func (Cancelled) Name() string { return "Workflow.Cancelled" }

type Updated struct{ events.Base }

func (Updated) Name() string { return "Workflow.Updated" }

type StepAdded struct {
	events.Base
	StepID string
}

func (StepAdded) Name() string { return "Workflow.StepAdded" }
