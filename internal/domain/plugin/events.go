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

package plugin

import "github.com/maxxentropy/devflow/internal/domain/events"

type Registered struct {
	events.Base
}

func (Registered) Name() string { return "Plugin.Registered" }

type Validated struct {
	events.Base
	OK      bool
	Message string
}

func (Validated) Name() string { return "Plugin.Validated" }

type Executed struct {
	events.Base
	Count int
}

func (Executed) Name() string { return "Plugin.Executed" }

type ConfigurationUpdated struct {
	events.Base
}

func (ConfigurationUpdated) Name() string { return "Plugin.ConfigurationUpdated" }

type Disabled struct {
	events.Base
	Reason string
}

func (Disabled) Name() string { return "Plugin.Disabled" }

type Enabled struct {
	events.Base
}

func (Enabled) Name() string { return "Plugin.Enabled" }

type DependencyAdded struct {
	events.Base
	Dependency Dependency
}

func (DependencyAdded) Name() string { return "Plugin.DependencyAdded" }

type DependencyRemoved struct {
	events.Base
	Name_ string
	Kind  DependencyKind
}

func (DependencyRemoved) Name() string { return "Plugin.DependencyRemoved" }

type DependenciesReplaced struct {
	events.Base
	Count int
}

func (DependenciesReplaced) Name() string { return "Plugin.DependenciesReplaced" }
