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

import (
	"strings"
	"time"

	"github.com/maxxentropy/devflow/internal/domain/events"
	"github.com/maxxentropy/devflow/internal/domain/shared"
	"github.com/maxxentropy/devflow/pkg/result"
)

// Plugin is the aggregate root for a discovered, executable plugin.
type Plugin struct {
	events.Recorder

	ID            shared.ID
	Metadata      Metadata
	EntryPoint    string
	PluginPath    string
	Capabilities  []string
	Tags          []string
	Dependencies  []Dependency
	Configuration map[string]any
	Status        Status
	RegisteredAt  time.Time
	LastValidatedAt *time.Time
	LastExecutedAt  *time.Time
	ExecutionCount  int
	ErrorMessage    string
	SourceHash      string
	Version         int // optimistic-concurrency row version
}

// NewPlugin constructs a freshly-registered Plugin in Registered status.
func NewPlugin(metadata Metadata, entryPoint, pluginPath string, capabilities, tags []string, configuration map[string]any) result.Result[*Plugin] {
	entryPoint = strings.TrimSpace(entryPoint)
	if entryPoint == "" {
		return result.Err[*Plugin](result.NewValidation("plugin.entrypoint", "entryPoint must not be empty"))
	}
	if configuration == nil {
		configuration = map[string]any{}
	}

	id := shared.NewID()
	p := &Plugin{
		ID:            id,
		Metadata:      metadata,
		EntryPoint:    entryPoint,
		PluginPath:    pluginPath,
		Capabilities:  append([]string(nil), capabilities...),
		Tags:          append([]string(nil), tags...),
		Configuration: configuration,
		Status:        StatusRegistered,
		RegisteredAt:  time.Now().UTC(),
		Version:       1,
	}
	p.Record(Registered{Base: events.NewBase(id.String())})
	return result.Ok(p)
}

// Validate transitions the plugin based on validation outcome.
// Registered/Available/Error -> Available on success, -> Error on failure.
// A Disabled plugin is rejected; Enable returns it to Registered first.
func (p *Plugin) Validate(ok bool, message string) *result.Error {
	if p.Status == StatusDisabled {
		return result.NewValidation("plugin.validate.disabled", "a Disabled plugin must be enabled before it is validated")
	}
	now := time.Now().UTC()
	p.LastValidatedAt = &now

	if ok {
		p.Status = StatusAvailable
		p.ErrorMessage = ""
	} else {
		p.Status = StatusError
		p.ErrorMessage = message
	}
	p.Record(Validated{Base: events.NewBase(p.ID.String()), OK: ok, Message: message})
	return nil
}

// RecordExecution advances the execution counter. Only permitted while
// Available (invariant 2 in spec.md §8).
func (p *Plugin) RecordExecution() *result.Error {
	if p.Status != StatusAvailable {
		return result.NewValidation("plugin.execute.not_available", "plugin must be Available to record an execution")
	}
	p.ExecutionCount++
	now := time.Now().UTC()
	p.LastExecutedAt = &now
	p.Record(Executed{Base: events.NewBase(p.ID.String()), Count: p.ExecutionCount})
	return nil
}

// UpdateConfiguration replaces the plugin's configuration map.
func (p *Plugin) UpdateConfiguration(configuration map[string]any) *result.Error {
	if configuration == nil {
		configuration = map[string]any{}
	}
	p.Configuration = configuration
	p.Record(ConfigurationUpdated{Base: events.NewBase(p.ID.String())})
	return nil
}

// Disable transitions to Disabled from any state. A no-op (but still
// successful) if already Disabled, per spec.md §8 idempotence.
func (p *Plugin) Disable(reason string) *result.Error {
	if p.Status == StatusDisabled {
		return nil
	}
	p.Status = StatusDisabled
	p.Record(Disabled{Base: events.NewBase(p.ID.String()), Reason: reason})
	return nil
}

// Enable transitions Disabled -> Registered, requiring re-validation before
// the plugin can become Available again.
func (p *Plugin) Enable() *result.Error {
	if p.Status != StatusDisabled {
		return result.NewValidation("plugin.enable.not_disabled", "only a Disabled plugin can be enabled")
	}
	p.Status = StatusRegistered
	p.LastValidatedAt = nil
	p.Record(Enabled{Base: events.NewBase(p.ID.String())})
	return nil
}

// AddDependency appends a dependency, rejecting duplicate (name, kind) pairs.
func (p *Plugin) AddDependency(dep Dependency) *result.Error {
	for _, existing := range p.Dependencies {
		if existing.SameKey(dep) {
			return result.NewValidation("plugin.dependency.duplicate", "duplicate dependency name+type: "+dep.Name)
		}
	}
	p.Dependencies = append(p.Dependencies, dep)
	p.Record(DependencyAdded{Base: events.NewBase(p.ID.String()), Dependency: dep})
	return nil
}

// RemoveDependency removes a dependency by (name, kind).
func (p *Plugin) RemoveDependency(name string, kind DependencyKind) *result.Error {
	for i, existing := range p.Dependencies {
		if existing.Name == name && existing.Kind == kind {
			p.Dependencies = append(p.Dependencies[:i], p.Dependencies[i+1:]...)
			p.Record(DependencyRemoved{Base: events.NewBase(p.ID.String()), Name_: name, Kind: kind})
			return nil
		}
	}
	return result.NewNotFound("plugin.dependency.not_found", "no such dependency: "+name)
}

// ReplaceDependencies swaps the full dependency set, rejecting any
// duplicate (name, kind) pair within the replacement.
func (p *Plugin) ReplaceDependencies(deps []Dependency) *result.Error {
	seen := make(map[string]struct{}, len(deps))
	for _, d := range deps {
		key := string(d.Kind) + "\x00" + d.Name
		if _, ok := seen[key]; ok {
			return result.NewValidation("plugin.dependency.duplicate", "duplicate dependency name+type: "+d.Name)
		}
		seen[key] = struct{}{}
	}
	p.Dependencies = append([]Dependency(nil), deps...)
	p.Record(DependenciesReplaced{Base: events.NewBase(p.ID.String()), Count: len(deps)})
	return nil
}

// CanExecute reports whether the plugin is in a state that allows execution.
func (p *Plugin) CanExecute() bool {
	return p.Status == StatusAvailable
}
