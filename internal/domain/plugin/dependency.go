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

// DependencyKind discriminates the tagged union PluginDependency describes
// in spec.md §3. Go has no sum types, so the union is modelled as a single
// struct carrying a Kind tag plus the fields relevant to that kind.
type DependencyKind string

const (
	DependencyPackage  DependencyKind = "Package"
	DependencyPluginRef DependencyKind = "PluginRef"
	DependencyFileRef  DependencyKind = "FileRef"
)

// Dependency is a value object: equality is by (Name, Kind) alone, per
// spec.md's uniqueness invariant.
type Dependency struct {
	Kind    DependencyKind
	Name    string
	Version string // exact value or range expression; meaning depends on Kind
	Source  string // optional: registry scheme, explicit path, etc.
}

// SameKey reports whether two dependencies share a (name, kind) identity.
func (d Dependency) SameKey(other Dependency) bool {
	return d.Name == other.Name && d.Kind == other.Kind
}
