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

// Package dependency resolves a plugin's declared dependencies — registry
// packages, references to other plugins, and file references within the
// plugin's own directory — into concrete, on-disk load paths.
package dependency

import "github.com/maxxentropy/devflow/internal/domain/plugin"

// Resolved is one dependency after resolution, carrying where it landed.
type Resolved struct {
	Dependency plugin.Dependency
	Path       string // on-disk location: cache entry, plugin dir, or file path
}

// Issue is a single resolution problem, reported instead of aborting the
// whole resolution so callers see every failing dependency at once.
type Issue struct {
	Dependency plugin.Dependency
	Code       string
	Message    string
}

// Context is the output of Resolve: everything the runtime managers need to
// prepare a plugin's execution environment.
type Context struct {
	Resolved   []Resolved
	Assemblies []string // cache paths contributing loadable code/binaries
	LoadPaths  []string // directories to add to the plugin's search path
	Errors     []Issue
}
