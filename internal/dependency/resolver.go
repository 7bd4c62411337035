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

package dependency

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maxxentropy/devflow/internal/domain/plugin"
	"github.com/maxxentropy/devflow/internal/semver"
	"github.com/maxxentropy/devflow/pkg/result"
)

// PluginLookup is the narrow slice of the plugin repository the resolver
// needs: finding the best Available match for a PluginRef dependency.
type PluginLookup interface {
	FindAvailable(ctx context.Context, name string, constraint semver.Constraint) (*plugin.Plugin, bool, error)
}

// Resolver resolves a Plugin's declared dependencies into on-disk load
// paths: Package dependencies via the registry Cache, PluginRef
// dependencies via PluginLookup, FileRef dependencies against the plugin's
// own directory.
type Resolver struct {
	cache   *Cache
	plugins PluginLookup
}

// NewResolver builds a Resolver. plugins may be nil if the caller never
// resolves PluginRef dependencies (e.g. validation-only tooling).
func NewResolver(cache *Cache, plugins PluginLookup) *Resolver {
	return &Resolver{cache: cache, plugins: plugins}
}

// Resolve resolves every dependency of p, downloading Package dependencies
// on cache miss. Every dependency is attempted; if any of them fails, the
// result is a Failure whose message counts the failed dependencies, and
// neither the partial Context nor the individual Issues are returned.
func (r *Resolver) Resolve(ctx context.Context, p *plugin.Plugin) result.Result[*Context] {
	out := &Context{}

	for _, dep := range p.Dependencies {
		switch dep.Kind {
		case plugin.DependencyPackage:
			resolved, issue := r.resolvePackage(ctx, dep)
			if issue != nil {
				out.Errors = append(out.Errors, *issue)
				continue
			}
			out.Resolved = append(out.Resolved, *resolved)
			out.Assemblies = append(out.Assemblies, resolved.Path)
			out.LoadPaths = append(out.LoadPaths, resolved.Path)

		case plugin.DependencyPluginRef:
			resolved, issue := r.resolvePluginRef(ctx, dep)
			if issue != nil {
				out.Errors = append(out.Errors, *issue)
				continue
			}
			out.Resolved = append(out.Resolved, *resolved)
			out.LoadPaths = append(out.LoadPaths, resolved.Path)

		case plugin.DependencyFileRef:
			resolved, issue := resolveFileRef(p.PluginPath, dep)
			if issue != nil {
				out.Errors = append(out.Errors, *issue)
				continue
			}
			out.Resolved = append(out.Resolved, *resolved)

		default:
			out.Errors = append(out.Errors, Issue{Dependency: dep, Code: "dependency.kind.unknown", Message: "unrecognised dependency kind: " + string(dep.Kind)})
		}
	}

	if len(out.Errors) > 0 {
		return result.Err[*Context](result.NewFailure("dependency.resolve.partial_failure", fmt.Sprintf("%d of %d dependencies failed to resolve", len(out.Errors), len(p.Dependencies))))
	}
	return result.Ok(out)
}

// Validate reports dependency issues without downloading anything —
// confirming catalog/availability only (spec.md §4.E validation-only mode).
func (r *Resolver) Validate(ctx context.Context, p *plugin.Plugin) result.Result[[]Issue] {
	var issues []Issue
	for _, dep := range p.Dependencies {
		switch dep.Kind {
		case plugin.DependencyPackage:
			registry, name, err := splitRegistryName(dep)
			if err != nil {
				issues = append(issues, Issue{Dependency: dep, Code: "dependency.package.malformed", Message: err.Error()})
				continue
			}
			constraint, err := semver.ParseConstraint(dep.Version)
			if err != nil {
				issues = append(issues, Issue{Dependency: dep, Code: "dependency.version.malformed", Message: err.Error()})
				continue
			}
			if _, ok := semver.HighestSatisfying(constraint, r.cache.Versions(registry, name)); !ok {
				issues = append(issues, Issue{Dependency: dep, Code: "dependency.package.no_candidate", Message: "no cached version satisfies " + dep.Version + "; a download would be required"})
			}

		case plugin.DependencyPluginRef:
			if r.plugins == nil {
				issues = append(issues, Issue{Dependency: dep, Code: "dependency.pluginref.no_lookup", Message: "no plugin repository available to validate against"})
				continue
			}
			constraint, err := semver.ParseConstraint(dep.Version)
			if err != nil {
				issues = append(issues, Issue{Dependency: dep, Code: "dependency.version.malformed", Message: err.Error()})
				continue
			}
			if _, ok, err := r.plugins.FindAvailable(ctx, dep.Name, constraint); err != nil || !ok {
				issues = append(issues, Issue{Dependency: dep, Code: "dependency.pluginref.not_found", Message: "no Available plugin satisfies " + dep.Name + dep.Version})
			}

		case plugin.DependencyFileRef:
			if _, issue := resolveFileRef(p.PluginPath, dep); issue != nil {
				issues = append(issues, *issue)
			}
		}
	}
	return result.Ok(issues)
}

func (r *Resolver) resolvePackage(ctx context.Context, dep plugin.Dependency) (*Resolved, *Issue) {
	registry, name, err := splitRegistryName(dep)
	if err != nil {
		return nil, &Issue{Dependency: dep, Code: "dependency.package.malformed", Message: err.Error()}
	}
	constraint, err := semver.ParseConstraint(dep.Version)
	if err != nil {
		return nil, &Issue{Dependency: dep, Code: "dependency.version.malformed", Message: err.Error()}
	}

	version, ok := semver.HighestSatisfying(constraint, r.cache.Versions(registry, name))
	if !ok {
		// Nothing cached satisfies the range; download the constraint's
		// own version as the concrete candidate (a real registry client
		// would query available versions first — out of scope here).
		version = constraint.Version
	}

	path, err := r.cache.Ensure(ctx, registry, name, version)
	if err != nil {
		return nil, &Issue{Dependency: dep, Code: "dependency.package.download_failed", Message: err.Error()}
	}
	return &Resolved{Dependency: dep, Path: path}, nil
}

func (r *Resolver) resolvePluginRef(ctx context.Context, dep plugin.Dependency) (*Resolved, *Issue) {
	if r.plugins == nil {
		return nil, &Issue{Dependency: dep, Code: "dependency.pluginref.no_lookup", Message: "no plugin repository configured"}
	}
	constraint, err := semver.ParseConstraint(dep.Version)
	if err != nil {
		return nil, &Issue{Dependency: dep, Code: "dependency.version.malformed", Message: err.Error()}
	}
	p, ok, err := r.plugins.FindAvailable(ctx, dep.Name, constraint)
	if err != nil {
		return nil, &Issue{Dependency: dep, Code: "dependency.pluginref.lookup_failed", Message: err.Error()}
	}
	if !ok {
		return nil, &Issue{Dependency: dep, Code: "dependency.pluginref.not_found", Message: "no Available plugin satisfies " + dep.Name + dep.Version}
	}
	return &Resolved{Dependency: dep, Path: p.PluginPath}, nil
}

func resolveFileRef(pluginPath string, dep plugin.Dependency) (*Resolved, *Issue) {
	joined := filepath.Join(pluginPath, dep.Name)
	cleanRoot := filepath.Clean(pluginPath)
	cleanJoined := filepath.Clean(joined)
	if cleanJoined != cleanRoot && !strings.HasPrefix(cleanJoined, cleanRoot+string(filepath.Separator)) {
		return nil, &Issue{Dependency: dep, Code: "dependency.fileref.escape", Message: "file reference escapes plugin directory: " + dep.Name}
	}
	if _, err := os.Stat(cleanJoined); err != nil {
		return nil, &Issue{Dependency: dep, Code: "dependency.fileref.not_found", Message: "referenced file does not exist: " + dep.Name}
	}
	return &Resolved{Dependency: dep, Path: cleanJoined}, nil
}

// splitRegistryName extracts the registry scheme (pkg-m/pkg-s/pkg-p) from a
// Package dependency. The scheme is carried in Dependency.Source by
// discovery's manifest parser (manifest form "<scheme>:<name><op><version>").
func splitRegistryName(dep plugin.Dependency) (registry, name string, err error) {
	if dep.Source == "" {
		return "", "", fmt.Errorf("dependency.package %q missing registry scheme", dep.Name)
	}
	return dep.Source, dep.Name, nil
}

// DetectCycles performs a depth-first search over the transitive closure of
// root's PluginRef dependencies, reporting a Validation issue on the first
// cycle found.
func (r *Resolver) DetectCycles(ctx context.Context, root *plugin.Plugin) *result.Error {
	if r.plugins == nil {
		return nil
	}
	visiting := map[string]bool{}
	visited := map[string]bool{}

	var visit func(p *plugin.Plugin) *result.Error
	visit = func(p *plugin.Plugin) *result.Error {
		key := p.Metadata.Name + "@" + p.Metadata.Version.String()
		if visiting[key] {
			return result.NewValidation("dependency.pluginref.cycle", "dependency cycle detected at "+key)
		}
		if visited[key] {
			return nil
		}
		visiting[key] = true
		defer func() { visiting[key] = false; visited[key] = true }()

		for _, dep := range p.Dependencies {
			if dep.Kind != plugin.DependencyPluginRef {
				continue
			}
			constraint, err := semver.ParseConstraint(dep.Version)
			if err != nil {
				continue
			}
			next, ok, err := r.plugins.FindAvailable(ctx, dep.Name, constraint)
			if err != nil || !ok {
				continue
			}
			if cycleErr := visit(next); cycleErr != nil {
				return cycleErr
			}
		}
		return nil
	}

	return visit(root)
}
