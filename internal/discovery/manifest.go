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

// Package discovery scans plugin root directories for plugin.json
// manifests, validates and hashes them, and watches for on-disk changes.
package discovery

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/maxxentropy/devflow/internal/domain/plugin"
)

const ManifestFileName = "plugin.json"

// Manifest is the raw, wire-shaped contents of a plugin.json file.
type Manifest struct {
	Name          string         `json:"name"`
	Version       string         `json:"version"`
	Description    string         `json:"description"`
	Language      string         `json:"language"`
	EntryPoint    string         `json:"entryPoint"`
	Capabilities  []string       `json:"capabilities"`
	Dependencies  []string       `json:"dependencies"`
	Configuration map[string]any `json:"configuration"`
}

var dependencyRegex = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9_.-]*):([^@^~>=]+)(@|>=|\^|~)(.+)$`)

// parseManifest unmarshals and validates raw manifest bytes, per spec.md
// §4.D step 2.
func parseManifest(raw []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("malformed JSON: %w", err)
	}

	if strings.TrimSpace(m.Name) == "" {
		return Manifest{}, fmt.Errorf("missing required field: name")
	}
	if strings.TrimSpace(m.Version) == "" {
		return Manifest{}, fmt.Errorf("missing required field: version")
	}
	lang := plugin.Language(m.Language)
	if !lang.Valid() {
		return Manifest{}, fmt.Errorf("unknown language: %q", m.Language)
	}
	if strings.TrimSpace(m.EntryPoint) == "" {
		return Manifest{}, fmt.Errorf("missing required field: entryPoint")
	}
	if filepath.IsAbs(m.EntryPoint) {
		return Manifest{}, fmt.Errorf("entryPoint must be a relative path: %q", m.EntryPoint)
	}
	return m, nil
}

// parseDependencies converts the manifest's "<scheme>:<name><op><version>"
// strings into domain Dependency values. Registry schemes pkg-m, pkg-s, and
// pkg-p map to Package dependencies (scheme retained in Source for the
// resolver's registry lookup, per spec.md §6). The schemes pluginref and
// fileref are accepted as this implementation's extension for the other two
// tagged-union members the domain model allows but the wire format's
// worked example doesn't cover (see DESIGN.md Open Questions).
func parseDependencies(raw []string) ([]plugin.Dependency, error) {
	deps := make([]plugin.Dependency, 0, len(raw))
	for _, s := range raw {
		if strings.HasPrefix(s, "fileref:") {
			deps = append(deps, plugin.Dependency{Kind: plugin.DependencyFileRef, Name: strings.TrimPrefix(s, "fileref:")})
			continue
		}

		m := dependencyRegex.FindStringSubmatch(s)
		if m == nil {
			return nil, fmt.Errorf("malformed dependency declaration: %q", s)
		}
		scheme, name, op, version := m[1], m[2], m[3], m[4]

		switch scheme {
		case "pkg-m", "pkg-s", "pkg-p":
			deps = append(deps, plugin.Dependency{Kind: plugin.DependencyPackage, Name: name, Version: normalizeOp(op) + version, Source: scheme})
		case "pluginref":
			deps = append(deps, plugin.Dependency{Kind: plugin.DependencyPluginRef, Name: name, Version: normalizeOp(op) + version})
		default:
			return nil, fmt.Errorf("unknown dependency scheme: %q", scheme)
		}
	}
	return deps, nil
}

// normalizeOp maps the manifest's "@" (exact pin) operator onto the
// semver.Constraint parser's "=" spelling; the other three operators pass
// through unchanged.
func normalizeOp(op string) string {
	if op == "@" {
		return "="
	}
	return op
}
