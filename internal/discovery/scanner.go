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

package discovery

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/maxxentropy/devflow/internal/domain/plugin"
)

// Discovered is one successfully parsed and hashed plugin manifest, ready
// to become a Plugin aggregate.
type Discovered struct {
	Manifest    Manifest
	Dependencies []plugin.Dependency
	AbsPath     string // the plugin's root directory
	EntryPath   string // absolute path to the entry point file
	SourceHash  string
}

// Error is a single discovery failure for one candidate plugin directory.
// Scanner accumulates these rather than aborting (spec.md §4.D: "a corrupt
// plugin is logged and skipped — discovery must continue").
type Error struct {
	Dir     string
	Kind    string // "Validation" | "NotFound" | "Failure"
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Dir, e.Kind, e.Message)
}

// Scanner walks one or more plugin root directories for plugin.json
// manifests.
type Scanner struct {
	logger *slog.Logger
	// IncludeGlobs, when non-empty, restricts which manifest paths (relative
	// to their root) are considered, matched with doublestar so roots can be
	// scoped to e.g. "plugins/**".
	IncludeGlobs []string
}

// NewScanner builds a Scanner. A nil logger falls back to slog.Default().
func NewScanner(logger *slog.Logger, includeGlobs ...string) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger, IncludeGlobs: includeGlobs}
}

// Scan walks every root looking for plugin.json files, parsing, validating,
// and hashing each one it finds. It never returns an error itself: problems
// with individual plugin directories are reported in the returned []Error
// slice while the scan continues.
func (s *Scanner) Scan(roots []string) ([]Discovered, []Error) {
	var (
		found  []Discovered
		errs   []Error
	)

	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				errs = append(errs, Error{Dir: path, Kind: "Failure", Message: walkErr.Error()})
				return nil
			}
			if d.IsDir() || d.Name() != ManifestFileName {
				return nil
			}

			if len(s.IncludeGlobs) > 0 {
				rel, relErr := filepath.Rel(root, path)
				if relErr == nil && !matchesAny(s.IncludeGlobs, rel) {
					return nil
				}
			}

			pluginDir := filepath.Dir(path)
			discovered, dErr := s.loadOne(pluginDir, path)
			if dErr != nil {
				errs = append(errs, *dErr)
				s.logger.Warn("skipping invalid plugin", slog.String("dir", pluginDir), slog.Any("error", dErr))
				return nil
			}
			found = append(found, *discovered)
			return nil
		})
		if err != nil {
			errs = append(errs, Error{Dir: root, Kind: "Failure", Message: err.Error()})
		}
	}

	return found, errs
}

func (s *Scanner) loadOne(pluginDir, manifestPath string) (*Discovered, *Error) {
	manifestBytes, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &Error{Dir: pluginDir, Kind: "Failure", Message: "read manifest: " + err.Error()}
	}

	manifest, err := parseManifest(manifestBytes)
	if err != nil {
		return nil, &Error{Dir: pluginDir, Kind: "Validation", Message: err.Error()}
	}

	deps, err := parseDependencies(manifest.Dependencies)
	if err != nil {
		return nil, &Error{Dir: pluginDir, Kind: "Validation", Message: err.Error()}
	}

	entryPath := filepath.Join(pluginDir, manifest.EntryPoint)
	entryBytes, err := os.ReadFile(entryPath)
	if err != nil {
		return nil, &Error{Dir: pluginDir, Kind: "NotFound", Message: "entry point not found: " + manifest.EntryPoint}
	}

	hash := sha256.Sum256(append(append([]byte{}, manifestBytes...), entryBytes...))

	return &Discovered{
		Manifest:     manifest,
		Dependencies: deps,
		AbsPath:      pluginDir,
		EntryPath:    entryPath,
		SourceHash:   hex.EncodeToString(hash[:]),
	}, nil
}

func matchesAny(globs []string, rel string) bool {
	for _, g := range globs {
		if ok, err := doublestar.Match(g, filepath.ToSlash(rel)); err == nil && ok {
			return true
		}
	}
	return false
}
