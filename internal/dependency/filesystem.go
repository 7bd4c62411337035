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
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/maxxentropy/devflow/internal/semver"
)

// registryIndex is the YAML sidecar a filesystem-backed registry root
// carries at <sourceRoot>/<registry>/<name>/index.yaml, mapping each
// published version to the directory holding its files.
type registryIndex struct {
	Versions map[string]string `yaml:"versions"`
}

// FilesystemDownloader resolves package downloads against a local registry
// mirror rather than a network service: <sourceRoot>/<registry>/<name>/
// holds an index.yaml plus one subdirectory per published version. This
// is the host's offline/self-hosted registry mode (spec.md §4.E names the
// registry families pkg-m/pkg-s/pkg-p but leaves the transport
// unspecified); an HTTP-backed Downloader can be swapped in later without
// touching Cache or Resolver.
type FilesystemDownloader struct {
	SourceRoot string
}

// NewFilesystemDownloader roots a FilesystemDownloader at sourceRoot.
func NewFilesystemDownloader(sourceRoot string) *FilesystemDownloader {
	return &FilesystemDownloader{SourceRoot: sourceRoot}
}

// Download implements Downloader by looking name/version up in the
// registry's index.yaml and copying its version directory into destDir.
func (d *FilesystemDownloader) Download(ctx context.Context, registry, name string, version semver.Version, destDir string) error {
	indexPath := filepath.Join(d.SourceRoot, registry, name, "index.yaml")
	raw, err := os.ReadFile(indexPath)
	if err != nil {
		return fmt.Errorf("dependency: read registry index %s: %w", indexPath, err)
	}

	var idx registryIndex
	if err := yaml.Unmarshal(raw, &idx); err != nil {
		return fmt.Errorf("dependency: parse registry index %s: %w", indexPath, err)
	}

	rel, ok := idx.Versions[version.String()]
	if !ok {
		return fmt.Errorf("dependency: %s/%s has no published version %s", registry, name, version)
	}

	src := filepath.Join(d.SourceRoot, registry, name, rel)
	if err := ctx.Err(); err != nil {
		return err
	}
	return copyTree(src, destDir)
}

// copyTree recursively copies src into dst, preserving relative structure.
// Symlinks are copied as regular file contents; the registry mirror is
// expected to hold plain files.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
