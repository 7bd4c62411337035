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
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/maxxentropy/devflow/internal/semver"
)

// Downloader fetches one package version into destDir. The concrete
// implementation is registry-specific (pkg-m/pkg-s/pkg-p); Cache only
// coordinates and retries calls to it.
type Downloader interface {
	Download(ctx context.Context, registry, name string, version semver.Version, destDir string) error
}

// Cache is a content-addressed, on-disk store for resolved registry
// packages, laid out <root>/<registry>/<name>/<version>/. Concurrent
// requests for the same (registry, name, version) share one download via a
// keyed single-flight group.
type Cache struct {
	root       string
	downloader Downloader
	logger     *slog.Logger
	group      singleflight.Group
}

// NewCache roots a Cache at root, creating it if necessary.
func NewCache(root string, downloader Downloader, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("dependency: create cache root: %w", err)
	}
	return &Cache{root: root, downloader: downloader, logger: logger}, nil
}

// Versions lists the versions of (registry, name) currently on disk.
func (c *Cache) Versions(registry, name string) []semver.Version {
	dir := filepath.Join(c.root, registry, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []semver.Version
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, err := semver.Parse(e.Name())
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Path returns the on-disk directory for an already-cached version.
func (c *Cache) Path(registry, name string, version semver.Version) string {
	return filepath.Join(c.root, registry, name, version.String())
}

// Ensure guarantees (registry, name, version) is present on disk, downloading
// it if necessary. Concurrent calls for the same key share one download and
// one retry sequence; a download is attempted at most 3 times in total,
// with a 500ms base exponential backoff between attempts (spec.md §7 retry
// policy).
func (c *Cache) Ensure(ctx context.Context, registry, name string, version semver.Version) (string, error) {
	dest := c.Path(registry, name, version)
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		return dest, nil
	}

	key := registry + ":" + name + ":" + version.String()
	v, err, _ := c.group.Do(key, func() (any, error) {
		if info, err := os.Stat(dest); err == nil && info.IsDir() {
			return dest, nil
		}
		return dest, c.downloadWithRetry(ctx, registry, name, version, dest)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Cache) downloadWithRetry(ctx context.Context, registry, name string, version semver.Version, dest string) error {
	const maxAttempts = 3
	const baseDelay = 500 * time.Millisecond

	tmp := dest + ".partial"
	defer os.RemoveAll(tmp)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := os.MkdirAll(tmp, 0o755); err != nil {
			return fmt.Errorf("dependency: prepare download dir: %w", err)
		}
		lastErr = c.downloader.Download(ctx, registry, name, version, tmp)
		if lastErr == nil {
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return fmt.Errorf("dependency: prepare cache dir: %w", err)
			}
			if err := os.Rename(tmp, dest); err != nil {
				return fmt.Errorf("dependency: commit download: %w", err)
			}
			return nil
		}

		c.logger.Warn("dependency download attempt failed",
			slog.String("registry", registry), slog.String("name", name),
			slog.String("version", version.String()), slog.Int("attempt", attempt), slog.Any("error", lastErr))

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(baseDelay * time.Duration(1<<(attempt-1))):
		}
		os.RemoveAll(tmp)
	}
	return fmt.Errorf("dependency: download %s:%s@%s failed after %d attempts: %w", registry, name, version, maxAttempts, lastErr)
}
