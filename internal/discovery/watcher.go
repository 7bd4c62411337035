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
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// IsModified reports whether the manifest or entry point under pluginDir
// has an mtime newer than lastScan (spec.md §4.D reload detection).
func IsModified(pluginDir string, entryPoint string, lastScan time.Time) bool {
	paths := []string{filepath.Join(pluginDir, ManifestFileName), filepath.Join(pluginDir, entryPoint)}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.ModTime().After(lastScan) {
			return true
		}
	}
	return false
}

// Watcher triggers a rescan signal when watched plugin roots change on
// disk, either via fsnotify events or — when ScanInterval is set — a
// periodic ticker as a fallback for filesystems fsnotify can't observe.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	logger       *slog.Logger
	ScanInterval time.Duration

	Rescan chan struct{}
}

// NewWatcher constructs a Watcher rooted at the given plugin directories.
func NewWatcher(roots []string, scanInterval time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, root := range roots {
		_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil || d == nil || !d.IsDir() {
				return nil
			}
			return fsWatcher.Add(path)
		})
	}
	return &Watcher{fsWatcher: fsWatcher, logger: logger, ScanInterval: scanInterval, Rescan: make(chan struct{}, 1)}, nil
}

// Run blocks, forwarding a rescan signal (non-blocking send) whenever a
// watched path changes or the scan interval elapses, until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	var tick <-chan time.Time
	if w.ScanInterval > 0 {
		ticker := time.NewTicker(w.ScanInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.logger.Debug("plugin directory changed", slog.String("path", evt.Name), slog.String("op", evt.Op.String()))
			w.signal()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("plugin watcher error", slog.Any("error", err))
		case <-tick:
			w.signal()
		}
	}
}

func (w *Watcher) signal() {
	select {
	case w.Rescan <- struct{}{}:
	default:
	}
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}
