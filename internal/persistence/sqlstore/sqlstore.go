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

// Package sqlstore is the concrete persistence.Port implementation backed
// by database/sql and the pure-Go modernc.org/sqlite driver. CRUD methods
// commit their write immediately (SQLite serializes writes to a single
// connection regardless); what they do NOT do is publish the aggregate's
// domain events inline. Events are drained into an in-memory queue at write
// time and only handed to the EventBus on the next SaveChanges call, so a
// caller can batch several aggregate writes and a single event flush
// across one logical unit of work.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/maxxentropy/devflow/internal/domain/events"
	"github.com/maxxentropy/devflow/internal/persistence"
	"github.com/maxxentropy/devflow/pkg/result"
)

// Compile-time interface assertion.
var _ persistence.Port = (*Store)(nil)

// Config configures the SQLite-backed store.
type Config struct {
	// Path is the database file path, or ":memory:" for an ephemeral
	// in-process database (used by tests and single-shot tooling).
	Path string

	// WAL enables Write-Ahead Logging for concurrent readers.
	WAL bool
}

// Store is a SQLite persistence.Port implementation.
type Store struct {
	db     *sql.DB
	bus    persistence.EventBus
	logger *slog.Logger

	mu      sync.Mutex
	pending []events.Event
}

// New opens (creating if necessary) the SQLite database at cfg.Path, runs
// migrations, and returns a ready Store. bus receives events drained by
// SaveChanges; logger defaults to slog.Default() when nil.
func New(ctx context.Context, cfg Config, bus persistence.EventBus, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open database: %w", err)
	}

	// SQLite serializes writes; a single connection avoids SQLITE_BUSY
	// errors under concurrent writers instead of papering over them with
	// retries.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: connect: %w", err)
	}

	s := &Store{db: db, bus: bus, logger: logger}

	if err := s.configurePragmas(ctx, cfg.WAL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: configure pragmas: %w", err)
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}

	return s, nil
}

func (s *Store) configurePragmas(ctx context.Context, wal bool) error {
	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	if wal {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS plugins (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			version TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL,
			entry_point TEXT NOT NULL,
			plugin_path TEXT NOT NULL,
			capabilities TEXT NOT NULL DEFAULT '[]',
			tags TEXT NOT NULL DEFAULT '[]',
			dependencies TEXT NOT NULL DEFAULT '[]',
			configuration TEXT NOT NULL DEFAULT '{}',
			status TEXT NOT NULL,
			registered_at TEXT NOT NULL,
			last_validated_at TEXT,
			last_executed_at TEXT,
			execution_count INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			source_hash TEXT NOT NULL DEFAULT '',
			row_version INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_plugins_name_version ON plugins(name, version)`,
		`CREATE INDEX IF NOT EXISTS idx_plugins_status ON plugins(status)`,
		`CREATE INDEX IF NOT EXISTS idx_plugins_source_hash ON plugins(source_hash)`,
		`CREATE TABLE IF NOT EXISTS workflows (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			started_at TEXT,
			completed_at TEXT,
			error_message TEXT NOT NULL DEFAULT '',
			row_version INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_workflows_status ON workflows(status)`,
		`CREATE INDEX IF NOT EXISTS idx_workflows_created_at ON workflows(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_workflows_name ON workflows(name)`,
		`CREATE TABLE IF NOT EXISTS workflow_steps (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			plugin_id TEXT NOT NULL,
			step_order INTEGER NOT NULL,
			sequence INTEGER NOT NULL,
			configuration TEXT NOT NULL DEFAULT '{}',
			status TEXT NOT NULL,
			created_at TEXT NOT NULL,
			started_at TEXT,
			completed_at TEXT,
			error_message TEXT NOT NULL DEFAULT '',
			output TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_workflow_steps_workflow_order ON workflow_steps(workflow_id, step_order)`,
		`CREATE INDEX IF NOT EXISTS idx_workflow_steps_status ON workflow_steps(status)`,
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// enqueue drains an aggregate's recorded events into the store's pending
// queue. Called after a write has already committed successfully.
func (s *Store) enqueue(recorded []events.Event) {
	if len(recorded) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, recorded...)
}

// SaveChanges publishes every event queued by CRUD calls since the last
// SaveChanges, in enqueue order, and reports how many were published. A
// publish failure is logged by the bus and never returned as an error —
// the underlying rows are already committed (spec.md §9).
func (s *Store) SaveChanges(ctx context.Context) (int, *result.Error) {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, evt := range batch {
		if err := s.bus.Publish(ctx, evt); err != nil {
			s.logger.Error("failed to publish domain event",
				slog.String("event", evt.Name()), slog.Any("error", err))
		}
	}
	return len(batch), nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
