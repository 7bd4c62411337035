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

package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/maxxentropy/devflow/internal/domain/plugin"
	"github.com/maxxentropy/devflow/internal/domain/shared"
	"github.com/maxxentropy/devflow/internal/persistence"
	"github.com/maxxentropy/devflow/internal/semver"
	"github.com/maxxentropy/devflow/pkg/result"
)

const pluginColumns = `id, name, version, description, language, entry_point, plugin_path,
	capabilities, tags, dependencies, configuration, status, registered_at,
	last_validated_at, last_executed_at, execution_count, error_message, source_hash, row_version`

func (s *Store) GetPlugin(ctx context.Context, id shared.ID) result.Result[*plugin.Plugin] {
	row := s.db.QueryRowContext(ctx, `SELECT `+pluginColumns+` FROM plugins WHERE id = ?`, id.String())
	p, err := scanPlugin(row)
	if errors.Is(err, sql.ErrNoRows) {
		return result.Err[*plugin.Plugin](result.NewNotFound("plugin.not_found", "no such plugin: "+id.String()))
	}
	if err != nil {
		return result.Err[*plugin.Plugin](result.NewFailure("plugin.get.failed", "failed to load plugin").Wrap(err))
	}
	return result.Ok(p)
}

func (s *Store) AddPlugin(ctx context.Context, p *plugin.Plugin) *result.Error {
	caps, err := json.Marshal(p.Capabilities)
	if err != nil {
		return result.NewUnexpected("plugin.marshal.capabilities", "failed to marshal capabilities").Wrap(err)
	}
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return result.NewUnexpected("plugin.marshal.tags", "failed to marshal tags").Wrap(err)
	}
	deps, err := json.Marshal(p.Dependencies)
	if err != nil {
		return result.NewUnexpected("plugin.marshal.dependencies", "failed to marshal dependencies").Wrap(err)
	}
	cfg, err := json.Marshal(p.Configuration)
	if err != nil {
		return result.NewUnexpected("plugin.marshal.configuration", "failed to marshal configuration").Wrap(err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO plugins (id, name, version, description, language, entry_point, plugin_path,
			capabilities, tags, dependencies, configuration, status, registered_at,
			last_validated_at, last_executed_at, execution_count, error_message, source_hash, row_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.Metadata.Name, p.Metadata.Version.String(), p.Metadata.Description, string(p.Metadata.Language),
		p.EntryPoint, p.PluginPath, string(caps), string(tags), string(deps), string(cfg), string(p.Status),
		formatTime(&p.RegisteredAt), formatTime(p.LastValidatedAt), formatTime(p.LastExecutedAt),
		p.ExecutionCount, p.ErrorMessage, p.SourceHash, p.Version,
	)
	if isUniqueViolation(err) {
		return result.NewConflict("plugin.duplicate", fmt.Sprintf("a plugin named %q at version %q already exists", p.Metadata.Name, p.Metadata.Version.String()))
	}
	if err != nil {
		return result.NewFailure("plugin.add.failed", "failed to insert plugin").Wrap(err)
	}

	s.enqueue(p.Events())
	p.ClearEvents()
	return nil
}

func (s *Store) UpdatePlugin(ctx context.Context, p *plugin.Plugin) *result.Error {
	caps, err := json.Marshal(p.Capabilities)
	if err != nil {
		return result.NewUnexpected("plugin.marshal.capabilities", "failed to marshal capabilities").Wrap(err)
	}
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return result.NewUnexpected("plugin.marshal.tags", "failed to marshal tags").Wrap(err)
	}
	deps, err := json.Marshal(p.Dependencies)
	if err != nil {
		return result.NewUnexpected("plugin.marshal.dependencies", "failed to marshal dependencies").Wrap(err)
	}
	cfg, err := json.Marshal(p.Configuration)
	if err != nil {
		return result.NewUnexpected("plugin.marshal.configuration", "failed to marshal configuration").Wrap(err)
	}

	newVersion := p.Version + 1
	res, err := s.db.ExecContext(ctx, `
		UPDATE plugins SET
			name = ?, version = ?, description = ?, language = ?, entry_point = ?, plugin_path = ?,
			capabilities = ?, tags = ?, dependencies = ?, configuration = ?, status = ?,
			last_validated_at = ?, last_executed_at = ?, execution_count = ?, error_message = ?,
			source_hash = ?, row_version = ?
		WHERE id = ? AND row_version = ?`,
		p.Metadata.Name, p.Metadata.Version.String(), p.Metadata.Description, string(p.Metadata.Language),
		p.EntryPoint, p.PluginPath, string(caps), string(tags), string(deps), string(cfg), string(p.Status),
		formatTime(p.LastValidatedAt), formatTime(p.LastExecutedAt), p.ExecutionCount, p.ErrorMessage,
		p.SourceHash, newVersion,
		p.ID.String(), p.Version,
	)
	if err != nil {
		return result.NewFailure("plugin.update.failed", "failed to update plugin").Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return result.NewFailure("plugin.update.rows_affected", "failed to inspect update result").Wrap(err)
	}
	if n == 0 {
		return result.NewConflict("plugin.version_conflict", "plugin was modified by another writer; reload and retry")
	}

	p.Version = newVersion
	s.enqueue(p.Events())
	p.ClearEvents()
	return nil
}

func (s *Store) RemovePlugin(ctx context.Context, p *plugin.Plugin) *result.Error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plugins WHERE id = ? AND row_version = ?`, p.ID.String(), p.Version)
	if err != nil {
		return result.NewFailure("plugin.remove.failed", "failed to delete plugin").Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return result.NewFailure("plugin.remove.rows_affected", "failed to inspect delete result").Wrap(err)
	}
	if n == 0 {
		return result.NewConflict("plugin.version_conflict", "plugin was modified by another writer; reload and retry")
	}

	s.enqueue(p.Events())
	p.ClearEvents()
	return nil
}

func (s *Store) ListPlugins(ctx context.Context, filter persistence.PluginFilter) result.Result[[]*plugin.Plugin] {
	query := `SELECT ` + pluginColumns + ` FROM plugins WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Language != "" {
		query += ` AND language = ?`
		args = append(args, string(filter.Language))
	}
	if filter.Search != "" {
		query += ` AND (name LIKE ? OR description LIKE ?)`
		needle := "%" + filter.Search + "%"
		args = append(args, needle, needle)
	}
	query += ` ORDER BY registered_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return result.Err[[]*plugin.Plugin](result.NewFailure("plugin.list.failed", "failed to list plugins").Wrap(err))
	}
	defer rows.Close()

	var out []*plugin.Plugin
	for rows.Next() {
		p, err := scanPlugin(rows)
		if err != nil {
			return result.Err[[]*plugin.Plugin](result.NewFailure("plugin.list.scan_failed", "failed to scan plugin row").Wrap(err))
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return result.Err[[]*plugin.Plugin](result.NewFailure("plugin.list.rows_failed", "failed iterating plugin rows").Wrap(err))
	}
	return result.Ok(out)
}

func (s *Store) PluginExists(ctx context.Context, name, version string) (bool, *result.Error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM plugins WHERE name = ? AND version = ?`, name, version).Scan(&count)
	if err != nil {
		return false, result.NewFailure("plugin.exists.failed", "failed to check plugin existence").Wrap(err)
	}
	return count > 0, nil
}

// scanner abstracts *sql.Row and *sql.Rows so scanPlugin serves both
// GetPlugin and ListPlugins.
type scanner interface {
	Scan(dest ...any) error
}

func scanPlugin(row scanner) (*plugin.Plugin, error) {
	var (
		id, name, versionStr, description, language, entryPoint, pluginPath string
		capsJSON, tagsJSON, depsJSON, cfgJSON, status, registeredAt          string
		lastValidatedAt, lastExecutedAt                                     sql.NullString
		executionCount                                                      int
		errorMessage, sourceHash                                            string
		rowVersion                                                          int
	)
	if err := row.Scan(&id, &name, &versionStr, &description, &language, &entryPoint, &pluginPath,
		&capsJSON, &tagsJSON, &depsJSON, &cfgJSON, &status, &registeredAt,
		&lastValidatedAt, &lastExecutedAt, &executionCount, &errorMessage, &sourceHash, &rowVersion); err != nil {
		return nil, err
	}

	var capabilities, tags []string
	if err := json.Unmarshal([]byte(capsJSON), &capabilities); err != nil {
		return nil, fmt.Errorf("unmarshal capabilities: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	var dependencies []plugin.Dependency
	if err := json.Unmarshal([]byte(depsJSON), &dependencies); err != nil {
		return nil, fmt.Errorf("unmarshal dependencies: %w", err)
	}
	var configuration map[string]any
	if err := json.Unmarshal([]byte(cfgJSON), &configuration); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	v, err := semver.Parse(versionStr)
	if err != nil {
		return nil, fmt.Errorf("parse stored version %q: %w", versionStr, err)
	}

	parsedID := shared.ParseID(id)
	if !parsedID.IsOk() {
		return nil, fmt.Errorf("parse stored plugin id %q: %v", id, parsedID.Error())
	}

	registered, err := parseTime(registeredAt)
	if err != nil {
		return nil, fmt.Errorf("parse registered_at: %w", err)
	}

	p := &plugin.Plugin{
		ID: parsedID.Unwrap(),
		Metadata: plugin.Metadata{
			Name:        name,
			Version:     v,
			Description: description,
			Language:    plugin.Language(language),
		},
		EntryPoint:      entryPoint,
		PluginPath:      pluginPath,
		Capabilities:    capabilities,
		Tags:            tags,
		Dependencies:    dependencies,
		Configuration:   configuration,
		Status:          plugin.Status(status),
		RegisteredAt:    registered,
		LastValidatedAt: nullableTime(lastValidatedAt),
		LastExecutedAt:  nullableTime(lastExecutedAt),
		ExecutionCount:  executionCount,
		ErrorMessage:    errorMessage,
		SourceHash:      sourceHash,
		Version:         rowVersion,
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// modernc.org/sqlite surfaces constraint violations as plain errors
	// whose text names the SQLite result code; there is no typed
	// sentinel to switch on without importing the driver's internal
	// error package.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
