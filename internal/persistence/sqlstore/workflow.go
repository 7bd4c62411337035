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
	"time"

	"github.com/maxxentropy/devflow/internal/domain/shared"
	"github.com/maxxentropy/devflow/internal/domain/workflow"
	"github.com/maxxentropy/devflow/internal/persistence"
	"github.com/maxxentropy/devflow/pkg/result"
)

const workflowColumns = `id, name, description, status, created_at, updated_at, started_at, completed_at, error_message, row_version`

const stepColumns = `id, workflow_id, name, plugin_id, step_order, sequence, configuration, status, created_at, started_at, completed_at, error_message, output`

func (s *Store) GetWorkflow(ctx context.Context, id shared.ID) result.Result[*workflow.Workflow] {
	row := s.db.QueryRowContext(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id = ?`, id.String())
	w, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return result.Err[*workflow.Workflow](result.NewNotFound("workflow.not_found", "no such workflow: "+id.String()))
	}
	if err != nil {
		return result.Err[*workflow.Workflow](result.NewFailure("workflow.get.failed", "failed to load workflow").Wrap(err))
	}

	steps, stepErr := s.loadSteps(ctx, id)
	if stepErr != nil {
		return result.Err[*workflow.Workflow](result.NewFailure("workflow.get.steps_failed", "failed to load workflow steps").Wrap(stepErr))
	}
	return result.Ok(workflow.Rehydrate(w.ID, w.Name, w.Description, w.Status, w.CreatedAt, w.UpdatedAt,
		w.StartedAt, w.CompletedAt, w.ErrorMessage, steps, w.Version))
}

func (s *Store) AddWorkflow(ctx context.Context, w *workflow.Workflow) *result.Error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result.NewFailure("workflow.add.tx_failed", "failed to begin transaction").Wrap(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflows (id, name, description, status, created_at, updated_at, started_at, completed_at, error_message, row_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID.String(), w.Name, w.Description, string(w.Status),
		formatTime(&w.CreatedAt), formatTime(&w.UpdatedAt), formatTime(w.StartedAt), formatTime(w.CompletedAt),
		w.ErrorMessage, w.Version,
	)
	if err != nil {
		return result.NewFailure("workflow.add.failed", "failed to insert workflow").Wrap(err)
	}

	for _, step := range w.OrderedSteps() {
		if err := insertStep(ctx, tx, w.ID, step); err != nil {
			return result.NewFailure("workflow.add.step_failed", "failed to insert workflow step").Wrap(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return result.NewFailure("workflow.add.commit_failed", "failed to commit transaction").Wrap(err)
	}

	s.enqueue(w.Events())
	w.ClearEvents()
	return nil
}

// UpdateWorkflow replaces the workflow row and its full step set. Steps
// have no independent lifecycle outside their parent (spec.md §3), so the
// simplest correct strategy is delete-and-reinsert inside one transaction
// rather than diffing individual step rows.
func (s *Store) UpdateWorkflow(ctx context.Context, w *workflow.Workflow) *result.Error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result.NewFailure("workflow.update.tx_failed", "failed to begin transaction").Wrap(err)
	}
	defer tx.Rollback()

	newVersion := w.Version + 1
	res, err := tx.ExecContext(ctx, `
		UPDATE workflows SET
			name = ?, description = ?, status = ?, updated_at = ?, started_at = ?, completed_at = ?,
			error_message = ?, row_version = ?
		WHERE id = ? AND row_version = ?`,
		w.Name, w.Description, string(w.Status), formatTime(&w.UpdatedAt), formatTime(w.StartedAt), formatTime(w.CompletedAt),
		w.ErrorMessage, newVersion,
		w.ID.String(), w.Version,
	)
	if err != nil {
		return result.NewFailure("workflow.update.failed", "failed to update workflow").Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return result.NewFailure("workflow.update.rows_affected", "failed to inspect update result").Wrap(err)
	}
	if n == 0 {
		return result.NewConflict("workflow.version_conflict", "workflow was modified by another writer; reload and retry")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM workflow_steps WHERE workflow_id = ?`, w.ID.String()); err != nil {
		return result.NewFailure("workflow.update.step_delete_failed", "failed to clear existing steps").Wrap(err)
	}
	for _, step := range w.OrderedSteps() {
		if err := insertStep(ctx, tx, w.ID, step); err != nil {
			return result.NewFailure("workflow.update.step_failed", "failed to insert workflow step").Wrap(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return result.NewFailure("workflow.update.commit_failed", "failed to commit transaction").Wrap(err)
	}

	w.Version = newVersion
	s.enqueue(w.Events())
	w.ClearEvents()
	return nil
}

func (s *Store) RemoveWorkflow(ctx context.Context, w *workflow.Workflow) *result.Error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = ? AND row_version = ?`, w.ID.String(), w.Version)
	if err != nil {
		return result.NewFailure("workflow.remove.failed", "failed to delete workflow").Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return result.NewFailure("workflow.remove.rows_affected", "failed to inspect delete result").Wrap(err)
	}
	if n == 0 {
		return result.NewConflict("workflow.version_conflict", "workflow was modified by another writer; reload and retry")
	}

	s.enqueue(w.Events())
	w.ClearEvents()
	return nil
}

func (s *Store) ListWorkflows(ctx context.Context, page, pageSize int, status workflow.Status, search string) result.Result[persistence.WorkflowPage] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	where := `WHERE 1=1`
	var args []any
	if status != "" {
		where += ` AND status = ?`
		args = append(args, string(status))
	}
	if search != "" {
		where += ` AND (name LIKE ? OR description LIKE ?)`
		needle := "%" + search + "%"
		args = append(args, needle, needle)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM workflows `+where, args...).Scan(&total); err != nil {
		return result.Err[persistence.WorkflowPage](result.NewFailure("workflow.list.count_failed", "failed to count workflows").Wrap(err))
	}

	query := `SELECT ` + workflowColumns + ` FROM workflows ` + where + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return result.Err[persistence.WorkflowPage](result.NewFailure("workflow.list.failed", "failed to list workflows").Wrap(err))
	}
	defer rows.Close()

	var items []*workflow.Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return result.Err[persistence.WorkflowPage](result.NewFailure("workflow.list.scan_failed", "failed to scan workflow row").Wrap(err))
		}
		steps, err := s.loadSteps(ctx, w.ID)
		if err != nil {
			return result.Err[persistence.WorkflowPage](result.NewFailure("workflow.list.steps_failed", "failed to load workflow steps").Wrap(err))
		}
		items = append(items, workflow.Rehydrate(w.ID, w.Name, w.Description, w.Status, w.CreatedAt, w.UpdatedAt,
			w.StartedAt, w.CompletedAt, w.ErrorMessage, steps, w.Version))
	}
	if err := rows.Err(); err != nil {
		return result.Err[persistence.WorkflowPage](result.NewFailure("workflow.list.rows_failed", "failed iterating workflow rows").Wrap(err))
	}

	return result.Ok(persistence.WorkflowPage{Items: items, TotalCount: total, Page: page, PageSize: pageSize})
}

func (s *Store) WorkflowExistsWithName(ctx context.Context, name string, excludeID *shared.ID) (bool, *result.Error) {
	query := `SELECT COUNT(1) FROM workflows WHERE name = ?`
	args := []any{name}
	if excludeID != nil {
		query += ` AND id != ?`
		args = append(args, excludeID.String())
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, result.NewFailure("workflow.exists.failed", "failed to check workflow existence").Wrap(err)
	}
	return count > 0, nil
}

func (s *Store) loadSteps(ctx context.Context, workflowID shared.ID) ([]*workflow.Step, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+stepColumns+` FROM workflow_steps WHERE workflow_id = ? ORDER BY sequence ASC`, workflowID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []*workflow.Step
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertStep(ctx context.Context, tx execer, workflowID shared.ID, step *workflow.Step) error {
	cfg, err := json.Marshal(step.Configuration)
	if err != nil {
		return fmt.Errorf("marshal step configuration: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflow_steps (id, workflow_id, name, plugin_id, step_order, sequence, configuration, status, created_at, started_at, completed_at, error_message, output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		step.ID.String(), workflowID.String(), step.Name, step.PluginID.String(), step.Order, step.Sequence(),
		string(cfg), string(step.Status), formatTime(&step.CreatedAt), formatTime(step.StartedAt), formatTime(step.CompletedAt),
		step.ErrorMessage, step.Output,
	)
	return err
}

// workflowRow holds the scalar columns of a workflows row before its steps
// are loaded and the aggregate is reconstructed via workflow.Rehydrate.
type workflowRow struct {
	ID           shared.ID
	Name         string
	Description  string
	Status       workflow.Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
	Version      int
}

func scanWorkflow(row scanner) (workflowRow, error) {
	var (
		id, name, description, status, createdAt, updatedAt string
		startedAt, completedAt                              sql.NullString
		errorMessage                                        string
		rowVersion                                          int
	)
	if err := row.Scan(&id, &name, &description, &status, &createdAt, &updatedAt, &startedAt, &completedAt, &errorMessage, &rowVersion); err != nil {
		return workflowRow{}, err
	}

	parsedID := shared.ParseID(id)
	if !parsedID.IsOk() {
		return workflowRow{}, fmt.Errorf("parse stored workflow id %q: %v", id, parsedID.Error())
	}
	created, err := parseTime(createdAt)
	if err != nil {
		return workflowRow{}, fmt.Errorf("parse created_at: %w", err)
	}
	updated, err := parseTime(updatedAt)
	if err != nil {
		return workflowRow{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return workflowRow{
		ID:           parsedID.Unwrap(),
		Name:         name,
		Description:  description,
		Status:       workflow.Status(status),
		CreatedAt:    created,
		UpdatedAt:    updated,
		StartedAt:    nullableTime(startedAt),
		CompletedAt:  nullableTime(completedAt),
		ErrorMessage: errorMessage,
		Version:      rowVersion,
	}, nil
}

func scanStep(row scanner) (*workflow.Step, error) {
	var (
		id, workflowID, name, pluginID string
		order, sequence                int
		cfgJSON, status, createdAt     string
		startedAt, completedAt         sql.NullString
		errorMessage, output           string
	)
	if err := row.Scan(&id, &workflowID, &name, &pluginID, &order, &sequence, &cfgJSON, &status, &createdAt,
		&startedAt, &completedAt, &errorMessage, &output); err != nil {
		return nil, err
	}

	var configuration map[string]any
	if err := json.Unmarshal([]byte(cfgJSON), &configuration); err != nil {
		return nil, fmt.Errorf("unmarshal step configuration: %w", err)
	}

	stepID := shared.ParseID(id)
	if !stepID.IsOk() {
		return nil, fmt.Errorf("parse stored step id %q: %v", id, stepID.Error())
	}
	pid := shared.ParseID(pluginID)
	if !pid.IsOk() {
		return nil, fmt.Errorf("parse stored step plugin id %q: %v", pluginID, pid.Error())
	}
	created, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse step created_at: %w", err)
	}

	return workflow.RehydrateStep(stepID.Unwrap(), name, pid.Unwrap(), order, sequence, configuration,
		workflow.StepStatus(status), created, nullableTime(startedAt), nullableTime(completedAt), errorMessage, output), nil
}
