package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hylo-ai/crewd/pkg/models"
)

// CreateSubtasks persists a full plan in one transaction so readers never
// observe a partial plan.
func (db *DB) CreateSubtasks(ctx context.Context, subtasks []*models.Subtask) error {
	if len(subtasks) == 0 {
		return nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO subtasks (id, task_id, step_number, role, tool_input, status, tool_output, agent_thought, depends_on, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, '', ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	for _, st := range subtasks {
		deps, err := json.Marshal(st.DependsOn)
		if err != nil {
			return fmt.Errorf("encode dependencies: %w", err)
		}
		_, err = stmt.ExecContext(ctx, st.ID, st.TaskID, st.StepNumber, string(st.Role),
			st.ToolInput, string(st.Status), st.AgentThought, string(deps), now, now)
		if err != nil {
			return fmt.Errorf("insert subtask %s: %w", st.ID, err)
		}
	}

	return tx.Commit()
}

// UpdateSubtask records a status transition for one subtask. Output carries
// the role's result on completion or the error text on failure; an empty
// output leaves the stored value untouched. Transitions are monotonic: a
// subtask already terminal keeps its status and output, so a completion
// landing after a stop sweep is silently dropped.
func (db *DB) UpdateSubtask(ctx context.Context, id string, status models.SubtaskStatus, output string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid subtask status %q", status)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	var res sql.Result
	var err error
	if output != "" {
		res, err = db.conn.ExecContext(ctx, `
			UPDATE subtasks SET status = ?, tool_output = ?, updated_at = ?
			WHERE id = ? AND status IN ('pending', 'processing')
		`, string(status), output, formatTime(time.Now()), id)
	} else {
		res, err = db.conn.ExecContext(ctx, `
			UPDATE subtasks SET status = ?, updated_at = ?
			WHERE id = ? AND status IN ('pending', 'processing')
		`, string(status), formatTime(time.Now()), id)
	}
	if err != nil {
		return fmt.Errorf("update subtask: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update subtask: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var existing string
	row := db.conn.QueryRowContext(ctx, "SELECT status FROM subtasks WHERE id = ?", id)
	if err := row.Scan(&existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("check subtask status: %w", err)
	}
	return nil
}

// StopSubtasks marks every non-terminal subtask of a task as stopped.
// Completed and errored subtasks keep their status and output.
func (db *DB) StopSubtasks(ctx context.Context, taskID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx, `
		UPDATE subtasks SET status = 'stopped', updated_at = ?
		WHERE task_id = ? AND status IN ('pending', 'processing')
	`, formatTime(time.Now()), taskID)
	if err != nil {
		return fmt.Errorf("stop subtasks: %w", err)
	}
	return nil
}

func scanSubtask(row rowScanner) (*models.Subtask, error) {
	var st models.Subtask
	var role, status, deps, createdAt, updatedAt string
	err := row.Scan(&st.ID, &st.TaskID, &st.StepNumber, &role, &st.ToolInput,
		&status, &st.ToolOutput, &st.AgentThought, &deps, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan subtask: %w", err)
	}
	st.Role = models.Role(role)
	st.Status = models.SubtaskStatus(status)
	if deps != "" {
		if err := json.Unmarshal([]byte(deps), &st.DependsOn); err != nil {
			return nil, fmt.Errorf("decode dependencies: %w", err)
		}
	}
	st.CreatedAt = parseTime(createdAt)
	st.UpdatedAt = parseTime(updatedAt)
	return &st, nil
}
