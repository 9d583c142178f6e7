package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hylo-ai/crewd/pkg/models"
)

// CreateTask inserts a new task in planning status and returns it.
func (db *DB) CreateTask(ctx context.Context, userID, goalText string) (*models.Task, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now().UTC()
	task := &models.Task{
		ID:        uuid.New().String(),
		UserID:    userID,
		GoalText:  goalText,
		Status:    models.TaskStatusPlanning,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, goal_text, status, final_output, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, '', '', ?, ?)
	`, task.ID, task.UserID, task.GoalText, string(task.Status), formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	return task, nil
}

// UpdateTask transitions a task to the given status, recording the final
// output or error message. The status guard makes terminal states sticky: a
// task already completed, errored, or stopped is never rewritten, and the
// caller gets ErrTerminal so it can back off.
func (db *DB) UpdateTask(ctx context.Context, id string, status models.TaskStatus, finalOutput, errorMessage string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid task status %q", status)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, final_output = ?, error_message = ?, updated_at = ?
		WHERE id = ? AND status IN ('planning', 'executing')
	`, string(status), finalOutput, errorMessage, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Distinguish a missing task from a terminal one.
	var existing string
	row := db.conn.QueryRowContext(ctx, "SELECT status FROM tasks WHERE id = ?", id)
	if err := row.Scan(&existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("check task status: %w", err)
	}
	return ErrTerminal
}

// GetTask returns a task with its subtasks ordered by step number.
func (db *DB) GetTask(ctx context.Context, id string) (*models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	task, err := db.scanTask(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, task_id, step_number, role, tool_input, status, tool_output, agent_thought, depends_on, created_at, updated_at
		FROM subtasks WHERE task_id = ? ORDER BY step_number
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query subtasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		st, err := scanSubtask(rows)
		if err != nil {
			return nil, err
		}
		task.Subtasks = append(task.Subtasks, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subtasks: %w", err)
	}

	return task, nil
}

// ListTasks returns all tasks owned by the user, newest first. Subtasks are
// not loaded; list views only need the summary row.
func (db *DB) ListTasks(ctx context.Context, userID string) ([]*models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, goal_text, status, final_output, error_message, created_at, updated_at
		FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return tasks, nil
}

func (db *DB) scanTask(ctx context.Context, id string) (*models.Task, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, goal_text, status, final_output, error_message, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)

	task, err := scanTaskRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTaskRow(row rowScanner) (*models.Task, error) {
	var task models.Task
	var status, createdAt, updatedAt string
	err := row.Scan(&task.ID, &task.UserID, &task.GoalText, &status,
		&task.FinalOutput, &task.ErrorMessage, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	task.Status = models.TaskStatus(status)
	task.CreatedAt = parseTime(createdAt)
	task.UpdatedAt = parseTime(updatedAt)
	return &task, nil
}
