// Package models defines the shared vocabulary for crewd: tasks, subtasks,
// their status machines, and the agent roles that execute them.
package models

import "time"

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	// TaskStatusPlanning indicates the goal is being decomposed into subtasks.
	TaskStatusPlanning TaskStatus = "planning"
	// TaskStatusExecuting indicates subtasks are being worked through.
	TaskStatusExecuting TaskStatus = "executing"
	// TaskStatusCompleted indicates the task finished with a final output.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusError indicates the task failed and carries an error message.
	TaskStatusError TaskStatus = "error"
	// TaskStatusStopped indicates the task was manually stopped.
	TaskStatusStopped TaskStatus = "stopped"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPlanning, TaskStatusExecuting, TaskStatusCompleted, TaskStatusError, TaskStatusStopped:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further status transition is permitted.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusError, TaskStatusStopped:
		return true
	default:
		return false
	}
}

// Task represents one user goal's full execution record.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// UserID is the owner; all client-facing operations enforce it.
	UserID string `json:"user_id"`
	// GoalText is the free-form user goal, immutable after creation.
	GoalText string `json:"goal_text"`
	// Status is the current lifecycle state.
	Status TaskStatus `json:"status"`
	// FinalOutput is the synthesized result, set only on completion or stop.
	FinalOutput string `json:"final_output,omitempty"`
	// ErrorMessage is set only when Status is error.
	ErrorMessage string `json:"error_message,omitempty"`
	// Subtasks is the decomposition, ordered by StepNumber.
	Subtasks []*Subtask `json:"subtasks,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task record last changed.
	UpdatedAt time.Time `json:"updated_at"`
}
