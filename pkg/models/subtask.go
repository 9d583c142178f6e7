package models

import "time"

// SubtaskStatus represents the lifecycle state of a subtask.
// Transitions are strictly monotonic: pending -> processing -> one of the
// terminal states. The cancellation path may also move pending or processing
// directly to stopped.
type SubtaskStatus string

const (
	// SubtaskStatusPending indicates the subtask has not started.
	SubtaskStatusPending SubtaskStatus = "pending"
	// SubtaskStatusProcessing indicates the subtask's role invocation is in flight.
	SubtaskStatusProcessing SubtaskStatus = "processing"
	// SubtaskStatusCompleted indicates the subtask produced an output.
	SubtaskStatusCompleted SubtaskStatus = "completed"
	// SubtaskStatusError indicates the role invocation failed.
	SubtaskStatusError SubtaskStatus = "error"
	// SubtaskStatusStopped indicates the subtask was cancelled before completing.
	SubtaskStatusStopped SubtaskStatus = "stopped"
)

// Valid returns true if the status is a known value.
func (s SubtaskStatus) Valid() bool {
	switch s {
	case SubtaskStatusPending, SubtaskStatusProcessing, SubtaskStatusCompleted, SubtaskStatusError, SubtaskStatusStopped:
		return true
	default:
		return false
	}
}

// Terminal returns true if the subtask can no longer change status.
func (s SubtaskStatus) Terminal() bool {
	switch s {
	case SubtaskStatusCompleted, SubtaskStatusError, SubtaskStatusStopped:
		return true
	default:
		return false
	}
}

// Subtask represents one unit of work within a task, assigned to a role.
type Subtask struct {
	// ID is the unique identifier for this subtask.
	ID string `json:"id"`
	// TaskID is the owning task.
	TaskID string `json:"task_id"`
	// StepNumber is the 1-based position within the task's plan.
	StepNumber int `json:"step_number"`
	// Role is the agent role responsible for executing this subtask.
	Role Role `json:"role"`
	// ToolInput is the query or instruction handed to the role.
	ToolInput string `json:"tool_input"`
	// Status is the current lifecycle state.
	Status SubtaskStatus `json:"status"`
	// ToolOutput holds the role's result on completion, or the error text on failure.
	ToolOutput string `json:"tool_output,omitempty"`
	// AgentThought is the planner's rationale, set at creation and never mutated.
	AgentThought string `json:"agent_thought,omitempty"`
	// DependsOn lists subtask IDs that must complete before this one starts.
	DependsOn []string `json:"depends_on,omitempty"`
	// CreatedAt is when the subtask was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the subtask last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the subtask.
func (s *Subtask) Clone() *Subtask {
	cp := *s
	cp.DependsOn = append([]string(nil), s.DependsOn...)
	return &cp
}
