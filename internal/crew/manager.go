package crew

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hylo-ai/crewd/internal/completion"
	"github.com/hylo-ai/crewd/internal/roles"
	"github.com/hylo-ai/crewd/internal/store"
	"github.com/hylo-ai/crewd/pkg/models"
)

// ErrNotFound indicates the task does not exist.
var ErrNotFound = errors.New("task not found")

// ErrForbidden indicates the task belongs to another user.
var ErrForbidden = errors.New("task belongs to another user")

// Manager exposes the client-facing task operations and tracks running crews.
// Every operation enforces ownership before returning or mutating anything.
type Manager struct {
	db       *store.DB
	client   completion.Client
	registry *roles.Registry
	logger   *DebugLogger

	mu      sync.Mutex
	running map[string]*Crew
}

// NewManager creates a Manager. The logger may be nil to disable debug output.
func NewManager(db *store.DB, client completion.Client, registry *roles.Registry, logger *DebugLogger) *Manager {
	if logger == nil {
		logger = NopLogger()
	}
	return &Manager{
		db:       db,
		client:   client,
		registry: registry,
		logger:   logger,
		running:  make(map[string]*Crew),
	}
}

// CreateTask persists a new task and starts its run detached from the caller.
// The returned task is still in planning; progress is observed by polling
// GetTask.
func (m *Manager) CreateTask(ctx context.Context, userID, goalText string) (*models.Task, error) {
	if goalText == "" {
		return nil, fmt.Errorf("goal text must not be empty")
	}

	task, err := m.db.CreateTask(ctx, userID, goalText)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	c := newCrew(task, m.db, m.client, m.registry, m.logger)

	m.mu.Lock()
	m.running[task.ID] = c
	m.mu.Unlock()

	// The run outlives the request that created it.
	go func() {
		defer m.remove(task.ID)
		c.run(context.Background())
	}()

	return task, nil
}

// GetTask returns the task with its subtasks. Only the owner may read it.
func (m *Manager) GetTask(ctx context.Context, userID, taskID string) (*models.Task, error) {
	task, err := m.db.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if task.UserID != userID {
		return nil, ErrForbidden
	}
	return task, nil
}

// ListTasks returns the user's task summaries, newest first.
func (m *Manager) ListTasks(ctx context.Context, userID string) ([]*models.Task, error) {
	return m.db.ListTasks(ctx, userID)
}

// StopTask requests a cooperative stop. It reports false without mutating
// anything when the task is already terminal. On success the task is stopped
// with a fixed final output, every pending or processing subtask is swept to
// stopped, and the running crew (if any) is signalled to exit.
func (m *Manager) StopTask(ctx context.Context, userID, taskID string) (bool, error) {
	task, err := m.db.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, err
	}
	if task.UserID != userID {
		return false, ErrForbidden
	}

	err = m.db.UpdateTask(ctx, taskID, models.TaskStatusStopped, StopMessage, "")
	if errors.Is(err, store.ErrTerminal) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// Signal the run before the sweep so it exits at its next safe point
	// instead of starting another completion while we write.
	m.mu.Lock()
	c := m.running[taskID]
	m.mu.Unlock()
	if c != nil {
		c.requestStop()
	}

	if err := m.db.StopSubtasks(ctx, taskID); err != nil {
		return false, err
	}

	m.logger.Log("[manager] task %s stopped by user", taskID)
	return true, nil
}

// Wait blocks until the task's run has finished, or returns immediately if no
// run is active. Used by the local CLI path and tests; HTTP clients poll
// instead.
func (m *Manager) Wait(taskID string) {
	m.mu.Lock()
	c := m.running[taskID]
	m.mu.Unlock()
	if c != nil {
		<-c.Done()
	}
}

func (m *Manager) remove(taskID string) {
	m.mu.Lock()
	delete(m.running, taskID)
	m.mu.Unlock()
}
