// Package graph holds the in-memory subtask set for one task and answers
// dependency-readiness queries. Subtasks are nodes; edges are "blocked by"
// relationships on other subtasks of the same task.
package graph

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hylo-ai/crewd/pkg/models"
)

// TaskGraph is the dependency graph for a single task's subtasks.
// Subtasks are appended in step order; dependencies may only reference
// subtasks already in the graph, so the graph is acyclic by construction.
type TaskGraph struct {
	mu sync.RWMutex
	// ordered keeps subtasks in creation order, which equals stepNumber order.
	ordered []*models.Subtask
	// index maps subtask ID to the subtask itself.
	index map[string]*models.Subtask
}

// New creates an empty task graph.
func New() *TaskGraph {
	return &TaskGraph{
		index: make(map[string]*models.Subtask),
	}
}

// AddSubtask appends a pending subtask assigned to the given role.
// Dependencies must reference subtasks already present; a forward reference
// is a caller bug and is reported as an error.
func (g *TaskGraph) AddSubtask(taskID string, role models.Role, input, thought string, dependsOn []string) (*models.Subtask, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, depID := range dependsOn {
		if _, ok := g.index[depID]; !ok {
			return nil, fmt.Errorf("subtask depends on unknown subtask %s", depID)
		}
	}

	now := time.Now().UTC()
	st := &models.Subtask{
		ID:           uuid.NewString(),
		TaskID:       taskID,
		StepNumber:   len(g.ordered) + 1,
		Role:         role,
		ToolInput:    input,
		Status:       models.SubtaskStatusPending,
		AgentThought: thought,
		DependsOn:    append([]string(nil), dependsOn...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	g.ordered = append(g.ordered, st)
	g.index[st.ID] = st
	return st.Clone(), nil
}

// NextReady returns the first pending subtask, in stepNumber order, whose
// every dependency has completed. Returns nil when no subtask is ready.
func (g *TaskGraph) NextReady() *models.Subtask {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, st := range g.ordered {
		if st.Status != models.SubtaskStatusPending {
			continue
		}
		if g.depsCompletedLocked(st) {
			return st.Clone()
		}
	}
	return nil
}

// depsCompletedLocked reports whether every dependency of st has completed.
// Caller must hold the lock.
func (g *TaskGraph) depsCompletedLocked(st *models.Subtask) bool {
	for _, depID := range st.DependsOn {
		dep, ok := g.index[depID]
		if !ok || dep.Status != models.SubtaskStatusCompleted {
			return false
		}
	}
	return true
}

// MarkStatus sets a subtask's status and, when output is non-empty, its
// result. Unknown IDs are an error; status handling stays consistent with
// the store, which also rejects unknown subtasks.
func (g *TaskGraph) MarkStatus(id string, status models.SubtaskStatus, output string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.index[id]
	if !ok {
		return fmt.Errorf("subtask %s not in graph", id)
	}
	st.Status = status
	if output != "" {
		st.ToolOutput = output
	}
	st.UpdatedAt = time.Now().UTC()
	return nil
}

// StopPending marks every pending or processing subtask as stopped and
// returns the IDs it changed. Completed and errored subtasks are untouched.
func (g *TaskGraph) StopPending() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var stopped []string
	now := time.Now().UTC()
	for _, st := range g.ordered {
		if st.Status == models.SubtaskStatusPending || st.Status == models.SubtaskStatusProcessing {
			st.Status = models.SubtaskStatusStopped
			st.UpdatedAt = now
			stopped = append(stopped, st.ID)
		}
	}
	return stopped
}

// IsComplete returns true iff every subtask has a terminal status.
// An empty graph is complete.
func (g *TaskGraph) IsComplete() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, st := range g.ordered {
		if !st.Status.Terminal() {
			return false
		}
	}
	return true
}

// Get returns a snapshot of the subtask with the given ID, or nil.
func (g *TaskGraph) Get(id string) *models.Subtask {
	g.mu.RLock()
	defer g.mu.RUnlock()

	st, ok := g.index[id]
	if !ok {
		return nil
	}
	return st.Clone()
}

// Subtasks returns a snapshot of all subtasks in stepNumber order.
func (g *TaskGraph) Subtasks() []*models.Subtask {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*models.Subtask, 0, len(g.ordered))
	for _, st := range g.ordered {
		out = append(out, st.Clone())
	}
	return out
}

// Size returns the number of subtasks in the graph.
func (g *TaskGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.ordered)
}
