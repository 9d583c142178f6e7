package crew

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hylo-ai/crewd/internal/completion"
	"github.com/hylo-ai/crewd/internal/graph"
	"github.com/hylo-ai/crewd/internal/planner"
	"github.com/hylo-ai/crewd/internal/roles"
	"github.com/hylo-ai/crewd/internal/runner"
	"github.com/hylo-ai/crewd/internal/store"
	"github.com/hylo-ai/crewd/internal/synthesis"
	"github.com/hylo-ai/crewd/pkg/models"
)

// StopMessage is the fixed final output recorded when a user stops a task.
const StopMessage = "Task was manually stopped by the user"

// Crew executes one task from planning through synthesis. It is single-use:
// the Manager constructs it, starts run in a goroutine, and discards it when
// Done closes.
type Crew struct {
	taskID   string
	goal     string
	db       *store.DB
	client   completion.Client
	registry *roles.Registry
	logger   *DebugLogger

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newCrew(task *models.Task, db *store.DB, client completion.Client, registry *roles.Registry, logger *DebugLogger) *Crew {
	return &Crew{
		taskID:   task.ID,
		goal:     task.GoalText,
		db:       db,
		client:   client,
		registry: registry,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// requestStop signals the execution loop to exit at its next safe point. It
// cannot interrupt an in-flight completion call. Safe to call more than once.
func (c *Crew) requestStop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Done closes when the run has finished and all state is persisted.
func (c *Crew) Done() <-chan struct{} {
	return c.done
}

// run drives the task to a terminal state. Errors inside the run never
// propagate to the caller that started it; they are persisted on the task and
// observed by polling readers.
func (c *Crew) run(ctx context.Context) {
	defer close(c.done)

	c.logger.Log("[crew %s] planning goal: %s", c.taskID, c.goal)

	steps, err := planner.New(c.client, c.registry).Plan(ctx, c.goal)
	if err != nil {
		c.fail(ctx, err.Error())
		return
	}

	g := graph.New()
	prev := ""
	for _, step := range steps {
		var deps []string
		if prev != "" {
			deps = []string{prev}
		}
		st, err := g.AddSubtask(c.taskID, step.Role, step.Input, step.Thought, deps)
		if err != nil {
			c.fail(ctx, fmt.Sprintf("building task graph: %v", err))
			return
		}
		prev = st.ID
	}

	if err := c.db.CreateSubtasks(ctx, g.Subtasks()); err != nil {
		c.fail(ctx, fmt.Sprintf("persisting plan: %v", err))
		return
	}

	// A stop during planning wins this race: the conditional update refuses
	// to move a stopped task back to executing.
	if err := c.db.UpdateTask(ctx, c.taskID, models.TaskStatusExecuting, "", ""); err != nil {
		if errors.Is(err, store.ErrTerminal) {
			c.logger.Log("[crew %s] stopped during planning", c.taskID)
			g.StopPending()
			c.db.StopSubtasks(ctx, c.taskID)
			return
		}
		c.fail(ctx, fmt.Sprintf("starting execution: %v", err))
		return
	}

	r := runner.New(runner.Config{
		Graph:    g,
		Registry: c.registry,
		Client:   c.client,
		Sink:     c.db,
		Goal:     c.goal,
		Stop:     c.stop,
		Logf:     c.logger.Log,
	})

	terminal, err := r.Run(ctx)
	if err != nil {
		c.fail(ctx, err.Error())
		return
	}

	if c.stopRequested(ctx) {
		// The stop path persists the task status and sweeps the store; only
		// the in-memory graph needs to catch up here.
		g.StopPending()
		c.logger.Log("[crew %s] run exited on stop request", c.taskID)
		return
	}

	if !g.IsComplete() {
		c.fail(ctx, deadlockMessage(g.Subtasks()))
		return
	}

	output := synthesis.New(c.client, c.registry).Synthesize(ctx, c.goal, terminal)
	if err := c.db.UpdateTask(ctx, c.taskID, models.TaskStatusCompleted, output, ""); err != nil {
		if !errors.Is(err, store.ErrTerminal) {
			c.logger.Log("[crew %s] persisting completion: %v", c.taskID, err)
		}
		return
	}
	c.logger.Log("[crew %s] completed", c.taskID)
}

// fail persists a fatal run error. A concurrent stop keeps its terminal
// status; everything else is logged and dropped.
func (c *Crew) fail(ctx context.Context, msg string) {
	c.logger.Log("[crew %s] failed: %s", c.taskID, msg)
	if err := c.db.UpdateTask(ctx, c.taskID, models.TaskStatusError, "", msg); err != nil {
		if !errors.Is(err, store.ErrTerminal) {
			c.logger.Log("[crew %s] persisting failure: %v", c.taskID, err)
		}
	}
}

func (c *Crew) stopRequested(ctx context.Context) bool {
	select {
	case <-c.stop:
		return true
	default:
		return ctx.Err() != nil
	}
}

// deadlockMessage names the failed steps that left the rest of the graph
// permanently blocked. Blocked subtasks stay pending in the store.
func deadlockMessage(subtasks []*models.Subtask) string {
	var failed []string
	for _, st := range subtasks {
		if st.Status == models.SubtaskStatusError {
			failed = append(failed, fmt.Sprintf("step %d (%s)", st.StepNumber, st.Role))
		}
	}
	if len(failed) == 0 {
		return "no runnable steps remain"
	}
	return fmt.Sprintf("no runnable steps remain; failed: %s", strings.Join(failed, ", "))
}
