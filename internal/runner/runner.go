// Package runner drives a task graph to completion: it repeatedly takes the
// lowest-numbered ready subtask, invokes its role against the completion
// client, and records the result. Subtasks run strictly one at a time.
package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/hylo-ai/crewd/internal/completion"
	"github.com/hylo-ai/crewd/internal/graph"
	"github.com/hylo-ai/crewd/internal/roles"
	"github.com/hylo-ai/crewd/pkg/models"
)

// SubtaskSink persists subtask status transitions as the runner makes them,
// so polling readers observe progress. Each call is one atomic write.
type SubtaskSink interface {
	UpdateSubtask(ctx context.Context, id string, status models.SubtaskStatus, output string) error
}

// Runner executes one task's graph. It is single-use: construct, Run, discard.
type Runner struct {
	graph    *graph.TaskGraph
	registry *roles.Registry
	client   completion.Client
	sink     SubtaskSink
	goal     string
	stop     <-chan struct{}
	logf     func(format string, args ...any)
}

// Config assembles a Runner.
type Config struct {
	Graph    *graph.TaskGraph
	Registry *roles.Registry
	Client   completion.Client
	Sink     SubtaskSink
	Goal     string
	// Stop is closed to request a cooperative stop. The runner exits at the
	// next loop iteration; it cannot interrupt an in-flight completion call.
	Stop <-chan struct{}
	// Logf receives debug output. Optional.
	Logf func(format string, args ...any)
}

// New creates a Runner for one task graph.
func New(cfg Config) *Runner {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Runner{
		graph:    cfg.Graph,
		registry: cfg.Registry,
		client:   cfg.Client,
		sink:     cfg.Sink,
		goal:     cfg.Goal,
		stop:     cfg.Stop,
		logf:     logf,
	}
}

// Run processes ready subtasks until the graph is complete, no further
// progress is possible (deadlock), or a stop is requested. Individual
// invocation failures are recorded per subtask and never abort the run; only
// a completion configuration error is fatal.
//
// The returned slice holds all subtasks with a terminal status, in
// stepNumber order.
func (r *Runner) Run(ctx context.Context) ([]*models.Subtask, error) {
	for {
		if r.stopRequested(ctx) {
			r.logf("[runner] stop requested, exiting loop")
			return r.terminalSubtasks(), nil
		}

		st := r.graph.NextReady()
		if st == nil {
			if !r.graph.IsComplete() {
				r.logf("[runner] no ready subtask but graph incomplete: deadlock, stopping")
			}
			return r.terminalSubtasks(), nil
		}

		if err := r.execute(ctx, st); err != nil {
			// Fatal: misconfigured completion client. The subtask error has
			// already been recorded; stop the whole run.
			return r.terminalSubtasks(), err
		}
	}
}

// execute runs one subtask through its role. Returns an error only for fatal
// configuration failures.
func (r *Runner) execute(ctx context.Context, st *models.Subtask) error {
	r.logf("[runner] step %d (%s): starting", st.StepNumber, st.Role)
	r.mark(ctx, st.ID, models.SubtaskStatusProcessing, "")

	system := r.registry.SystemPrompt(st.Role, r.goal)
	user := r.userPrompt(st)

	out, err := r.client.Complete(ctx, system, user)
	if err != nil {
		r.logf("[runner] step %d (%s): failed: %v", st.StepNumber, st.Role, err)
		r.mark(ctx, st.ID, models.SubtaskStatusError, err.Error())
		if completion.IsConfigError(err) {
			return err
		}
		// Local failure: dependents of this subtask stay blocked, everything
		// else keeps running.
		return nil
	}

	r.logf("[runner] step %d (%s): completed (%d chars)", st.StepNumber, st.Role, len(out))
	r.mark(ctx, st.ID, models.SubtaskStatusCompleted, out)
	return nil
}

// userPrompt builds the role's user prompt: context from completed
// dependencies followed by the subtask's own input.
func (r *Runner) userPrompt(st *models.Subtask) string {
	var b strings.Builder

	var depResults []string
	for _, depID := range st.DependsOn {
		dep := r.graph.Get(depID)
		if dep == nil || dep.Status != models.SubtaskStatusCompleted || dep.ToolOutput == "" {
			continue
		}
		depResults = append(depResults, fmt.Sprintf("Task %q result: %s", dep.ToolInput, dep.ToolOutput))
	}
	if len(depResults) > 0 {
		b.WriteString("Here are the results from prerequisite tasks:\n\n")
		b.WriteString(strings.Join(depResults, "\n\n"))
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Your task is: %s\n\nPlease complete this task and provide your output in a clear, structured format.", st.ToolInput)
	return b.String()
}

// mark records a status transition in the graph and the sink together.
func (r *Runner) mark(ctx context.Context, id string, status models.SubtaskStatus, output string) {
	if err := r.graph.MarkStatus(id, status, output); err != nil {
		r.logf("[runner] mark %s in graph: %v", id, err)
	}
	if err := r.sink.UpdateSubtask(ctx, id, status, output); err != nil {
		r.logf("[runner] persist %s: %v", id, err)
	}
}

// stopRequested reports whether the stop channel is closed or the context is
// done.
func (r *Runner) stopRequested(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	if r.stop == nil {
		return false
	}
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// terminalSubtasks returns the graph's terminal subtasks in stepNumber order.
func (r *Runner) terminalSubtasks() []*models.Subtask {
	var out []*models.Subtask
	for _, st := range r.graph.Subtasks() {
		if st.Status.Terminal() {
			out = append(out, st)
		}
	}
	return out
}
