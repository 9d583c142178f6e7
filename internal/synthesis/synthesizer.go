// Package synthesis combines finished subtask outputs into one final result.
// It never fails: every path degrades to a plain concatenation of results,
// and an all-failed run yields a fixed notice instead of empty text.
package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/hylo-ai/crewd/internal/completion"
	"github.com/hylo-ai/crewd/internal/roles"
	"github.com/hylo-ai/crewd/pkg/models"
)

// NoResultsMessage is returned when no subtask completed successfully.
const NoResultsMessage = "No tasks were completed."

// resultDelimiter separates per-subtask sections in the manual fallback.
const resultDelimiter = "\n\n---\n\n"

// Synthesizer produces the final task output from terminal subtasks,
// preferring the writer role (then the planner) and falling back to verbatim
// concatenation.
type Synthesizer struct {
	client   completion.Client
	registry *roles.Registry
}

// New creates a Synthesizer.
func New(client completion.Client, registry *roles.Registry) *Synthesizer {
	return &Synthesizer{client: client, registry: registry}
}

// Synthesize returns the final output for a goal given its terminal subtasks.
// The result is always non-empty.
func (s *Synthesizer) Synthesize(ctx context.Context, goal string, subtasks []*models.Subtask) string {
	var completed []*models.Subtask
	for _, st := range subtasks {
		if st.Status == models.SubtaskStatusCompleted {
			completed = append(completed, st)
		}
	}
	if len(completed) == 0 {
		return NoResultsMessage
	}

	combined := combineResults(completed)

	synthRole, err := s.synthesisRole()
	if err != nil {
		return combined
	}

	system := s.registry.SystemPrompt(synthRole, goal) +
		"\nYour job is to synthesize the results of multiple tasks into a coherent final output."
	user := fmt.Sprintf(`Synthesize the following results into a comprehensive response for the goal: %q

%s

Create a well-structured, comprehensive response that integrates all the information.
Format it properly with clear sections and provide a summary at the beginning.`, goal, combined)

	out, err := s.client.Complete(ctx, system, user)
	if err != nil || strings.TrimSpace(out) == "" {
		return fmt.Sprintf("Goal: %s\n\n%s", goal, combined)
	}
	return out
}

// synthesisRole picks the writer role, falling back to the planner.
func (s *Synthesizer) synthesisRole() (models.Role, error) {
	if _, err := s.registry.Resolve(models.RoleWriter); err == nil {
		return models.RoleWriter, nil
	}
	if _, err := s.registry.Resolve(models.RolePlanner); err == nil {
		return models.RolePlanner, nil
	}
	return "", roles.ErrRoleNotFound
}

// combineResults joins each completed subtask's input and output with a
// visible delimiter.
func combineResults(completed []*models.Subtask) string {
	sections := make([]string, 0, len(completed))
	for _, st := range completed {
		sections = append(sections, fmt.Sprintf("TASK: %s\n\nRESULT: %s", st.ToolInput, st.ToolOutput))
	}
	return strings.Join(sections, resultDelimiter)
}
