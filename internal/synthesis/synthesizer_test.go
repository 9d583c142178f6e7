package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hylo-ai/crewd/internal/completion"
	"github.com/hylo-ai/crewd/internal/roles"
	"github.com/hylo-ai/crewd/pkg/models"
)

type stubClient struct {
	response string
	err      error
	lastUser string
}

func (s *stubClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.lastUser = userPrompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func newSynthesizer(t *testing.T, client completion.Client) *Synthesizer {
	t.Helper()
	registry, err := roles.NewRegistry()
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return New(client, registry)
}

func subtask(step int, status models.SubtaskStatus, input, output string) *models.Subtask {
	return &models.Subtask{
		ID:         input,
		StepNumber: step,
		Role:       models.RoleResearcher,
		ToolInput:  input,
		Status:     status,
		ToolOutput: output,
	}
}

func TestSynthesizeUsesWriterOutput(t *testing.T) {
	client := &stubClient{response: "## Summary\n\nA polished synthesis."}
	s := newSynthesizer(t, client)

	out := s.Synthesize(context.Background(), "goal", []*models.Subtask{
		subtask(1, models.SubtaskStatusCompleted, "research trails", "found 12 trails"),
		subtask(2, models.SubtaskStatusCompleted, "rank trails", "ranked by difficulty"),
	})

	if out != "## Summary\n\nA polished synthesis." {
		t.Errorf("expected writer output, got %q", out)
	}
	if !strings.Contains(client.lastUser, "found 12 trails") {
		t.Error("synthesis prompt should contain subtask results")
	}
	if !strings.Contains(client.lastUser, "ranked by difficulty") {
		t.Error("synthesis prompt should contain every completed result")
	}
}

func TestSynthesizeFallsBackToConcatenation(t *testing.T) {
	client := &stubClient{err: &completion.TransientError{Err: errors.New("down")}}
	s := newSynthesizer(t, client)

	out := s.Synthesize(context.Background(), "my goal", []*models.Subtask{
		subtask(1, models.SubtaskStatusCompleted, "research trails", "found 12 trails"),
	})

	if !strings.Contains(out, "my goal") {
		t.Errorf("fallback should mention the goal: %q", out)
	}
	if !strings.Contains(out, "TASK: research trails") || !strings.Contains(out, "RESULT: found 12 trails") {
		t.Errorf("fallback should contain the raw results: %q", out)
	}
}

func TestSynthesizeSkipsFailedAndStopped(t *testing.T) {
	client := &stubClient{response: "synthesis"}
	s := newSynthesizer(t, client)

	s.Synthesize(context.Background(), "goal", []*models.Subtask{
		subtask(1, models.SubtaskStatusCompleted, "good step", "useful output"),
		subtask(2, models.SubtaskStatusError, "bad step", "api exploded"),
		subtask(3, models.SubtaskStatusStopped, "stopped step", ""),
	})

	if strings.Contains(client.lastUser, "api exploded") {
		t.Error("errored subtask output must not be fed into synthesis")
	}
	if !strings.Contains(client.lastUser, "useful output") {
		t.Error("completed subtask output must be fed into synthesis")
	}
}

func TestSynthesizeNoCompletedSubtasks(t *testing.T) {
	client := &stubClient{response: "should not be called"}
	s := newSynthesizer(t, client)

	for _, subs := range [][]*models.Subtask{
		nil,
		{subtask(1, models.SubtaskStatusError, "a", "err")},
		{subtask(1, models.SubtaskStatusStopped, "a", "")},
	} {
		out := s.Synthesize(context.Background(), "goal", subs)
		if out != NoResultsMessage {
			t.Errorf("expected fixed no-results message, got %q", out)
		}
	}
}

func TestSynthesizeNeverEmpty(t *testing.T) {
	client := &stubClient{response: "   "}
	s := newSynthesizer(t, client)

	out := s.Synthesize(context.Background(), "goal", []*models.Subtask{
		subtask(1, models.SubtaskStatusCompleted, "step", "result"),
	})
	if strings.TrimSpace(out) == "" {
		t.Error("synthesis output must never be empty")
	}
}
