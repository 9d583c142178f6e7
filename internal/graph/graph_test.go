package graph

import (
	"testing"

	"github.com/hylo-ai/crewd/pkg/models"
)

func TestNewGraphIsEmpty(t *testing.T) {
	g := New()
	if g.Size() != 0 {
		t.Errorf("expected empty graph, got size %d", g.Size())
	}
	if !g.IsComplete() {
		t.Error("empty graph should report complete")
	}
	if g.NextReady() != nil {
		t.Error("empty graph should have no ready subtask")
	}
}

func TestAddSubtaskAssignsStepNumbers(t *testing.T) {
	g := New()

	first, err := g.AddSubtask("task-1", models.RoleResearcher, "research the topic", "gather info", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := g.AddSubtask("task-1", models.RoleAnalyst, "analyze", "find patterns", []string{first.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.StepNumber != 1 || second.StepNumber != 2 {
		t.Errorf("expected step numbers 1 and 2, got %d and %d", first.StepNumber, second.StepNumber)
	}
	if first.Status != models.SubtaskStatusPending {
		t.Errorf("new subtask should be pending, got %q", first.Status)
	}
}

func TestAddSubtaskRejectsForwardReference(t *testing.T) {
	g := New()
	_, err := g.AddSubtask("task-1", models.RoleResearcher, "input", "", []string{"not-yet-added"})
	if err == nil {
		t.Fatal("expected error for unknown dependency")
	}
}

func TestNextReadyRespectsDependencies(t *testing.T) {
	g := New()
	a, _ := g.AddSubtask("t", models.RoleResearcher, "research", "", nil)
	b, _ := g.AddSubtask("t", models.RoleAnalyst, "analyze", "", []string{a.ID})
	c, _ := g.AddSubtask("t", models.RoleExecutor, "execute", "", []string{b.ID})

	ready := g.NextReady()
	if ready == nil || ready.ID != a.ID {
		t.Fatalf("expected first subtask ready, got %+v", ready)
	}

	// b must not become ready until a completes.
	if err := g.MarkStatus(a.ID, models.SubtaskStatusProcessing, ""); err != nil {
		t.Fatal(err)
	}
	if next := g.NextReady(); next != nil {
		t.Errorf("no subtask should be ready while a is processing, got %s", next.ID)
	}

	if err := g.MarkStatus(a.ID, models.SubtaskStatusCompleted, "research output"); err != nil {
		t.Fatal(err)
	}
	ready = g.NextReady()
	if ready == nil || ready.ID != b.ID {
		t.Fatalf("expected second subtask ready after first completed, got %+v", ready)
	}

	// c stays blocked behind b.
	if got := g.Get(c.ID); got.Status != models.SubtaskStatusPending {
		t.Errorf("third subtask should still be pending, got %q", got.Status)
	}
}

func TestNextReadyTieBreaksByStepNumber(t *testing.T) {
	g := New()
	a, _ := g.AddSubtask("t", models.RoleResearcher, "one", "", nil)
	g.AddSubtask("t", models.RoleResearcher, "two", "", nil)

	ready := g.NextReady()
	if ready.ID != a.ID {
		t.Errorf("lowest step number should win, got step %d", ready.StepNumber)
	}
}

func TestDeadlockAfterDependencyError(t *testing.T) {
	g := New()
	a, _ := g.AddSubtask("t", models.RoleResearcher, "research", "", nil)
	g.AddSubtask("t", models.RoleAnalyst, "analyze", "", []string{a.ID})

	g.MarkStatus(a.ID, models.SubtaskStatusError, "search failed")

	if g.NextReady() != nil {
		t.Error("dependent of an errored subtask must never become ready")
	}
	if g.IsComplete() {
		t.Error("graph with a permanently pending subtask is not complete")
	}
}

func TestIsComplete(t *testing.T) {
	g := New()
	a, _ := g.AddSubtask("t", models.RoleResearcher, "research", "", nil)
	b, _ := g.AddSubtask("t", models.RoleAnalyst, "analyze", "", []string{a.ID})

	if g.IsComplete() {
		t.Error("graph with pending subtasks is not complete")
	}

	g.MarkStatus(a.ID, models.SubtaskStatusCompleted, "out")
	g.MarkStatus(b.ID, models.SubtaskStatusError, "boom")

	if !g.IsComplete() {
		t.Error("graph should be complete when every subtask is terminal")
	}
}

func TestMarkStatusUnknownID(t *testing.T) {
	g := New()
	if err := g.MarkStatus("missing", models.SubtaskStatusCompleted, ""); err == nil {
		t.Error("expected error for unknown subtask")
	}
}

func TestStopPendingPreservesFinished(t *testing.T) {
	g := New()
	a, _ := g.AddSubtask("t", models.RoleResearcher, "research", "", nil)
	b, _ := g.AddSubtask("t", models.RoleAnalyst, "analyze", "", []string{a.ID})
	c, _ := g.AddSubtask("t", models.RoleExecutor, "execute", "", []string{b.ID})

	g.MarkStatus(a.ID, models.SubtaskStatusCompleted, "done")
	g.MarkStatus(b.ID, models.SubtaskStatusProcessing, "")

	stopped := g.StopPending()
	if len(stopped) != 2 {
		t.Fatalf("expected 2 stopped subtasks, got %d", len(stopped))
	}

	if got := g.Get(a.ID); got.Status != models.SubtaskStatusCompleted {
		t.Errorf("completed subtask must be untouched, got %q", got.Status)
	}
	if got := g.Get(b.ID); got.Status != models.SubtaskStatusStopped {
		t.Errorf("processing subtask should be stopped, got %q", got.Status)
	}
	if got := g.Get(c.ID); got.Status != models.SubtaskStatusStopped {
		t.Errorf("pending subtask should be stopped, got %q", got.Status)
	}
	if !g.IsComplete() {
		t.Error("graph should be complete after stop")
	}
}

func TestSubtasksSnapshotOrder(t *testing.T) {
	g := New()
	g.AddSubtask("t", models.RoleResearcher, "one", "", nil)
	g.AddSubtask("t", models.RoleAnalyst, "two", "", nil)
	g.AddSubtask("t", models.RoleExecutor, "three", "", nil)

	subs := g.Subtasks()
	if len(subs) != 3 {
		t.Fatalf("expected 3 subtasks, got %d", len(subs))
	}
	for i, st := range subs {
		if st.StepNumber != i+1 {
			t.Errorf("subtask %d has step number %d", i, st.StepNumber)
		}
	}

	// Snapshot mutation must not leak into the graph.
	subs[0].Status = models.SubtaskStatusError
	if got := g.Subtasks()[0]; got.Status != models.SubtaskStatusPending {
		t.Error("mutating a snapshot changed graph state")
	}
}
