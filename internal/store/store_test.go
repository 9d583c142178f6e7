package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/hylo-ai/crewd/pkg/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "crewd.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestCreateAndGetTask(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	task, err := db.CreateTask(ctx, "user-1", "Research Go schedulers")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.Status != models.TaskStatusPlanning {
		t.Errorf("new task status = %q, want planning", task.Status)
	}

	got, err := db.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.UserID != "user-1" || got.GoalText != "Research Go schedulers" {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not persisted")
	}
	if len(got.Subtasks) != 0 {
		t.Errorf("expected no subtasks, got %d", len(got.Subtasks))
	}
}

func TestGetTaskNotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetTask(context.Background(), uuid.New().String())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTask err = %v, want ErrNotFound", err)
	}
}

func TestUpdateTaskTransitions(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	task, err := db.CreateTask(ctx, "user-1", "goal")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if err := db.UpdateTask(ctx, task.ID, models.TaskStatusExecuting, "", ""); err != nil {
		t.Fatalf("planning -> executing failed: %v", err)
	}
	if err := db.UpdateTask(ctx, task.ID, models.TaskStatusCompleted, "final answer", ""); err != nil {
		t.Fatalf("executing -> completed failed: %v", err)
	}

	got, err := db.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Status != models.TaskStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.FinalOutput != "final answer" {
		t.Errorf("final output = %q", got.FinalOutput)
	}
}

func TestUpdateTaskTerminalIsSticky(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	task, err := db.CreateTask(ctx, "user-1", "goal")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if err := db.UpdateTask(ctx, task.ID, models.TaskStatusStopped, "Task was manually stopped by the user", ""); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	for _, next := range []models.TaskStatus{
		models.TaskStatusExecuting,
		models.TaskStatusCompleted,
		models.TaskStatusError,
	} {
		err := db.UpdateTask(ctx, task.ID, next, "late", "late")
		if !errors.Is(err, ErrTerminal) {
			t.Errorf("transition to %q after stop: err = %v, want ErrTerminal", next, err)
		}
	}

	got, err := db.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Status != models.TaskStatusStopped {
		t.Errorf("status = %q, want stopped", got.Status)
	}
	if got.FinalOutput != "Task was manually stopped by the user" {
		t.Errorf("final output = %q", got.FinalOutput)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	db := testDB(t)
	err := db.UpdateTask(context.Background(), uuid.New().String(), models.TaskStatusExecuting, "", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListTasksOwnershipAndOrder(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	first, err := db.CreateTask(ctx, "alice", "first goal")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	second, err := db.CreateTask(ctx, "alice", "second goal")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := db.CreateTask(ctx, "bob", "other goal"); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	tasks, err := db.ListTasks(ctx, "alice")
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	ids := map[string]bool{tasks[0].ID: true, tasks[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Errorf("wrong tasks returned: %v", ids)
	}
	for _, task := range tasks {
		if task.UserID != "alice" {
			t.Errorf("task %s belongs to %q", task.ID, task.UserID)
		}
	}
}

func makeSubtask(taskID string, step int, role models.Role, deps ...string) *models.Subtask {
	return &models.Subtask{
		ID:           uuid.New().String(),
		TaskID:       taskID,
		StepNumber:   step,
		Role:         role,
		ToolInput:    "input",
		Status:       models.SubtaskStatusPending,
		AgentThought: "thought",
		DependsOn:    deps,
	}
}

func TestSubtaskRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	task, err := db.CreateTask(ctx, "user-1", "goal")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	a := makeSubtask(task.ID, 1, models.RoleResearcher)
	b := makeSubtask(task.ID, 2, models.RoleAnalyst, a.ID)
	if err := db.CreateSubtasks(ctx, []*models.Subtask{a, b}); err != nil {
		t.Fatalf("CreateSubtasks failed: %v", err)
	}

	got, err := db.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if len(got.Subtasks) != 2 {
		t.Fatalf("got %d subtasks, want 2", len(got.Subtasks))
	}
	if got.Subtasks[0].StepNumber != 1 || got.Subtasks[1].StepNumber != 2 {
		t.Error("subtasks not ordered by step number")
	}
	if len(got.Subtasks[1].DependsOn) != 1 || got.Subtasks[1].DependsOn[0] != a.ID {
		t.Errorf("dependencies not round-tripped: %v", got.Subtasks[1].DependsOn)
	}
	if got.Subtasks[0].AgentThought != "thought" {
		t.Errorf("agent thought = %q", got.Subtasks[0].AgentThought)
	}
}

func TestUpdateSubtaskOutputHandling(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	task, err := db.CreateTask(ctx, "user-1", "goal")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	st := makeSubtask(task.ID, 1, models.RoleExecutor)
	if err := db.CreateSubtasks(ctx, []*models.Subtask{st}); err != nil {
		t.Fatalf("CreateSubtasks failed: %v", err)
	}

	if err := db.UpdateSubtask(ctx, st.ID, models.SubtaskStatusProcessing, ""); err != nil {
		t.Fatalf("mark processing failed: %v", err)
	}
	if err := db.UpdateSubtask(ctx, st.ID, models.SubtaskStatusCompleted, "result text"); err != nil {
		t.Fatalf("mark completed failed: %v", err)
	}

	got, err := db.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Subtasks[0].Status != models.SubtaskStatusCompleted {
		t.Errorf("status = %q", got.Subtasks[0].Status)
	}
	if got.Subtasks[0].ToolOutput != "result text" {
		t.Errorf("tool output = %q", got.Subtasks[0].ToolOutput)
	}

	if err := db.UpdateSubtask(ctx, uuid.New().String(), models.SubtaskStatusProcessing, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown subtask err = %v, want ErrNotFound", err)
	}
}

func TestUpdateSubtaskTerminalIsSticky(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	task, err := db.CreateTask(ctx, "user-1", "goal")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	st := makeSubtask(task.ID, 1, models.RoleExecutor)
	if err := db.CreateSubtasks(ctx, []*models.Subtask{st}); err != nil {
		t.Fatalf("CreateSubtasks failed: %v", err)
	}
	if err := db.UpdateSubtask(ctx, st.ID, models.SubtaskStatusStopped, ""); err != nil {
		t.Fatalf("mark stopped failed: %v", err)
	}

	// A completion landing after the stop sweep must not win.
	if err := db.UpdateSubtask(ctx, st.ID, models.SubtaskStatusCompleted, "late result"); err != nil {
		t.Fatalf("late update errored: %v", err)
	}

	got, err := db.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Subtasks[0].Status != models.SubtaskStatusStopped {
		t.Errorf("status = %q, want stopped", got.Subtasks[0].Status)
	}
	if got.Subtasks[0].ToolOutput != "" {
		t.Errorf("tool output = %q, want empty", got.Subtasks[0].ToolOutput)
	}
}

func TestStopSubtasksPreservesTerminal(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	task, err := db.CreateTask(ctx, "user-1", "goal")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	done := makeSubtask(task.ID, 1, models.RoleResearcher)
	failed := makeSubtask(task.ID, 2, models.RoleAnalyst)
	running := makeSubtask(task.ID, 3, models.RoleWriter)
	pending := makeSubtask(task.ID, 4, models.RoleExecutor)
	if err := db.CreateSubtasks(ctx, []*models.Subtask{done, failed, running, pending}); err != nil {
		t.Fatalf("CreateSubtasks failed: %v", err)
	}
	if err := db.UpdateSubtask(ctx, done.ID, models.SubtaskStatusCompleted, "ok"); err != nil {
		t.Fatalf("mark completed failed: %v", err)
	}
	if err := db.UpdateSubtask(ctx, failed.ID, models.SubtaskStatusError, "boom"); err != nil {
		t.Fatalf("mark error failed: %v", err)
	}
	if err := db.UpdateSubtask(ctx, running.ID, models.SubtaskStatusProcessing, ""); err != nil {
		t.Fatalf("mark processing failed: %v", err)
	}

	if err := db.StopSubtasks(ctx, task.ID); err != nil {
		t.Fatalf("StopSubtasks failed: %v", err)
	}

	got, err := db.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	want := map[string]models.SubtaskStatus{
		done.ID:    models.SubtaskStatusCompleted,
		failed.ID:  models.SubtaskStatusError,
		running.ID: models.SubtaskStatusStopped,
		pending.ID: models.SubtaskStatusStopped,
	}
	for _, st := range got.Subtasks {
		if st.Status != want[st.ID] {
			t.Errorf("subtask %d status = %q, want %q", st.StepNumber, st.Status, want[st.ID])
		}
	}
	if got.Subtasks[0].ToolOutput != "ok" {
		t.Errorf("completed output lost: %q", got.Subtasks[0].ToolOutput)
	}
}
