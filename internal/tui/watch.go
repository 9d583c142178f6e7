// Package tui renders task progress in the terminal. The watch model polls
// the store on an interval until the task reaches a terminal status, the way
// the web client re-fetches by id.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hylo-ai/crewd/pkg/models"
)

// TaskFetcher reads a task snapshot by id.
type TaskFetcher interface {
	GetTask(ctx context.Context, id string) (*models.Task, error)
}

type tickMsg time.Time

type taskMsg struct {
	task *models.Task
	err  error
}

// WatchModel is a bubbletea model showing one task's live progress.
type WatchModel struct {
	fetcher  TaskFetcher
	taskID   string
	interval time.Duration

	spin spinner.Model
	task *models.Task
	err  error

	headerStyle  lipgloss.Style
	goalStyle    lipgloss.Style
	doneStyle    lipgloss.Style
	failStyle    lipgloss.Style
	pendingStyle lipgloss.Style
	stoppedStyle lipgloss.Style
	outputStyle  lipgloss.Style
}

// NewWatch creates a watch model polling the fetcher every interval.
func NewWatch(fetcher TaskFetcher, taskID string, interval time.Duration) WatchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))

	return WatchModel{
		fetcher:  fetcher,
		taskID:   taskID,
		interval: interval,
		spin:     sp,

		headerStyle:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		goalStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		doneStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		failStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		pendingStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		stoppedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		outputStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")).PaddingLeft(2),
	}
}

// Task returns the last fetched snapshot, used after the program exits.
func (m WatchModel) Task() *models.Task {
	return m.task
}

// Err returns the last fetch error, if any.
func (m WatchModel) Err() error {
	return m.err
}

func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.fetch())
}

func (m WatchModel) fetch() tea.Cmd {
	return func() tea.Msg {
		task, err := m.fetcher.GetTask(context.Background(), m.taskID)
		return taskMsg{task: task, err: err}
	}
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case taskMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.task = msg.task
		if m.task.Status.Terminal() {
			return m, tea.Quit
		}
		return m, tea.Tick(m.interval, func(t time.Time) tea.Msg {
			return tickMsg(t)
		})

	case tickMsg:
		return m, m.fetch()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m WatchModel) View() string {
	if m.err != nil {
		return m.failStyle.Render(fmt.Sprintf("error: %v", m.err)) + "\n"
	}
	if m.task == nil {
		return m.spin.View() + " loading task...\n"
	}

	var b strings.Builder
	b.WriteString(m.headerStyle.Render("crewd"))
	b.WriteString("  ")
	b.WriteString(m.goalStyle.Render(m.task.GoalText))
	b.WriteString("\n\n")

	b.WriteString("  status: ")
	b.WriteString(m.statusLabel(string(m.task.Status)))
	b.WriteString("\n\n")

	for _, st := range m.task.Subtasks {
		b.WriteString(fmt.Sprintf("  %s %d. [%s] %s\n",
			m.subtaskGlyph(st.Status), st.StepNumber, st.Role, truncate(st.ToolInput, 60)))
	}

	if m.task.Status.Terminal() {
		b.WriteString("\n")
		switch m.task.Status {
		case models.TaskStatusError:
			b.WriteString(m.failStyle.Render("  " + m.task.ErrorMessage))
		default:
			b.WriteString(m.outputStyle.Render(m.task.FinalOutput))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("\n  press q to detach\n")
	}

	return b.String()
}

func (m WatchModel) statusLabel(status string) string {
	switch models.TaskStatus(status) {
	case models.TaskStatusCompleted:
		return m.doneStyle.Render(status)
	case models.TaskStatusError:
		return m.failStyle.Render(status)
	case models.TaskStatusStopped:
		return m.stoppedStyle.Render(status)
	default:
		return m.spin.View() + " " + status
	}
}

func (m WatchModel) subtaskGlyph(status models.SubtaskStatus) string {
	switch status {
	case models.SubtaskStatusCompleted:
		return m.doneStyle.Render("✓")
	case models.SubtaskStatusError:
		return m.failStyle.Render("✗")
	case models.SubtaskStatusStopped:
		return m.stoppedStyle.Render("■")
	case models.SubtaskStatusProcessing:
		return m.spin.View()
	default:
		return m.pendingStyle.Render("○")
	}
}

// truncate shortens s to at most max runes, never splitting a multi-byte
// character.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// Watch runs the watch TUI to completion and returns the final snapshot.
func Watch(fetcher TaskFetcher, taskID string, interval time.Duration) (*models.Task, error) {
	program := tea.NewProgram(NewWatch(fetcher, taskID, interval))
	final, err := program.Run()
	if err != nil {
		return nil, err
	}
	model, ok := final.(WatchModel)
	if !ok {
		return nil, fmt.Errorf("unexpected final model %T", final)
	}
	if model.Err() != nil {
		return nil, model.Err()
	}
	return model.Task(), nil
}
