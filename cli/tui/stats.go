package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/fiberflow/metrics"
)

// StatsModel is a Bubble Tea model rendering a metrics snapshot.
type StatsModel struct {
	snapshot metrics.Snapshot
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a stats model over a metrics snapshot.
func NewStatsModel(snapshot metrics.Snapshot) StatsModel {
	return StatsModel{snapshot: snapshot}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	title := "Runtime Statistics"
	if m.snapshot.Label != "" {
		title = fmt.Sprintf("Runtime Statistics — %s", m.snapshot.Label)
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n\n")

	fiberBoxes := []string{
		m.renderStatBox("Spawned", m.snapshot.FibersSpawned, highlightColor),
		m.renderStatBox("Completed", m.snapshot.FibersCompleted, successColor),
		m.renderStatBox("Aborted", m.snapshot.FibersAborted, warningColor),
		m.renderStatBox("Panicked", m.snapshot.FibersPanicked, errorColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, fiberBoxes...))
	b.WriteString("\n")

	retryBoxes := []string{
		m.renderStatBox("Retries", m.snapshot.RetryAttempts, highlightColor),
		m.renderStatBox("Recovered", m.snapshot.RetrySuccesses, successColor),
		m.renderStatBox("Exhausted", m.snapshot.RetryExhausted, errorColor),
		m.renderStatBox("Repeats", m.snapshot.RepeatRuns, mutedColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, retryBoxes...))

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return b.String() + "\n" + help
}

func (m StatsModel) renderStatBox(label string, value int64, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunStatsTUI runs the stats TUI over a metrics.Snapshot.
func RunStatsTUI(data any) error {
	snapshot, ok := data.(metrics.Snapshot)
	if !ok {
		return fmt.Errorf("stats view requires a metrics.Snapshot, got %T", data)
	}
	p := tea.NewProgram(NewStatsModel(snapshot), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders a metrics snapshot without the full TUI loop.
func RenderStatsStatic(snapshot metrics.Snapshot) string {
	model := NewStatsModel(snapshot)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
