package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/fiberflow/runtime"
)

// TreeModel is a Bubble Tea model rendering a runner-tree snapshot.
type TreeModel struct {
	snapshot *runtime.Snapshot
	width    int
	height   int
	quitting bool
}

// NewTreeModel creates a tree model over a snapshot.
func NewTreeModel(snapshot *runtime.Snapshot) TreeModel {
	return TreeModel{snapshot: snapshot}
}

// Init implements tea.Model.
func (m TreeModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m TreeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
func (m TreeModel) View() string {
	if m.quitting {
		return ""
	}
	if m.snapshot == nil {
		return "No snapshot captured"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Runner Tree"))
	b.WriteString("\n\n")
	renderNode(&b, m.snapshot, 0)

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return BoxStyle.Render(b.String()) + "\n" + help
}

func renderNode(b *strings.Builder, s *runtime.Snapshot, depth int) {
	indent := strings.Repeat("  ", depth)
	state := s.State.String()
	line := fmt.Sprintf("%s%s %s",
		indent,
		StateStyle(state).Render("●"),
		ValueStyle.Render(shortID(s.ID)))

	var tags []string
	tags = append(tags, state)
	if s.Mask > 0 {
		tags = append(tags, fmt.Sprintf("mask=%d", s.Mask))
	}
	if s.Aborted {
		tags = append(tags, "aborted")
	}
	line += " " + LabelStyle.Render(strings.Join(tags, " "))

	b.WriteString(line)
	b.WriteString("\n")
	for _, c := range s.Children {
		renderNode(b, c, depth+1)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// RunTreeTUI runs the tree TUI over a *runtime.Snapshot.
func RunTreeTUI(data any) error {
	snapshot, ok := data.(*runtime.Snapshot)
	if !ok {
		return fmt.Errorf("tree view requires a *runtime.Snapshot, got %T", data)
	}
	p := tea.NewProgram(NewTreeModel(snapshot), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderTreeStatic renders a snapshot without the full TUI loop, for tests
// and non-interactive fallbacks.
func RenderTreeStatic(snapshot *runtime.Snapshot) string {
	model := NewTreeModel(snapshot)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
