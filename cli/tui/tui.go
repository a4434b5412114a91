package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
)

// Run starts the TUI for the given view type. Returns an error for view
// types without a TUI.
func Run(viewType string, data any) error {
	switch viewType {
	case "tree":
		return RunTreeTUI(data)
	case "stats":
		return RunStatsTUI(data)
	default:
		return fmt.Errorf("unknown view type: %s", viewType)
	}
}

// IsSupported reports whether viewType has a TUI.
func IsSupported(viewType string) bool {
	switch viewType {
	case "tree", "stats":
		return true
	default:
		return false
	}
}

// SupportedViews returns the view types that have a TUI.
func SupportedViews() []string {
	return []string{"tree", "stats"}
}

// keyMap defines key bindings shared by every view.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
