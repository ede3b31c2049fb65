package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"

	"github.com/xvierd/branchbar/internal/domain"
)

// Palette used by the status bar and the picker.
const (
	colorAccent  = lipgloss.Color("#7C6FE0")
	colorOK      = lipgloss.Color("#4ECDC4")
	colorMuted   = lipgloss.Color("#6B7280")
	colorText    = lipgloss.Color("#A0AEC0")
	colorHelp    = lipgloss.Color("#95A5A6")
	colorWarning = lipgloss.Color("#E5A50A")
	colorError   = lipgloss.Color("#E06C75")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	labelStyle   = lipgloss.NewStyle().Bold(true)
	rowKeyStyle  = lipgloss.NewStyle().Foreground(colorMuted).Width(18)
	rowValStyle  = lipgloss.NewStyle().Foreground(colorText)
	helpStyle    = lipgloss.NewStyle().Foreground(colorHelp)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	infoStyle    = lipgloss.NewStyle().Foreground(colorOK)
	activeStyle  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(colorHelp)
	spinnerStyle = lipgloss.NewStyle().Foreground(colorAccent)
)

// labelColor picks the label color for a state.
func labelColor(state domain.BranchState) lipgloss.Color {
	switch state.Kind {
	case domain.StateBranch:
		return colorOK
	case domain.StateDetached:
		return colorWarning
	case domain.StateUnavailable:
		return colorError
	default:
		return colorMuted
	}
}

// getTerminalWidth returns the current terminal width, defaulting to 80.
func getTerminalWidth() int {
	w, _, err := term.GetSize(os.Stdout.Fd())
	if err != nil || w < 40 {
		return 80
	}
	return w
}
