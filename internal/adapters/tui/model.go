// Package tui provides the terminal status surface implementation
// using the Bubbletea framework.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/xvierd/branchbar/internal/display"
	"github.com/xvierd/branchbar/internal/domain"
	"github.com/xvierd/branchbar/internal/ports"
)

// snapshotMsg carries a new coordinator snapshot.
type snapshotMsg struct {
	snapshot domain.Snapshot
}

// commandDoneMsg reports the outcome of a dispatched command.
type commandDoneMsg struct {
	cmd ports.Command
	arg string
	err error

	// autostart is the registration read back after a toggle.
	autostart *bool
}

// recentMsg carries recent repositories loaded for the picker.
type recentMsg struct {
	recent []domain.RecentRepository
}

// AutostartState is what the launch-at-login row shows.
type AutostartState struct {
	Available bool
	Enabled   bool
}

// Model represents the status bar state.
type Model struct {
	snapshot  domain.Snapshot
	width     int
	spinner   spinner.Model
	autostart AutostartState

	picker     repoPicker
	pickerOpen bool

	message      string
	messageError bool
	busy         bool

	commandCallback func(ports.Command, string) error
	loadRecent      func() []domain.RecentRepository
	readAutostart   func() (bool, error)
}

// NewModel creates a new status bar model.
func NewModel(initial domain.Snapshot, autostart AutostartState) Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = spinnerStyle
	return Model{
		snapshot:  initial,
		width:     getTerminalWidth(),
		spinner:   sp,
		autostart: autostart,
	}
}

// SetCommandCallback sets the function receiving user commands.
func (m *Model) SetCommandCallback(callback func(ports.Command, string) error) {
	m.commandCallback = callback
}

// SetRecentLoader sets the function listing recent repositories for the picker.
func (m *Model) SetRecentLoader(load func() []domain.RecentRepository) {
	m.loadRecent = load
}

// SetAutostartReader sets the function reporting the launch-at-login
// registration. It is read back after every toggle.
func (m *Model) SetAutostartReader(read func() (bool, error)) {
	m.readAutostart = read
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// dispatch runs a command off the event loop and reports back.
func (m Model) dispatch(cmd ports.Command, arg string) tea.Cmd {
	callback := m.commandCallback
	if callback == nil {
		return nil
	}
	read := m.readAutostart
	return func() tea.Msg {
		done := commandDoneMsg{cmd: cmd, arg: arg, err: callback(cmd, arg)}
		if cmd == ports.CmdToggleAutostart && read != nil {
			enabled, err := read()
			if err != nil && done.err == nil {
				done.err = fmt.Errorf("failed to read launch at login: %w", err)
			}
			if err == nil {
				done.autostart = &enabled
			}
		}
		return done
	}
}

func (m Model) loadRecentCmd() tea.Cmd {
	load := m.loadRecent
	if load == nil {
		return nil
	}
	return func() tea.Msg {
		return recentMsg{recent: load()}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case snapshotMsg:
		m.snapshot = msg.snapshot
		return m, nil
	case recentMsg:
		if m.pickerOpen {
			m.picker = m.picker.setRecent(msg.recent)
		}
		return m, nil
	case commandDoneMsg:
		return m.handleCommandDone(msg), nil
	}

	if m.pickerOpen {
		return m.updatePicker(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "ctrl+c", "q":
		if m.commandCallback != nil {
			_ = m.commandCallback(ports.CmdQuit, "")
		}
		return m, tea.Quit
	case "s":
		m.pickerOpen = true
		m.picker = newRepoPicker(m.width)
		m.clearMessage()
		return m, tea.Batch(m.loadRecentCmd(), m.picker.input.Cursor.BlinkCmd())
	case "d":
		if !m.snapshot.HasSelection() {
			return m, nil
		}
		m.clearMessage()
		return m, m.dispatch(ports.CmdClear, "")
	case "r":
		m.clearMessage()
		return m, m.dispatch(ports.CmdRefresh, "")
	case "o":
		if !m.snapshot.HasSelection() {
			return m, nil
		}
		return m, m.dispatch(ports.CmdOpen, m.snapshot.RepositoryPath())
	case "l":
		if !m.autostart.Available {
			m.setMessage("Launch at login is not supported on this platform", true)
			return m, nil
		}
		return m, m.dispatch(ports.CmdToggleAutostart, "")
	}
	return m, nil
}

func (m Model) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	picker, outcome, cmd := m.picker.update(msg)
	m.picker = picker

	switch outcome {
	case pickerAborted:
		m.pickerOpen = false
		return m, nil
	case pickerChosen:
		path := m.picker.choice()
		m.pickerOpen = false
		m.busy = true
		m.setMessage("Checking "+path, false)
		return m, m.dispatch(ports.CmdSelect, path)
	}
	return m, cmd
}

func (m Model) handleCommandDone(msg commandDoneMsg) Model {
	if msg.cmd == ports.CmdSelect {
		m.busy = false
	}
	if msg.autostart != nil {
		m.autostart.Enabled = *msg.autostart
	}

	if msg.err != nil {
		switch {
		case errors.Is(msg.err, domain.ErrNotARepository):
			m.setMessage(display.NotARepositoryMessage, true)
		default:
			m.setMessage(msg.err.Error(), true)
		}
		return m
	}

	switch msg.cmd {
	case ports.CmdSelect:
		m.clearMessage()
	case ports.CmdToggleAutostart:
		if msg.autostart == nil {
			m.setMessage("Launch at login changed", false)
		} else if m.autostart.Enabled {
			m.setMessage("Launch at login enabled", false)
		} else {
			m.setMessage("Launch at login disabled", false)
		}
	case ports.CmdOpen:
		m.setMessage("Opened "+msg.arg, false)
	}
	return m
}

func (m *Model) setMessage(text string, isError bool) {
	m.message = text
	m.messageError = isError
}

func (m *Model) clearMessage() {
	m.message = ""
	m.messageError = false
}

// View renders the status bar.
func (m Model) View() string {
	if m.pickerOpen {
		return m.picker.view()
	}

	var b strings.Builder
	state := m.snapshot.State

	b.WriteString("\n")
	label := labelStyle.Foreground(labelColor(state)).Render(m.snapshot.Label)
	prefix := "  "
	if state.Kind == domain.StateResolving || m.busy {
		prefix = " " + m.spinner.View()
	}
	b.WriteString(titleStyle.Render(" branchbar ") + prefix + label + "\n\n")

	repoName := m.snapshot.RepositoryName()
	if repoName == "" {
		repoName = "-"
	}
	b.WriteString(row("Repository", repoName))
	b.WriteString(row("Branch", display.Detail(state)))
	if m.snapshot.HasSelection() {
		b.WriteString(row("Path", m.snapshot.RepositoryPath()))
	}
	if state.Kind == domain.StateUnavailable && state.Reason != "" {
		b.WriteString(row("Reason", display.Truncate(state.Reason, m.width-22)))
	}
	b.WriteString(row("Launch at login", m.autostartText()))

	if m.message != "" {
		b.WriteString("\n")
		if m.messageError {
			b.WriteString("  " + errorStyle.Render(m.message) + "\n")
		} else {
			b.WriteString("  " + infoStyle.Render(m.message) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("  "+m.helpText()) + "\n")
	return b.String()
}

func (m Model) autostartText() string {
	switch {
	case !m.autostart.Available:
		return "(unsupported)"
	case m.autostart.Enabled:
		return "on"
	default:
		return "off"
	}
}

func (m Model) helpText() string {
	parts := []string{"[s] select"}
	if m.snapshot.HasSelection() {
		parts = append(parts, "[d] clear", "[o] open")
	}
	parts = append(parts, "[r] refresh")
	if m.autostart.Available {
		parts = append(parts, "[l] login")
	}
	parts = append(parts, "[q] quit")
	return strings.Join(parts, "  ")
}

func row(key, value string) string {
	return fmt.Sprintf("  %s%s\n", rowKeyStyle.Render(key), rowValStyle.Render(value))
}
