package tui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/xvierd/branchbar/internal/domain"
	"github.com/xvierd/branchbar/internal/ports"
)

// StatusBar implements the ports.StatusSurface interface using Bubbletea.
type StatusBar struct {
	program     *tea.Program
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	wg          sync.WaitGroup
	latest      *domain.Snapshot
	autostart   AutostartState
	cmdCallback func(cmd ports.Command, arg string) error
	loadRecent  func() []domain.RecentRepository
	readState   func() (bool, error)
	options     []tea.ProgramOption
}

// Ensure StatusBar implements ports.StatusSurface.
var _ ports.StatusSurface = (*StatusBar)(nil)

// NewStatusBar creates a new TUI status bar adapter.
func NewStatusBar(autostart AutostartState, opts ...tea.ProgramOption) *StatusBar {
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &StatusBar{autostart: autostart, options: opts}
}

// SetRecentLoader sets the function listing recent repositories for the picker.
func (s *StatusBar) SetRecentLoader(load func() []domain.RecentRepository) {
	s.mu.Lock()
	s.loadRecent = load
	s.mu.Unlock()
}

// SetAutostartReader sets the function reporting the launch-at-login
// registration after a toggle.
func (s *StatusBar) SetAutostartReader(read func() (bool, error)) {
	s.mu.Lock()
	s.readState = read
	s.mu.Unlock()
}

// SetCommandCallback sets a function to call when commands are received.
// The callback runs off the UI loop and should return an error if the command fails.
func (s *StatusBar) SetCommandCallback(callback func(cmd ports.Command, arg string) error) {
	s.mu.Lock()
	s.cmdCallback = callback
	s.mu.Unlock()
}

// Run starts the status bar and blocks until the user quits or ctx is done.
func (s *StatusBar) Run(ctx context.Context, initial domain.Snapshot) error {
	s.mu.Lock()
	if s.latest != nil && s.latest.UpdatedAt.After(initial.UpdatedAt) {
		initial = *s.latest
	}
	model := NewModel(initial, s.autostart)
	model.SetCommandCallback(s.cmdCallback)
	model.SetRecentLoader(s.loadRecent)
	model.SetAutostartReader(s.readState)
	s.program = tea.NewProgram(model, s.options...)
	s.ctx, s.cancel = context.WithCancel(ctx)
	program := s.program
	runCtx := s.ctx
	s.mu.Unlock()
	defer s.cancel()

	// Handle context cancellation
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-runCtx.Done()
		program.Quit()
	}()

	_, err := program.Run()

	// Signal cancellation and wait for goroutines
	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	s.program = nil
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// Stop gracefully stops the status bar.
func (s *StatusBar) Stop() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.program != nil {
		s.program.Quit()
	}
}

// Show replaces the displayed snapshot. Snapshots shown before Run are kept
// and used as the initial view.
func (s *StatusBar) Show(snapshot domain.Snapshot) {
	s.mu.Lock()
	s.latest = &snapshot
	program := s.program
	s.mu.Unlock()

	if program != nil {
		program.Send(snapshotMsg{snapshot: snapshot})
	}
}
