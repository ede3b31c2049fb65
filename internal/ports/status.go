package ports

import (
	"context"

	"github.com/xvierd/branchbar/internal/domain"
)

// Command represents a discrete user action forwarded from the status surface.
type Command string

const (
	// CmdSelect selects a repository. Carries the path.
	CmdSelect Command = "select"

	// CmdClear clears the selection.
	CmdClear Command = "clear"

	// CmdRefresh requests an immediate refresh.
	CmdRefresh Command = "refresh"

	// CmdToggleAutostart flips the launch-at-login registration.
	CmdToggleAutostart Command = "toggle_autostart"

	// CmdOpen reveals the selected repository in the file browser.
	CmdOpen Command = "open"

	// CmdQuit exits the application.
	CmdQuit Command = "quit"
)

// StatusSurface is the persistent status display.
// This is a driving port (called by the application layer).
type StatusSurface interface {
	// Run starts the surface and blocks until it exits.
	Run(ctx context.Context, initial domain.Snapshot) error

	// Stop gracefully stops the surface.
	Stop()

	// Show replaces the displayed snapshot.
	Show(snapshot domain.Snapshot)

	// SetCommandCallback sets the function receiving user commands.
	// arg is the repository path for CmdSelect and empty otherwise.
	SetCommandCallback(callback func(cmd Command, arg string) error)
}

// Autostart manages the launch-at-login registration.
// This is a driven port (implemented by adapters).
type Autostart interface {
	// Available reports whether the platform supports registration.
	// It is resolved once when the adapter is built.
	Available() bool

	// Enabled reports whether the registration currently exists.
	Enabled() (bool, error)

	// SetEnabled adds or removes the registration.
	SetEnabled(enabled bool) error

	// Toggle flips the registration and returns the new setting.
	Toggle() (bool, error)
}

// Opener reveals a repository folder in the platform file browser.
type Opener interface {
	Open(ctx context.Context, path string) error
}
