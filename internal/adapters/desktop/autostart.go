// Package desktop integrates with the user's desktop session: launch at login
// and revealing a repository in the file browser.
package desktop

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"text/template"

	"github.com/xvierd/branchbar/internal/ports"
)

// ErrUnsupported is returned when the platform has no launch-at-login mechanism.
var ErrUnsupported = errors.New("launch at login is not supported on this platform")

const launchAgentLabel = "com.xvierd.branchbar"

var desktopEntry = template.Must(template.New("desktop").Parse(`[Desktop Entry]
Type=Application
Name=branchbar
Comment=Shows the current branch of a git repository
Exec="{{.Exec}}" run
Terminal=true
X-GNOME-Autostart-enabled=true
`))

var launchAgent = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.Exec}}</string>
		<string>run</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
</dict>
</plist>
`))

// Autostart implements ports.Autostart with an XDG autostart entry on Linux and
// a LaunchAgent on macOS. Availability is decided once, at construction.
type Autostart struct {
	path     string
	exe      string
	tmpl     *template.Template
	platform string
}

// Ensure Autostart implements ports.Autostart.
var _ ports.Autostart = (*Autostart)(nil)

// NewAutostart resolves the registration location for the running platform.
// exe is the command written into the entry.
func NewAutostart(exe string) *Autostart {
	home, _ := os.UserHomeDir()
	return newAutostartFor(runtime.GOOS, home, os.Getenv("XDG_CONFIG_HOME"), exe)
}

func newAutostartFor(goos, home, xdgConfigHome, exe string) *Autostart {
	a := &Autostart{exe: exe, platform: goos}
	if home == "" || exe == "" {
		return a
	}

	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		configDir := xdgConfigHome
		if configDir == "" {
			configDir = filepath.Join(home, ".config")
		}
		a.path = filepath.Join(configDir, "autostart", "branchbar.desktop")
		a.tmpl = desktopEntry
	case "darwin":
		a.path = filepath.Join(home, "Library", "LaunchAgents", launchAgentLabel+".plist")
		a.tmpl = launchAgent
	}
	return a
}

// Available reports whether launch at login can be registered.
func (a *Autostart) Available() bool {
	return a.tmpl != nil
}

// Path returns the registration file, or "" when unavailable.
func (a *Autostart) Path() string {
	return a.path
}

// Enabled reports whether the registration file exists.
func (a *Autostart) Enabled() (bool, error) {
	if !a.Available() {
		return false, nil
	}
	_, err := os.Stat(a.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check autostart entry: %w", err)
	}
	return true, nil
}

// SetEnabled writes or removes the registration file.
func (a *Autostart) SetEnabled(enabled bool) error {
	if !a.Available() {
		return ErrUnsupported
	}

	if !enabled {
		if err := os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove autostart entry: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return fmt.Errorf("failed to create autostart directory: %w", err)
	}
	f, err := os.Create(a.path)
	if err != nil {
		return fmt.Errorf("failed to create autostart entry: %w", err)
	}
	defer func() { _ = f.Close() }()

	data := struct{ Exec, Label string }{Exec: a.exe, Label: launchAgentLabel}
	if err := a.tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to write autostart entry: %w", err)
	}
	return f.Close()
}

// Toggle flips the registration and returns the new setting.
func (a *Autostart) Toggle() (bool, error) {
	enabled, err := a.Enabled()
	if err != nil {
		return false, err
	}
	if err := a.SetEnabled(!enabled); err != nil {
		return enabled, err
	}
	return !enabled, nil
}
