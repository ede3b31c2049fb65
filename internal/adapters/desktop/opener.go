package desktop

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/xvierd/branchbar/internal/ports"
)

// Opener reveals a directory in the platform file browser.
type Opener struct {
	goos  string
	start func(ctx context.Context, name string, args ...string) error
}

// Ensure Opener implements ports.Opener.
var _ ports.Opener = (*Opener)(nil)

// NewOpener creates an opener for the running platform.
func NewOpener() *Opener {
	return &Opener{goos: runtime.GOOS, start: startDetached}
}

// Open launches the file browser on path without waiting for it to exit.
func (o *Opener) Open(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	name, args := openCommand(o.goos, path)
	if err := o.start(ctx, name, args...); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	return nil
}

func openCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "explorer", []string{path}
	default:
		return "xdg-open", []string{path}
	}
}

func startDetached(_ context.Context, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
