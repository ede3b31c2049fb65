// Package git provides the git command runner, the repository state resolver
// and the HEAD watcher.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/xvierd/branchbar/internal/domain"
	"github.com/xvierd/branchbar/internal/logging"
	"github.com/xvierd/branchbar/internal/ports"
)

// DefaultBinary is the git executable looked up on PATH.
const DefaultBinary = "git"

// Runner implements ports.CommandRunner by executing the git binary.
type Runner struct {
	binary  string
	timeout time.Duration
	log     *logging.ScopedLogger
}

// Ensure Runner implements ports.CommandRunner.
var _ ports.CommandRunner = (*Runner)(nil)

// NewRunner creates a runner for binary. A zero timeout leaves calls unbounded.
func NewRunner(binary string, timeout time.Duration, log *logging.ScopedLogger) *Runner {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &Runner{binary: binary, timeout: timeout, log: log}
}

// Run executes git with args in dir. Arguments are passed as discrete tokens.
func (r *Runner) Run(ctx context.Context, dir string, args ...string) (domain.CommandResult, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	runErr := cmd.Run()

	result := domain.CommandResult{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}

	if runErr != nil {
		execErr := r.classify(ctx, runErr, result.Stderr)
		result.ExitCode = execErr.Code
		r.log.Debug("git failed", "args", args, "code", execErr.Code, "message", execErr.Message, "elapsed", time.Since(started))
		return result, execErr
	}

	r.log.Debug("git finished", "args", args, "elapsed", time.Since(started))
	return result, nil
}

// classify maps a failed run to an ExecutionError.
func (r *Runner) classify(ctx context.Context, runErr error, stderr string) *domain.ExecutionError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.ExecutionError{Code: -1, Message: fmt.Sprintf("timed out after %s", r.timeout)}
	}
	if ctx.Err() != nil {
		return &domain.ExecutionError{Code: -1, Message: ctx.Err().Error()}
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		msg := stderr
		if msg == "" {
			msg = exitErr.Error()
		}
		return &domain.ExecutionError{Code: exitErr.ExitCode(), Message: msg}
	}

	return &domain.ExecutionError{Code: -1, Message: runErr.Error()}
}
