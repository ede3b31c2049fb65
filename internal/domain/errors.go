package domain

import (
	"errors"
	"fmt"
)

// Common domain errors.
var (
	ErrNotARepository = errors.New("not a git repository")
	ErrEmptyPath      = errors.New("repository path cannot be empty")
	ErrNoSelection    = errors.New("no repository selected")
)

// ExecutionError reports a git invocation that could not run or exited non-zero.
// Code is -1 when the process could not be spawned or was stopped by a timeout.
type ExecutionError struct {
	Code    int
	Message string
}

func (e *ExecutionError) Error() string {
	if e.Code == -1 {
		return fmt.Sprintf("git could not run: %s", e.Message)
	}
	return fmt.Sprintf("git exited with code %d: %s", e.Code, e.Message)
}

// ResolutionError wraps the failure of a branch resolution for a repository.
type ResolutionError struct {
	Path string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve branch for %s: %v", e.Path, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Reason returns the underlying message without the resolver context,
// suitable for diagnostic display next to an unavailable label.
func (e *ResolutionError) Reason() string {
	var execErr *ExecutionError
	if errors.As(e.Err, &execErr) {
		return execErr.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}
