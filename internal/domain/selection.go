package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// RepositorySelection identifies the working directory being monitored.
// ID changes on every selection, even when the same path is chosen again.
type RepositorySelection struct {
	ID         string
	Path       string
	SelectedAt time.Time
}

// NewRepositorySelection creates a selection for the given path.
// Relative paths are resolved against the current working directory.
func NewRepositorySelection(path string) (*RepositorySelection, error) {
	abs, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}
	return &RepositorySelection{
		ID:         newSelectionID(),
		Path:       abs,
		SelectedAt: time.Now(),
	}, nil
}

// DisplayName returns the last element of the selection path.
func (s *RepositorySelection) DisplayName() string {
	if s == nil {
		return ""
	}
	return filepath.Base(s.Path)
}

// NormalizePath returns the absolute, cleaned form of path.
func NormalizePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", ErrEmptyPath
	}
	return filepath.Abs(path)
}
