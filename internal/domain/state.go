package domain

import (
	"time"
)

// Snapshot captures what the status surface should show at a point in time.
type Snapshot struct {
	Selection *RepositorySelection
	State     BranchState
	Label     string
	UpdatedAt time.Time
}

// HasSelection returns true if a repository is being monitored.
func (s Snapshot) HasSelection() bool {
	return s.Selection != nil
}

// RepositoryName returns the display name of the selection, or "" when none.
func (s Snapshot) RepositoryName() string {
	return s.Selection.DisplayName()
}

// RepositoryPath returns the selected path, or "" when none.
func (s Snapshot) RepositoryPath() string {
	if s.Selection == nil {
		return ""
	}
	return s.Selection.Path
}

// RecentRepository is a previously selected repository offered for quick reselection.
type RecentRepository struct {
	Path           string
	Name           string
	LastSelectedAt time.Time
	SelectCount    int
}
