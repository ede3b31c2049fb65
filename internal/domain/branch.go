// Package domain contains the core entities for branchbar.
// These types describe the monitored repository and its branch state and
// are independent of git, storage and presentation concerns.
package domain

import "fmt"

// StateKind identifies which variant a BranchState holds.
type StateKind string

const (
	StateUnselected  StateKind = "unselected"
	StateResolving   StateKind = "resolving"
	StateBranch      StateKind = "branch"
	StateDetached    StateKind = "detached"
	StateUnavailable StateKind = "unavailable"
)

// BranchState is the resolved state of the selected repository.
// Only the field matching Kind carries a value.
type BranchState struct {
	Kind      StateKind
	Name      string // StateBranch
	ShortHash string // StateDetached
	Reason    string // StateUnavailable
}

// Unselected returns the state used when no repository is selected.
func Unselected() BranchState {
	return BranchState{Kind: StateUnselected}
}

// Resolving returns the state shown while the first resolution of a selection runs.
func Resolving() BranchState {
	return BranchState{Kind: StateResolving}
}

// OnBranch returns the state for a repository checked out on a named branch.
func OnBranch(name string) BranchState {
	return BranchState{Kind: StateBranch, Name: name}
}

// Detached returns the state for a repository whose HEAD points at a commit.
func Detached(shortHash string) BranchState {
	return BranchState{Kind: StateDetached, ShortHash: shortHash}
}

// Unavailable returns the state for a repository that could not be resolved.
func Unavailable(reason string) BranchState {
	return BranchState{Kind: StateUnavailable, Reason: reason}
}

// IsResolved returns true if the state names a branch or a detached commit.
func (s BranchState) IsResolved() bool {
	return s.Kind == StateBranch || s.Kind == StateDetached
}

// Ref returns the branch name, or DETACHED(hash) for a detached HEAD.
// It is empty for the other kinds.
func (s BranchState) Ref() string {
	switch s.Kind {
	case StateBranch:
		return s.Name
	case StateDetached:
		return fmt.Sprintf("DETACHED(%s)", s.ShortHash)
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (s BranchState) String() string {
	switch s.Kind {
	case StateBranch, StateDetached:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Ref())
	case StateUnavailable:
		return fmt.Sprintf("unavailable(%s)", s.Reason)
	default:
		return string(s.Kind)
	}
}
