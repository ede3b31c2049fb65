package domain

import "github.com/google/uuid"

// newSelectionID creates the tag that identifies one selection for its lifetime.
func newSelectionID() string {
	return uuid.New().String()
}
