package ports

// Notifier delivers desktop notifications.
// This is a driven port (implemented by adapters).
type Notifier interface {
	// NotifyBranchChange reports that repo moved from one ref to another.
	NotifyBranchChange(repo, from, to string) error

	// NotifyNotARepository alerts that a chosen folder is not a git repository.
	NotifyNotARepository(path string) error
}
