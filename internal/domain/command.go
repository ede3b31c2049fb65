package domain

// CommandResult is the captured outcome of one external git invocation.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}
