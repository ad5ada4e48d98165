package output

import "context"

// EnvironmentGateway is the interface for isolated execution environments.
// Every environment returned by Acquire must be passed to Release exactly once.
type EnvironmentGateway interface {
	// Acquire creates a fresh sandbox
	Acquire(ctx context.Context) (*Environment, error)

	// RunCommand executes a shell command inside the sandbox working directory.
	// A non-zero exit code is reported in the result, not as an error.
	RunCommand(ctx context.Context, env *Environment, command string) (*CommandResult, error)

	// WriteFile writes data to path (relative to the working directory) using a binary-safe transport
	WriteFile(ctx context.Context, env *Environment, path string, data []byte) error

	// Release destroys the sandbox
	Release(ctx context.Context, env *Environment) error
}

// Environment is the handle to one sandbox
type Environment struct {
	ID      string // Identifier issued by the environment service
	WorkDir string // Working directory commands run in
}

// CommandResult is the outcome of one command
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// OK reports whether the command exited with status 0
func (r *CommandResult) OK() bool {
	return r != nil && r.ExitCode == 0
}
