package pipeline

import (
	"context"
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
)

// Timeouts bounds each external call. A timeout fails the stage it happened in.
type Timeouts struct {
	Acquire time.Duration
	Command time.Duration
	Publish time.Duration
	Cleanup time.Duration
}

// DefaultTimeouts returns the timeouts used when none are configured
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Acquire: 2 * time.Minute,
		Command: 5 * time.Minute,
		Publish: time.Minute,
		Cleanup: time.Minute,
	}
}

func (t Timeouts) withDefaults() Timeouts {
	d := DefaultTimeouts()
	if t.Acquire <= 0 {
		t.Acquire = d.Acquire
	}
	if t.Command <= 0 {
		t.Command = d.Command
	}
	if t.Publish <= 0 {
		t.Publish = d.Publish
	}
	if t.Cleanup <= 0 {
		t.Cleanup = d.Cleanup
	}
	return t
}

// timedEnvironment applies a per-call timeout to every environment operation
type timedEnvironment struct {
	next     output.EnvironmentGateway
	timeouts Timeouts
}

func (e timedEnvironment) Acquire(ctx context.Context) (*output.Environment, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeouts.Acquire)
	defer cancel()
	return e.next.Acquire(ctx)
}

func (e timedEnvironment) RunCommand(ctx context.Context, env *output.Environment, command string) (*output.CommandResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeouts.Command)
	defer cancel()
	return e.next.RunCommand(ctx, env, command)
}

func (e timedEnvironment) WriteFile(ctx context.Context, env *output.Environment, path string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeouts.Command)
	defer cancel()
	return e.next.WriteFile(ctx, env, path, data)
}

// Release detaches from caller cancellation so cleanup always runs to completion
func (e timedEnvironment) Release(ctx context.Context, env *output.Environment) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeouts.Cleanup)
	defer cancel()
	return e.next.Release(ctx, env)
}

// timedHosting applies the publish timeout to hosting API calls
type timedHosting struct {
	next    output.HostingGateway
	timeout time.Duration
}

func (h timedHosting) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.next.DefaultBranch(ctx, owner, repo)
}

func (h timedHosting) CreatePullRequest(ctx context.Context, req output.PullRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.next.CreatePullRequest(ctx, req)
}
