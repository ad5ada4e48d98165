package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/edit"
)

// fakeEnv records commands and writes; responses are matched by command substring
type fakeEnv struct {
	mu        sync.Mutex
	commands  []string
	writes    map[string][]byte
	responses map[string]*output.CommandResult
	writeErr  error
	runErr    error
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{writes: map[string][]byte{}, responses: map[string]*output.CommandResult{}}
}

func (f *fakeEnv) Acquire(ctx context.Context) (*output.Environment, error) {
	return &output.Environment{ID: "env-1", WorkDir: "/work"}, nil
}

func (f *fakeEnv) RunCommand(ctx context.Context, env *output.Environment, command string) (*output.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)
	if f.runErr != nil {
		return nil, f.runErr
	}
	for substr, res := range f.responses {
		if strings.Contains(command, substr) {
			return res, nil
		}
	}
	return &output.CommandResult{}, nil
}

func (f *fakeEnv) WriteFile(ctx context.Context, env *output.Environment, path string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes[path] = append([]byte(nil), data...)
	return nil
}

func (f *fakeEnv) Release(ctx context.Context, env *output.Environment) error {
	return nil
}

func (f *fakeEnv) commandsContaining(substr string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.commands {
		if strings.Contains(c, substr) {
			out = append(out, c)
		}
	}
	return out
}

// scriptedAdapter returns queued results in order, then the last one forever
type scriptedAdapter struct {
	name    string
	results []adapterResult
	calls   int
}

type adapterResult struct {
	edits []edit.Edit
	err   error
}

func (a *scriptedAdapter) Name() string { return a.name }

func (a *scriptedAdapter) Generate(ctx context.Context, prompt string, repo output.RepositoryContext) ([]edit.Edit, error) {
	i := a.calls
	if i >= len(a.results) {
		i = len(a.results) - 1
	}
	a.calls++
	return a.results[i].edits, a.results[i].err
}

type fakeHosting struct {
	defaultBranch string
	branchErr     error
	prErr         error
	url           string
	requests      []output.PullRequest
}

func (h *fakeHosting) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	if h.branchErr != nil {
		return "", h.branchErr
	}
	return h.defaultBranch, nil
}

func (h *fakeHosting) CreatePullRequest(ctx context.Context, req output.PullRequest) (string, error) {
	h.requests = append(h.requests, req)
	if h.prErr != nil {
		return "", h.prErr
	}
	return h.url, nil
}

var errBoom = errors.New("boom")
