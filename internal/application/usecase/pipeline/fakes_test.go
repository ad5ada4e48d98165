package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/edit"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/event"
)

// sandbox is an in-memory environment that understands just enough git to track commits
type sandbox struct {
	mu sync.Mutex

	acquires   int
	releases   int
	releaseCtx error // ctx.Err() observed by Release

	acquireErr error
	writeErr   error
	failOn     map[string]*output.CommandResult // command substring -> forced result

	commands []string
	pending  map[string]map[string][]byte // env id -> path -> content
	commits  [][]string
}

func newSandbox() *sandbox {
	return &sandbox{failOn: map[string]*output.CommandResult{}, pending: map[string]map[string][]byte{}}
}

func (s *sandbox) Acquire(ctx context.Context) (*output.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	s.acquires++
	return &output.Environment{ID: fmt.Sprintf("sbx-%d", s.acquires), WorkDir: "/work"}, nil
}

func (s *sandbox) RunCommand(ctx context.Context, env *output.Environment, command string) (*output.CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.commands = append(s.commands, command)
	for substr, res := range s.failOn {
		if strings.Contains(command, substr) {
			return res, nil
		}
	}

	switch {
	case strings.Contains(command, "find ."):
		return &output.CommandResult{Stdout: "./app.py\n"}, nil
	case strings.HasPrefix(command, "head -c"):
		return &output.CommandResult{Stdout: "def handler(x):\n    return x\n"}, nil
	case strings.Contains(command, "status --porcelain"):
		var lines []string
		for p := range s.pending[env.ID] {
			lines = append(lines, " M "+strings.TrimPrefix(p, edit.RepoDir+"/"))
		}
		return &output.CommandResult{Stdout: strings.Join(lines, "\n")}, nil
	case strings.Contains(command, "commit -m"):
		var files []string
		for p := range s.pending[env.ID] {
			files = append(files, strings.TrimPrefix(p, edit.RepoDir+"/"))
		}
		sort.Strings(files)
		s.commits = append(s.commits, files)
		delete(s.pending, env.ID)
		return &output.CommandResult{}, nil
	case strings.Contains(command, "rev-parse HEAD"):
		return &output.CommandResult{Stdout: "0123456789abcdef\n"}, nil
	}
	return &output.CommandResult{}, nil
}

func (s *sandbox) WriteFile(ctx context.Context, env *output.Environment, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	if s.pending[env.ID] == nil {
		s.pending[env.ID] = map[string][]byte{}
	}
	s.pending[env.ID][path] = data
	return nil
}

func (s *sandbox) Release(ctx context.Context, env *output.Environment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases++
	s.releaseCtx = ctx.Err()
	return nil
}

// adapterFunc builds an Adapter from a function
type adapterFunc struct {
	name string
	fn   func(ctx context.Context) ([]edit.Edit, error)
}

func (a adapterFunc) Name() string { return a.name }

func (a adapterFunc) Generate(ctx context.Context, prompt string, repo output.RepositoryContext) ([]edit.Edit, error) {
	return a.fn(ctx)
}

func alwaysFails(name string) adapterFunc {
	return adapterFunc{name: name, fn: func(context.Context) ([]edit.Edit, error) {
		return nil, failure.Provider(name, false, errors.New("HTTP 401"), "unauthorized")
	}}
}

func returnsOneEdit(name, path, content string) adapterFunc {
	return adapterFunc{name: name, fn: func(context.Context) ([]edit.Edit, error) {
		return []edit.Edit{edit.New(path, []byte(content), edit.KindModify, "validate input")}, nil
	}}
}

type hosting struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (h *hosting) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	return "main", nil
}

func (h *hosting) CreatePullRequest(ctx context.Context, req output.PullRequest) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.err != nil {
		return "", h.err
	}
	return fmt.Sprintf("https://host/%s/%s/pull/%d", req.Owner, req.Repo, h.calls), nil
}

type collector struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *collector) PresentEvent(ev event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

type memoryRuns struct {
	mu   sync.Mutex
	runs map[string]*output.RunRecord
}

func newMemoryRuns() *memoryRuns {
	return &memoryRuns{runs: map[string]*output.RunRecord{}}
}

func (m *memoryRuns) Save(ctx context.Context, run *output.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.RequestID] = run
	return nil
}

func (m *memoryRuns) FindByID(ctx context.Context, requestID string) (*output.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs[requestID], nil
}

func (m *memoryRuns) List(ctx context.Context, limit int) ([]*output.RunRecord, error) {
	return nil, nil
}
