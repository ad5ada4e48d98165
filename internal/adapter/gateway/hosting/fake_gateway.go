package hosting

import (
	"context"
	"fmt"
	"sync"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
)

// FakeGateway records pull requests without calling a hosting service. URLs are
// deterministic per repository, numbered from 1.
type FakeGateway struct {
	host string

	mu      sync.Mutex
	opened  []output.PullRequest
	counter map[string]int
}

func NewFakeGateway(host string) *FakeGateway {
	if host == "" {
		host = "github.com"
	}
	return &FakeGateway{host: host, counter: make(map[string]int)}
}

func (g *FakeGateway) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	return "main", ctx.Err()
}

func (g *FakeGateway) CreatePullRequest(ctx context.Context, pr output.PullRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	key := pr.Owner + "/" + pr.Repo
	g.counter[key]++
	g.opened = append(g.opened, pr)
	return fmt.Sprintf("https://%s/%s/pull/%d", g.host, key, g.counter[key]), nil
}

// Opened returns the pull requests created so far
func (g *FakeGateway) Opened() []output.PullRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]output.PullRequest(nil), g.opened...)
}
