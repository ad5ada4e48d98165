package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
	"github.com/YoshitsuguKoike/deepatch/internal/interface/external/claudecli"
)

// ClaudeCLIGateway implements GenerationGateway using the local claude binary.
// Tools are disabled so the CLI only produces text.
type ClaudeCLIGateway struct {
	runner claudecli.Runner
}

func NewClaudeCLIGateway(runner claudecli.Runner) *ClaudeCLIGateway {
	if runner.Timeout == 0 {
		runner.Timeout = 10 * time.Minute
	}
	return &ClaudeCLIGateway{runner: runner}
}

func (g *ClaudeCLIGateway) Name() string { return "claude-cli" }

func (g *ClaudeCLIGateway) Generate(ctx context.Context, req output.GenerationRequest) (*output.GenerationResponse, error) {
	start := time.Now()
	resp, err := g.runner.Run(ctx, req.Prompt, &claudecli.Options{
		SystemPrompt:    req.System,
		DisallowedTools: []string{"Bash", "Edit", "Write", "NotebookEdit", "WebFetch"},
	})
	if err != nil {
		switch {
		case errors.Is(err, claudecli.ErrNotInstalled):
			return nil, failure.Provider(g.Name(), false, err, "CLI unavailable")
		case errors.Is(err, context.DeadlineExceeded):
			return nil, failure.Provider(g.Name(), true, err, "CLI timed out")
		}
		return nil, failure.Provider(g.Name(), false, err, "CLI failed")
	}
	return &output.GenerationResponse{
		Output:   resp.Result,
		Duration: time.Since(start),
		Provider: g.Name(),
		Metadata: map[string]string{
			"session_id":     resp.SessionID,
			"total_cost_usd": fmt.Sprintf("%.4f", resp.TotalCost),
		},
	}, nil
}
