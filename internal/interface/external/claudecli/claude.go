package claudecli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrNotInstalled is returned when the claude binary cannot be found on PATH.
var ErrNotInstalled = errors.New("claude binary not found")

// ExecFunc runs name with args and returns combined output.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Runner invokes the claude CLI in print mode.
type Runner struct {
	Bin     string
	Timeout time.Duration
	Model   string

	// Exec defaults to os/exec when nil.
	Exec ExecFunc
}

// Response is the JSON document printed by `claude -p --output-format json`.
type Response struct {
	Type       string  `json:"type"`
	Subtype    string  `json:"subtype"`
	IsError    bool    `json:"is_error"`
	DurationMs int     `json:"duration_ms"`
	Result     string  `json:"result"`
	SessionID  string  `json:"session_id"`
	TotalCost  float64 `json:"total_cost_usd"`
	UUID       string  `json:"uuid"`
}

// Options tweaks a single invocation.
type Options struct {
	SystemPrompt    string
	DisallowedTools []string
}

func (r Runner) bin() string {
	if r.Bin == "" {
		return "claude"
	}
	return r.Bin
}

// Available reports whether the binary resolves on PATH. Injected runners are always available.
func (r Runner) Available() bool {
	if r.Exec != nil {
		return true
	}
	_, err := exec.LookPath(r.bin())
	return err == nil
}

func (r Runner) Run(ctx context.Context, prompt string, opts *Options) (*Response, error) {
	args := []string{"-p", "--output-format", "json"}
	if r.Model != "" {
		args = append(args, "--model", r.Model)
	}
	if opts != nil {
		if opts.SystemPrompt != "" {
			args = append(args, "--append-system-prompt", opts.SystemPrompt)
		}
		if len(opts.DisallowedTools) > 0 {
			args = append(args, "--disallowed-tools", strings.Join(opts.DisallowedTools, ","))
		}
	}
	args = append(args, prompt)

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	run := r.Exec
	if run == nil {
		if !r.Available() {
			return nil, fmt.Errorf("%w: %s", ErrNotInstalled, r.bin())
		}
		run = combinedOutput
	}

	out, err := run(ctx, r.bin(), args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("claude execution failed: %w", ctxErr)
		}
		return nil, fmt.Errorf("claude execution failed: %w (output: %s)", err, truncate(string(out), 512))
	}

	var resp Response
	if err := json.Unmarshal(out, &resp); err != nil {
		// Older CLIs print plain text.
		return &Response{Type: "result", Result: string(out)}, nil
	}
	if resp.IsError {
		return nil, fmt.Errorf("claude returned error: %s", resp.Result)
	}
	return &resp, nil
}

func combinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
