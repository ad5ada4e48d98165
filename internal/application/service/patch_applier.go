package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/YoshitsuguKoike/deepatch/internal/app"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/edit"
)

// ApplyResult reports what the applier wrote
type ApplyResult struct {
	Applied   []edit.Edit
	Failures  []*failure.Error
	Fallbacks int // edits written through the escaped path
}

// Count returns the number of edits applied
func (r *ApplyResult) Count() int {
	return len(r.Applied)
}

// PatchApplier writes edits into the environment, one independently of another
type PatchApplier struct {
	env    output.EnvironmentGateway
	logger app.Logger
}

// NewPatchApplier creates a patch applier
func NewPatchApplier(env output.EnvironmentGateway, logger app.Logger) *PatchApplier {
	if logger == nil {
		logger = app.NopLogger()
	}
	return &PatchApplier{env: env, logger: logger}
}

// Apply writes every edit. A failed edit is recorded as an ApplyError and the batch continues.
func (a *PatchApplier) Apply(ctx context.Context, environment *output.Environment, edits []edit.Edit) *ApplyResult {
	result := &ApplyResult{}
	for _, e := range edits {
		e.Path = edit.NormalizePath(e.Path)
		if err := e.Validate(); err != nil {
			result.Failures = append(result.Failures, failure.Apply(err, "rejected %q", e.Path))
			continue
		}

		usedFallback, err := a.write(ctx, environment, e)
		if err != nil {
			a.logger.Warn("apply %s failed: %v", e.Path, err)
			result.Failures = append(result.Failures, failure.Apply(err, "could not write %s", e.Path))
			continue
		}
		if usedFallback {
			result.Fallbacks++
		}
		result.Applied = append(result.Applied, e)
	}
	return result
}

func (a *PatchApplier) write(ctx context.Context, environment *output.Environment, e edit.Edit) (bool, error) {
	primaryErr := a.env.WriteFile(ctx, environment, e.RepoPath(), e.Content)
	if primaryErr == nil {
		return false, nil
	}
	if ctx.Err() != nil {
		return false, primaryErr
	}

	if bytes.IndexByte(e.Content, 0) >= 0 {
		return false, fmt.Errorf("binary write failed and content has NUL bytes: %w", primaryErr)
	}

	a.logger.Warn("binary-safe write of %s failed, using escaped write: %v", e.Path, primaryErr)
	res, err := a.env.RunCommand(ctx, environment, escapedWriteCommand(e.RepoPath(), e.Content))
	if err != nil {
		return false, fmt.Errorf("escaped write: %w (primary: %v)", err, primaryErr)
	}
	if !res.OK() {
		return false, fmt.Errorf("escaped write exited %d: %s (primary: %v)", res.ExitCode, strings.TrimSpace(res.Stderr), primaryErr)
	}
	return true, nil
}
