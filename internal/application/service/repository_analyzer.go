package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/YoshitsuguKoike/deepatch/internal/app"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/edit"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/stage"
)

var sourceExtensions = []string{"py", "js", "ts", "jsx", "tsx", "go"}

const (
	maxListedFiles = 20
	maxKeyFiles    = 5
	maxReadBytes   = 20000
)

// RepositoryAnalyzer collects the file list and key file contents used as generation context
type RepositoryAnalyzer struct {
	env    output.EnvironmentGateway
	logger app.Logger
}

// NewRepositoryAnalyzer creates an analyzer
func NewRepositoryAnalyzer(env output.EnvironmentGateway, logger app.Logger) *RepositoryAnalyzer {
	if logger == nil {
		logger = app.NopLogger()
	}
	return &RepositoryAnalyzer{env: env, logger: logger}
}

// Analyze lists source files in the cloned repository and reads the first few.
// Unreadable key files are skipped.
func (a *RepositoryAnalyzer) Analyze(ctx context.Context, environment *output.Environment) (output.RepositoryContext, error) {
	var repo output.RepositoryContext

	res, err := a.env.RunCommand(ctx, environment, listSourcesCommand())
	if err != nil {
		return repo, failure.Environment(stage.Analysis, err, "listing repository files")
	}
	if !res.OK() {
		return repo, failure.Environment(stage.Analysis, nil, "listing repository files exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimPrefix(strings.TrimSpace(line), "./")
		if line != "" {
			repo.Files = append(repo.Files, line)
		}
	}

	for i, f := range repo.Files {
		if i >= maxKeyFiles {
			break
		}
		cmd := fmt.Sprintf("head -c %d %s", maxReadBytes, shellQuote(edit.RepoDir+"/"+f))
		out, err := a.env.RunCommand(ctx, environment, cmd)
		if err != nil || !out.OK() {
			a.logger.Debug("skipping unreadable %s", f)
			continue
		}
		repo.KeyFiles = append(repo.KeyFiles, output.SourceFile{Path: f, Content: out.Stdout})
	}
	return repo, nil
}

func listSourcesCommand() string {
	names := make([]string, 0, len(sourceExtensions))
	for _, ext := range sourceExtensions {
		names = append(names, fmt.Sprintf("-name '*.%s'", ext))
	}
	return fmt.Sprintf("cd %s && find . -type f \\( %s \\) -not -path './.git/*' -not -path '*/node_modules/*' | sort | head -%d",
		edit.RepoDir, strings.Join(names, " -o "), maxListedFiles)
}
