package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
)

func TestRepositoryAnalyzerReadsKeyFiles(t *testing.T) {
	env := newFakeEnv()
	env.responses["find ."] = &output.CommandResult{Stdout: "./app.py\n./lib/util.py\n\n"}
	env.responses["'repo/app.py'"] = &output.CommandResult{Stdout: "print(1)\n"}
	env.responses["'repo/lib/util.py'"] = &output.CommandResult{ExitCode: 1}

	repo, err := NewRepositoryAnalyzer(env, nil).Analyze(context.Background(), testEnv)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py", "lib/util.py"}, repo.Files)
	require.Len(t, repo.KeyFiles, 1)
	assert.Equal(t, output.SourceFile{Path: "app.py", Content: "print(1)\n"}, repo.KeyFiles[0])
}

func TestRepositoryAnalyzerListFailure(t *testing.T) {
	env := newFakeEnv()
	env.responses["find ."] = &output.CommandResult{ExitCode: 2, Stderr: "no such directory"}
	_, err := NewRepositoryAnalyzer(env, nil).Analyze(context.Background(), testEnv)
	assert.True(t, failure.IsKind(err, failure.KindEnvironment))
}
