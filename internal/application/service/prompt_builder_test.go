package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
)

func TestPromptBuilder_Build(t *testing.T) {
	b := NewPromptBuilder()
	repo := output.RepositoryContext{
		Files:    []string{"app.py", "lib/util.go"},
		KeyFiles: []output.SourceFile{{Path: "app.py", Content: "print('hi')\n"}},
	}

	got := b.Build("  add logging  ", repo)

	assert.True(t, strings.HasPrefix(got, "## Requested change\nadd logging\n\n"))
	assert.Contains(t, got, "- lib/util.go\n")
	assert.Contains(t, got, "## File: app.py\n```\nprint('hi')\n```")
	assert.Contains(t, got, `"changes"`)
}

func TestPromptBuilder_TruncatesLargeFiles(t *testing.T) {
	b := NewPromptBuilder()
	big := strings.Repeat("x", maxContextFileBytes+100)

	got := b.Build("p", output.RepositoryContext{KeyFiles: []output.SourceFile{{Path: "big.txt", Content: big}}})

	assert.Contains(t, got, "... (truncated)")
	assert.NotContains(t, got, strings.Repeat("x", maxContextFileBytes+1))
}

func TestRequestedChange(t *testing.T) {
	b := NewPromptBuilder()
	prompt := b.Build("Add error handling\nto the parser", output.RepositoryContext{Files: []string{"a.go"}})

	assert.Equal(t, "Add error handling\nto the parser", RequestedChange(prompt))
	assert.Equal(t, "free text", RequestedChange("  free text \n"))
}
