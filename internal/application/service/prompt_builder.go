package service

import (
	"fmt"
	"strings"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
)

const systemInstructions = `You are a senior engineer proposing a patch to a git repository.
Respond ONLY with a JSON object of this form:
{"changes":[{"type":"edit","filepath":"path/relative/to/repo","content":"<complete new file content>","description":"<one line>"}]}
Use "create" as type for new files. Paths are relative to the repository root.
Always return complete file contents, never diffs.`

const requestHeading = "## Requested change\n"

// maxContextFileBytes bounds how much of each key file goes into the prompt
const maxContextFileBytes = 8 * 1024

// PromptBuilder renders the user request plus repository context into a provider prompt
type PromptBuilder struct {
	maxFileBytes int
}

// NewPromptBuilder creates a prompt builder
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{maxFileBytes: maxContextFileBytes}
}

// System returns the instructions sent as the system prompt where supported
func (b *PromptBuilder) System() string {
	return systemInstructions
}

// Build renders the full prompt
func (b *PromptBuilder) Build(request string, repo output.RepositoryContext) string {
	var sb strings.Builder
	sb.WriteString(requestHeading)
	sb.WriteString(strings.TrimSpace(request))
	sb.WriteString("\n\n")

	if len(repo.Files) > 0 {
		sb.WriteString("## Repository files\n")
		for _, f := range repo.Files {
			sb.WriteString("- ")
			sb.WriteString(f)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	for _, f := range repo.KeyFiles {
		content := f.Content
		if len(content) > b.maxFileBytes {
			content = content[:b.maxFileBytes] + "\n... (truncated)"
		}
		fmt.Fprintf(&sb, "## File: %s\n```\n%s\n```\n\n", f.Path, strings.TrimRight(content, "\n"))
	}

	sb.WriteString("## Output format\n")
	sb.WriteString(systemInstructions)
	sb.WriteString("\n")
	return sb.String()
}

// RequestedChange recovers the user request from a prompt produced by Build.
// Prompts in any other form are returned trimmed.
func RequestedChange(prompt string) string {
	rest, ok := strings.CutPrefix(prompt, requestHeading)
	if !ok {
		return strings.TrimSpace(prompt)
	}
	if i := strings.Index(rest, "\n\n## "); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}
