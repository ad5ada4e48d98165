package output

import (
	"context"
	"time"
)

// GenerationGateway is the interface for text-generation backends
// This abstraction allows different providers (Anthropic API, OpenAI API, Claude CLI, keyword fallback)
type GenerationGateway interface {
	// Name identifies the provider in attempt logs and PR bodies
	Name() string

	// Generate sends the prompt and returns the raw text produced by the provider.
	// Failures are reported as *failure.Error of kind ProviderError.
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)
}

// GenerationRequest represents a request to a generation backend
type GenerationRequest struct {
	Prompt      string        // Full prompt including repository context
	System      string        // System instructions (if supported)
	Timeout     time.Duration // Per-call timeout
	MaxTokens   int           // Maximum tokens to generate (if applicable)
	Temperature float64       // Temperature for generation (0.0-1.0)
}

// GenerationResponse represents the raw response from a backend
type GenerationResponse struct {
	Output     string            // Raw generated text
	Duration   time.Duration     // Call duration
	TokensUsed int               // Number of tokens used (if applicable)
	Provider   string            // Provider that produced the output
	Metadata   map[string]string // Additional metadata
}

// RepositoryContext is what the analysis stage learned about the cloned repository
type RepositoryContext struct {
	Files    []string     // Source files found, relative to the repository root
	KeyFiles []SourceFile // Contents of the first few source files
}

// SourceFile is a file read from the environment for generation context
type SourceFile struct {
	Path    string
	Content string
}
