package generation

import (
	"fmt"
	"net/http"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/interface/external/claudecli"
)

// Provider kinds accepted in providers.yaml
const (
	KindAnthropic = "anthropic"
	KindOpenAI    = "openai"
	KindClaudeCLI = "claude-cli"
	KindKeyword   = "keyword"
)

// Options describes one configured provider
type Options struct {
	Kind    string
	Model   string
	BaseURL string
	APIKey  string
	Bin     string // claude-cli only
}

// New builds the gateway for opts.Kind
func New(opts Options, client *http.Client) (output.GenerationGateway, error) {
	switch opts.Kind {
	case KindAnthropic:
		return NewAnthropicGateway(opts.APIKey, opts.BaseURL, opts.Model, client), nil
	case KindOpenAI:
		return NewOpenAIGateway(opts.APIKey, opts.BaseURL, opts.Model, client), nil
	case KindClaudeCLI:
		return NewClaudeCLIGateway(claudecli.Runner{Bin: opts.Bin, Model: opts.Model}), nil
	case KindKeyword:
		return NewKeywordGateway(), nil
	default:
		return nil, fmt.Errorf("unknown provider kind: %q", opts.Kind)
	}
}
