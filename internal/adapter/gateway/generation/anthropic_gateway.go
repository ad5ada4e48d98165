package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/buildinfo"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
)

const (
	anthropicURL     = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
	anthropicModel   = "claude-sonnet-4-20250514"
)

// AnthropicGateway implements GenerationGateway for the Anthropic Messages API
type AnthropicGateway struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
}

// NewAnthropicGateway creates a gateway. Empty url and model use the public defaults.
func NewAnthropicGateway(apiKey, apiURL, model string, client *http.Client) *AnthropicGateway {
	if apiURL == "" {
		apiURL = anthropicURL
	}
	if model == "" {
		model = anthropicModel
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &AnthropicGateway{apiKey: apiKey, apiURL: apiURL, model: model, httpClient: client}
}

func (g *AnthropicGateway) Name() string { return "anthropic" }

// Generate sends a single-turn message and concatenates the text blocks of the reply
func (g *AnthropicGateway) Generate(ctx context.Context, req output.GenerationRequest) (*output.GenerationResponse, error) {
	if g.apiKey == "" {
		return nil, failure.Provider(g.Name(), false, nil, "API key not configured")
	}
	start := time.Now()

	body, err := json.Marshal(anthropicRequest{
		Model:       g.model,
		MaxTokens:   req.MaxTokens,
		System:      req.System,
		Temperature: req.Temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return nil, failure.Provider(g.Name(), false, err, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, failure.Provider(g.Name(), false, err, "create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", buildinfo.UserAgent())
	httpReq.Header.Set("x-api-key", g.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(g.Name(), err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		var errResp anthropicResponse
		detail := ""
		if json.NewDecoder(httpResp.Body).Decode(&errResp) == nil && errResp.Error.Message != "" {
			detail = errResp.Error.Type + " - " + errResp.Error.Message
		}
		return nil, statusError(g.Name(), httpResp, detail)
	}

	var resp anthropicResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, failure.Provider(g.Name(), true, err, "decode response")
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &output.GenerationResponse{
		Output:     text.String(),
		Duration:   time.Since(start),
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
		Provider:   g.Name(),
		Metadata: map[string]string{
			"model":         resp.Model,
			"stop_reason":   resp.StopReason,
			"input_tokens":  fmt.Sprintf("%d", resp.Usage.InputTokens),
			"output_tokens": fmt.Sprintf("%d", resp.Usage.OutputTokens),
		},
	}, nil
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
