package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/buildinfo"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
)

const (
	openAIURL   = "https://api.openai.com/v1/chat/completions"
	openAIModel = "gpt-4o"
)

// OpenAIGateway implements GenerationGateway for the Chat Completions API
type OpenAIGateway struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
}

func NewOpenAIGateway(apiKey, apiURL, model string, client *http.Client) *OpenAIGateway {
	if apiURL == "" {
		apiURL = openAIURL
	}
	if model == "" {
		model = openAIModel
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &OpenAIGateway{apiKey: apiKey, apiURL: apiURL, model: model, httpClient: client}
}

func (g *OpenAIGateway) Name() string { return "openai" }

func (g *OpenAIGateway) Generate(ctx context.Context, req output.GenerationRequest) (*output.GenerationResponse, error) {
	if g.apiKey == "" {
		return nil, failure.Provider(g.Name(), false, nil, "API key not configured")
	}
	start := time.Now()

	messages := make([]openAIMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(openAIRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
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
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(g.Name(), err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		var errResp openAIResponse
		detail := ""
		if json.NewDecoder(httpResp.Body).Decode(&errResp) == nil && errResp.Error != nil {
			detail = errResp.Error.Type + " - " + errResp.Error.Message
		}
		return nil, statusError(g.Name(), httpResp, detail)
	}

	var resp openAIResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, failure.Provider(g.Name(), true, err, "decode response")
	}
	if len(resp.Choices) == 0 {
		return nil, failure.Provider(g.Name(), false, nil, "response had no choices")
	}

	return &output.GenerationResponse{
		Output:     resp.Choices[0].Message.Content,
		Duration:   time.Since(start),
		TokensUsed: resp.Usage.TotalTokens,
		Provider:   g.Name(),
		Metadata: map[string]string{
			"model":         resp.Model,
			"finish_reason": resp.Choices[0].FinishReason,
			"total_tokens":  fmt.Sprintf("%d", resp.Usage.TotalTokens),
		},
	}, nil
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
