package service

import (
	"context"
	"errors"
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/app"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/edit"
)

// GatewayAdapter turns a raw-text GenerationGateway into an Adapter by building the prompt
// and parsing the response
type GatewayAdapter struct {
	gateway     output.GenerationGateway
	prompts     *PromptBuilder
	parser      *ResponseParser
	timeout     time.Duration
	maxTokens   int
	temperature float64
	pool        *ProviderPool
	logger      app.Logger
}

// NewGatewayAdapter wraps gateway. A zero timeout falls back to two minutes.
func NewGatewayAdapter(gateway output.GenerationGateway, timeout time.Duration, maxTokens int, logger app.Logger) *GatewayAdapter {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	if logger == nil {
		logger = app.NopLogger()
	}
	return &GatewayAdapter{
		gateway:     gateway,
		prompts:     NewPromptBuilder(),
		parser:      NewResponseParser(),
		timeout:     timeout,
		maxTokens:   maxTokens,
		temperature: 0.2,
		logger:      logger,
	}
}

// WithPool makes every call wait for a slot in pool
func (a *GatewayAdapter) WithPool(pool *ProviderPool) *GatewayAdapter {
	a.pool = pool
	return a
}

// Name returns the wrapped provider name
func (a *GatewayAdapter) Name() string {
	return a.gateway.Name()
}

// Generate calls the provider with a per-call timeout and parses its output
func (a *GatewayAdapter) Generate(ctx context.Context, prompt string, repo output.RepositoryContext) ([]edit.Edit, error) {
	if a.pool != nil {
		if !a.pool.TryAcquire(a.Name()) {
			a.logger.Info("all %s slots busy, waiting", a.Name())
			if err := a.pool.Acquire(ctx, a.Name()); err != nil {
				return nil, failure.Provider(a.Name(), false, err, "no free provider slot")
			}
		}
		defer a.pool.Release(a.Name())
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.gateway.Generate(callCtx, output.GenerationRequest{
		Prompt:      a.prompts.Build(prompt, repo),
		System:      a.prompts.System(),
		Timeout:     a.timeout,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		if _, ok := failure.As(err); ok {
			return nil, err
		}
		// Unclassified errors: timeouts are worth another try, anything else is not
		retryable := errors.Is(err, context.DeadlineExceeded)
		return nil, failure.Provider(a.Name(), retryable, err, "generation call failed")
	}

	edits, shape := a.parser.Parse(resp.Output)
	if len(edits) == 0 {
		a.logger.Debug("%s response had no recognizable edits (%d chars)", a.Name(), len(resp.Output))
		return nil, nil
	}
	a.logger.Debug("%s response parsed as %s: %d edits in %s", a.Name(), shape, len(edits), resp.Duration)
	return edits, nil
}
