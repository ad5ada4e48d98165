package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/YoshitsuguKoike/deepatch/internal/app"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/edit"
)

// Adapter produces edits for a prompt. Implementations report failures as ProviderError.
type Adapter interface {
	Name() string
	Generate(ctx context.Context, prompt string, repo output.RepositoryContext) ([]edit.Edit, error)
}

// AttemptOutcome is the result of asking one provider
type AttemptOutcome string

const (
	AttemptSuccess AttemptOutcome = "success"
	AttemptFailure AttemptOutcome = "failure"
	AttemptEmpty   AttemptOutcome = "empty"
)

// ProviderAttempt is one append-only entry in the chain's attempt log
type ProviderAttempt struct {
	Ordinal   int
	Provider  string
	Outcome   AttemptOutcome
	Reason    string
	Retryable bool
	Tries     int
}

// Selection is the chain's result. Attempts is populated even when the chain fails.
type Selection struct {
	Edits    []edit.Edit
	Provider string
	Attempts []ProviderAttempt
}

// FallbackChain tries adapters in priority order; the first non-empty result wins.
// Every failure advances to the next adapter, retryable or not.
type FallbackChain struct {
	adapters []Adapter
	retry    RetryPolicy
	logger   app.Logger
}

// ChainOption configures a FallbackChain
type ChainOption func(*FallbackChain)

// WithRetryPolicy sets the same-provider retry policy
func WithRetryPolicy(p RetryPolicy) ChainOption {
	return func(c *FallbackChain) { c.retry = p }
}

// WithChainLogger sets the logger
func WithChainLogger(l app.Logger) ChainOption {
	return func(c *FallbackChain) { c.logger = l }
}

// NewFallbackChain creates a chain over adapters
func NewFallbackChain(adapters []Adapter, opts ...ChainOption) *FallbackChain {
	c := &FallbackChain{
		adapters: adapters,
		retry:    NoRetry,
		logger:   app.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Providers returns adapter names in priority order
func (c *FallbackChain) Providers() []string {
	names := make([]string, 0, len(c.adapters))
	for _, a := range c.adapters {
		names = append(names, a.Name())
	}
	return names
}

// Generate runs the chain. onAttempt, if non-nil, is called after every attempt is logged.
func (c *FallbackChain) Generate(ctx context.Context, prompt string, repo output.RepositoryContext, onAttempt func(ProviderAttempt)) (*Selection, error) {
	sel := &Selection{}
	if len(c.adapters) == 0 {
		return sel, failure.Provider("chain", false, nil, "no generation providers configured")
	}

	record := func(a ProviderAttempt) {
		sel.Attempts = append(sel.Attempts, a)
		if onAttempt != nil {
			onAttempt(a)
		}
	}

	for i, adapter := range c.adapters {
		if err := ctx.Err(); err != nil {
			return sel, failure.Provider(adapter.Name(), false, err, "generation cancelled")
		}

		var edits []edit.Edit
		tries, err := c.retry.Do(ctx, func(ctx context.Context) error {
			var genErr error
			edits, genErr = adapter.Generate(ctx, prompt, repo)
			return genErr
		})

		attempt := ProviderAttempt{Ordinal: i + 1, Provider: adapter.Name(), Tries: tries}
		switch {
		case err != nil:
			attempt.Outcome = AttemptFailure
			attempt.Reason = err.Error()
			attempt.Retryable = failure.IsRetryable(err)
			c.logger.Warn("provider %s failed after %d tries: %v", adapter.Name(), tries, err)
			record(attempt)
		case len(edits) == 0:
			attempt.Outcome = AttemptEmpty
			attempt.Reason = "no edits in response"
			c.logger.Warn("provider %s returned no edits", adapter.Name())
			record(attempt)
		default:
			attempt.Outcome = AttemptSuccess
			record(attempt)
			c.logger.Info("provider %s produced %d edits", adapter.Name(), len(edits))
			sel.Edits = edits
			sel.Provider = adapter.Name()
			return sel, nil
		}
	}

	return sel, failure.Provider("chain", false, nil, "all providers failed (%s)", summarizeAttempts(sel.Attempts))
}

func summarizeAttempts(attempts []ProviderAttempt) string {
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Provider, a.Outcome))
	}
	return strings.Join(parts, ", ")
}
