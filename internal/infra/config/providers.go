package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/deepatch/internal/app/config"
)

// RawProviders is the structure of providers.yaml
type RawProviders struct {
	Retry     RawRetry      `yaml:"retry"`
	Providers []RawProvider `yaml:"providers"`
}

// RawRetry is the same-provider retry policy
type RawRetry struct {
	MaxAttempts    int    `yaml:"max_attempts"`
	InitialBackoff string `yaml:"initial_backoff"`
	MaxBackoff     string `yaml:"max_backoff"`
}

// RawProvider is one entry in the fallback chain
type RawProvider struct {
	Kind      string `yaml:"kind"`
	Model     string `yaml:"model,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	Bin       string `yaml:"bin,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"`
	MaxTokens int    `yaml:"max_tokens,omitempty"`
	Disabled  bool   `yaml:"disabled,omitempty"`

	// MaxConcurrent caps in-flight calls to this provider across requests
	MaxConcurrent int `yaml:"max_concurrent,omitempty"`
}

var knownKinds = map[string]bool{"anthropic": true, "openai": true, "claude-cli": true, "keyword": true}

func defaultProviders() *RawProviders {
	return &RawProviders{
		Retry: RawRetry{MaxAttempts: 3, InitialBackoff: "1s", MaxBackoff: "10s"},
		Providers: []RawProvider{
			{Kind: "anthropic", Timeout: "2m", MaxTokens: 8192},
			{Kind: "openai", Timeout: "2m", MaxTokens: 8192},
			{Kind: "claude-cli", Bin: "claude", Timeout: "10m", MaxConcurrent: 2},
			{Kind: "keyword"},
		},
	}
}

// LoadProviders reads providers.yaml, returning the default chain when the file is absent
func LoadProviders(fs afero.Fs, path string) (*RawProviders, error) {
	data, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultProviders(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var raw RawProviders
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := raw.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &raw, nil
}

func (r *RawProviders) validate() error {
	enabled := 0
	seen := make(map[string]int)
	for i, p := range r.Providers {
		if !knownKinds[p.Kind] {
			return fmt.Errorf("providers[%d]: unknown kind %q", i, p.Kind)
		}
		if p.MaxConcurrent < 0 {
			return fmt.Errorf("providers[%d].max_concurrent must not be negative", i)
		}
		if _, err := parseDuration(p.Timeout); err != nil {
			return fmt.Errorf("providers[%d].timeout: %w", i, err)
		}
		if !p.Disabled {
			// A provider is identified by its kind in attempts, history and the slot pool
			if j, dup := seen[p.Kind]; dup {
				return fmt.Errorf("providers[%d]: kind %q is already enabled at providers[%d]", i, p.Kind, j)
			}
			seen[p.Kind] = i
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one enabled provider is required")
	}
	if r.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must not be negative")
	}
	if _, err := parseDuration(r.Retry.InitialBackoff); err != nil {
		return fmt.Errorf("retry.initial_backoff: %w", err)
	}
	if _, err := parseDuration(r.Retry.MaxBackoff); err != nil {
		return fmt.Errorf("retry.max_backoff: %w", err)
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// toConfig drops disabled entries and attaches credentials from the environment
func (r *RawProviders) toConfig() []config.ProviderConfig {
	out := make([]config.ProviderConfig, 0, len(r.Providers))
	for _, p := range r.Providers {
		if p.Disabled {
			continue
		}
		timeout, _ := parseDuration(p.Timeout)
		pc := config.ProviderConfig{
			Kind:      p.Kind,
			Model:     p.Model,
			BaseURL:   p.BaseURL,
			Bin:       p.Bin,
			Timeout:   timeout,
			MaxTokens: p.MaxTokens,

			MaxConcurrent: p.MaxConcurrent,
		}
		switch p.Kind {
		case "anthropic":
			pc.APIKey = os.Getenv(EnvAnthropicKey)
		case "openai":
			pc.APIKey = os.Getenv(EnvOpenAIKey)
		}
		out = append(out, pc)
	}
	return out
}

func (r RawRetry) toConfig() config.RetryConfig {
	initial, _ := parseDuration(r.InitialBackoff)
	maxBackoff, _ := parseDuration(r.MaxBackoff)
	attempts := r.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	return config.RetryConfig{MaxAttempts: attempts, InitialBackoff: initial, MaxBackoff: maxBackoff}
}

// CreateDefaultProviders returns the providers.yaml written by `deepatch init`
func CreateDefaultProviders() []byte {
	data, _ := yaml.Marshal(defaultProviders())
	header := "# Providers are tried in order until one returns usable edits.\n" +
		"# Each kind may be enabled once; max_concurrent applies to that kind.\n" +
		"# Credentials come from ANTHROPIC_API_KEY and OPENAI_API_KEY.\n"
	return append([]byte(header), data...)
}
