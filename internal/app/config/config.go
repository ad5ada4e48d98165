package config

import "time"

// Config provides read-only access to application configuration.
// The app layer depends on this interface, never on how values were loaded.
type Config interface {
	Home() string
	ListenAddr() string
	StderrLevel() string

	// Sandbox
	Sandbox() string
	SandboxImage() string

	// Hosting and git
	Hosting() string
	GitHubAPIURL() string
	GitHubToken() string
	GitIdentity() (name, email string)

	// Generation
	Providers() []ProviderConfig
	Retry() RetryConfig

	// Archival and history
	Storage() StorageConfig
	HistoryEnabled() bool

	// Stage timeouts
	AcquireTimeout() time.Duration
	CommandTimeout() time.Duration
	PublishTimeout() time.Duration
	CleanupTimeout() time.Duration

	// Metadata
	ConfigSource() string // "json" or "default"
	SettingPath() string
	ProvidersPath() string
}

// ProviderConfig is one entry of the ordered fallback chain
type ProviderConfig struct {
	Kind      string
	Model     string
	BaseURL   string
	Bin       string
	APIKey    string
	Timeout   time.Duration
	MaxTokens int

	// MaxConcurrent caps in-flight calls across requests; 0 means unlimited
	MaxConcurrent int
}

// RetryConfig is the same-provider retry policy
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// StorageConfig selects the artifact archive
type StorageConfig struct {
	Kind     string // local, s3 or none
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
}

// Values is everything needed to build an AppConfig
type Values struct {
	Home        string
	ListenAddr  string
	StderrLevel string

	Sandbox      string
	SandboxImage string

	Hosting      string
	GitHubAPIURL string
	GitHubToken  string
	GitUserName  string
	GitUserEmail string

	Providers []ProviderConfig
	Retry     RetryConfig

	Storage        StorageConfig
	HistoryEnabled bool

	AcquireTimeout time.Duration
	CommandTimeout time.Duration
	PublishTimeout time.Duration
	CleanupTimeout time.Duration

	ConfigSource  string
	SettingPath   string
	ProvidersPath string
}

// AppConfig is the immutable Config implementation
type AppConfig struct {
	v Values
}

// NewAppConfig copies v so later changes by the caller are not observed
func NewAppConfig(v Values) *AppConfig {
	v.Providers = append([]ProviderConfig(nil), v.Providers...)
	return &AppConfig{v: v}
}

func (c *AppConfig) Home() string        { return c.v.Home }
func (c *AppConfig) ListenAddr() string  { return c.v.ListenAddr }
func (c *AppConfig) StderrLevel() string { return c.v.StderrLevel }

func (c *AppConfig) Sandbox() string      { return c.v.Sandbox }
func (c *AppConfig) SandboxImage() string { return c.v.SandboxImage }

func (c *AppConfig) Hosting() string      { return c.v.Hosting }
func (c *AppConfig) GitHubAPIURL() string { return c.v.GitHubAPIURL }
func (c *AppConfig) GitHubToken() string  { return c.v.GitHubToken }

// GitIdentity returns the author recorded on generated commits
func (c *AppConfig) GitIdentity() (name, email string) {
	return c.v.GitUserName, c.v.GitUserEmail
}

// Providers returns a copy of the fallback chain in priority order
func (c *AppConfig) Providers() []ProviderConfig {
	return append([]ProviderConfig(nil), c.v.Providers...)
}

func (c *AppConfig) Retry() RetryConfig { return c.v.Retry }

func (c *AppConfig) Storage() StorageConfig { return c.v.Storage }
func (c *AppConfig) HistoryEnabled() bool   { return c.v.HistoryEnabled }

func (c *AppConfig) AcquireTimeout() time.Duration { return c.v.AcquireTimeout }
func (c *AppConfig) CommandTimeout() time.Duration { return c.v.CommandTimeout }
func (c *AppConfig) PublishTimeout() time.Duration { return c.v.PublishTimeout }
func (c *AppConfig) CleanupTimeout() time.Duration { return c.v.CleanupTimeout }

func (c *AppConfig) ConfigSource() string  { return c.v.ConfigSource }
func (c *AppConfig) SettingPath() string   { return c.v.SettingPath }
func (c *AppConfig) ProvidersPath() string { return c.v.ProvidersPath }

var _ Config = (*AppConfig)(nil)
