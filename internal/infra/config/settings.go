package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deepatch/internal/app"
	"github.com/YoshitsuguKoike/deepatch/internal/app/config"
)

// RawSettings represents the structure of setting.json.
// Credentials are never read from the file; they come from the environment.
type RawSettings struct {
	// Server
	ListenAddr  *string `json:"listen_addr"`
	StderrLevel *string `json:"stderr_level"`

	// Sandbox
	Sandbox      *string `json:"sandbox"`
	SandboxImage *string `json:"sandbox_image"`

	// Hosting and git identity
	Hosting      *string `json:"hosting"`
	GitHubAPIURL *string `json:"github_api_url"`
	GitUserName  *string `json:"git_user_name"`
	GitUserEmail *string `json:"git_user_email"`

	// Archival and history
	Storage    *string `json:"storage"`
	S3Bucket   *string `json:"s3_bucket"`
	S3Prefix   *string `json:"s3_prefix"`
	S3Region   *string `json:"s3_region"`
	S3Endpoint *string `json:"s3_endpoint"`
	History    *bool   `json:"history"`

	// Stage timeouts in seconds
	AcquireTimeoutSec *int `json:"acquire_timeout_sec"`
	CommandTimeoutSec *int `json:"command_timeout_sec"`
	PublishTimeoutSec *int `json:"publish_timeout_sec"`
	CleanupTimeoutSec *int `json:"cleanup_timeout_sec"`
}

// Credential environment variables
const (
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvGitHubToken  = "GITHUB_TOKEN"
	EnvLogLevel     = "DEEPATCH_LOG_LEVEL"
)

// Load reads setting.json and providers.yaml from the paths under home.
// Missing files fall back to defaults; malformed files are errors.
func Load(fs afero.Fs, paths app.Paths) (*config.AppConfig, error) {
	settings, source, err := readSettings(fs, paths.Settings)
	if err != nil {
		return nil, err
	}
	providers, err := LoadProviders(fs, paths.Providers)
	if err != nil {
		return nil, err
	}
	applyDefaults(settings)
	applyEnv(settings)

	if err := validateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", paths.Settings, err)
	}

	settingPath := ""
	if source == "json" {
		settingPath = paths.Settings
	}
	return buildAppConfig(settings, providers, paths, source, settingPath), nil
}

func readSettings(fs afero.Fs, path string) (*RawSettings, string, error) {
	settings := &RawSettings{}
	data, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return settings, "default", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, "", fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return settings, "json", nil
}

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }

// applyDefaults fills in default values for any nil fields
func applyDefaults(s *RawSettings) {
	if s.ListenAddr == nil {
		s.ListenAddr = strPtr(":8080")
	}
	if s.StderrLevel == nil {
		s.StderrLevel = strPtr("info")
	}

	if s.Sandbox == nil {
		s.Sandbox = strPtr("docker")
	}
	if s.SandboxImage == nil {
		s.SandboxImage = strPtr("alpine/git:latest")
	}

	if s.Hosting == nil {
		s.Hosting = strPtr("github")
	}
	if s.GitHubAPIURL == nil {
		s.GitHubAPIURL = strPtr("https://api.github.com")
	}
	if s.GitUserName == nil {
		s.GitUserName = strPtr("deepatch[bot]")
	}
	if s.GitUserEmail == nil {
		s.GitUserEmail = strPtr("deepatch-bot@users.noreply.github.com")
	}

	if s.Storage == nil {
		s.Storage = strPtr("local")
	}
	for _, p := range []**string{&s.S3Bucket, &s.S3Prefix, &s.S3Region, &s.S3Endpoint} {
		if *p == nil {
			*p = strPtr("")
		}
	}
	if s.History == nil {
		s.History = boolPtr(true)
	}

	if s.AcquireTimeoutSec == nil {
		s.AcquireTimeoutSec = intPtr(120)
	}
	if s.CommandTimeoutSec == nil {
		s.CommandTimeoutSec = intPtr(300)
	}
	if s.PublishTimeoutSec == nil {
		s.PublishTimeoutSec = intPtr(60)
	}
	if s.CleanupTimeoutSec == nil {
		s.CleanupTimeoutSec = intPtr(60)
	}
}

// applyEnv lets DEEPATCH_LOG_LEVEL override the file
func applyEnv(s *RawSettings) {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		s.StderrLevel = &v
	}
}

func validateSettings(s *RawSettings) error {
	switch *s.Sandbox {
	case "docker", "podman", "local":
	default:
		return fmt.Errorf("sandbox must be docker, podman or local, got %q", *s.Sandbox)
	}
	switch *s.Hosting {
	case "github", "fake":
	default:
		return fmt.Errorf("hosting must be github or fake, got %q", *s.Hosting)
	}
	switch *s.Storage {
	case "local", "none":
	case "s3":
		if *s.S3Bucket == "" {
			return fmt.Errorf("storage s3 requires s3_bucket")
		}
	default:
		return fmt.Errorf("storage must be local, s3 or none, got %q", *s.Storage)
	}
	for name, v := range map[string]int{
		"acquire_timeout_sec": *s.AcquireTimeoutSec,
		"command_timeout_sec": *s.CommandTimeoutSec,
		"publish_timeout_sec": *s.PublishTimeoutSec,
		"cleanup_timeout_sec": *s.CleanupTimeoutSec,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	return nil
}

func buildAppConfig(s *RawSettings, providers *RawProviders, paths app.Paths, source, settingPath string) *config.AppConfig {
	return config.NewAppConfig(config.Values{
		Home:         paths.Home,
		ListenAddr:   *s.ListenAddr,
		StderrLevel:  *s.StderrLevel,
		Sandbox:      *s.Sandbox,
		SandboxImage: *s.SandboxImage,
		Hosting:      *s.Hosting,
		GitHubAPIURL: *s.GitHubAPIURL,
		GitHubToken:  os.Getenv(EnvGitHubToken),
		GitUserName:  *s.GitUserName,
		GitUserEmail: *s.GitUserEmail,
		Providers:    providers.toConfig(),
		Retry:        providers.Retry.toConfig(),
		Storage: config.StorageConfig{
			Kind:     *s.Storage,
			Bucket:   *s.S3Bucket,
			Prefix:   *s.S3Prefix,
			Region:   *s.S3Region,
			Endpoint: *s.S3Endpoint,
		},
		HistoryEnabled: *s.History,
		AcquireTimeout: seconds(*s.AcquireTimeoutSec),
		CommandTimeout: seconds(*s.CommandTimeoutSec),
		PublishTimeout: seconds(*s.PublishTimeoutSec),
		CleanupTimeout: seconds(*s.CleanupTimeoutSec),
		ConfigSource:   source,
		SettingPath:    settingPath,
		ProvidersPath:  paths.Providers,
	})
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// CreateDefaultSettings returns the content written by `deepatch init`
func CreateDefaultSettings() []byte {
	settings := &RawSettings{}
	applyDefaults(settings)
	data, _ := json.MarshalIndent(settings, "", "  ")
	return append(data, '\n')
}
