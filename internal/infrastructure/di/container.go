package di

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deepatch/internal/adapter/gateway/environment"
	"github.com/YoshitsuguKoike/deepatch/internal/adapter/gateway/generation"
	"github.com/YoshitsuguKoike/deepatch/internal/adapter/gateway/hosting"
	storagegateway "github.com/YoshitsuguKoike/deepatch/internal/adapter/gateway/storage"
	"github.com/YoshitsuguKoike/deepatch/internal/app"
	appconfig "github.com/YoshitsuguKoike/deepatch/internal/app/config"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/application/service"
	"github.com/YoshitsuguKoike/deepatch/internal/application/usecase/pipeline"
	sqliterepo "github.com/YoshitsuguKoike/deepatch/internal/infrastructure/persistence/sqlite"
	"github.com/YoshitsuguKoike/deepatch/internal/validator/intake"
)

// Container is the DI container that holds all dependencies
// This implements manual dependency injection for Clean Architecture
type Container struct {
	// Infrastructure Layer - Database
	db *sql.DB

	// Infrastructure Layer - Repositories
	runRepo output.RunRepository

	// Infrastructure Layer - Gateways
	envGateway     output.EnvironmentGateway
	hostingGateway output.HostingGateway
	storageGateway output.StorageGateway

	// Application Layer - Services
	chain *service.FallbackChain
	pool  *service.ProviderPool

	// Application Layer - Use Cases
	orchestrator *pipeline.Orchestrator

	// Configuration
	config Config
}

// Config holds configuration for the container
type Config struct {
	App    appconfig.Config
	Paths  app.Paths
	Logger app.Logger

	// HTTPClient is shared by the provider and hosting gateways (default: 5m timeout)
	HTTPClient *http.Client

	// Optional overrides, mainly for tests
	Environment output.EnvironmentGateway
	Hosting     output.HostingGateway
	Generators  []output.GenerationGateway
}

// NewContainer creates and initializes the DI container
func NewContainer(config Config) (*Container, error) {
	if config.App == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if config.Logger == nil {
		config.Logger = app.GetLogger()
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}
	c := &Container{config: config}

	// Initialize dependencies in dependency order
	if err := c.initializeInfrastructure(); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	if err := c.initializeApplication(); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}

	return c, nil
}

// initializeInfrastructure initializes infrastructure layer components
func (c *Container) initializeInfrastructure() error {
	cfg := c.config.App
	logger := c.config.Logger

	// 1. Run history
	if cfg.HistoryEnabled() {
		db, err := sqliterepo.Open(c.config.Paths.RunHistory)
		if err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		c.db = db
		c.runRepo = sqliterepo.NewRunRepository(db)
	}

	// 2. Sandbox
	c.envGateway = c.config.Environment
	if c.envGateway == nil {
		env, err := environment.New(environment.Options{
			Kind:  cfg.Sandbox(),
			Image: cfg.SandboxImage(),
			Root:  c.config.Paths.Sandboxes,
		}, logger)
		if err != nil {
			return err
		}
		c.envGateway = env
	}

	// 3. Hosting
	c.hostingGateway = c.config.Hosting
	if c.hostingGateway == nil {
		switch cfg.Hosting() {
		case "fake":
			c.hostingGateway = hosting.NewFakeGateway("")
		default:
			if cfg.GitHubToken() == "" {
				logger.Warn("GITHUB_TOKEN is not set; pushes and pull requests will fail")
			}
			c.hostingGateway = hosting.NewGitHubGateway(cfg.GitHubToken(), cfg.GitHubAPIURL(), c.config.HTTPClient)
		}
	}

	// 4. Artifact archive
	storageCfg := cfg.Storage()
	switch storageCfg.Kind {
	case "s3":
		gw, err := storagegateway.NewS3StorageGateway(context.Background(), storagegateway.S3Config{
			BucketName: storageCfg.Bucket,
			Prefix:     storageCfg.Prefix,
			Region:     storageCfg.Region,
			Endpoint:   storageCfg.Endpoint,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 storage gateway: %w", err)
		}
		c.storageGateway = gw
	case "none":
		// Archival disabled
	default:
		gw, err := storagegateway.NewLocalStorageGateway(afero.NewOsFs(), c.config.Paths.Artifacts)
		if err != nil {
			return fmt.Errorf("failed to create local storage gateway: %w", err)
		}
		c.storageGateway = gw
	}

	return nil
}

// initializeApplication initializes the provider chain and the pipeline
func (c *Container) initializeApplication() error {
	cfg := c.config.App
	logger := c.config.Logger

	adapters, err := c.buildAdapters()
	if err != nil {
		return err
	}
	if len(adapters) == 0 {
		return fmt.Errorf("no usable generation provider configured")
	}

	retry := cfg.Retry()
	c.chain = service.NewFallbackChain(adapters,
		service.WithRetryPolicy(service.NewRetryPolicy(retry.MaxAttempts, retry.InitialBackoff, retry.MaxBackoff)),
		service.WithChainLogger(logger),
	)

	validator, err := intake.NewValidator()
	if err != nil {
		return err
	}

	name, email := cfg.GitIdentity()
	deps := pipeline.Dependencies{
		Validator:   validator,
		Environment: c.envGateway,
		Chain:       c.chain,
		Hosting:     c.hostingGateway,
		Runs:        c.runRepo,
		Storage:     c.storageGateway,
		Logger:      logger,
	}

	c.orchestrator = pipeline.NewOrchestrator(deps, pipeline.Options{
		Identity: service.GitIdentity{Name: name, Email: email},
		Token:    cfg.GitHubToken(),
		Timeouts: pipeline.Timeouts{
			Acquire: cfg.AcquireTimeout(),
			Command: cfg.CommandTimeout(),
			Publish: cfg.PublishTimeout(),
			Cleanup: cfg.CleanupTimeout(),
		},
	})
	return nil
}

// buildAdapters turns the configured providers into chain adapters.
// API providers without a key are skipped rather than failing every request.
func (c *Container) buildAdapters() ([]service.Adapter, error) {
	logger := c.config.Logger

	if len(c.config.Generators) > 0 {
		adapters := make([]service.Adapter, 0, len(c.config.Generators))
		for _, g := range c.config.Generators {
			adapters = append(adapters, service.NewGatewayAdapter(g, 0, 0, logger))
		}
		return adapters, nil
	}

	limits := make(map[string]int)
	for _, p := range c.config.App.Providers() {
		limits[p.Kind] = p.MaxConcurrent
	}
	c.pool = service.NewProviderPool(limits)

	var adapters []service.Adapter
	for _, p := range c.config.App.Providers() {
		if (p.Kind == generation.KindAnthropic || p.Kind == generation.KindOpenAI) && p.APIKey == "" {
			logger.Warn("skipping provider %s: no API key in the environment", p.Kind)
			continue
		}
		gw, err := generation.New(generation.Options{
			Kind:    p.Kind,
			Model:   p.Model,
			BaseURL: p.BaseURL,
			APIKey:  p.APIKey,
			Bin:     p.Bin,
		}, c.config.HTTPClient)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, service.NewGatewayAdapter(gw, p.Timeout, p.MaxTokens, logger).WithPool(c.pool))
	}
	return adapters, nil
}

// Orchestrator returns the pipeline
func (c *Container) Orchestrator() *pipeline.Orchestrator {
	return c.orchestrator
}

// RunRepository returns the run history, or nil when history is disabled
func (c *Container) RunRepository() output.RunRepository {
	return c.runRepo
}

// StorageGateway returns the artifact archive, or nil when archival is disabled
func (c *Container) StorageGateway() output.StorageGateway {
	return c.storageGateway
}

// ProviderPool returns the per-provider concurrency limiter, or nil when providers are overridden
func (c *Container) ProviderPool() *service.ProviderPool {
	return c.pool
}

// AppConfig returns the loaded configuration
func (c *Container) AppConfig() appconfig.Config {
	return c.config.App
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
