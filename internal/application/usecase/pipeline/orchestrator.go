package pipeline

import (
	"context"
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/app"
	"github.com/YoshitsuguKoike/deepatch/internal/application/dto"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/application/service"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/request"
)

// IntakeValidator checks a request before any resource is acquired
type IntakeValidator interface {
	Validate(repositoryURL, prompt string) (request.RepositoryRef, error)
}

// Dependencies are the collaborators shared read-only by every run
type Dependencies struct {
	Validator   IntakeValidator
	Environment output.EnvironmentGateway
	Chain       *service.FallbackChain
	Hosting     output.HostingGateway
	Runs        output.RunRepository  // Optional run history
	Storage     output.StorageGateway // Optional transcript archive
	Logger      app.Logger
}

// Options tune a pipeline
type Options struct {
	Identity service.GitIdentity
	Token    string // Hosting token for https clone and push
	Timeouts Timeouts
}

// Orchestrator drives requests through the pipeline stages.
// It holds no per-request state; every Run builds its own and shares nothing with other runs.
type Orchestrator struct {
	validator IntakeValidator
	env       output.EnvironmentGateway
	chain     *service.FallbackChain
	analyzer  *service.RepositoryAnalyzer
	applier   *service.PatchApplier
	vcs       *service.VCSOperator
	publisher *service.Publisher
	runs      output.RunRepository
	storage   output.StorageGateway
	timeouts  Timeouts
	logger    app.Logger
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(deps Dependencies, opts Options) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = app.NopLogger()
	}
	timeouts := opts.Timeouts.withDefaults()
	env := timedEnvironment{next: deps.Environment, timeouts: timeouts}
	hosting := timedHosting{next: deps.Hosting, timeout: timeouts.Publish}

	return &Orchestrator{
		validator: deps.Validator,
		env:       env,
		chain:     deps.Chain,
		analyzer:  service.NewRepositoryAnalyzer(env, logger),
		applier:   service.NewPatchApplier(env, logger),
		vcs:       service.NewVCSOperator(env, opts.Identity, opts.Token, logger),
		publisher: service.NewPublisher(hosting, logger),
		runs:      deps.Runs,
		storage:   deps.Storage,
		timeouts:  timeouts,
		logger:    logger,
	}
}

// Providers returns the configured provider names in priority order
func (o *Orchestrator) Providers() []string {
	return o.chain.Providers()
}

// Run executes one request, writing events to presenter. The stream always ends with
// exactly one terminal event and the environment, if acquired, is always released
// before that event is written.
func (o *Orchestrator) Run(ctx context.Context, in dto.RunInput, presenter output.EventPresenter) *dto.RunOutput {
	id := in.RequestID
	if !request.IsValidID(id) {
		if id != "" {
			o.logger.Warn("ignoring caller request id %q: not a ULID", id)
		}
		id = request.NewID()
	}
	logger := app.WithPrefix(o.logger, id)
	r := &run{
		o:       o,
		req:     request.New(id, in.RepositoryURL, in.Prompt),
		emitter: service.NewEventEmitter(id, presenter, logger),
		logger:  logger,
		started: time.Now(),
		timings: make(map[string]time.Duration),
	}

	logger.Info("request received for %s", in.RepositoryURL)
	err := r.execute(ctx)
	r.finish(err)
	r.record(ctx)
	return r.output()
}
