package input

import (
	"context"

	"github.com/YoshitsuguKoike/deepatch/internal/application/dto"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
)

// PipelineUseCase turns one change request into a pull request
type PipelineUseCase interface {
	// Run executes the request, writing progress events to presenter.
	// It never returns an error; failures are reported in the output and the event stream.
	Run(ctx context.Context, in dto.RunInput, presenter output.EventPresenter) *dto.RunOutput

	// Providers returns the configured provider names in priority order
	Providers() []string
}
