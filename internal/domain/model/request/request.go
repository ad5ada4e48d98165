package request

import (
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/stage"
)

// Outcome is the terminal result of a request
type Outcome string

const (
	OutcomeUnset   Outcome = ""
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Request is one change request moving through the pipeline.
// It is created at intake and mutated only by the orchestrator that owns it.
type Request struct {
	ID         string
	Repository RepositoryRef
	Prompt     string
	Stage      stage.Stage
	Outcome    Outcome
	CreatedAt  time.Time
}

// New creates a request positioned at the validation stage
func New(id, repositoryRef, prompt string) *Request {
	return &Request{
		ID:         id,
		Repository: RepositoryRef{Raw: repositoryRef},
		Prompt:     prompt,
		Stage:      stage.Validation,
		CreatedAt:  time.Now(),
	}
}

// TransitionTo moves the request to next, rejecting backward or skipping moves
func (r *Request) TransitionTo(next stage.Stage) error {
	if !r.Stage.CanTransitionTo(next) {
		return fmt.Errorf("invalid stage transition %s -> %s", r.Stage, next)
	}
	r.Stage = next
	switch next {
	case stage.Done:
		r.Outcome = OutcomeSuccess
	case stage.Failed:
		r.Outcome = OutcomeFailure
	}
	return nil
}

// IsTerminal reports whether the request reached Done or Failed
func (r *Request) IsTerminal() bool {
	return r.Stage.IsTerminal()
}
