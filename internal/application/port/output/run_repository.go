package output

import (
	"context"
	"time"
)

// RunRepository persists run history
type RunRepository interface {
	// Save inserts or replaces a run record together with its attempts
	Save(ctx context.Context, run *RunRecord) error

	// FindByID returns a run with its attempts, or nil when not found
	FindByID(ctx context.Context, requestID string) (*RunRecord, error)

	// List returns the most recent runs first
	List(ctx context.Context, limit int) ([]*RunRecord, error)
}

// RunRecord is the persisted summary of one request
type RunRecord struct {
	RequestID    string
	Repository   string
	Prompt       string
	Status       string // success / failure
	FailedStage  string
	ErrorKind    string
	ErrorMessage string
	PRURL        string
	Branch       string
	Provider     string
	EditsApplied int
	Duration     time.Duration
	StartedAt    time.Time
	FinishedAt   time.Time
	Attempts     []AttemptRecord
}

// AttemptRecord is one persisted provider attempt
type AttemptRecord struct {
	Ordinal  int
	Provider string
	Outcome  string
	Reason   string
	Tries    int
}
