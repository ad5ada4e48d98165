package dto

import (
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/event"
)

// RunInput represents one change request at intake
type RunInput struct {
	RepositoryURL string
	Prompt        string
	RequestID     string // Optional; generated when empty
}

// RunOutput represents the outcome of a pipeline run
type RunOutput struct {
	RequestID    string
	Success      bool
	PRURL        string
	Branch       string
	CommitSHA    string
	Provider     string
	EditsApplied int
	Error        *failure.Error
	Duration     time.Duration
	StageTimings map[string]time.Duration
	Attempts     []AttemptOutput
	Events       []event.Event
}

// AttemptOutput is one provider attempt as reported to callers
type AttemptOutput struct {
	Ordinal  int
	Provider string
	Outcome  string
	Reason   string
	Tries    int
}
