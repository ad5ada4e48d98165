package dto

import (
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
)

// RunRecordDTO is the JSON view of a persisted run
type RunRecordDTO struct {
	RequestID       string       `json:"request_id"`
	Repository      string       `json:"repository"`
	Prompt          string       `json:"prompt"`
	Status          string       `json:"status"`
	FailedStage     string       `json:"failed_stage,omitempty"`
	ErrorKind       string       `json:"error_kind,omitempty"`
	ErrorMessage    string       `json:"error,omitempty"`
	PRURL           string       `json:"pr_url,omitempty"`
	Branch          string       `json:"branch,omitempty"`
	Provider        string       `json:"provider,omitempty"`
	EditsApplied    int          `json:"edits_applied"`
	DurationSeconds float64      `json:"duration_seconds"`
	StartedAt       time.Time    `json:"started_at"`
	FinishedAt      time.Time    `json:"finished_at"`
	Attempts        []AttemptDTO `json:"attempts,omitempty"`
}

// AttemptDTO is the JSON view of one provider attempt
type AttemptDTO struct {
	Ordinal  int    `json:"ordinal"`
	Provider string `json:"provider"`
	Outcome  string `json:"outcome"`
	Reason   string `json:"reason,omitempty"`
	Tries    int    `json:"tries"`
}

// RunRecordFromOutput converts a repository record
func RunRecordFromOutput(r *output.RunRecord) RunRecordDTO {
	d := RunRecordDTO{
		RequestID:       r.RequestID,
		Repository:      r.Repository,
		Prompt:          r.Prompt,
		Status:          r.Status,
		FailedStage:     r.FailedStage,
		ErrorKind:       r.ErrorKind,
		ErrorMessage:    r.ErrorMessage,
		PRURL:           r.PRURL,
		Branch:          r.Branch,
		Provider:        r.Provider,
		EditsApplied:    r.EditsApplied,
		DurationSeconds: r.Duration.Seconds(),
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
	}
	for _, a := range r.Attempts {
		d.Attempts = append(d.Attempts, AttemptDTO{
			Ordinal:  a.Ordinal,
			Provider: a.Provider,
			Outcome:  a.Outcome,
			Reason:   a.Reason,
			Tries:    a.Tries,
		})
	}
	return d
}

// RunRecordsFromOutput converts a list, never returning nil
func RunRecordsFromOutput(records []*output.RunRecord) []RunRecordDTO {
	out := make([]RunRecordDTO, 0, len(records))
	for _, r := range records {
		out = append(out, RunRecordFromOutput(r))
	}
	return out
}
