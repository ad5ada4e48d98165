package event

import (
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/stage"
)

// Kind is the event type reported to the caller
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
	KindSummary Kind = "summary"
)

// IsTerminal reports whether an event of this kind closes the stream
func (k Kind) IsTerminal() bool {
	return k == KindSummary || k == KindError
}

// Payload is the structured part of a terminal event
type Payload struct {
	PRURL           string             `json:"pr_url,omitempty"`
	Error           string             `json:"error,omitempty"`
	ErrorKind       string             `json:"error_kind,omitempty"`
	Stage           string             `json:"stage,omitempty"`
	Branch          string             `json:"branch,omitempty"`
	Provider        string             `json:"provider,omitempty"`
	EditsApplied    int                `json:"edits_applied,omitempty"`
	DurationSeconds float64            `json:"duration_seconds"`
	StageTimings    map[string]float64 `json:"stage_timings,omitempty"`
}

// Event is one immutable progress record
type Event struct {
	Type      Kind        `json:"type"`
	Message   string      `json:"message"`
	Step      stage.Stage `json:"step,omitempty"`
	Progress  int         `json:"progress"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   *Payload    `json:"payload,omitempty"`
}

// Terminal reports whether the event closes the request stream
func (e Event) Terminal() bool {
	return e.Type.IsTerminal()
}
