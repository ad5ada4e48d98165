package service

import (
	"errors"
	"sync"
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/app"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/event"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/stage"
)

var (
	// ErrStreamClosed is returned when emitting after the terminal event
	ErrStreamClosed = errors.New("event stream already closed")

	// ErrStageOutOfOrder is returned when an event names a stage earlier than one already reported
	ErrStageOutOfOrder = errors.New("event stage out of order")

	// ErrUnknownStage is returned when an event names a stage that does not exist
	ErrUnknownStage = errors.New("event names an unknown stage")
)

// EventEmitter is the single writer of one request's event stream.
// It stamps request id and time, keeps progress non-decreasing, rejects stage regressions,
// and closes the stream after exactly one terminal event.
type EventEmitter struct {
	mu        sync.Mutex
	presenter output.EventPresenter
	requestID string
	logger    app.Logger
	now       func() time.Time

	lastProgress int
	lastStage    int
	closed       bool
	deliveryErr  error
	history      []event.Event
}

// NewEventEmitter creates an emitter writing to presenter
func NewEventEmitter(requestID string, presenter output.EventPresenter, logger app.Logger) *EventEmitter {
	if logger == nil {
		logger = app.NopLogger()
	}
	return &EventEmitter{
		presenter: presenter,
		requestID: requestID,
		logger:    logger,
		now:       time.Now,
	}
}

// Emit appends ev to the stream.
// A presenter failure (caller gone) is recorded and later events are kept in history only.
func (e *EventEmitter) Emit(ev event.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrStreamClosed
	}
	if ev.Step != "" && !ev.Step.IsValid() {
		return ErrUnknownStage
	}
	if n := ev.Step.ToNumber(); n > 0 {
		if n < e.lastStage {
			return ErrStageOutOfOrder
		}
		e.lastStage = n
	}

	if ev.Progress < e.lastProgress {
		ev.Progress = e.lastProgress
	}
	if ev.Progress > 100 {
		ev.Progress = 100
	}
	e.lastProgress = ev.Progress

	ev.RequestID = e.requestID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.now().UTC()
	}
	if ev.Terminal() {
		if ev.Payload == nil {
			ev.Payload = &event.Payload{}
		}
		e.closed = true
	}

	e.history = append(e.history, ev)

	if e.deliveryErr == nil && e.presenter != nil {
		if err := e.presenter.PresentEvent(ev); err != nil {
			e.logger.Warn("event delivery stopped: %v", err)
			e.deliveryErr = err
		}
	}
	return nil
}

// Info reports the start of a stage or intermediate progress
func (e *EventEmitter) Info(s stage.Stage, progress int, message string) error {
	return e.Emit(event.Event{Type: event.KindInfo, Step: s, Progress: progress, Message: message})
}

// Success reports a completed stage
func (e *EventEmitter) Success(s stage.Stage, progress int, message string) error {
	return e.Emit(event.Event{Type: event.KindSuccess, Step: s, Progress: progress, Message: message})
}

// Warning reports a recoverable problem within a stage
func (e *EventEmitter) Warning(s stage.Stage, progress int, message string) error {
	return e.Emit(event.Event{Type: event.KindWarning, Step: s, Progress: progress, Message: message})
}

// Fail emits the terminal error event for the stage that failed
func (e *EventEmitter) Fail(s stage.Stage, message string, payload *event.Payload) error {
	return e.Emit(event.Event{Type: event.KindError, Step: s, Message: message, Payload: payload})
}

// Summary emits the terminal success event
func (e *EventEmitter) Summary(message string, payload *event.Payload) error {
	return e.Emit(event.Event{Type: event.KindSummary, Progress: 100, Message: message, Payload: payload})
}

// DeliveryErr returns the first presenter error, if any
func (e *EventEmitter) DeliveryErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deliveryErr
}

// Events returns a copy of every event emitted so far
func (e *EventEmitter) Events() []event.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]event.Event, len(e.history))
	copy(out, e.history)
	return out
}
