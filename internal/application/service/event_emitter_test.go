package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/event"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/stage"
)

type recordingPresenter struct {
	mu     sync.Mutex
	events []event.Event
	err    error
}

func (p *recordingPresenter) PresentEvent(ev event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func TestEventEmitterStampsAndOrders(t *testing.T) {
	p := &recordingPresenter{}
	em := NewEventEmitter("req-1", p, nil)

	require.NoError(t, em.Info(stage.Validation, 5, "validating"))
	require.NoError(t, em.Success(stage.Validation, 10, "ok"))
	require.NoError(t, em.Info(stage.SandboxInit, 3, "lower progress is clamped"))

	require.Len(t, p.events, 3)
	assert.Equal(t, "req-1", p.events[0].RequestID)
	assert.False(t, p.events[0].Timestamp.IsZero())
	assert.Equal(t, 10, p.events[2].Progress)
}

func TestEventEmitterRejectsStageRegression(t *testing.T) {
	em := NewEventEmitter("req", nil, nil)
	require.NoError(t, em.Info(stage.Clone, 25, "cloning"))
	assert.ErrorIs(t, em.Info(stage.Validation, 30, "back"), ErrStageOutOfOrder)
	assert.Len(t, em.Events(), 1)
}

func TestEventEmitterRejectsUnknownStage(t *testing.T) {
	em := NewEventEmitter("req", nil, nil)
	assert.ErrorIs(t, em.Info(stage.Stage("cleanup"), 50, "?"), ErrUnknownStage)
	require.NoError(t, em.Info(stage.Validation, 5, "ok"))
	assert.Len(t, em.Events(), 1)
}

func TestEventEmitterSingleTerminal(t *testing.T) {
	p := &recordingPresenter{}
	em := NewEventEmitter("req", p, nil)

	require.NoError(t, em.Info(stage.Generation, 45, "generating"))
	require.NoError(t, em.Fail(stage.Generation, "all providers failed", nil))

	assert.ErrorIs(t, em.Summary("late", nil), ErrStreamClosed)
	assert.ErrorIs(t, em.Info(stage.Apply, 65, "late"), ErrStreamClosed)

	require.Len(t, p.events, 2)
	last := p.events[1]
	assert.Equal(t, event.KindError, last.Type)
	assert.Equal(t, 45, last.Progress)
	require.NotNil(t, last.Payload)
}

func TestEventEmitterKeepsHistoryAfterDeliveryFailure(t *testing.T) {
	p := &recordingPresenter{err: errors.New("client went away")}
	em := NewEventEmitter("req", p, nil)

	require.NoError(t, em.Info(stage.Validation, 5, "a"))
	require.NoError(t, em.Summary("done", &event.Payload{PRURL: "https://x/pr/1"}))

	assert.Error(t, em.DeliveryErr())
	assert.Len(t, em.Events(), 2)
	assert.Equal(t, 100, em.Events()[1].Progress)
}

func TestEventPresenterFunc(t *testing.T) {
	var got []event.Kind
	var p output.EventPresenter = output.EventPresenterFunc(func(ev event.Event) error {
		got = append(got, ev.Type)
		return nil
	})
	em := NewEventEmitter("req", p, nil)
	require.NoError(t, em.Warning(stage.Apply, 70, "skipped one edit"))
	assert.Equal(t, []event.Kind{event.KindWarning}, got)
}
