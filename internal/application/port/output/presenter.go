package output

import "github.com/YoshitsuguKoike/deepatch/internal/domain/model/event"

// EventPresenter delivers events to one caller.
// Implementations are used by a single writer and must preserve call order.
type EventPresenter interface {
	// PresentEvent writes one event
	PresentEvent(ev event.Event) error
}

// EventPresenterFunc adapts a function to EventPresenter
type EventPresenterFunc func(ev event.Event) error

func (f EventPresenterFunc) PresentEvent(ev event.Event) error {
	return f(ev)
}
