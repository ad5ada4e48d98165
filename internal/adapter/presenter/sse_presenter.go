package presenter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/event"
)

// SSEPresenter frames each event as a Server-Sent Events data record and flushes
// it immediately when the writer supports flushing.
type SSEPresenter struct {
	w       io.Writer
	flusher http.Flusher
}

func NewSSEPresenter(w io.Writer) *SSEPresenter {
	p := &SSEPresenter{w: w}
	if f, ok := w.(http.Flusher); ok {
		p.flusher = f
	}
	return p
}

func (p *SSEPresenter) PresentEvent(ev event.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(p.w, "data: %s\n\n", b); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if p.flusher != nil {
		p.flusher.Flush()
	}
	return nil
}
