package presenter

import (
	"encoding/json"
	"io"

	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/event"
)

// JSONPresenter writes one JSON document per line for programmatic consumption
type JSONPresenter struct {
	enc *json.Encoder
}

func NewJSONPresenter(w io.Writer) *JSONPresenter {
	return &JSONPresenter{enc: json.NewEncoder(w)}
}

func (p *JSONPresenter) PresentEvent(ev event.Event) error {
	return p.enc.Encode(ev)
}
