package presenter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/event"
)

var markers = map[event.Kind]string{
	event.KindInfo:    "·",
	event.KindSuccess: "✓",
	event.KindWarning: "!",
	event.KindError:   "✗",
	event.KindSummary: "★",
}

// TextPresenter renders events for a terminal
type TextPresenter struct {
	w       io.Writer
	verbose bool
}

// NewTextPresenter creates a presenter. verbose adds per-stage timings to the final line.
func NewTextPresenter(w io.Writer, verbose bool) *TextPresenter {
	return &TextPresenter{w: w, verbose: verbose}
}

func (p *TextPresenter) PresentEvent(ev event.Event) error {
	step := string(ev.Step)
	if step == "" {
		step = "-"
	}
	if _, err := fmt.Fprintf(p.w, "[%3d%%] %s %-12s %s\n", ev.Progress, markers[ev.Type], step, ev.Message); err != nil {
		return err
	}
	if ev.Payload == nil || !ev.Terminal() {
		return nil
	}
	return p.presentPayload(ev)
}

func (p *TextPresenter) presentPayload(ev event.Event) error {
	pl := ev.Payload
	var sb strings.Builder
	if pl.PRURL != "" {
		fmt.Fprintf(&sb, "  pull request: %s\n", pl.PRURL)
	}
	if pl.Branch != "" {
		fmt.Fprintf(&sb, "  branch:       %s\n", pl.Branch)
	}
	if pl.Provider != "" {
		fmt.Fprintf(&sb, "  provider:     %s (%d edits)\n", pl.Provider, pl.EditsApplied)
	}
	if pl.ErrorKind != "" {
		fmt.Fprintf(&sb, "  error:        %s at %s: %s\n", pl.ErrorKind, pl.Stage, pl.Error)
	}
	fmt.Fprintf(&sb, "  duration:     %.1fs\n", pl.DurationSeconds)
	if p.verbose && len(pl.StageTimings) > 0 {
		names := make([]string, 0, len(pl.StageTimings))
		for name := range pl.StageTimings {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "    %-12s %.2fs\n", name, pl.StageTimings[name])
		}
	}
	_, err := io.WriteString(p.w, sb.String())
	return err
}
