package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
)

// record persists run history and archives the transcript. Failures are logged only:
// the caller already has its terminal event.
func (r *run) record(ctx context.Context) {
	if r.o.runs == nil && r.o.storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.o.timeouts.Cleanup)
	defer cancel()

	if r.o.runs != nil {
		if err := r.o.runs.Save(ctx, r.runRecord()); err != nil {
			r.logger.Error("saving run history: %v", err)
		}
	}

	if r.o.storage != nil {
		r.archive(ctx)
	}
}

func (r *run) runRecord() *output.RunRecord {
	rec := &output.RunRecord{
		RequestID:  r.req.ID,
		Repository: r.req.Repository.Raw,
		Prompt:     r.req.Prompt,
		Status:     string(r.req.Outcome),
		PRURL:      r.prURL,
		Branch:     r.branch,
		Duration:   r.finished.Sub(r.started),
		StartedAt:  r.started,
		FinishedAt: r.finished,
		Attempts:   r.attemptRecords(),
	}
	if r.selection != nil {
		rec.Provider = r.selection.Provider
	}
	if r.applied != nil {
		rec.EditsApplied = r.applied.Count()
	}
	if r.fail != nil {
		rec.FailedStage = string(r.fail.Stage)
		rec.ErrorKind = string(r.fail.Kind)
		rec.ErrorMessage = r.fail.Detail()
	}
	return rec
}

func (r *run) attemptRecords() []output.AttemptRecord {
	if r.selection == nil {
		return nil
	}
	out := make([]output.AttemptRecord, 0, len(r.selection.Attempts))
	for _, a := range r.selection.Attempts {
		out = append(out, output.AttemptRecord{
			Ordinal:  a.Ordinal,
			Provider: a.Provider,
			Outcome:  string(a.Outcome),
			Reason:   a.Reason,
			Tries:    a.Tries,
		})
	}
	return out
}

type archivedEdit struct {
	Path        string `json:"path"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content"`
}

func (r *run) archive(ctx context.Context) {
	var transcript bytes.Buffer
	enc := json.NewEncoder(&transcript)
	for _, ev := range r.emitter.Events() {
		if err := enc.Encode(ev); err != nil {
			r.logger.Error("encoding transcript: %v", err)
			return
		}
	}
	r.save(ctx, output.ArtifactTypeTranscript, transcript.Bytes(), "application/x-ndjson")

	if r.applied == nil || r.applied.Count() == 0 {
		return
	}
	edits := make([]archivedEdit, 0, r.applied.Count())
	for _, e := range r.applied.Applied {
		edits = append(edits, archivedEdit{Path: e.Path, Kind: string(e.Kind), Description: e.Description, Content: string(e.Content)})
	}
	patch, err := json.MarshalIndent(edits, "", "  ")
	if err != nil {
		r.logger.Error("encoding patch: %v", err)
		return
	}
	r.save(ctx, output.ArtifactTypePatch, patch, "application/json")
}

func (r *run) save(ctx context.Context, t output.ArtifactType, content []byte, contentType string) {
	meta, err := r.o.storage.SaveArtifact(ctx, output.SaveArtifactRequest{
		RequestID:    r.req.ID,
		ArtifactType: t,
		Content:      content,
		ContentType:  contentType,
		Metadata: map[string]string{
			"repository": r.req.Repository.Raw,
			"status":     string(r.req.Outcome),
			"archived":   time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		r.logger.Error("archiving %s: %v", t, err)
		return
	}
	r.logger.Debug("archived %s to %s", t, meta.StoragePath)
}
