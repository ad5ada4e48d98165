// Package http exposes the pipeline over HTTP with a Server-Sent Events progress stream.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/YoshitsuguKoike/deepatch/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/deepatch/internal/app"
	"github.com/YoshitsuguKoike/deepatch/internal/application/dto"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/input"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/application/service"
)

const maxRequestBody = 1 << 20

// Server routes HTTP requests to the pipeline and run history
type Server struct {
	pipeline input.PipelineUseCase
	runs     output.RunRepository // nil when history is disabled
	sandbox  string
	pool     *service.ProviderPool
	logger   app.Logger
	mux      *http.ServeMux
}

// NewServer builds the router. runs may be nil.
func NewServer(pipeline input.PipelineUseCase, runs output.RunRepository, sandbox string, logger app.Logger) *Server {
	if logger == nil {
		logger = app.NopLogger()
	}
	s := &Server{pipeline: pipeline, runs: runs, sandbox: sandbox, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /code", s.handleCode)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /runs", s.handleListRuns)
	s.mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	return s
}

// WithProviderPool reports pool usage in /health
func (s *Server) WithProviderPool(pool *service.ProviderPool) *Server {
	s.pool = pool
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains in-flight streams
// for up to shutdownTimeout
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve is ListenAndServe on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("shutdown: %v", err)
		srv.Close()
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type codeRequest struct {
	RepoURL   string `json:"repo_url"`
	Prompt    string `json:"prompt"`
	RequestID string `json:"request_id,omitempty"`
}

// handleCode runs one request and streams its events as SSE.
// Malformed bodies are rejected before the stream starts; everything else,
// including intake validation failures, is reported inside the stream.
func (s *Server) handleCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	out := s.pipeline.Run(r.Context(), dto.RunInput{
		RepositoryURL: req.RepoURL,
		Prompt:        req.Prompt,
		RequestID:     req.RequestID,
	}, presenter.NewSSEPresenter(w))
	s.logger.Debug("request %s finished: success=%t", out.RequestID, out.Success)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var slots map[string]app.ProviderSlots
	if s.pool != nil {
		stats := s.pool.Stats()
		slots = make(map[string]app.ProviderSlots, len(stats))
		for name, st := range stats {
			slots[name] = app.ProviderSlots{InUse: st.Current, Max: st.Max, Saturated: !st.IsAvailable()}
		}
	}
	writeJSON(w, http.StatusOK, app.NewHealth(s.pipeline.Providers(), s.sandbox, slots))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSONError(w, http.StatusNotFound, "run history is disabled")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := s.runs.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, dto.RunRecordsFromOutput(records))
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSONError(w, http.StatusNotFound, "run history is disabled")
		return
	}
	id := r.PathValue("id")
	record, err := s.runs.FindByID(r.Context(), id)
	if err != nil {
		s.logger.Error("find run %s: %v", id, err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if record == nil {
		writeJSONError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, dto.RunRecordFromOutput(record))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
