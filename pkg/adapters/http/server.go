package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/runlens/internal/logging"
	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/ingest"
	"github.com/aretw0/runlens/pkg/ports"
	"github.com/aretw0/runlens/pkg/quality"
	"github.com/aretw0/runlens/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server exposes run views over HTTP.
type Server struct {
	Runs   *session.Manager
	Source ports.EventSource

	schema   ports.SchemaProvider
	scorer   ports.DriftScorer
	traces   ports.TraceProvider
	gatherer prometheus.Gatherer
	ingest   []ingest.Option
	logger   *slog.Logger

	schemaOnce   sync.Once
	graph        domain.GraphSchema
	monitorsMu   sync.Mutex
	monitors     map[string]*quality.Monitor
	pingInterval time.Duration
}

// Option configures the Server.
type Option func(*Server)

// WithSchemaProvider sets where the graph schema comes from. Defaults to the built-in schema.
func WithSchemaProvider(p ports.SchemaProvider) Option {
	return func(s *Server) { s.schema = p }
}

// WithDriftScorer enables GET /runs/{id}/quality.
func WithDriftScorer(d ports.DriftScorer) Option {
	return func(s *Server) { s.scorer = d }
}

// WithTraceProvider enables GET /runs/{id}/trace.
func WithTraceProvider(t ports.TraceProvider) Option {
	return func(s *Server) { s.traces = t }
}

// WithGatherer exposes the given registry on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithIngestOptions configures the ingestor of every live run started through the API.
func WithIngestOptions(opts ...ingest.Option) Option {
	return func(s *Server) { s.ingest = append(s.ingest, opts...) }
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithPingInterval sets how often idle SSE streams receive a keep-alive comment.
func WithPingInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pingInterval = d
		}
	}
}

// NewServer creates a server over runs. source may be nil, which disables POST /runs.
func NewServer(runs *session.Manager, source ports.EventSource, opts ...Option) *Server {
	s := &Server{
		Runs:         runs,
		Source:       source,
		logger:       logging.NewNop(),
		monitors:     make(map[string]*quality.Monitor),
		pingInterval: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates the HTTP handler for runs.
func NewHandler(runs *session.Manager, source ports.EventSource, opts ...Option) http.Handler {
	return NewServer(runs, source, opts...).Handler()
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.CreateRun)
		r.Get("/", s.ListRuns)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetRun)
			r.Delete("/", s.DiscardRun)
			r.Put("/live", s.SetLive)
			r.Put("/cursor", s.SetCursor)
			r.Get("/stream", s.StreamRun)
			r.Get("/quality", s.GetQuality)
			r.Get("/trace", s.GetTrace)
			r.Post("/archive", s.ArchiveRun)
		})
	})

	r.Get("/archive", s.ListArchive)
	r.Post("/archive/{runID}/open", s.OpenArchived)

	return otelhttp.NewHandler(enableCORS(r), "runlens-http")
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RunSummary is one entry of GET /runs.
type RunSummary struct {
	ViewID    string    `json:"view_id"`
	RunID     string    `json:"run_id,omitempty"`
	Question  string    `json:"question,omitempty"`
	Closed    bool      `json:"closed"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRunRequest is the body of POST /runs.
type CreateRunRequest struct {
	Question string `json:"question"`
}

// SetLiveRequest is the body of PUT /runs/{id}/live.
type SetLiveRequest struct {
	Live bool `json:"live"`
}

// SetCursorRequest is the body of PUT /runs/{id}/cursor.
type SetCursorRequest struct {
	Cursor int `json:"cursor"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateRun handles POST /runs: it starts a live view streaming the question.
func (s *Server) CreateRun(w http.ResponseWriter, r *http.Request) {
	if s.Source == nil {
		http.Error(w, "No event source configured", http.StatusServiceUnavailable)
		return
	}
	var body CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("CreateRun: Invalid request body", "error", err)
		return
	}
	if body.Question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	// The stream outlives the request.
	ctx := context.WithoutCancel(r.Context())
	v := s.Runs.Start(ctx, s.Source, body.Question, s.ingest...)
	s.logger.Info("Run started", "view_id", v.ID())

	w.Header().Set("Location", "/runs/"+v.ID())
	s.writeJSON(w, http.StatusCreated, v.Frame(s.schemaOf(r.Context())))
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	ids := s.Runs.List()
	out := make([]RunSummary, 0, len(ids))
	for _, id := range ids {
		v, err := s.Runs.Get(id)
		if err != nil {
			continue // discarded meanwhile
		}
		out = append(out, RunSummary{
			ViewID:    v.ID(),
			RunID:     v.RunID(),
			Question:  v.Question(),
			Closed:    v.Closed(),
			CreatedAt: v.CreatedAt(),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// GetRun handles GET /runs/{id}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, v.Frame(s.schemaOf(r.Context())))
}

// DiscardRun handles DELETE /runs/{id}.
func (s *Server) DiscardRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Runs.Discard(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.monitorsMu.Lock()
	delete(s.monitors, id)
	s.monitorsMu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// SetLive handles PUT /runs/{id}/live.
func (s *Server) SetLive(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	var body SetLiveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	v.SetLive(body.Live)
	s.writeJSON(w, http.StatusOK, v.Frame(s.schemaOf(r.Context())))
}

// SetCursor handles PUT /runs/{id}/cursor. Out of range values are clamped.
func (s *Server) SetCursor(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	var body SetCursorRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	v.SetCursor(body.Cursor)
	s.writeJSON(w, http.StatusOK, v.Frame(s.schemaOf(r.Context())))
}

// GetQuality handles GET /runs/{id}/quality: drift of the shown state.
// It answers 204 when there is nothing to score yet.
func (s *Server) GetQuality(w http.ResponseWriter, r *http.Request) {
	if s.scorer == nil {
		http.Error(w, "No drift scorer configured", http.StatusServiceUnavailable)
		return
	}
	v, ok := s.view(w, r)
	if !ok {
		return
	}

	res := s.monitor(v.ID()).Observe(r.Context(), v.ShownState().State)
	if res == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if res.Err != nil {
		http.Error(w, fmt.Sprintf("Drift error: %v", res.Err), http.StatusBadGateway)
		return
	}
	s.writeJSON(w, http.StatusOK, res.Report)
}

// GetTrace handles GET /runs/{id}/trace.
func (s *Server) GetTrace(w http.ResponseWriter, r *http.Request) {
	if s.traces == nil {
		http.Error(w, "No trace provider configured", http.StatusServiceUnavailable)
		return
	}
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	runID := v.RunID()
	if runID == "" {
		http.Error(w, "Run id not announced yet", http.StatusConflict)
		return
	}

	res := s.traces.Trace(r.Context(), runID)
	if res.Err != nil {
		http.Error(w, fmt.Sprintf("Trace error: %v", res.Err), http.StatusBadGateway)
		return
	}
	s.writeJSON(w, http.StatusOK, res.Report)
}

// ArchiveRun handles POST /runs/{id}/archive.
func (s *Server) ArchiveRun(w http.ResponseWriter, r *http.Request) {
	if s.Runs.Archiver() == nil {
		http.Error(w, "No archive configured", http.StatusServiceUnavailable)
		return
	}
	if err := s.Runs.Archive(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListArchive handles GET /archive.
func (s *Server) ListArchive(w http.ResponseWriter, r *http.Request) {
	archive := s.Runs.Archiver()
	if archive == nil {
		s.writeJSON(w, http.StatusOK, []string{})
		return
	}
	runs, err := archive.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []string{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

// OpenArchived handles POST /archive/{runID}/open: the recording becomes a new view in replay mode.
func (s *Server) OpenArchived(w http.ResponseWriter, r *http.Request) {
	v, err := s.Runs.Open(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/runs/"+v.ID())
	s.writeJSON(w, http.StatusCreated, v.Frame(s.schemaOf(r.Context())))
}

// StreamRun handles GET /runs/{id}/stream (SSE). Every change of the view pushes a full frame.
// Changes coalesce, so a slow client skips intermediate frames instead of queueing them.
func (s *Server) StreamRun(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("StreamRun: Streaming not supported")
		return
	}
	v, ok := s.view(w, r)
	if !ok {
		return
	}

	changes, cancel := v.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	schema := s.schemaOf(r.Context())
	send := func() bool {
		data, err := json.Marshal(v.Frame(schema))
		if err != nil {
			s.logger.Error("StreamRun: frame encode failed", "error", err)
			return false
		}
		fmt.Fprintf(w, "event: frame\ndata: %s\n\n", data)
		flusher.Flush()
		return true
	}
	if !send() {
		return
	}

	s.logger.Info("SSE: Subscribing to run updates", "view_id", v.ID())
	ping := time.NewTicker(s.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "view_id", v.ID())
			return
		case <-ping.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case _, ok := <-changes:
			if !ok {
				// View discarded
				fmt.Fprintf(w, "event: discarded\ndata: %s\n\n", v.ID())
				flusher.Flush()
				return
			}
			if !send() {
				return
			}
		}
	}
}

// -- Helpers --

func (s *Server) view(w http.ResponseWriter, r *http.Request) (*session.View, bool) {
	v, err := s.Runs.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return v, true
}

// schemaOf resolves the graph schema once per server.
func (s *Server) schemaOf(ctx context.Context) domain.GraphSchema {
	s.schemaOnce.Do(func() {
		if s.schema == nil {
			s.graph = domain.DefaultSchema()
			return
		}
		res := s.schema.Schema(context.WithoutCancel(ctx))
		if res.Fallback {
			s.logger.Warn("Using default graph schema", "error", res.Err)
		}
		s.graph = res.Schema
	})
	return s.graph
}

func (s *Server) monitor(viewID string) *quality.Monitor {
	s.monitorsMu.Lock()
	defer s.monitorsMu.Unlock()
	m, ok := s.monitors[viewID]
	if !ok {
		m = quality.NewMonitor(s.scorer, quality.WithLogger(s.logger))
		s.monitors[viewID] = m
	}
	return m
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRunNotFound), errors.Is(err, domain.ErrRecordingNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.logger.Error("Request failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
