// Package backend is the HTTP client for the agent backend's collaborator endpoints.
//
// Every call degrades instead of failing: the schema falls back to the built-in
// default graph, and drift or trace failures are returned inside their result
// types so a view can render an empty or error state.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/runlens/internal/logging"
	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/metrics"
	"github.com/aretw0/runlens/pkg/ports"
	"github.com/mitchellh/mapstructure"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout bounds every collaborator request.
const DefaultTimeout = 10 * time.Second

// Endpoint names, used for metrics labels.
const (
	EndpointSchema = "graph-schema"
	EndpointDrift  = "drift"
	EndpointTrace  = "trace"
)

// Client talks to the backend API.
type Client struct {
	baseURL    string
	http       *http.Client
	schemaFile string
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

var (
	_ ports.SchemaProvider = (*Client)(nil)
	_ ports.DriftScorer    = (*Client)(nil)
	_ ports.TraceProvider  = (*Client)(nil)
)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is used as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout. A client passed to WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			cl := *c.http
			cl.Timeout = d
			c.http = &cl
		}
	}
}

// WithSchemaFile reads the schema from a local YAML file instead of the endpoint.
func WithSchemaFile(path string) Option {
	return func(c *Client) {
		c.schemaFile = path
	}
}

// WithLogger configures a logger for the Client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics enables request instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a client for the backend at baseURL (e.g. http://localhost:8000).
// Requests are traced with OpenTelemetry.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schema fetches the graph schema, falling back to domain.DefaultSchema.
func (c *Client) Schema(ctx context.Context) ports.SchemaResult {
	var (
		schema domain.GraphSchema
		err    error
	)
	if c.schemaFile != "" {
		schema, err = LoadSchemaFile(c.schemaFile)
	} else {
		err = c.getJSON(ctx, "/api/graph-schema", &schema)
	}
	if err == nil && len(schema.Nodes) == 0 {
		err = fmt.Errorf("schema has no nodes")
	}

	if err != nil {
		c.metrics.CollaboratorCall(EndpointSchema, "fallback")
		c.logger.Warn("Using default graph schema", "err", err)
		return ports.SchemaResult{Schema: domain.DefaultSchema(), Fallback: true, Err: err}
	}
	c.metrics.CollaboratorCall(EndpointSchema, "ok")
	return ports.SchemaResult{Schema: schema}
}

// Score posts the shown state to the drift endpoint.
func (c *Client) Score(ctx context.Context, state map[string]any) ports.DriftResult {
	body, err := json.Marshal(state)
	if err != nil {
		return c.driftFailed(fmt.Errorf("failed to marshal state: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/drift", bytes.NewReader(body))
	if err != nil {
		return c.driftFailed(err)
	}
	req.Header.Set("Content-Type", "application/json")

	var raw map[string]any
	if err := c.do(req, &raw); err != nil {
		return c.driftFailed(err)
	}

	var report domain.DriftReport
	if err := decode(raw, &report); err != nil {
		return c.driftFailed(fmt.Errorf("unexpected drift payload: %w", err))
	}
	c.metrics.CollaboratorCall(EndpointDrift, "ok")
	return ports.DriftResult{Report: report}
}

// Trace fetches the sub-run records of a run.
// An error payload from the backend is reported in Report.Error, transport errors in Err.
func (c *Client) Trace(ctx context.Context, runID string) ports.TraceResult {
	var raw map[string]any
	if err := c.getJSON(ctx, "/api/trace/"+url.PathEscape(runID), &raw); err != nil {
		c.metrics.CollaboratorCall(EndpointTrace, "error")
		c.logger.Warn("Trace request failed", "run_id", runID, "err", err)
		return ports.TraceResult{Report: domain.TraceReport{RunID: runID}, Err: err}
	}

	var report domain.TraceReport
	if err := decode(raw, &report); err != nil {
		c.metrics.CollaboratorCall(EndpointTrace, "error")
		return ports.TraceResult{Report: domain.TraceReport{RunID: runID}, Err: fmt.Errorf("unexpected trace payload: %w", err)}
	}
	if report.RunID == "" {
		report.RunID = runID
	}

	outcome := "ok"
	if report.Error != "" {
		outcome = "error"
	}
	c.metrics.CollaboratorCall(EndpointTrace, outcome)
	return ports.TraceResult{Report: report}
}

func (c *Client) driftFailed(err error) ports.DriftResult {
	c.metrics.CollaboratorCall(EndpointDrift, "error")
	c.logger.Warn("Drift request failed", "err", err)
	return ports.DriftResult{Err: err}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// decode maps a loosely typed payload onto a tagged struct.
func decode(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
