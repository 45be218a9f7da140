package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/runlens"
	"github.com/aretw0/runlens/internal/logging"
	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/ingest"
	"github.com/aretw0/runlens/pkg/ports"
	"github.com/aretw0/runlens/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SchemaURI is the resource exposing the graph schema.
const SchemaURI = "runlens://schema"

// RunList aligns with GET /runs of the HTTP adapter.
type RunList struct {
	Runs []RunEntry `json:"runs" jsonschema_description:"Views known to this process, oldest first"`
}

// RunEntry describes one view.
type RunEntry struct {
	ViewID   string `json:"view_id" jsonschema_description:"Local view identifier"`
	RunID    string `json:"run_id,omitempty" jsonschema_description:"Run identifier announced by the stream"`
	Question string `json:"question,omitempty" jsonschema_description:"Question the run answers"`
	Closed   bool   `json:"closed" jsonschema_description:"Whether the stream has ended"`
}

// ViewArgs addresses one view.
type ViewArgs struct {
	ViewID string `json:"view_id"`
}

// CursorArgs moves the replay cursor of a view.
type CursorArgs struct {
	ViewID string `json:"view_id"`
	Cursor int    `json:"cursor"`
}

// LiveArgs switches a view between live and replay.
type LiveArgs struct {
	ViewID string `json:"view_id"`
	Live   bool   `json:"live"`
}

// StartArgs starts a live run.
type StartArgs struct {
	Question string `json:"question"`
}

// OpenArgs reopens an archived run.
type OpenArgs struct {
	RunID string `json:"run_id"`
}

// Server exposes run views as MCP tools.
type Server struct {
	runs      *session.Manager
	source    ports.EventSource
	schema    domain.GraphSchema
	ingest    []ingest.Option
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithSource enables the start_run tool.
func WithSource(source ports.EventSource, opts ...ingest.Option) Option {
	return func(s *Server) {
		s.source = source
		s.ingest = opts
	}
}

// WithSchema sets the graph schema frames are built against.
func WithSchema(schema domain.GraphSchema) Option {
	return func(s *Server) { s.schema = schema }
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new MCP Server instance.
func NewServer(runs *session.Manager, opts ...Option) *Server {
	s := &Server{
		runs:      runs,
		schema:    domain.DefaultSchema(),
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("runlens-mcp", strings.TrimSpace(runlens.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: list_runs
	s.mcpServer.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List the run views of this process."),
		mcp.WithOutputSchema[RunList](),
	), mcp.NewStructuredToolHandler(s.handleListRuns))

	// TOOL: get_frame
	s.mcpServer.AddTool(mcp.NewTool("get_frame",
		mcp.WithDescription("Get the display frame of a run view: shown state, node statuses, visible events and the last step diff."),
		mcp.WithString("view_id", mcp.Required(), mcp.Description("View identifier from list_runs")),
	), mcp.NewStructuredToolHandler(s.handleGetFrame))

	// TOOL: set_cursor
	s.mcpServer.AddTool(mcp.NewTool("set_cursor",
		mcp.WithDescription("Move the replay cursor of a view. Out of range values are clamped; ignored in live mode."),
		mcp.WithString("view_id", mcp.Required(), mcp.Description("View identifier")),
		mcp.WithNumber("cursor", mcp.Required(), mcp.Description("Snapshot index")),
	), mcp.NewStructuredToolHandler(s.handleSetCursor))

	// TOOL: set_live
	s.mcpServer.AddTool(mcp.NewTool("set_live",
		mcp.WithDescription("Switch a view between live (auto-follow) and replay (frozen cursor)."),
		mcp.WithString("view_id", mcp.Required(), mcp.Description("View identifier")),
		mcp.WithBoolean("live", mcp.Required(), mcp.Description("true for live, false for replay")),
	), mcp.NewStructuredToolHandler(s.handleSetLive))

	// TOOL: open_run
	if s.runs.Archiver() != nil {
		s.mcpServer.AddTool(mcp.NewTool("open_run",
			mcp.WithDescription("Reopen an archived run as a new view in replay mode."),
			mcp.WithString("run_id", mcp.Required(), mcp.Description("Archived run identifier")),
		), mcp.NewStructuredToolHandler(s.handleOpenRun))
	}

	// TOOL: start_run
	if s.source != nil {
		s.mcpServer.AddTool(mcp.NewTool("start_run",
			mcp.WithDescription("Submit a question to the agent backend and watch the run live."),
			mcp.WithString("question", mcp.Required(), mcp.Description("Question for the agent")),
		), mcp.NewStructuredToolHandler(s.handleStartRun))
	}
}

// Handler methods for structured tools

func (s *Server) handleListRuns(ctx context.Context, request mcp.CallToolRequest, _ map[string]any) (RunList, error) {
	list := RunList{Runs: []RunEntry{}}
	for _, id := range s.runs.List() {
		v, err := s.runs.Get(id)
		if err != nil {
			continue
		}
		list.Runs = append(list.Runs, RunEntry{
			ViewID:   v.ID(),
			RunID:    v.RunID(),
			Question: v.Question(),
			Closed:   v.Closed(),
		})
	}
	return list, nil
}

func (s *Server) handleGetFrame(ctx context.Context, request mcp.CallToolRequest, args ViewArgs) (session.Frame, error) {
	v, err := s.runs.Get(args.ViewID)
	if err != nil {
		return session.Frame{}, err
	}
	return v.Frame(s.schema), nil
}

func (s *Server) handleSetCursor(ctx context.Context, request mcp.CallToolRequest, args CursorArgs) (session.Frame, error) {
	v, err := s.runs.Get(args.ViewID)
	if err != nil {
		return session.Frame{}, err
	}
	v.SetCursor(args.Cursor)
	return v.Frame(s.schema), nil
}

func (s *Server) handleSetLive(ctx context.Context, request mcp.CallToolRequest, args LiveArgs) (session.Frame, error) {
	v, err := s.runs.Get(args.ViewID)
	if err != nil {
		return session.Frame{}, err
	}
	v.SetLive(args.Live)
	return v.Frame(s.schema), nil
}

func (s *Server) handleOpenRun(ctx context.Context, request mcp.CallToolRequest, args OpenArgs) (session.Frame, error) {
	v, err := s.runs.Open(ctx, args.RunID)
	if err != nil {
		return session.Frame{}, err
	}
	return v.Frame(s.schema), nil
}

func (s *Server) handleStartRun(ctx context.Context, request mcp.CallToolRequest, args StartArgs) (session.Frame, error) {
	if args.Question == "" {
		return session.Frame{}, errors.New("question is required")
	}
	v := s.runs.Start(context.WithoutCancel(ctx), s.source, args.Question, s.ingest...)
	s.logger.Info("MCP: run started", "view_id", v.ID())
	return v.Frame(s.schema), nil
}

func (s *Server) registerResources() {
	// EXPOSE: runlens://schema
	s.mcpServer.AddResource(mcp.NewResource(SchemaURI, "Agent Graph Schema",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.schema)
		if err != nil {
			return nil, fmt.Errorf("failed to encode schema: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      SchemaURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
