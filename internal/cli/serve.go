package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/runlens/pkg/adapters/http"
	"github.com/aretw0/runlens/pkg/adapters/mcp"
)

// NewHTTPHandler builds the HTTP API over the environment.
func NewHTTPHandler(env *Env) http.Handler {
	opts := []httpAdapter.Option{
		httpAdapter.WithDriftScorer(env.Scorer),
		httpAdapter.WithIngestOptions(env.IngestOptions...),
		httpAdapter.WithLogger(env.Logger),
	}
	if env.Backend != nil {
		opts = append(opts,
			httpAdapter.WithSchemaProvider(env.Backend),
			httpAdapter.WithTraceProvider(env.Backend),
		)
	}
	if env.Registry != nil {
		opts = append(opts, httpAdapter.WithGatherer(env.Registry))
	}
	return httpAdapter.NewHandler(env.Lens.Runs, env.Source, opts...)
}

// RunServe starts the HTTP API and blocks until ctx is done.
func RunServe(ctx context.Context, env *Env, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: NewHTTPHandler(env),
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		env.Logger.Info("Starting runlens server", "address", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			env.Logger.Warn("Graceful shutdown did not complete", "err", err)
			return srv.Close()
		}
		env.Logger.Info("Server stopped gracefully")
		return nil
	}
}

// RunMCP starts the MCP server on the given transport.
func RunMCP(ctx context.Context, env *Env, transport string, port int) error {
	srv := mcp.NewServer(env.Lens.Runs,
		mcp.WithSource(env.Source, env.IngestOptions...),
		mcp.WithSchema(env.Lens.Schema(ctx)),
		mcp.WithLogger(env.Logger),
	)

	switch transport {
	case "stdio":
		env.Logger.Info("Starting runlens MCP Server (Stdio)")
		return srv.ServeStdio()
	case "sse":
		env.Logger.Info("Starting runlens MCP Server (SSE)", "port", port)
		return srv.ServeSSE(ctx, port)
	default:
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
	}
}
