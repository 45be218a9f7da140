package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/aretw0/runlens/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracer_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracer("runlens-test", &buf, logging.NewNop())
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "replay")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name": "replay"`)
	assert.Contains(t, buf.String(), "runlens-test")
}

func TestInitTracer_NoExporter(t *testing.T) {
	shutdown, err := InitTracer(ServiceName, nil, logging.NewNop())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
