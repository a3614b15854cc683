package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetup_None(t *testing.T) {
	shutdown, err := Setup(TracingNone, "dev", &bytes.Buffer{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_Unknown(t *testing.T) {
	_, err := Setup("jaeger", "dev", &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

func TestSetup_StdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(TracingStdout, "dev", &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry-test").Start(context.Background(), "impact.Analyze")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name": "impact.Analyze"`)
	assert.Contains(t, buf.String(), "acto")
}
