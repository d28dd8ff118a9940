package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestInit_NoEndpointKeepsNoopProvider(t *testing.T) {
	otel.SetTracerProvider(noop.NewTracerProvider())

	c, err := Init("")
	require.NoError(t, err)
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Shutdown(context.Background()))

	_, ok := otel.GetTracerProvider().(noop.TracerProvider)
	assert.True(t, ok)

	fields := otel.GetTextMapPropagator().Fields()
	assert.Contains(t, fields, "traceparent")
	assert.Contains(t, fields, "baggage")
}

func TestInit_WithEndpoint(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	c, err := Init("http://127.0.0.1:14268/api/traces")
	require.NoError(t, err)
	assert.True(t, c.Enabled())

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	// nothing listens on the collector port; shutdown must still return
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = c.Shutdown(ctx)
}
