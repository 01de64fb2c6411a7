package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitDisabledInstallsNoop(t *testing.T) {
	shutdown, err := Init(TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, Tracer())

	_, span := NewSpan(context.Background(), "noop")
	assert.False(t, span.span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitStdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.ServiceName = "spawnpool-test"
	cfg.Writer = &buf

	shutdown, err := Init(cfg)
	require.NoError(t, err)

	ctx, span := NewSpan(context.Background(), "simulation.run")
	require.NotNil(t, ctx)
	span.SetAttribute("ticks", 10)
	span.SetAttribute("created", uint64(3))
	span.AddEvent("tick", attribute.Int("tick", 1))
	span.RecordError(errors.New("boom"))
	span.End()

	require.NoError(t, shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "simulation.run")
	assert.Contains(t, out, "spawnpool-test")
	assert.Contains(t, out, "boom")

	_, err = Init(TracingConfig{Enabled: false})
	require.NoError(t, err)
}

func TestInitRejectsUnknownExporter(t *testing.T) {
	_, err := Init(TracingConfig{Enabled: true, Exporter: "jaeger"})
	assert.Error(t, err)
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(0).Description(), "AlwaysOff")
	assert.Contains(t, sampler(1).Description(), "AlwaysOn")
	assert.Contains(t, sampler(0.5).Description(), "TraceIDRatioBased")
}
