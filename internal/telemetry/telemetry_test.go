package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kamilpajak/heartrisk/internal/config"
)

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.TraceEnabled = true
	cfg.OTLPEndpoint = "localhost:4317"
	cfg.TraceSample = 0.5

	opts := FromConfig(cfg, "1.2.3")
	assert.True(t, opts.Enabled)
	assert.Equal(t, "localhost:4317", opts.Endpoint)
	assert.Equal(t, 0.5, opts.SampleRatio)
	assert.Equal(t, "heartrisk", opts.Service)
	assert.Equal(t, "1.2.3", opts.Version)
}

func TestInit_DisabledSetsPropagators(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	defer otel.SetTextMapPropagator(prev)

	shutdown, err := Init(context.Background(), Options{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	assert.ElementsMatch(t, []string{"traceparent", "tracestate", "baggage"}, otel.GetTextMapPropagator().Fields())
}

func TestNewProvider_ExportsWithResource(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := NewProvider(exporter, Options{Service: "heartrisk", Version: "dev", SampleRatio: 1})

	_, span := tp.Tracer("test").Start(context.Background(), "predict")
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "predict", spans[0].Name)
	assert.Contains(t, spans[0].Resource.Attributes(), attribute.String("service.name", "heartrisk"))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewProvider_ZeroSampleDropsRootSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := NewProvider(exporter, Options{Service: "heartrisk", SampleRatio: 0})
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "predict")
	assert.False(t, span.IsRecording())
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))
	assert.Empty(t, exporter.GetSpans())
}
