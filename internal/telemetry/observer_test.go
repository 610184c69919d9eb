package telemetry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func TestToolObserverRecordsMetricsAndSpans(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	o, err := NewToolObserver(mp.Meter("test"), tp.Tracer("test"))
	require.NoError(t, err)

	_, ok := o.Begin(context.Background(), "hookbase_list_sources", "sources")
	ok.End(false, "")
	_, bad := o.Begin(context.Background(), "hookbase_get_source", "sources")
	bad.End(true, "Source not found")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	inv := findMetric(&rm, "hookbase.tool.invocations")
	require.NotNil(t, inv)
	sum, isSum := inv.Data.(metricdata.Sum[int64])
	require.True(t, isSum)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.EqualValues(t, 2, total)

	lat := findMetric(&rm, "hookbase.tool.latency")
	require.NotNil(t, lat)
	_, isHist := lat.Data.(metricdata.Histogram[float64])
	assert.True(t, isHist)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "tool.invoke", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "Source not found", spans[1].Status.Description)
}

func TestNilObserverIsNoop(t *testing.T) {
	var o *ToolObserver
	ctx := context.Background()
	got, call := o.Begin(ctx, "x", "y")
	assert.Equal(t, ctx, got)
	call.End(true, "ignored")
}

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
