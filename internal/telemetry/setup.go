package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// EnvEndpoint enables span export when set.
const EnvEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"

// Setup installs a global tracer provider exporting over OTLP/HTTP when
// endpoint is non-empty. Without an endpoint the global no-op providers stay
// in place. The returned shutdown flushes pending spans.
func Setup(ctx context.Context, endpoint string, logger *slog.Logger) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	// The exporter reads OTEL_EXPORTER_OTLP_* itself.
	exp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	logger.Info("trace export enabled", "endpoint", endpoint)

	return tp.Shutdown, nil
}

// NewObserver builds a ToolObserver on the global providers.
func NewObserver() (*ToolObserver, error) {
	return NewToolObserver(otel.Meter(InstrumentationName), otel.Tracer(InstrumentationName))
}
