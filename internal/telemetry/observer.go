// Package telemetry records tool calls as OpenTelemetry spans and metrics.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName scopes the tracer and meter.
const InstrumentationName = "github.com/golovatskygroup/hookbase-mcp"

// ToolObserver records tool invocations. A nil observer is a no-op.
type ToolObserver struct {
	tracer trace.Tracer

	invocations metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewToolObserver creates a tool observer bound to the provided meter/tracer.
func NewToolObserver(meter metric.Meter, tracer trace.Tracer) (*ToolObserver, error) {
	invocations, err := meter.Int64Counter(
		"hookbase.tool.invocations",
		metric.WithDescription("Number of tool invocations"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"hookbase.tool.latency",
		metric.WithDescription("Tool latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &ToolObserver{tracer: tracer, invocations: invocations, latency: latency}, nil
}

// Call is one in-flight tool invocation.
type Call struct {
	o     *ToolObserver
	ctx   context.Context
	span  trace.Span
	attrs []attribute.KeyValue
	start time.Time
}

// Begin opens the span for a tool call. Requests dispatched with the
// returned context become its children.
func (o *ToolObserver) Begin(ctx context.Context, tool, category string) (context.Context, *Call) {
	if o == nil {
		return ctx, nil
	}
	attrs := []attribute.KeyValue{
		attribute.String("tool_name", tool),
		attribute.String("category", category),
	}
	c := &Call{o: o, attrs: attrs, start: time.Now()}
	if o.tracer != nil {
		ctx, c.span = o.tracer.Start(ctx, "tool.invoke", trace.WithAttributes(attrs...))
	}
	c.ctx = ctx
	return ctx, c
}

// End records the outcome. errMsg is only used when failed is true.
func (c *Call) End(failed bool, errMsg string) {
	if c == nil {
		return
	}
	attrs := append(c.attrs, attribute.Bool("success", !failed))
	options := metric.WithAttributes(attrs...)
	c.o.invocations.Add(c.ctx, 1, options)
	c.o.latency.Record(c.ctx, time.Since(c.start).Seconds(), options)

	if c.span == nil {
		return
	}
	if failed {
		c.span.SetStatus(codes.Error, errMsg)
	} else {
		c.span.SetStatus(codes.Ok, "")
	}
	c.span.End()
}
