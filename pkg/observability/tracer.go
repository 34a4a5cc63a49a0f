// Package observability provides the optional tracing and metrics layer
// wired through AgentConfig: a no-op tracer/registry when unconfigured,
// real OpenTelemetry spans and Prometheus counters otherwise. Neither
// ever gates core control flow.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerConfig configures span export.
type TracerConfig struct {
	Enabled bool
	// Exporter selects "otlp" or "stdout"; ignored when Enabled is false.
	Exporter     string
	OTLPEndpoint string
	ServiceName  string
}

// NewTracerProvider builds a trace.TracerProvider from cfg. When
// disabled, it returns a provider whose spans record nothing, so callers
// never need a nil check.
func NewTracerProvider(ctx context.Context, cfg TracerConfig) (trace.TracerProvider, error) {
	if !cfg.Enabled {
		return noop.NewTracerProvider(), nil
	}

	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Exporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("observability: creating span exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes())
	if err != nil {
		return nil, fmt.Errorf("observability: building resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Tracer names every span this package creates: one per LLM call, tool
// call and loop iteration (spec's ambient observability expansion).
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer wraps a provider under a fixed instrumentation name.
func NewTracer(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer("github.com/kairoslabs/agentcore")}
}

// StartIteration opens a span covering one ReactDriver loop round.
// A nil *Tracer (observability not wired) returns ctx unchanged and a
// non-recording span, so callers never need a nil check.
func (t *Tracer) StartIteration(ctx context.Context, agentName string, n int) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "agent.iteration", trace.WithAttributes(
		attrString("agent.name", agentName),
		attrInt("agent.iteration", n),
	))
}

// StartLLMCall opens a span covering one gateway Chat call.
func (t *Tracer) StartLLMCall(ctx context.Context, agentName string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "llm.chat", trace.WithAttributes(attrString("agent.name", agentName)))
}

// StartToolCall opens a span covering one dispatcher tool execution.
func (t *Tracer) StartToolCall(ctx context.Context, toolName string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "tool.execute", trace.WithAttributes(attrString("tool.name", toolName)))
}
