package observability_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kairoslabs/agentcore/pkg/observability"
)

func TestNewTracerProvider_DisabledReturnsNoopWithoutError(t *testing.T) {
	tp, err := observability.NewTracerProvider(t.Context(), observability.TracerConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tp)

	tracer := observability.NewTracer(tp)
	_, span := tracer.StartIteration(t.Context(), "test-agent", 1)
	span.End()
}

func TestMetrics_HandlerExposesRegisteredSeries(t *testing.T) {
	m := observability.NewMetrics()
	m.ObserveLLMCall("test-agent", true, 10*time.Millisecond)
	m.ObserveToolCall("add", true, 5*time.Millisecond)
	m.ObserveIteration("test-agent")
	m.ObserveIterationLimitReached("test-agent")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "agentcore_llm_calls_total")
	require.Contains(t, body, "agentcore_tool_duration_seconds")
	require.Contains(t, body, "agentcore_iterations_total")
}

func TestTracer_NilReceiverIsNoop(t *testing.T) {
	var tr *observability.Tracer
	require.NotPanics(t, func() {
		ctx, span := tr.StartIteration(t.Context(), "x", 1)
		span.End()
		ctx, span = tr.StartLLMCall(ctx, "x")
		span.End()
		_, span = tr.StartToolCall(ctx, "x")
		span.End()
	})
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *observability.Metrics
	require.NotPanics(t, func() {
		m.ObserveLLMCall("x", true, time.Millisecond)
		m.ObserveToolCall("x", false, time.Millisecond)
		m.ObserveIteration("x")
		m.ObserveIterationLimitReached("x")
	})
}
