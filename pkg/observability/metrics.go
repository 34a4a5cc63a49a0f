package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics registers the Prometheus counters and histograms exposed at
// /metrics: one family each for LLM calls, tool calls and loop
// iterations (spec's ambient observability expansion).
type Metrics struct {
	registry *prometheus.Registry

	llmCalls          *prometheus.CounterVec
	llmCallDuration   *prometheus.HistogramVec
	toolCalls         *prometheus.CounterVec
	toolCallDuration  *prometheus.HistogramVec
	iterationsTotal   *prometheus.CounterVec
	iterationsLimited *prometheus.CounterVec
}

// NewMetrics builds a Metrics instance with its own registry, so
// multiple agent instances in one process do not collide on metric
// names.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_llm_calls_total",
			Help: "Total LLM gateway Chat calls, by agent and outcome.",
		}, []string{"agent", "outcome"}),
		llmCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "agentcore_llm_call_duration_seconds",
			Help: "LLM gateway Chat call latency.",
		}, []string{"agent"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_tool_calls_total",
			Help: "Total tool dispatcher calls, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		toolCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "agentcore_tool_duration_seconds",
			Help: "Tool execution latency.",
		}, []string{"tool"}),
		iterationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_iterations_total",
			Help: "Total ReactDriver loop iterations, by agent.",
		}, []string{"agent"}),
		iterationsLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_iteration_limit_reached_total",
			Help: "Total Execute calls that exhausted max_iterations without a final answer.",
		}, []string{"agent"}),
	}

	reg.MustRegister(
		m.llmCalls, m.llmCallDuration,
		m.toolCalls, m.toolCallDuration,
		m.iterationsTotal, m.iterationsLimited,
	)
	return m
}

// ObserveLLMCall records one gateway Chat call's outcome and latency.
func (m *Metrics) ObserveLLMCall(agentName string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(agentName, outcomeLabel(success)).Inc()
	m.llmCallDuration.WithLabelValues(agentName).Observe(d.Seconds())
}

// ObserveToolCall records one dispatcher call's outcome and latency.
func (m *Metrics) ObserveToolCall(toolName string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(toolName, outcomeLabel(success)).Inc()
	m.toolCallDuration.WithLabelValues(toolName).Observe(d.Seconds())
}

// ObserveIteration records one completed loop round.
func (m *Metrics) ObserveIteration(agentName string) {
	if m == nil {
		return
	}
	m.iterationsTotal.WithLabelValues(agentName).Inc()
}

// ObserveIterationLimitReached records an Execute call that ran out of
// iterations without a final answer.
func (m *Metrics) ObserveIterationLimitReached(agentName string) {
	if m == nil {
		return
	}
	m.iterationsLimited.WithLabelValues(agentName).Inc()
}

// Handler returns the /metrics HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
