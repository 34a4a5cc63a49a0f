package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kairoslabs/agentcore/pkg/approval"
	"github.com/kairoslabs/agentcore/pkg/message"
	"github.com/kairoslabs/agentcore/pkg/observability"
)

// Policy bounds one execute_batch call: how many calls may be in flight
// at once, the per-call timeout, and the retry budget for transient
// failures.
type Policy struct {
	MaxConcurrency int
	Timeout        time.Duration
	MaxRetries     int
	BaseDelay      time.Duration
}

// DefaultPolicy mirrors the teacher's tool-loop defaults (§4.2).
func DefaultPolicy() Policy {
	return Policy{
		MaxConcurrency: 5,
		Timeout:        30 * time.Second,
		MaxRetries:     2,
		BaseDelay:      250 * time.Millisecond,
	}
}

// Dispatcher executes batches of tool calls against a Registry, honoring
// concurrency bounds, per-call timeout and retry, and approval gating.
type Dispatcher struct {
	registry       *Registry
	policy         Policy
	gate           approval.Gate
	needsApproval  map[string]bool
	errorsAreFatal bool
	log            *slog.Logger
	tracer         *observability.Tracer
	metrics        *observability.Metrics
}

// Option configures a Dispatcher at construction time.
type Option func(*Dispatcher)

// WithPolicy overrides the default execution policy.
func WithPolicy(p Policy) Option {
	return func(d *Dispatcher) { d.policy = p }
}

// WithApprovalGate installs the gate consulted before calls to tools in
// the needs-approval set.
func WithApprovalGate(g approval.Gate) Option {
	return func(d *Dispatcher) { d.gate = g }
}

// WithApprovalRequired marks the given tool names as requiring approval
// before their first attempt.
func WithApprovalRequired(names ...string) Option {
	return func(d *Dispatcher) {
		for _, n := range names {
			d.needsApproval[n] = true
		}
	}
}

// WithFatalToolErrors makes a failed tool call abort execution instead of
// becoming a self-correction hint fed back to the model.
func WithFatalToolErrors() Option {
	return func(d *Dispatcher) { d.errorsAreFatal = true }
}

// WithLogger installs a structured logger; a discarding logger is used
// otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithTracer installs the tracer used to open one span per tool call. A
// nil tracer (the default) disables tracing.
func WithTracer(t *observability.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

// WithMetrics installs the metrics recorder used to observe each tool
// call's outcome and latency. A nil metrics recorder (the default)
// disables recording.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher builds a dispatcher bound to registry.
func NewDispatcher(registry *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:      registry,
		policy:        DefaultPolicy(),
		gate:          approval.AlwaysApprove,
		needsApproval: make(map[string]bool),
		log:           slog.New(slog.NewTextHandler(discardWriter{}, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ErrorsAreFatal reports whether a failed tool call should abort
// execution rather than be fed back to the model as a hint.
func (d *Dispatcher) ErrorsAreFatal() bool { return d.errorsAreFatal }

// SetApprovalGate installs g as the gate consulted for tools in the
// needs-approval set, replacing whatever was configured at construction.
// Exposed so a driver's SetApprovalGate can be wired through to its
// dispatcher after the fact (spec §4.1).
func (d *Dispatcher) SetApprovalGate(g approval.Gate) { d.gate = g }

// MarkNeedsApproval adds name to the needs-approval set, matching the
// driver's MarkNeedsApproval operation (spec §4.1).
func (d *Dispatcher) MarkNeedsApproval(name string) { d.needsApproval[name] = true }

// Registry exposes the underlying tool registry, e.g. for Definitions().
func (d *Dispatcher) Registry() *Registry { return d.registry }

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// indexedOutcome carries one call's outcome at its original batch index,
// so results are returned in input order regardless of completion order.
type indexedOutcome struct {
	index  int
	result message.ToolResult
}

// ExecuteBatch runs every call in calls, bounded by the dispatcher's
// policy concurrency, and returns one ToolResult per call in the same
// order as the input calls (spec §4.2, §7's input-order
// invariant).
func (d *Dispatcher) ExecuteBatch(ctx context.Context, calls []message.ToolCall) []message.ToolResult {
	if len(calls) == 0 {
		return nil
	}

	outcomes := make([]message.ToolResult, len(calls))

	if len(calls) == 1 {
		outcomes[0] = d.executeOne(ctx, calls[0])
		return outcomes
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.policy.MaxConcurrency)

	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			outcomes[i] = d.executeOne(gCtx, call)
			return nil
		})
	}
	_ = g.Wait() // executeOne never returns an error; failures are encoded in the result

	return outcomes
}

// executeOne opens the span and records the metrics covering one tool
// call — unknown tool, approval denial, retries and all — then delegates
// to executeOneAttempt for the actual attempt.
func (d *Dispatcher) executeOne(ctx context.Context, call message.ToolCall) message.ToolResult {
	ctx, span := d.tracer.StartToolCall(ctx, call.Name)
	start := time.Now()
	result := d.executeOneAttempt(ctx, call)
	d.metrics.ObserveToolCall(call.Name, result.Success, time.Since(start))
	span.End()
	return result
}

// executeOneAttempt runs a single call through approval gating, retry, and
// per-call timeout.
func (d *Dispatcher) executeOneAttempt(ctx context.Context, call message.ToolCall) message.ToolResult {
	t, ok := d.registry.Get(call.Name)
	if !ok {
		return message.ToolResult{
			ToolCallID: call.ID,
			Success:    false,
			Error:      fmt.Sprintf("unknown tool %q", call.Name),
		}
	}

	if d.needsApproval[call.Name] {
		decision, err := d.gate.Request(ctx, fmt.Sprintf("approve call to %q?", call.Name), call.Arguments)
		if err != nil {
			return message.ToolResult{ToolCallID: call.ID, Success: false, Error: "approval request failed: " + err.Error()}
		}
		if decision.Outcome != approval.Approved {
			reason := decision.Reason
			if reason == "" {
				reason = decision.Outcome.String()
			}
			return message.ToolResult{ToolCallID: call.ID, Success: false, Error: "approval denied: " + reason}
		}
	}

	var lastErr error
	for attempt := 0; attempt <= d.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			d.sleepBackoff(ctx, attempt)
			select {
			case <-ctx.Done():
				return message.ToolResult{ToolCallID: call.ID, Success: false, Error: ctx.Err().Error()}
			default:
			}
		}

		result, err := d.runWithTimeout(ctx, t, call.Arguments)
		if err == nil {
			return message.ToolResult{ToolCallID: call.ID, Success: result.Success, Output: result.Output}
		}
		lastErr = err
		d.log.Warn("tool call failed", "tool", call.Name, "attempt", attempt, "err", err)

		if errors.Is(err, context.Canceled) {
			break
		}
	}

	return message.ToolResult{ToolCallID: call.ID, Success: false, Error: lastErr.Error()}
}

func (d *Dispatcher) runWithTimeout(ctx context.Context, t Tool, args map[string]any) (Result, error) {
	callCtx := ctx
	var cancel context.CancelFunc
	if d.policy.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, d.policy.Timeout)
		defer cancel()
	}

	type outcome struct {
		result Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := t.Execute(callCtx, args)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-callCtx.Done():
		return Result{}, fmt.Errorf("timed out: %w", callCtx.Err())
	}
}

func (d *Dispatcher) sleepBackoff(ctx context.Context, attempt int) {
	delay := d.policy.BaseDelay << uint(attempt-1)
	jitter := time.Duration(rand.Int63n(int64(delay) / 4 + 1))
	timer := time.NewTimer(delay + jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
