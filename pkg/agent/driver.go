package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/kairoslabs/agentcore/pkg/approval"
	"github.com/kairoslabs/agentcore/pkg/contextbuf"
	"github.com/kairoslabs/agentcore/pkg/llm"
	"github.com/kairoslabs/agentcore/pkg/memory"
	"github.com/kairoslabs/agentcore/pkg/message"
	"github.com/kairoslabs/agentcore/pkg/observability"
	"github.com/kairoslabs/agentcore/pkg/tool"
)

// chainOfThoughtAddendum is appended to the system prompt when chain-of-
// thought is enabled. It is prompt-level only — no separate "think" tool
// is involved (spec §4.1).
const chainOfThoughtAddendum = "\n\nBefore calling any tool, think out loud in a short passage of plain text explaining your reasoning, then call the tool. Keep the reasoning brief and only in ordinary content, never inside a tool call."

// nudgeMessage is appended when the model responds with no tool calls
// before the iteration budget is exhausted, so it gets one more turn to
// call final_answer cleanly (spec §4.1).
const nudgeMessage = "You have not called a tool. If the task is complete, call final_answer with your result; otherwise call whichever tool moves the task forward."

// Config configures one Driver (spec §3's AgentConfig, narrowed to the
// fields the ReactDriver itself consumes).
type Config struct {
	// Name identifies this agent; required, and is what a parent's
	// SubAgentRegistry dispatches to.
	Name string

	// SystemPrompt seeds the buffer at the start of every Execute/Reset.
	SystemPrompt string

	// MaxIterations bounds the loop: at most MaxIterations+1 LLM calls
	// are made before IterationLimitReached (spec §8's universal
	// invariant).
	MaxIterations int

	// TokenBudget is the ContextBuffer's compression threshold.
	TokenBudget int

	// AllowList restricts which registered tools are exposed to the
	// model; empty means "all registered" (spec §3).
	AllowList []string

	// ChainOfThought appends the fixed reasoning-prompt addendum to the
	// system prompt when true.
	ChainOfThought bool

	// ResponseFormat optionally constrains every loop completion's
	// shape, not just Extract's.
	ResponseFormat *llm.ResponseFormat

	Temperature *float64
	MaxTokens   *int

	// SessionID, if non-empty, is the key under which the buffer is
	// loaded on Execute and saved on normal termination.
	SessionID string
}

// Driver is the ReactDriver (spec §4.1): it owns a ContextBuffer and
// ties together an llm.Gateway, a tool.Dispatcher and an optional
// memory.SessionStore into the think→act→observe loop. A single Driver
// must not be driven from multiple goroutines concurrently; execMu
// enforces that exclusivity at runtime since Go's type system cannot.
type Driver struct {
	cfg          Config
	gateway      llm.Gateway
	dispatcher   *tool.Dispatcher
	estimator    contextbuf.Estimator
	sessionStore memory.SessionStore
	subAgents    *SubAgentRegistry
	callbacks    Callbacks
	systemPrompt string
	tracer       *observability.Tracer
	metrics      *observability.Metrics

	execMu sync.Mutex
	mu     sync.Mutex
	buffer *contextbuf.Buffer
}

// Option configures a Driver at construction time.
type Option func(*Driver)

// WithSessionStore installs a SessionStore; Execute loads a prior
// snapshot under cfg.SessionID at start and saves one back on normal
// termination (spec §4.5).
func WithSessionStore(store memory.SessionStore) Option {
	return func(d *Driver) { d.sessionStore = store }
}

// WithCallbacks installs the lifecycle hooks delivered during the loop.
func WithCallbacks(cb Callbacks) Option {
	return func(d *Driver) { d.callbacks = cb }
}

// WithTracer installs the tracer used to open one span per LLM call and
// per loop iteration. A nil tracer (the default) disables tracing.
func WithTracer(t *observability.Tracer) Option {
	return func(d *Driver) { d.tracer = t }
}

// WithMetrics installs the metrics recorder used to observe each LLM
// call and loop iteration. A nil metrics recorder (the default) disables
// recording.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// NewDriver builds a Driver. gateway and dispatcher are exclusively
// owned by the returned Driver for its lifetime (spec §3).
func NewDriver(gateway llm.Gateway, dispatcher *tool.Dispatcher, estimator contextbuf.Estimator, cfg Config, opts ...Option) (*Driver, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("agent: driver name is required")
	}
	if cfg.Name == "user" {
		return nil, fmt.Errorf("agent: driver name cannot be %q (reserved)", "user")
	}
	if cfg.MaxIterations <= 0 {
		return nil, fmt.Errorf("agent: max iterations must be positive")
	}

	systemPrompt := cfg.SystemPrompt
	if cfg.ChainOfThought {
		systemPrompt += chainOfThoughtAddendum
	}

	d := &Driver{
		cfg:          cfg,
		gateway:      gateway,
		dispatcher:   dispatcher,
		estimator:    estimator,
		subAgents:    NewSubAgentRegistry(),
		systemPrompt: systemPrompt,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.resetLocked()
	return d, nil
}

// Name returns the driver's configured name, satisfying Agent.
func (d *Driver) Name() string { return d.cfg.Name }

// SubAgents exposes the registry backing agent_tool dispatch, so the
// caller can wire it into a tool/agenttool instance.
func (d *Driver) SubAgents() *SubAgentRegistry { return d.subAgents }

// RegisterSubAgent adds a named sub-agent handle to the registry.
func (d *Driver) RegisterSubAgent(name string, ag Agent) error {
	return d.subAgents.Register(name, ag)
}

// SetCompressor installs the Compressor the buffer invokes lazily
// whenever Prepare finds the estimate over budget (spec §4.3).
func (d *Driver) SetCompressor(c contextbuf.Compressor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffer.SetCompressor(c)
}

// SetApprovalGate installs g on the driver's dispatcher, replacing
// whatever gate it was constructed with.
func (d *Driver) SetApprovalGate(g approval.Gate) {
	d.dispatcher.SetApprovalGate(g)
}

// MarkNeedsApproval adds toolName to the dispatcher's needs-approval set.
func (d *Driver) MarkNeedsApproval(toolName string) {
	d.dispatcher.MarkNeedsApproval(toolName)
}

// Reset clears history back to the system prompt (spec §4.1).
func (d *Driver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

func (d *Driver) resetLocked() {
	d.buffer = contextbuf.New([]message.Message{message.NewSystem(d.systemPrompt)}, d.cfg.TokenBudget, d.estimator)
}

// Execute resets the buffer to the system prompt (or, when a session id
// is configured and a snapshot exists, restores the snapshot instead),
// appends task as a user message, and runs the loop to completion.
func (d *Driver) Execute(ctx context.Context, task string) (string, error) {
	if !d.execMu.TryLock() {
		return "", ErrAlreadyExecuting
	}
	defer d.execMu.Unlock()

	if err := d.startFresh(ctx); err != nil {
		return "", err
	}
	d.appendUser(task)
	answer, err := d.runLoop(ctx, nil)
	return d.finish(ctx, answer, err)
}

// Chat appends message to the existing buffer without resetting,
// preserving cross-turn history, then runs the loop.
func (d *Driver) Chat(ctx context.Context, msg string) (string, error) {
	if !d.execMu.TryLock() {
		return "", ErrAlreadyExecuting
	}
	defer d.execMu.Unlock()

	d.appendUser(msg)
	answer, err := d.runLoop(ctx, nil)
	return d.finish(ctx, answer, err)
}

// ExecuteStream runs the same loop as Execute, emitting Events lazily as
// they happen. The returned channel is closed when the loop ends; the
// caller must drain it (or abandon the context) to let the driver
// release its execution lock.
func (d *Driver) ExecuteStream(ctx context.Context, task string) (<-chan Event, error) {
	if !d.execMu.TryLock() {
		return nil, ErrAlreadyExecuting
	}

	if err := d.startFresh(ctx); err != nil {
		d.execMu.Unlock()
		return nil, err
	}
	d.appendUser(task)

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer d.execMu.Unlock()
		answer, err := d.runLoop(ctx, events)
		_, _ = d.finish(ctx, answer, err) // result already delivered via events
	}()
	return events, nil
}

// Extract performs a single LLM call constrained by schema. It does not
// enter the loop and does not invoke tools (spec §4.1).
func (d *Driver) Extract(ctx context.Context, prompt string, schema map[string]any) (string, error) {
	req := llm.Request{
		Messages: []message.Message{
			message.NewSystem(d.systemPrompt),
			message.NewUser(prompt),
		},
		ResponseFormat: &llm.ResponseFormat{
			Kind:   "json_schema",
			Schema: schema,
			Name:   "extract",
			Strict: true,
		},
	}
	resp, err := d.gateway.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (d *Driver) appendUser(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffer.Append(message.NewUser(text))
}

// startFresh resets the buffer to the system prompt, or, when a session
// id is configured and a snapshot exists, restores it instead — the
// snapshot's own system message replaces the driver's default one
// (spec §4.5).
func (d *Driver) startFresh(ctx context.Context) error {
	if d.sessionStore != nil && d.cfg.SessionID != "" {
		snap, err := d.sessionStore.Get(ctx, d.cfg.SessionID)
		if err == nil {
			d.mu.Lock()
			d.buffer = contextbuf.New(snap.Messages, d.cfg.TokenBudget, d.estimator)
			d.mu.Unlock()
			return nil
		}
		if err != memory.ErrNotFound {
			return fmt.Errorf("agent: loading session snapshot: %w", err)
		}
	}
	d.Reset()
	return nil
}

// finish persists the session snapshot on normal termination only —
// never on cancellation or error (spec §5, §7) — and returns the loop's
// result unchanged.
func (d *Driver) finish(ctx context.Context, answer string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if d.sessionStore != nil && d.cfg.SessionID != "" {
		d.mu.Lock()
		msgs := d.buffer.Messages()
		d.mu.Unlock()
		if saveErr := d.sessionStore.Put(ctx, d.cfg.SessionID, msgs); saveErr != nil {
			return "", fmt.Errorf("agent: saving session snapshot: %w", saveErr)
		}
	}
	return answer, nil
}
