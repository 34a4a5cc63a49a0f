package approval

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PushRequest is delivered to a host application embedding a ChannelGate,
// e.g. to render a push notification or in-app prompt.
type PushRequest struct {
	ID     string
	Prompt string
	Args   map[string]any
}

// ChannelGate is the "persistent push" delivery mechanism of spec §6: it
// hands requests to a host application over a Go channel and waits for
// the host to call Resolve with the matching id.
type ChannelGate struct {
	requests chan PushRequest
	timeout  time.Duration

	mu      sync.Mutex
	pending map[string]chan Decision
}

// NewChannelGate creates a gate. Requests() must be drained by the host
// application, which calls Resolve for each one it receives.
func NewChannelGate(timeout time.Duration) *ChannelGate {
	return &ChannelGate{
		requests: make(chan PushRequest, 16),
		pending:  make(map[string]chan Decision),
		timeout:  timeout,
	}
}

// Requests returns the channel a host application drains for pending
// approval prompts to surface to a user.
func (g *ChannelGate) Requests() <-chan PushRequest {
	return g.requests
}

// Resolve delivers the host application's decision for a given request id.
// A call for an unknown or already-resolved id is a silent no-op.
func (g *ChannelGate) Resolve(id string, d Decision) {
	g.mu.Lock()
	ch, ok := g.pending[id]
	g.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- d:
	default:
	}
}

func (g *ChannelGate) Request(ctx context.Context, prompt string, args map[string]any) (Decision, error) {
	id := uuid.NewString()
	ch := make(chan Decision, 1)

	g.mu.Lock()
	g.pending[id] = ch
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		delete(g.pending, id)
		g.mu.Unlock()
	}()

	select {
	case g.requests <- PushRequest{ID: id, Prompt: prompt, Args: args}:
	case <-ctx.Done():
		return Decision{Outcome: TimedOut, Reason: "context cancelled before delivery"}, nil
	}

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case d := <-ch:
		return d, nil
	case <-timer.C:
		return Decision{Outcome: TimedOut, Reason: "no response within timeout"}, nil
	case <-ctx.Done():
		return Decision{Outcome: TimedOut, Reason: "context cancelled"}, nil
	}
}
