// Package approval implements the ApprovalGate (spec §4.2, §6): given a
// (tool, arguments) pair, returns approved / rejected / timeout, with a
// pluggable delivery mechanism.
package approval

import "context"

// Outcome is the gate's decision for one request.
type Outcome int

const (
	Approved Outcome = iota
	Rejected
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Approved:
		return "approved"
	case Rejected:
		return "rejected"
	case TimedOut:
		return "timeout"
	default:
		return "unknown"
	}
}

// Decision is the full result of a Request call.
type Decision struct {
	Outcome Outcome
	Reason  string
}

// Gate is consulted by the ToolDispatcher before any sensitive tool call,
// and by the human_in_loop control tool for free-text requests.
type Gate interface {
	Request(ctx context.Context, prompt string, args map[string]any) (Decision, error)
}

// GateFunc adapts a plain function to the Gate interface.
type GateFunc func(ctx context.Context, prompt string, args map[string]any) (Decision, error)

func (f GateFunc) Request(ctx context.Context, prompt string, args map[string]any) (Decision, error) {
	return f(ctx, prompt, args)
}

// AlwaysApprove is a trivial gate useful for tests and for configurations
// that disable human-in-the-loop entirely.
var AlwaysApprove Gate = GateFunc(func(ctx context.Context, prompt string, args map[string]any) (Decision, error) {
	return Decision{Outcome: Approved}, nil
})
