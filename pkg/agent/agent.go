// Package agent implements the ReactDriver (spec §4.1): the think→act→
// observe loop that ties the LLM gateway, tool dispatcher, context
// buffer, memory layer and sub-agent registry into one execution engine.
package agent

import (
	"context"
	"errors"
	"fmt"
)

// Agent is the minimal contract a driver and every sub-agent satisfy.
// Only the task string and the returned answer string cross a sub-agent
// boundary — no shared buffer, no shared tool registry (spec §4.4).
type Agent interface {
	Name() string
	Execute(ctx context.Context, task string) (string, error)
}

// IterationLimitReached is returned when the loop exhausts its
// max-iterations budget without the model calling final_answer. It is a
// distinct terminal error kind (spec §7), not a tool or transport error.
type IterationLimitReached struct {
	MaxIterations int
}

func (e *IterationLimitReached) Error() string {
	return fmt.Sprintf("agent: reached max iterations (%d) without a final answer", e.MaxIterations)
}

// ErrAlreadyExecuting is returned when Execute, Chat or ExecuteStream is
// called while another call on the same driver is in flight. A driver's
// execution state is exclusively owned for the duration of one call
// (spec §3, §5); concurrent callers must serialize externally.
var ErrAlreadyExecuting = errors.New("agent: driver is already executing")
