package agent

import (
	"context"
	"fmt"
	"sync"
)

// handle is a registry entry: a sub-agent plus the mutual-exclusion lock
// that serializes calls into it, so a parent dispatching several
// agent_tool calls to the same target observes them run one at a time
// even when issued concurrently (spec §4.4).
type handle struct {
	mu    sync.Mutex
	agent Agent
}

// SubAgentRegistry maps name → agent handle. It is the dispatch layer
// behind the agent_tool control tool: Execute acquires the target's
// lock, invokes the target, and releases on every exit path, guaranteeing
// serialized observation per sub-agent with no ordering imposed across
// different sub-agents (spec §4.4, §5).
type SubAgentRegistry struct {
	mu     sync.Mutex
	agents map[string]*handle
}

// NewSubAgentRegistry builds an empty registry.
func NewSubAgentRegistry() *SubAgentRegistry {
	return &SubAgentRegistry{agents: make(map[string]*handle)}
}

// Register adds ag under name. Re-registering an existing name is an
// error; a registry entry is exclusively owned once created.
func (r *SubAgentRegistry) Register(name string, ag Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return fmt.Errorf("agent: sub-agent name is required")
	}
	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("agent: sub-agent %q already registered", name)
	}
	r.agents[name] = &handle{agent: ag}
	return nil
}

// Names returns every registered sub-agent name.
func (r *SubAgentRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	return names
}

// Execute dispatches task to the named sub-agent, serialized on its own
// lock. Only the task string crosses the boundary; the answer string is
// the only thing that crosses back (spec §4.4's isolation invariant).
func (r *SubAgentRegistry) Execute(ctx context.Context, name, task string) (string, error) {
	r.mu.Lock()
	h, ok := r.agents[name]
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("agent: unknown sub-agent %q", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.agent.Execute(ctx, task)
}
