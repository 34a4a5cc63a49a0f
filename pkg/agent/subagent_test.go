package agent_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kairoslabs/agentcore/pkg/agent"
)

// slowAgent sleeps for delay before returning, recording how many calls
// were in flight at once so tests can assert serialization.
type slowAgent struct {
	name     string
	delay    time.Duration
	inFlight int32
	maxSeen  int32
}

func (a *slowAgent) Name() string { return a.name }

func (a *slowAgent) Execute(ctx context.Context, task string) (string, error) {
	n := atomic.AddInt32(&a.inFlight, 1)
	for {
		max := atomic.LoadInt32(&a.maxSeen)
		if n <= max || atomic.CompareAndSwapInt32(&a.maxSeen, max, n) {
			break
		}
	}
	time.Sleep(a.delay)
	atomic.AddInt32(&a.inFlight, -1)
	return "answered: " + task, nil
}

func TestSubAgentRegistry_ExecuteRoundTrip(t *testing.T) {
	reg := agent.NewSubAgentRegistry()
	require.NoError(t, reg.Register("helper", &slowAgent{name: "helper"}))

	answer, err := reg.Execute(t.Context(), "helper", "do the thing")
	require.NoError(t, err)
	require.Equal(t, "answered: do the thing", answer)
}

func TestSubAgentRegistry_UnknownNameErrors(t *testing.T) {
	reg := agent.NewSubAgentRegistry()
	_, err := reg.Execute(t.Context(), "ghost", "task")
	require.Error(t, err)
}

func TestSubAgentRegistry_DuplicateRegistrationErrors(t *testing.T) {
	reg := agent.NewSubAgentRegistry()
	require.NoError(t, reg.Register("helper", &slowAgent{name: "helper"}))
	err := reg.Register("helper", &slowAgent{name: "helper"})
	require.Error(t, err)
}

// TestSubAgentRegistry_SerializesCallsToSameTarget mirrors spec scenario
// S5: concurrent calls into the same sub-agent are observed one at a
// time, never overlapping.
func TestSubAgentRegistry_SerializesCallsToSameTarget(t *testing.T) {
	reg := agent.NewSubAgentRegistry()
	target := &slowAgent{name: "helper", delay: 20 * time.Millisecond}
	require.NoError(t, reg.Register("helper", target))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = reg.Execute(t.Context(), "helper", "task")
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&target.maxSeen))
}

// TestSubAgentRegistry_DistinctTargetsRunConcurrently verifies isolation
// does not serialize unrelated sub-agents against each other.
func TestSubAgentRegistry_DistinctTargetsRunConcurrently(t *testing.T) {
	reg := agent.NewSubAgentRegistry()
	a := &slowAgent{name: "a", delay: 30 * time.Millisecond}
	b := &slowAgent{name: "b", delay: 30 * time.Millisecond}
	require.NoError(t, reg.Register("a", a))
	require.NoError(t, reg.Register("b", b))

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _, _ = reg.Execute(t.Context(), "a", "t") }()
	go func() { defer wg.Done(); _, _ = reg.Execute(t.Context(), "b", "t") }()
	wg.Wait()

	require.Less(t, time.Since(start), 60*time.Millisecond)
}
