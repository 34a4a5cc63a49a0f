package approval_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kairoslabs/agentcore/pkg/approval"
	"github.com/stretchr/testify/require"
)

func TestConsoleGate_YesApproves(t *testing.T) {
	in := strings.NewReader("y\n")
	var out bytes.Buffer
	g := approval.NewConsoleGate(in, &out, -1)

	d, err := g.Request(t.Context(), "delete file?", map[string]any{"path": "/tmp/x"})
	require.NoError(t, err)
	require.Equal(t, approval.Approved, d.Outcome)
	require.Contains(t, out.String(), "non-interactive")
}

func TestConsoleGate_OtherInputRejects(t *testing.T) {
	in := strings.NewReader("nope\n")
	var out bytes.Buffer
	g := approval.NewConsoleGate(in, &out, -1)

	d, err := g.Request(t.Context(), "delete file?", nil)
	require.NoError(t, err)
	require.Equal(t, approval.Rejected, d.Outcome)
	require.Equal(t, "operator declined", d.Reason)
}

func TestConsoleGate_ContextCancelledTimesOut(t *testing.T) {
	in := &blockingReader{}
	var out bytes.Buffer
	g := approval.NewConsoleGate(in, &out, -1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	d, err := g.Request(ctx, "delete file?", nil)
	require.NoError(t, err)
	require.Equal(t, approval.TimedOut, d.Outcome)
}

type blockingReader struct{}

func (b *blockingReader) Read(p []byte) (int, error) {
	select {}
}
