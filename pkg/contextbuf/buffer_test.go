package contextbuf_test

import (
	"context"
	"strings"
	"testing"

	"github.com/kairoslabs/agentcore/pkg/contextbuf"
	"github.com/kairoslabs/agentcore/pkg/llm"
	"github.com/kairoslabs/agentcore/pkg/message"
	"github.com/stretchr/testify/require"
)

func longMessages(n int) []message.Message {
	msgs := []message.Message{message.NewSystem("you are a helpful assistant")}
	for i := 0; i < n; i++ {
		msgs = append(msgs, message.NewUser(strings.Repeat("x", 200)))
	}
	return msgs
}

func TestBuffer_PrepareWithinBudgetIsNoop(t *testing.T) {
	buf := contextbuf.New([]message.Message{message.NewSystem("sys"), message.NewUser("hi")}, 1000, contextbuf.CharEstimator{})
	out, err := buf.Prepare(t.Context())
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestBuffer_PrepareOverBudgetInvokesCompressorOnce(t *testing.T) {
	buf := contextbuf.New(longMessages(20), 10, contextbuf.CharEstimator{})
	buf.SetCompressor(contextbuf.NewSlidingWindowCompressor(3))

	out, err := buf.Prepare(t.Context())
	require.NoError(t, err)
	require.Len(t, out, 4) // system + 3 tail
	require.Equal(t, message.RoleSystem, out[0].Role)
}

func TestBuffer_NoCompressorLeavesOverBudgetBufferUnchanged(t *testing.T) {
	msgs := longMessages(5)
	buf := contextbuf.New(msgs, 1, contextbuf.CharEstimator{})
	out, err := buf.Prepare(t.Context())
	require.NoError(t, err)
	require.Len(t, out, len(msgs))
}

func TestSlidingWindowCompressor_ShortBufferReturnedUnchanged(t *testing.T) {
	c := contextbuf.NewSlidingWindowCompressor(10)
	msgs := []message.Message{message.NewSystem("sys"), message.NewUser("hi")}
	out, err := c.Compress(t.Context(), msgs)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

type scriptedGateway struct {
	content string
}

func (g scriptedGateway) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return &llm.Response{Content: g.content, FinishReason: llm.FinishStop}, nil
}

func (g scriptedGateway) ChatStream(ctx context.Context, req llm.Request) (<-chan llm.StreamDelta, error) {
	ch := make(chan llm.StreamDelta)
	close(ch)
	return ch, nil
}

func TestSummaryCompressor_ProducesSyntheticSystemMessageBeforeTail(t *testing.T) {
	gw := scriptedGateway{content: "user asked about X and Y"}
	c := contextbuf.NewSummaryCompressor(gw, 2)

	msgs := []message.Message{
		message.NewSystem("sys"),
		message.NewUser("first"),
		message.NewUser("second"),
		message.NewUser("third"),
		message.NewUser("fourth"),
	}
	out, err := c.Compress(t.Context(), msgs)
	require.NoError(t, err)
	require.Len(t, out, 4) // system, summary, tail(2)
	require.Equal(t, message.RoleSystem, out[0].Role)
	require.Contains(t, out[1].Content, "user asked about X and Y")
	require.Equal(t, "third", out[2].Content)
	require.Equal(t, "fourth", out[3].Content)
}

func TestSummaryCompressor_GatewayErrorDoesNotMutateBuffer(t *testing.T) {
	failing := failingGateway{}
	buf := contextbuf.New(longMessages(10), 1, contextbuf.CharEstimator{})
	buf.SetCompressor(contextbuf.NewSummaryCompressor(failing, 2))

	before := buf.Messages()
	_, err := buf.Prepare(t.Context())
	require.Error(t, err)

	after := buf.Messages()
	require.Equal(t, len(before), len(after))
}

type failingGateway struct{}

func (failingGateway) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return nil, assertError{}
}
func (failingGateway) ChatStream(ctx context.Context, req llm.Request) (<-chan llm.StreamDelta, error) {
	return nil, assertError{}
}

type assertError struct{}

func (assertError) Error() string { return "gateway unavailable" }

func TestStagedCompressor_RunsSlidingWindowThenSummary(t *testing.T) {
	gw := scriptedGateway{content: "summary text"}
	staged := contextbuf.NewStagedCompressor(
		contextbuf.NewSlidingWindowCompressor(6),
		contextbuf.NewSummaryCompressor(gw, 2),
	)

	out, err := staged.Compress(t.Context(), longMessages(20))
	require.NoError(t, err)
	// sliding window reduces to system + 6, then summary reduces further to system + synthetic + tail(2)
	require.Len(t, out, 4)
}
