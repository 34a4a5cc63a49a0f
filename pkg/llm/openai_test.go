package llm_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kairoslabs/agentcore/pkg/llm"
	"github.com/kairoslabs/agentcore/pkg/message"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *llm.OpenAIGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := llm.OpenAIConfig{
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		Model:       "test-model",
		Timeout:     5 * time.Second,
		RetryPolicy: llm.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond},
	}
	return llm.NewOpenAIGateway(cfg)
}

func TestChat_ParsesToolCall(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{
				"message": {
					"role": "assistant",
					"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "add", "arguments": "{\"a\":3,\"b\":4}"}}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"total_tokens": 42}
		}`))
	})

	resp, err := gw.Chat(t.Context(), llm.Request{Messages: []message.Message{message.NewUser("3+4")}})
	require.NoError(t, err)
	require.Equal(t, llm.FinishToolCalls, resp.FinishReason)
	require.Len(t, resp.ToolCalls, 1)
	require.Equal(t, "add", resp.ToolCalls[0].Name)
	require.Equal(t, float64(3), resp.ToolCalls[0].Arguments["a"])
	require.Equal(t, 42, resp.Tokens)
}

func TestChat_RetriesOn5xxThenSucceeds(t *testing.T) {
	calls := 0
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`))
	})

	resp, err := gw.Chat(t.Context(), llm.Request{Messages: []message.Message{message.NewUser("hi")}})
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Content)
	require.Equal(t, 2, calls)
}

func TestChat_TerminalErrorDoesNotRetry(t *testing.T) {
	calls := 0
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := gw.Chat(t.Context(), llm.Request{Messages: []message.Message{message.NewUser("hi")}})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestChatStream_DecodesTokensAndToolCallAcrossFragments(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			`{"choices":[{"delta":{"content":"Hel"}}]}`,
			`{"choices":[{"delta":{"content":"lo"}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_9","function":{"name":"add","arguments":"{\"a\":1,"}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"b\":2}"}}]}}]}`,
		}
		flusher := w.(http.Flusher)
		for _, f := range frames {
			_, _ = w.Write([]byte("data: " + f + "\n\n"))
			flusher.Flush()
		}
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
		flusher.Flush()
	})

	ch, err := gw.ChatStream(t.Context(), llm.Request{Messages: []message.Message{message.NewUser("hi")}})
	require.NoError(t, err)

	var text string
	var toolCall *message.ToolCall
	var done bool
	for d := range ch {
		switch d.Type {
		case "token":
			text += d.Text
		case "tool_call":
			toolCall = d.ToolCall
		case "done":
			done = true
		}
	}

	require.Equal(t, "Hello", text)
	require.True(t, done)
	require.NotNil(t, toolCall)
	require.Equal(t, "add", toolCall.Name)
	require.Equal(t, float64(1), toolCall.Arguments["a"])
	require.Equal(t, float64(2), toolCall.Arguments["b"])
}

func TestClassify(t *testing.T) {
	require.Equal(t, llm.Retryable, llm.Classify(429, false, false))
	require.Equal(t, llm.Retryable, llm.Classify(503, false, false))
	require.Equal(t, llm.Terminal, llm.Classify(401, false, false))
	require.Equal(t, llm.Terminal, llm.Classify(400, false, false))
	require.Equal(t, llm.Retryable, llm.Classify(200, true, false))
	require.Equal(t, llm.Terminal, llm.Classify(200, false, true))
}
