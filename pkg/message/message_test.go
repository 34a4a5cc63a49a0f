package message_test

import (
	"testing"

	"github.com/kairoslabs/agentcore/pkg/message"
	"github.com/stretchr/testify/require"
)

func TestNewToolResult_SuccessPassesOutputThrough(t *testing.T) {
	msg := message.NewToolResult(message.ToolResult{
		ToolCallID: "call_1",
		Success:    true,
		Output:     "7",
	})

	require.Equal(t, message.RoleToolResult, msg.Role)
	require.Equal(t, "call_1", msg.ToolCallID)
	require.Equal(t, "7", msg.Content)
}

func TestNewToolResult_FailureCarriesHint(t *testing.T) {
	msg := message.NewToolResult(message.ToolResult{
		ToolCallID: "call_2",
		Success:    false,
		Error:      "denied",
	})

	require.Contains(t, msg.Content, "denied")
	require.Contains(t, msg.Content, "consider another approach")
}

func TestNewToolResult_FailureWithoutErrorFallsBackToOutput(t *testing.T) {
	// A tool can signal failure via Result{Success:false, Output:"..."}
	// with a nil error (§6's executor contract), rather than a Go error.
	msg := message.NewToolResult(message.ToolResult{
		ToolCallID: "call_3",
		Success:    false,
		Output:     "denied",
	})

	require.Contains(t, msg.Content, "denied")
	require.Contains(t, msg.Content, "consider another approach")
}

func TestCloneAll_IsIndependentOfOriginal(t *testing.T) {
	original := []message.Message{
		message.NewAssistant("hi", []message.ToolCall{{ID: "1", Name: "add"}}),
	}
	clone := message.CloneAll(original)
	clone[0].ToolCalls[0].Name = "mutated"

	require.Equal(t, "add", original[0].ToolCalls[0].Name)
}
