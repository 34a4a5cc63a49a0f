// Package llm defines the LlmGateway contract (spec §4.7): a chat
// request/response transport producing either a single completion or a
// stream of incremental deltas, with retry classification of transport
// errors.
package llm

import (
	"context"

	"github.com/kairoslabs/agentcore/pkg/message"
)

// ToolDefinition describes one callable tool to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ResponseFormat constrains the shape of the model's reply.
type ResponseFormat struct {
	Kind   string // "text" | "json_object" | "json_schema"
	Schema map[string]any
	Name   string
	Strict bool
}

// Request carries everything the gateway needs to produce a completion.
type Request struct {
	Messages       []message.Message
	Tools          []ToolDefinition
	ToolChoice     string // "auto" | "none" | "required"
	ResponseFormat *ResponseFormat
	Temperature    *float64
	MaxTokens      *int
}

// FinishReason reports why the model stopped generating.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
	FinishLength    FinishReason = "length"
)

// Response is a completed chat turn.
type Response struct {
	Content      string
	ToolCalls    []message.ToolCall
	FinishReason FinishReason
	Tokens       int
}

// StreamDelta is one increment of a streamed response.
type StreamDelta struct {
	Type         string // "token" | "tool_call" | "done" | "error"
	Text         string
	ToolCall     *message.ToolCall
	FinishReason FinishReason
	Tokens       int
	Err          error
}

// Gateway sends chat requests, returning either a single completion or a
// stream of incremental deltas. Chat retries transient transport errors
// with exponential backoff internally; terminal errors surface
// immediately. ChatStream makes a single attempt: a failure to open the
// stream is returned as an error, and a failure while streaming arrives as
// an "error" delta.
type Gateway interface {
	Chat(ctx context.Context, req Request) (*Response, error)
	ChatStream(ctx context.Context, req Request) (<-chan StreamDelta, error)
}
