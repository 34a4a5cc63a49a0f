package agent

import "github.com/kairoslabs/agentcore/pkg/message"

// EventType discriminates the kind of a streamed Event, mirroring the
// Type-tagged style llm.StreamDelta uses for the gateway's own stream.
type EventType string

const (
	EventToken       EventType = "token"
	EventToolStart   EventType = "tool_start"
	EventToolEnd     EventType = "tool_end"
	EventToolError   EventType = "tool_error"
	EventIteration   EventType = "iteration"
	EventFinalAnswer EventType = "final_answer"
)

// Event is one lifecycle occurrence emitted by ExecuteStream, in the
// order the loop contract describes them (spec §4.1): think_start /
// think_end are folded into Token (surfacing the assistant's textual
// content as it is produced) since this driver does not stream partial
// deltas mid-thought; per-tool start/end/error follow, then one
// iteration event per round, then a terminal final_answer event.
type Event struct {
	Type EventType

	// Token carries non-empty textual content from the assistant.
	Token string

	// ToolName/ToolArgs/ToolResult/ToolErr are set on tool_start,
	// tool_end and tool_error events.
	ToolName   string
	ToolArgs   map[string]any
	ToolResult message.ToolResult
	ToolErr    error

	// Iteration is set on iteration events (1-based round number).
	Iteration int

	// FinalAnswer is set on the terminal final_answer event.
	FinalAnswer string
}

// Callbacks are the lifecycle hooks delivered in order during a loop
// execution (spec §4.1): on_think_start/on_think_end around each model
// call, on_tool_start paired with on_tool_end or on_tool_error per call,
// on_iteration at the end of each round, on_final_answer once at the end.
// Every field is optional; a nil hook is simply skipped.
type Callbacks struct {
	OnThinkStart  func(messages []message.Message)
	OnThinkEnd    func(assistant message.Message)
	OnToolStart   func(name string, args map[string]any)
	OnToolEnd     func(name string, result message.ToolResult)
	OnToolError   func(name string, err error)
	OnIteration   func(i int)
	OnFinalAnswer func(text string)
}

func (c Callbacks) thinkStart(messages []message.Message) {
	if c.OnThinkStart != nil {
		c.OnThinkStart(messages)
	}
}

func (c Callbacks) thinkEnd(assistant message.Message) {
	if c.OnThinkEnd != nil {
		c.OnThinkEnd(assistant)
	}
}

func (c Callbacks) toolStart(name string, args map[string]any) {
	if c.OnToolStart != nil {
		c.OnToolStart(name, args)
	}
}

func (c Callbacks) toolEnd(name string, result message.ToolResult) {
	if c.OnToolEnd != nil {
		c.OnToolEnd(name, result)
	}
}

func (c Callbacks) toolError(name string, err error) {
	if c.OnToolError != nil {
		c.OnToolError(name, err)
	}
}

func (c Callbacks) iteration(i int) {
	if c.OnIteration != nil {
		c.OnIteration(i)
	}
}

func (c Callbacks) finalAnswer(text string) {
	if c.OnFinalAnswer != nil {
		c.OnFinalAnswer(text)
	}
}
