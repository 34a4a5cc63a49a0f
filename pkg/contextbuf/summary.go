package contextbuf

import (
	"context"
	"fmt"

	"github.com/kairoslabs/agentcore/pkg/llm"
	"github.com/kairoslabs/agentcore/pkg/message"
)

const summarizationPrompt = "Summarize the following conversation concisely, preserving facts, decisions, and outstanding action items. Write the summary as a single paragraph."

// SummaryCompressor partitions the buffer into (system, old, tail),
// sends old to an LlmGateway with a summarization prompt, and replaces
// it with one synthetic system-role message between the original system
// message and the tail (spec §4.3).
type SummaryCompressor struct {
	Gateway     llm.Gateway
	TailSize    int
	Temperature float64
}

// NewSummaryCompressor builds a compressor that keeps the last tailSize
// messages verbatim and summarizes everything older via gateway.
func NewSummaryCompressor(gateway llm.Gateway, tailSize int) *SummaryCompressor {
	return &SummaryCompressor{Gateway: gateway, TailSize: tailSize, Temperature: 0.2}
}

func (c *SummaryCompressor) Compress(ctx context.Context, messages []message.Message) ([]message.Message, error) {
	if len(messages) == 0 {
		return messages, nil
	}
	system := messages[0]
	rest := messages[1:]

	if len(rest) <= c.TailSize {
		return message.CloneAll(messages), nil
	}

	old := rest[:len(rest)-c.TailSize]
	tail := rest[len(rest)-c.TailSize:]

	req := llm.Request{
		Messages:    append([]message.Message{message.NewSystem(summarizationPrompt)}, old...),
		Temperature: &c.Temperature,
	}
	resp, err := c.Gateway.Chat(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("contextbuf: summarizing %d messages: %w", len(old), err)
	}

	summaryMsg := message.NewSystem("Summary of earlier conversation: " + resp.Content)

	out := make([]message.Message, 0, 2+len(tail))
	out = append(out, system.Clone(), summaryMsg)
	out = append(out, message.CloneAll(tail)...)
	return out, nil
}
