package contextbuf

import (
	"context"

	"github.com/kairoslabs/agentcore/pkg/message"
)

// SlidingWindowCompressor keeps the system message plus the last N
// messages, a pure in-memory operation with no external calls —
// grounded on the teacher's buffer_window history strategy, generalized
// from a per-session LIFO window to a one-shot Compressor.
type SlidingWindowCompressor struct {
	WindowSize int
}

// NewSlidingWindowCompressor builds a compressor retaining the system
// message plus the last windowSize messages.
func NewSlidingWindowCompressor(windowSize int) *SlidingWindowCompressor {
	return &SlidingWindowCompressor{WindowSize: windowSize}
}

func (c *SlidingWindowCompressor) Compress(ctx context.Context, messages []message.Message) ([]message.Message, error) {
	if len(messages) == 0 {
		return messages, nil
	}
	system := messages[0]
	rest := messages[1:]

	if len(rest) <= c.WindowSize {
		return message.CloneAll(messages), nil
	}

	tail := rest[len(rest)-c.WindowSize:]
	out := make([]message.Message, 0, 1+len(tail))
	out = append(out, system.Clone())
	out = append(out, message.CloneAll(tail)...)
	return out, nil
}
