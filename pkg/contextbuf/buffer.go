package contextbuf

import (
	"context"
	"fmt"

	"github.com/kairoslabs/agentcore/pkg/message"
)

// Compressor reduces a message sequence to fit within budget. The system
// message (index 0) MUST be preserved. Compressors are idempotent on an
// already-short buffer: when the buffer has fewer messages than the
// compressor's internal tail size, it returns the input unchanged.
type Compressor interface {
	Compress(ctx context.Context, messages []message.Message) ([]message.Message, error)
}

// CompressionError wraps a failed compression attempt; per spec §4.3
// the buffer is not mutated when a compressor errors.
type CompressionError struct {
	Stage string
	Err   error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("contextbuf: compression stage %q failed: %v", e.Stage, e.Err)
}

func (e *CompressionError) Unwrap() error { return e.Err }

// Buffer is an ordered message sequence with a token budget. Prepare is
// idempotent: within budget, it is a no-op; over budget, it invokes the
// installed compressor exactly once and installs the result.
type Buffer struct {
	messages   []message.Message
	budget     int
	estimator  Estimator
	compressor Compressor
}

// New builds a buffer seeded with messages (typically starting with the
// system message), a token budget, and an estimator.
func New(messages []message.Message, budget int, estimator Estimator) *Buffer {
	return &Buffer{
		messages:  message.CloneAll(messages),
		budget:    budget,
		estimator: estimator,
	}
}

// SetCompressor installs the compressor invoked by Prepare when over
// budget. A nil compressor leaves an over-budget buffer unchanged.
func (b *Buffer) SetCompressor(c Compressor) { b.compressor = c }

// Append adds a message to the end of the buffer.
func (b *Buffer) Append(m message.Message) { b.messages = append(b.messages, m) }

// Messages returns a defensive copy of the current sequence.
func (b *Buffer) Messages() []message.Message { return message.CloneAll(b.messages) }

// Estimate returns the current token estimate.
func (b *Buffer) Estimate() int { return b.estimator.Estimate(b.messages) }

// Prepare returns the sequence to send to the LLM: unchanged if within
// budget, or the one-shot compressor's output if over budget. A
// compression failure is surfaced as an error and leaves the buffer
// unmodified, per the Open Question resolution to abort rather than
// silently proceed over budget.
func (b *Buffer) Prepare(ctx context.Context) ([]message.Message, error) {
	if b.estimator.Estimate(b.messages) <= b.budget {
		return message.CloneAll(b.messages), nil
	}
	if b.compressor == nil {
		return message.CloneAll(b.messages), nil
	}

	compressed, err := b.compressor.Compress(ctx, b.messages)
	if err != nil {
		return nil, &CompressionError{Stage: "prepare", Err: err}
	}
	if len(compressed) == 0 || compressed[0].Role != message.RoleSystem {
		return nil, &CompressionError{Stage: "prepare", Err: fmt.Errorf("compressor dropped the system message")}
	}

	b.messages = compressed
	return message.CloneAll(b.messages), nil
}
