package contextbuf

import (
	"context"
	"fmt"

	"github.com/kairoslabs/agentcore/pkg/message"
)

// StagedCompressor chains compressors, feeding each stage's output to
// the next. The typical pipeline is sliding-window (cheap trim) then
// summary (expensive but semantic), per spec §4.3.
type StagedCompressor struct {
	Stages []Compressor
}

// NewStagedCompressor builds a pipeline running stages in order.
func NewStagedCompressor(stages ...Compressor) *StagedCompressor {
	return &StagedCompressor{Stages: stages}
}

func (c *StagedCompressor) Compress(ctx context.Context, messages []message.Message) ([]message.Message, error) {
	current := messages
	for i, stage := range c.Stages {
		next, err := stage.Compress(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("contextbuf: staged compressor stage %d: %w", i, err)
		}
		current = next
	}
	return current, nil
}
