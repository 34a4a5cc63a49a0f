// Package contextbuf implements the ContextBuffer and its pluggable
// compression strategies (spec §4.3): a token-budget-aware message
// sequence that compresses itself, once, when it would exceed budget.
package contextbuf

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/kairoslabs/agentcore/pkg/message"
)

// Estimator counts the token cost of a message sequence. It is
// pluggable: the conservative chars/4 default requires no external
// dependency, while TiktokenEstimator gives model-accurate counts.
type Estimator interface {
	Estimate(messages []message.Message) int
}

// CharEstimator approximates token count as total characters divided by
// four, rounded up — the conservative approximation named in spec §4.3.
type CharEstimator struct{}

func (CharEstimator) Estimate(messages []message.Message) int {
	chars := 0
	for _, m := range messages {
		chars += len(m.Content)
		for _, tc := range m.ToolCalls {
			chars += len(tc.Name)
			for k, v := range tc.Arguments {
				chars += len(k) + len(fmt.Sprint(v))
			}
		}
	}
	return (chars + 3) / 4
}

// TiktokenEstimator gives a model-accurate token count using the same
// encoding-per-model lookup and per-message overhead accounting as the
// teacher's TokenCounter.
type TiktokenEstimator struct {
	mu       sync.RWMutex
	encoding *tiktoken.Tiktoken
}

// NewTiktokenEstimator resolves the encoding for model, falling back to
// cl100k_base when the model is unrecognized.
func NewTiktokenEstimator(model string) (*TiktokenEstimator, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("contextbuf: resolving encoding: %w", err)
		}
	}
	return &TiktokenEstimator{encoding: enc}, nil
}

// Estimate counts tokens using OpenAI's documented per-message overhead
// convention (3 tokens of framing per message, plus 3 for reply priming).
func (e *TiktokenEstimator) Estimate(messages []message.Message) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	total := 0
	for _, m := range messages {
		total += 3
		total += len(e.encoding.Encode(string(m.Role), nil, nil))
		total += len(e.encoding.Encode(m.Content, nil, nil))
	}
	total += 3
	return total
}
