package agent

import (
	"context"
	"time"

	"github.com/kairoslabs/agentcore/pkg/llm"
	"github.com/kairoslabs/agentcore/pkg/message"
)

// runLoop drives the think→act→observe cycle until the model calls
// final_answer or the iteration budget is exhausted (spec §4.1, §8's
// universal invariant: at most MaxIterations+1 LLM calls — the +1 is the
// initial call at i==0, made before the first iteration increment, so
// on_iteration/EventIteration fire at most MaxIterations times, once for
// each i in [1, MaxIterations]). events is optional; when non-nil, one
// Event is sent per lifecycle occurrence in the order described by
// Callbacks.
func (d *Driver) runLoop(ctx context.Context, events chan<- Event) (string, error) {
	defs := d.dispatcher.Registry().Definitions(d.cfg.AllowList)
	tools := make([]llm.ToolDefinition, len(defs))
	for i, def := range defs {
		tools[i] = llm.ToolDefinition{Name: def.Name, Description: def.Description, Parameters: def.Parameters}
	}

	nudged := false

	for i := 0; i <= d.cfg.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		iterCtx, iterSpan := d.tracer.StartIteration(ctx, d.cfg.Name, i)

		d.mu.Lock()
		msgs, err := d.buffer.Prepare(iterCtx)
		d.mu.Unlock()
		if err != nil {
			iterSpan.End()
			return "", err
		}

		d.callbacks.thinkStart(msgs)

		llmCtx, llmSpan := d.tracer.StartLLMCall(iterCtx, d.cfg.Name)
		llmStart := time.Now()
		resp, err := d.gateway.Chat(llmCtx, llm.Request{
			Messages:       msgs,
			Tools:          tools,
			ToolChoice:     "auto",
			ResponseFormat: d.cfg.ResponseFormat,
			Temperature:    d.cfg.Temperature,
			MaxTokens:      d.cfg.MaxTokens,
		})
		d.metrics.ObserveLLMCall(d.cfg.Name, err == nil, time.Since(llmStart))
		llmSpan.End()
		if err != nil {
			iterSpan.End()
			return "", err
		}

		assistant := message.NewAssistant(resp.Content, resp.ToolCalls)
		d.mu.Lock()
		d.buffer.Append(assistant)
		d.mu.Unlock()

		d.callbacks.thinkEnd(assistant)
		if resp.Content != "" {
			d.emit(ctx, events, Event{Type: EventToken, Token: resp.Content})
		}

		if answer, ok := finalAnswerIn(resp.ToolCalls); ok {
			d.callbacks.finalAnswer(answer)
			d.emit(ctx, events, Event{Type: EventFinalAnswer, FinalAnswer: answer})
			iterSpan.End()
			return answer, nil
		}

		if len(resp.ToolCalls) == 0 {
			if nudged || i == d.cfg.MaxIterations {
				iterSpan.End()
				break
			}
			nudged = true
			d.mu.Lock()
			d.buffer.Append(message.NewUser(nudgeMessage))
			d.mu.Unlock()
			if i > 0 {
				d.callbacks.iteration(i)
				d.emit(ctx, events, Event{Type: EventIteration, Iteration: i})
				d.metrics.ObserveIteration(d.cfg.Name)
			}
			iterSpan.End()
			continue
		}
		nudged = false

		for _, call := range resp.ToolCalls {
			d.callbacks.toolStart(call.Name, call.Arguments)
			d.emit(ctx, events, Event{Type: EventToolStart, ToolName: call.Name, ToolArgs: call.Arguments})
		}

		results := d.dispatcher.ExecuteBatch(iterCtx, resp.ToolCalls)

		for idx, result := range results {
			name := resp.ToolCalls[idx].Name
			if result.Success {
				d.callbacks.toolEnd(name, result)
				d.emit(ctx, events, Event{Type: EventToolEnd, ToolName: name, ToolResult: result})
			} else {
				d.callbacks.toolError(name, toolFailure(result))
				d.emit(ctx, events, Event{Type: EventToolError, ToolName: name, ToolErr: toolFailure(result)})
			}

			d.mu.Lock()
			d.buffer.Append(message.NewToolResult(result))
			d.mu.Unlock()

			if !result.Success && d.dispatcher.ErrorsAreFatal() {
				iterSpan.End()
				return "", toolFailure(result)
			}
		}

		if i > 0 {
			d.callbacks.iteration(i)
			d.emit(ctx, events, Event{Type: EventIteration, Iteration: i})
			d.metrics.ObserveIteration(d.cfg.Name)
		}
		iterSpan.End()
	}

	d.metrics.ObserveIterationLimitReached(d.cfg.Name)
	return "", &IterationLimitReached{MaxIterations: d.cfg.MaxIterations}
}

// finalAnswerIn scans calls for the final_answer control tool, extracting
// its answer argument directly rather than waiting for the dispatcher's
// ToolResult — the spec's wording is "its argument is the answer"
// (spec §4.1, §4.2).
func finalAnswerIn(calls []message.ToolCall) (string, bool) {
	for _, call := range calls {
		if call.Name == "final_answer" {
			answer, _ := call.Arguments["answer"].(string)
			return answer, true
		}
	}
	return "", false
}

// toolFailure turns a failed ToolResult into an error value for callbacks
// and fatal-error propagation.
func toolFailure(r message.ToolResult) error {
	return &toolError{toolCallID: r.ToolCallID, message: r.Error}
}

type toolError struct {
	toolCallID string
	message    string
}

func (e *toolError) Error() string { return "tool call " + e.toolCallID + " failed: " + e.message }

// emit sends ev on events if the channel is non-nil. The channel is
// buffered; a caller that stops draining it stalls the loop until ctx is
// cancelled, after which the event is dropped, per ExecuteStream's
// documented drain contract.
func (d *Driver) emit(ctx context.Context, events chan<- Event, ev Event) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
