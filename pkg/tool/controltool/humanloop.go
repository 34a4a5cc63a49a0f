package controltool

import (
	"context"

	"github.com/kairoslabs/agentcore/pkg/approval"
	"github.com/kairoslabs/agentcore/pkg/tool"
)

// HumanInLoop builds the human_in_loop tool: a free-text request routed
// through an ApprovalGate's text channel, distinct from the dispatcher's
// own pre-call approval gating (spec §4.2).
func HumanInLoop(gate approval.Gate) tool.Tool {
	return tool.Func{
		NameField:        "human_in_loop",
		DescriptionField: "Ask a human operator a free-text question and wait for their reply.",
		SchemaField: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{"type": "string"},
			},
			"required": []string{"question"},
		},
		ExecFunc: func(ctx context.Context, args map[string]any) (tool.Result, error) {
			question, _ := args["question"].(string)
			decision, err := gate.Request(ctx, question, nil)
			if err != nil {
				return tool.Result{Success: false, Output: err.Error()}, nil
			}
			if decision.Outcome != approval.Approved {
				reason := decision.Reason
				if reason == "" {
					reason = decision.Outcome.String()
				}
				return tool.Result{Success: false, Output: "no answer received: " + reason}, nil
			}
			return tool.Result{Success: true, Output: decision.Reason}, nil
		},
	}
}
