// Package agenttool exposes a driver's SubAgentRegistry as the single
// agent_tool control tool named in spec §4.2's built-in tools table: one
// tool, dispatching to a named sub-agent by a name argument, rather than
// one tool instance per registered sub-agent.
package agenttool

import (
	"context"
	"fmt"

	"github.com/kairoslabs/agentcore/pkg/agent"
	"github.com/kairoslabs/agentcore/pkg/tool"
)

// New builds the agent_tool tool bound to registry. The model supplies
// the target sub-agent's name and a task string; only those two strings
// cross into the sub-agent, and only its answer string crosses back
// (spec §4.4's isolation invariant).
func New(registry *agent.SubAgentRegistry) tool.Tool {
	return tool.Func{
		NameField:        "agent_tool",
		DescriptionField: "Delegate a task to a named sub-agent and return its final answer.",
		SchemaField: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "The registered name of the sub-agent to invoke.",
				},
				"task": map[string]any{
					"type":        "string",
					"description": "The task to delegate, as a self-contained instruction.",
				},
			},
			"required": []string{"name", "task"},
		},
		ExecFunc: func(ctx context.Context, args map[string]any) (tool.Result, error) {
			name, _ := args["name"].(string)
			task, _ := args["task"].(string)
			if name == "" {
				return tool.Result{Success: false, Output: "agent_tool: name is required"}, nil
			}

			answer, err := registry.Execute(ctx, name, task)
			if err != nil {
				return tool.Result{Success: false, Output: fmt.Sprintf("agent_tool: %v", err)}, nil
			}
			return tool.Result{Success: true, Output: answer}, nil
		},
	}
}
