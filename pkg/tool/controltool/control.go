// Package controltool provides the built-in tools every ReactDriver
// registers according to configuration: loop termination, planning, and
// DAG manipulation (spec §4.2's built-in control tools table). They are
// never user-removable while their owning feature is enabled.
package controltool

import (
	"context"
	"fmt"

	"github.com/kairoslabs/agentcore/pkg/task"
	"github.com/kairoslabs/agentcore/pkg/tool"
)

// FinalAnswer builds the terminal tool: one string argument that ends
// the ReAct loop and becomes its return value. The driver recognizes
// this tool by name rather than by interface, matching the teacher's
// exit_loop sentinel-tool convention.
func FinalAnswer() tool.Tool {
	return tool.Func{
		NameField:        "final_answer",
		DescriptionField: "Call this with your final answer once the task is complete. Ends the reasoning loop.",
		SchemaField: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"answer": map[string]any{
					"type":        "string",
					"description": "The final answer to return to the caller.",
				},
			},
			"required": []string{"answer"},
		},
		ExecFunc: func(ctx context.Context, args map[string]any) (tool.Result, error) {
			answer, _ := args["answer"].(string)
			return tool.Result{Success: true, Output: answer}, nil
		},
	}
}

// Plan records a stated intent and returns an acknowledgement. It has no
// side effects beyond letting the model think out loud in a structured
// way before acting.
func Plan() tool.Tool {
	return tool.Func{
		NameField:        "plan",
		DescriptionField: "Record your plan for completing the task before taking action.",
		SchemaField: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"steps": map[string]any{
					"type":        "string",
					"description": "A short description of the intended steps.",
				},
			},
			"required": []string{"steps"},
		},
		ExecFunc: func(ctx context.Context, args map[string]any) (tool.Result, error) {
			steps, _ := args["steps"].(string)
			return tool.Result{Success: true, Output: "plan recorded: " + steps}, nil
		},
	}
}

// TaskTools returns the five DAG-manipulation tools bound to a single
// task.Manager: create_task, update_task, list_tasks,
// get_execution_order, visualize_dependencies.
func TaskTools(mgr *task.Manager) []tool.Tool {
	return []tool.Tool{
		createTask(mgr),
		updateTask(mgr),
		listTasks(mgr),
		getExecutionOrder(mgr),
		visualizeDependencies(mgr),
	}
}

func createTask(mgr *task.Manager) tool.Tool {
	return tool.Func{
		NameField:        "create_task",
		DescriptionField: "Add a task to the execution plan's dependency graph.",
		SchemaField: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":           map[string]any{"type": "string"},
				"description":  map[string]any{"type": "string"},
				"dependencies": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"priority":     map[string]any{"type": "integer"},
			},
			"required": []string{"id", "description"},
		},
		ExecFunc: func(ctx context.Context, args map[string]any) (tool.Result, error) {
			id, _ := args["id"].(string)
			desc, _ := args["description"].(string)
			priority := 5
			if p, ok := args["priority"].(float64); ok {
				priority = int(p)
			}
			var deps []string
			if raw, ok := args["dependencies"].([]any); ok {
				for _, d := range raw {
					if s, ok := d.(string); ok {
						deps = append(deps, s)
					}
				}
			}
			t := task.Task{ID: id, Description: desc, Dependencies: deps, Priority: priority}
			if err := mgr.AddTask(t); err != nil {
				return tool.Result{Success: false, Output: err.Error()}, nil
			}
			return tool.Result{Success: true, Output: fmt.Sprintf("task %q created", id)}, nil
		},
	}
}

func updateTask(mgr *task.Manager) tool.Tool {
	return tool.Func{
		NameField:        "update_task",
		DescriptionField: "Transition a task's status (pending, running, completed, failed, skipped).",
		SchemaField: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":     map[string]any{"type": "string"},
				"status": map[string]any{"type": "string"},
				"result": map[string]any{"type": "string"},
			},
			"required": []string{"id", "status"},
		},
		ExecFunc: func(ctx context.Context, args map[string]any) (tool.Result, error) {
			id, _ := args["id"].(string)
			statusStr, _ := args["status"].(string)
			result, _ := args["result"].(string)
			if err := mgr.Update(id, task.Status(statusStr), result); err != nil {
				return tool.Result{Success: false, Output: err.Error()}, nil
			}
			return tool.Result{Success: true, Output: fmt.Sprintf("task %q updated to %s", id, statusStr)}, nil
		},
	}
}

func listTasks(mgr *task.Manager) tool.Tool {
	return tool.Func{
		NameField:        "list_tasks",
		DescriptionField: "List all tasks with their current status.",
		SchemaField:      map[string]any{"type": "object", "properties": map[string]any{}},
		ExecFunc: func(ctx context.Context, args map[string]any) (tool.Result, error) {
			tasks := mgr.List()
			out := ""
			for _, t := range tasks {
				out += fmt.Sprintf("%s [%s]: %s\n", t.ID, t.Status, t.Description)
			}
			return tool.Result{Success: true, Output: out}, nil
		},
	}
}

func getExecutionOrder(mgr *task.Manager) tool.Tool {
	return tool.Func{
		NameField:        "get_execution_order",
		DescriptionField: "Return task ids in a valid execution order honoring dependencies and priority.",
		SchemaField:      map[string]any{"type": "object", "properties": map[string]any{}},
		ExecFunc: func(ctx context.Context, args map[string]any) (tool.Result, error) {
			order, err := mgr.TopologicalOrder()
			if err != nil {
				return tool.Result{Success: false, Output: err.Error()}, nil
			}
			out := ""
			for _, id := range order {
				out += id + "\n"
			}
			return tool.Result{Success: true, Output: out}, nil
		},
	}
}

func visualizeDependencies(mgr *task.Manager) tool.Tool {
	return tool.Func{
		NameField:        "visualize_dependencies",
		DescriptionField: "Render the task dependency graph as a Mermaid flowchart.",
		SchemaField:      map[string]any{"type": "object", "properties": map[string]any{}},
		ExecFunc: func(ctx context.Context, args map[string]any) (tool.Result, error) {
			return tool.Result{Success: true, Output: mgr.VisualizeDependencies()}, nil
		},
	}
}
