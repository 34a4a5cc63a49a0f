package controltool

import (
	"context"
	"fmt"

	"github.com/kairoslabs/agentcore/pkg/memory"
	"github.com/kairoslabs/agentcore/pkg/tool"
)

// MemoryTools returns remember, recall, and forget bound to a KvStore
// and scoped to the fixed namespace [agentName, "memories"] (spec §4.2's
// built-in control tools table).
func MemoryTools(store memory.KvStore, agentName string) []tool.Tool {
	ns := []string{agentName, "memories"}
	return []tool.Tool{
		remember(store, ns),
		recall(store, ns),
		forget(store, ns),
	}
}

func remember(store memory.KvStore, ns []string) tool.Tool {
	return tool.Func{
		NameField:        "remember",
		DescriptionField: "Save a fact for later recall, optionally with an importance score.",
		SchemaField: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"key":        map[string]any{"type": "string"},
				"value":      map[string]any{"type": "string"},
				"importance": map[string]any{"type": "number"},
			},
			"required": []string{"key", "value"},
		},
		ExecFunc: func(ctx context.Context, args map[string]any) (tool.Result, error) {
			key, _ := args["key"].(string)
			value, _ := args["value"].(string)

			var importance *float64
			if raw, ok := args["importance"].(float64); ok {
				importance = &raw
			}

			if err := store.Put(ctx, ns, key, value, importance); err != nil {
				return tool.Result{Success: false, Output: err.Error()}, nil
			}
			return tool.Result{Success: true, Output: fmt.Sprintf("remembered %q", key)}, nil
		},
	}
}

func recall(store memory.KvStore, ns []string) tool.Tool {
	return tool.Func{
		NameField:        "recall",
		DescriptionField: "Search remembered facts by keyword, most relevant first.",
		SchemaField: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
				"limit": map[string]any{"type": "integer"},
			},
			"required": []string{"query"},
		},
		ExecFunc: func(ctx context.Context, args map[string]any) (tool.Result, error) {
			query, _ := args["query"].(string)
			limit := 5
			if l, ok := args["limit"].(float64); ok && l > 0 {
				limit = int(l)
			}

			results, err := store.Search(ctx, ns, query, limit)
			if err != nil {
				return tool.Result{Success: false, Output: err.Error()}, nil
			}
			if len(results) == 0 {
				return tool.Result{Success: true, Output: "no memories matched"}, nil
			}

			out := ""
			for _, r := range results {
				out += fmt.Sprintf("%s: %v\n", r.Key, r.Item.Value)
			}
			return tool.Result{Success: true, Output: out}, nil
		},
	}
}

func forget(store memory.KvStore, ns []string) tool.Tool {
	return tool.Func{
		NameField:        "forget",
		DescriptionField: "Delete a remembered fact by key.",
		SchemaField: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"key": map[string]any{"type": "string"},
			},
			"required": []string{"key"},
		},
		ExecFunc: func(ctx context.Context, args map[string]any) (tool.Result, error) {
			key, _ := args["key"].(string)
			if err := store.Delete(ctx, ns, key); err != nil {
				return tool.Result{Success: false, Output: err.Error()}, nil
			}
			return tool.Result{Success: true, Output: fmt.Sprintf("forgot %q", key)}, nil
		},
	}
}
