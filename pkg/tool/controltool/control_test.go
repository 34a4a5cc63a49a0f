package controltool_test

import (
	"testing"

	"github.com/kairoslabs/agentcore/pkg/task"
	"github.com/kairoslabs/agentcore/pkg/tool/controltool"
	"github.com/stretchr/testify/require"
)

func TestFinalAnswer_ReturnsAnswerAsOutput(t *testing.T) {
	tl := controltool.FinalAnswer()
	res, err := tl.Execute(t.Context(), map[string]any{"answer": "7"})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "7", res.Output)
}

func TestTaskTools_CreateListAndOrder(t *testing.T) {
	mgr := task.New()
	tools := controltool.TaskTools(mgr)

	createTool, listTool, orderTool := tools[0], tools[2], tools[3]

	res, err := createTool.Execute(t.Context(), map[string]any{"id": "a", "description": "first"})
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = createTool.Execute(t.Context(), map[string]any{
		"id": "b", "description": "second", "dependencies": []any{"a"},
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = listTool.Execute(t.Context(), nil)
	require.NoError(t, err)
	require.Contains(t, res.Output, "a [pending]")
	require.Contains(t, res.Output, "b [pending]")

	res, err = orderTool.Execute(t.Context(), nil)
	require.NoError(t, err)
	require.Equal(t, "a\nb\n", res.Output)
}

func TestVisualizeDependencies_EmitsMermaid(t *testing.T) {
	mgr := task.New()
	require.NoError(t, mgr.AddTask(task.Task{ID: "a", Description: "root"}))
	tools := controltool.TaskTools(mgr)
	vizTool := tools[4]

	res, err := vizTool.Execute(t.Context(), nil)
	require.NoError(t, err)
	require.Contains(t, res.Output, "flowchart TD")
}
