package controltool_test

import (
	"testing"

	"github.com/kairoslabs/agentcore/pkg/memory"
	"github.com/kairoslabs/agentcore/pkg/tool/controltool"
	"github.com/stretchr/testify/require"
)

func TestMemoryTools_RememberRecallForget(t *testing.T) {
	store := memory.NewMemoryKvStore()
	tools := controltool.MemoryTools(store, "my-agent")
	rememberTool, recallTool, forgetTool := tools[0], tools[1], tools[2]

	res, err := rememberTool.Execute(t.Context(), map[string]any{"key": "fav_color", "value": "the user's favorite color is blue"})
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = recallTool.Execute(t.Context(), map[string]any{"query": "favorite color"})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Contains(t, res.Output, "fav_color")

	res, err = forgetTool.Execute(t.Context(), map[string]any{"key": "fav_color"})
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = recallTool.Execute(t.Context(), map[string]any{"query": "favorite color"})
	require.NoError(t, err)
	require.Equal(t, "no memories matched", res.Output)
}

func TestMemoryTools_ScopedToAgentNamespace(t *testing.T) {
	store := memory.NewMemoryKvStore()
	agentA := controltool.MemoryTools(store, "agent-a")
	agentB := controltool.MemoryTools(store, "agent-b")

	_, err := agentA[0].Execute(t.Context(), map[string]any{"key": "k", "value": "secret to agent-a"})
	require.NoError(t, err)

	res, err := agentB[1].Execute(t.Context(), map[string]any{"query": "secret"})
	require.NoError(t, err)
	require.Equal(t, "no memories matched", res.Output)
}
