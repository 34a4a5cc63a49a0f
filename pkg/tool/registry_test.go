package tool_test

import (
	"context"
	"testing"

	"github.com/kairoslabs/agentcore/pkg/tool"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RejectsDuplicateRegistration(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(addTool()))
	err := reg.Register(addTool())
	require.Error(t, err)
}

func TestRegistry_DefinitionsHonorsAllowList(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(addTool()))
	require.NoError(t, reg.Register(tool.Func{
		NameField: "subtract",
		ExecFunc:  func(ctx context.Context, args map[string]any) (tool.Result, error) { return tool.Result{}, nil },
	}))

	all := reg.Definitions(nil)
	require.Len(t, all, 2)

	onlyAdd := reg.Definitions([]string{"add"})
	require.Len(t, onlyAdd, 1)
	require.Equal(t, "add", onlyAdd[0].Name)
}

type decodeArgs struct {
	Query string `json:"query" jsonschema:"required"`
	Limit int    `json:"limit,omitempty"`
}

func TestSchemaForAndDecode(t *testing.T) {
	schema := tool.SchemaFor[decodeArgs]()
	require.Equal(t, "object", schema["type"])

	decoded, err := tool.Decode[decodeArgs](map[string]any{"query": "hello", "limit": 5.0})
	require.NoError(t, err)
	require.Equal(t, "hello", decoded.Query)
	require.Equal(t, 5, decoded.Limit)
}
