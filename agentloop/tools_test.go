package agentloop

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopExecutor(ctx context.Context, args json.RawMessage) (map[string]interface{}, error) {
	return nil, nil
}

func TestToolRegistry(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.Register(RegisteredTool{Definition: ToolDefinition{Name: "zeta"}, Executor: noopExecutor}))
	require.NoError(t, r.Register(RegisteredTool{
		Definition: ToolDefinition{
			Name:       "alpha",
			Parameters: map[string]interface{}{"type": "object"},
		},
		Executor: noopExecutor,
	}))

	assert.Equal(t, 2, r.Count())
	assert.Equal(t, []string{"alpha", "zeta"}, r.Names())
	assert.NotNil(t, r.Get("alpha"))
	assert.Nil(t, r.Get("missing"))

	defs := r.ToolDefinitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "alpha", defs[0].Name)
	assert.Equal(t, "object", defs[0].Parameters["type"])

	r.Unregister("zeta")
	assert.Equal(t, []string{"alpha"}, r.Names())
}

func TestToolRegistryRejectsIncompleteTools(t *testing.T) {
	r := NewToolRegistry()
	assert.Error(t, r.Register(RegisteredTool{Executor: noopExecutor}))
	assert.Error(t, r.Register(RegisteredTool{Definition: ToolDefinition{Name: "x"}}))
	assert.Zero(t, r.Count())
}

func TestParseToolArguments(t *testing.T) {
	args, err := ParseToolArguments(json.RawMessage(`{"title":"Pets","version":2}`))
	require.NoError(t, err)
	assert.Equal(t, "Pets", args["title"])
	assert.Equal(t, float64(2), args["version"])

	args, err = ParseToolArguments(nil)
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = ParseToolArguments(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.NotNil(t, args)

	_, err = ParseToolArguments(json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}
