package unifiedllm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModelInfo(t *testing.T) {
	info := GetModelInfo("gemini-2.5-flash")
	require.NotNil(t, info)
	assert.Equal(t, "gemini", info.Provider)
	assert.True(t, info.SupportsTools)

	alias := GetModelInfo("FLASH")
	require.NotNil(t, alias)
	assert.Equal(t, "gemini-2.5-flash", alias.ID)

	assert.Nil(t, GetModelInfo("no-such-model"))
}

func TestListModels(t *testing.T) {
	assert.Len(t, ListModels(""), len(Models))
	for _, m := range ListModels("openai") {
		assert.Equal(t, "openai", m.Provider)
	}
	assert.Empty(t, ListModels("nobody"))
}

func TestDefaultModel(t *testing.T) {
	require.NotNil(t, DefaultModel("gemini"))
	assert.Equal(t, "gemini-2.5-flash", DefaultModel("gemini").ID)
	assert.Equal(t, "claude-sonnet-4-5", DefaultModel("anthropic").ID)
	assert.Nil(t, DefaultModel("nobody"))
}
