package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/martinemde/agentconsole/internal/config"
	"github.com/martinemde/agentconsole/unifiedllm"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigCommandAppliesFlags(t *testing.T) {
	t.Setenv("AGENTCONSOLE_LLM_API_KEY", "sk-secret")

	out, err := execute(t, "config", "--provider", "openai", "--model", "gpt-4o", "--mcp-url", "http://tools:9000/sse")
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-secret")

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "http://tools:9000/sse", cfg.MCP.URL)
	assert.Equal(t, "********", cfg.LLM.APIKey)
	assert.Equal(t, config.DefaultConfig().MCP.Timeout, cfg.MCP.Timeout)
}

func TestConfigCommandRejectsInvalidConfig(t *testing.T) {
	t.Setenv("AGENTCONSOLE_SESSION_MAX_TOOL_ROUNDS", "-1")

	_, err := execute(t, "config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session.max_tool_rounds")
}

func TestModelsCommandFiltersByProvider(t *testing.T) {
	out, err := execute(t, "models", "--provider", "anthropic")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(unifiedllm.ListModels("anthropic"))+1)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	for _, line := range lines[1:] {
		assert.Contains(t, line, "anthropic")
	}
}

func TestModelsCommandUnknownProvider(t *testing.T) {
	out, err := execute(t, "models", "--provider", "nobody")
	require.NoError(t, err)
	assert.Equal(t, "No models for provider \"nobody\".\n", out)
}

func TestConfigSchema(t *testing.T) {
	out, err := execute(t, "config", "--schema")
	require.NoError(t, err)

	var schema struct {
		Properties map[string]struct {
			Properties map[string]interface{} `json:"properties"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Contains(t, schema.Properties, "llm")
	assert.Contains(t, schema.Properties, "session")
	assert.Contains(t, schema.Properties["llm"].Properties, "api_key")
	assert.Contains(t, schema.Properties["session"].Properties, "max_tool_rounds")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Generate a spec.", firstLine("  Generate a spec.\nMore detail here."))
	assert.Equal(t, "", firstLine(""))
}
