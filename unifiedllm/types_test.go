package unifiedllm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageConstructors(t *testing.T) {
	assert.Equal(t, RoleSystem, SystemMessage("be brief").Role)
	assert.Equal(t, "be brief", SystemMessage("be brief").TextContent())
	assert.Equal(t, RoleUser, UserMessage("hi").Role)

	msg := ToolResultMessage("call-1", `{"valid":true}`, true)
	assert.Equal(t, RoleTool, msg.Role)
	require.Len(t, msg.Content, 1)
	require.NotNil(t, msg.Content[0].ToolResult)
	assert.Equal(t, "call-1", msg.Content[0].ToolResult.ToolCallID)
	assert.True(t, msg.Content[0].ToolResult.IsError)
	assert.Empty(t, msg.TextContent())
}

func TestMessageTextAndToolCalls(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		Content: []ContentPart{
			TextPart("Validating "),
			ToolCallPart("c1", "validate", json.RawMessage(`{"spec":"x"}`)),
			TextPart("now."),
			{Kind: ContentToolCall},
		},
	}

	assert.Equal(t, "Validating now.", msg.TextContent())
	calls := msg.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "validate", calls[0].Name)
	assert.JSONEq(t, `{"spec":"x"}`, string(calls[0].Arguments))
}

func TestResponseAccessors(t *testing.T) {
	resp := Response{Message: Message{
		Role: RoleAssistant,
		Content: []ContentPart{
			{Kind: ContentThinking, Thinking: &ThinkingData{Text: "plan"}},
			{Kind: ContentThinking, Thinking: &ThinkingData{Text: "secret", Redacted: true}},
			TextPart("Done."),
			ToolCallPart("c2", "generate", nil),
		},
	}}

	assert.Equal(t, "Done.", resp.Text())
	require.Len(t, resp.ToolCalls(), 1)
	assert.Equal(t, "c2", resp.ToolCalls()[0].ID)
}
