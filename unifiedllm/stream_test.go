package unifiedllm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamAccumulatorAssemblesParts(t *testing.T) {
	acc := NewStreamAccumulator()
	tc := ToolCall{ID: "call_1", Name: "create_spec", Arguments: json.RawMessage(`{"title":"x"}`)}

	for _, ev := range []StreamEvent{
		{Type: StreamStart},
		{Type: ReasoningDelta, ReasoningDelta: "thinking"},
		{Type: TextDelta, TextID: "a", Delta: "Hel"},
		{Type: TextDelta, TextID: "b", Delta: " there"},
		{Type: TextDelta, TextID: "a", Delta: "lo"},
		{Type: ToolCallEnd, ToolCall: &tc},
		{Type: ToolCallEnd},
	} {
		acc.Process(ev)
	}

	require.NoError(t, acc.Err())
	resp := acc.Response()
	assert.Equal(t, "Hello there", resp.Text())
	require.NotNil(t, resp.Message.Content[0].Thinking)
	assert.Equal(t, "thinking", resp.Message.Content[0].Thinking.Text)
	assert.Equal(t, "tool_calls", resp.FinishReason.Reason)
	require.Len(t, resp.ToolCalls(), 1)
	assert.Equal(t, "create_spec", resp.ToolCalls()[0].Name)
}

func TestStreamAccumulatorPrefersFinishResponse(t *testing.T) {
	acc := NewStreamAccumulator()
	final := &Response{ID: "final", Message: Message{Role: RoleAssistant, Content: []ContentPart{TextPart("complete")}}}
	acc.Process(StreamEvent{Type: TextDelta, Delta: "partial"})
	acc.Process(StreamEvent{Type: StreamFinish, Response: final})

	assert.Same(t, final, acc.Response())
}

func TestStreamAccumulatorFinishReasonOverride(t *testing.T) {
	acc := NewStreamAccumulator()
	acc.Process(StreamEvent{Type: TextDelta, Delta: "cut"})
	acc.Process(StreamEvent{
		Type:         StreamFinish,
		FinishReason: &FinishReason{Reason: "length"},
		Usage:        &Usage{OutputTokens: 7},
	})

	resp := acc.Response()
	assert.Equal(t, "length", resp.FinishReason.Reason)
	assert.Equal(t, 7, resp.Usage.OutputTokens)
}

func TestStreamAccumulatorError(t *testing.T) {
	acc := NewStreamAccumulator()
	acc.Process(StreamEvent{Type: StreamError})

	var sf *StreamFailure
	require.ErrorAs(t, acc.Err(), &sf)

	acc = NewStreamAccumulator()
	want := &ServerError{}
	acc.Process(StreamEvent{Type: StreamError, Error: want})
	assert.Same(t, want, acc.Err())
}
