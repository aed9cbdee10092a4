package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teilomillet/gollm"
	"github.com/teilomillet/gollm/llm"
)

func TestGollmAdapterTranslateError(t *testing.T) {
	a := &GollmAdapter{provider: "gemini"}
	tests := []struct {
		msg  string
		want string
	}{
		{"HTTP 401 Unauthorized", "*unifiedllm.AuthenticationError"},
		{"invalid API key provided", "*unifiedllm.AuthenticationError"},
		{"403 forbidden", "*unifiedllm.AccessDeniedError"},
		{"model not found", "*unifiedllm.NotFoundError"},
		{"429 rate limit exceeded", "*unifiedllm.RateLimitError"},
		{"context length exceeded", "*unifiedllm.ContextLengthError"},
		{"500 internal server error", "*unifiedllm.ServerError"},
		{"request timeout", "*unifiedllm.RequestTimeoutError"},
		{"blocked by safety settings", "*unifiedllm.ContentFilterError"},
		{"something odd", "*unifiedllm.ProviderError"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := a.translateError(errors.New(tt.msg))
			assert.Equal(t, tt.want, fmt.Sprintf("%T", err))
		})
	}
	assert.NoError(t, a.translateError(nil))
}

const openAPIAnswer = `Here is the spec: {"paths":{"/users/{id}":{"get":{"parameters":[{"name":"id","in":"path","required":true}]}}}}`

func declared(names ...string) []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(names))
	for _, n := range names {
		defs = append(defs, ToolDefinition{Name: n})
	}
	return defs
}

type fakeLLM struct {
	gollm.LLM
	streaming bool
	tokens    []string
}

func (f *fakeLLM) SupportsStreaming() bool { return f.streaming }

func (f *fakeLLM) SetOption(key string, value interface{}) {}

func (f *fakeLLM) Generate(ctx context.Context, prompt *llm.Prompt, opts ...llm.GenerateOption) (string, error) {
	return strings.Join(f.tokens, ""), nil
}

func (f *fakeLLM) Stream(ctx context.Context, prompt *llm.Prompt, opts ...llm.StreamOption) (llm.TokenStream, error) {
	return &fakeTokenStream{tokens: f.tokens}, nil
}

type fakeTokenStream struct {
	tokens []string
	next   int
}

func (s *fakeTokenStream) Next(ctx context.Context) (*llm.StreamToken, error) {
	if s.next >= len(s.tokens) {
		return nil, io.EOF
	}
	tok := &llm.StreamToken{Text: s.tokens[s.next], Type: "text", Index: s.next}
	s.next++
	return tok, nil
}

func (s *fakeTokenStream) Close() error { return nil }

// drainStream collects the visible text, tool calls and final response.
func drainStream(t *testing.T, a *GollmAdapter, req Request) (string, []ToolCall, *Response) {
	t.Helper()
	ch, err := a.Stream(context.Background(), req)
	require.NoError(t, err)

	var (
		text  strings.Builder
		calls []ToolCall
		resp  *Response
	)
	for ev := range ch {
		switch ev.Type {
		case TextDelta:
			text.WriteString(ev.Delta)
		case ToolCallEnd:
			calls = append(calls, *ev.ToolCall)
		case StreamFinish:
			resp = ev.Response
		case StreamError:
			t.Fatalf("unexpected stream error: %v", ev.Error)
		}
	}
	require.NotNil(t, resp)
	return text.String(), calls, resp
}

func TestParseToolCallsDeclaredInsideText(t *testing.T) {
	text := `Creating it now. [{"name": "create_spec", "arguments": {"title": "Pets"}}, {"name": "list_specs"}] trailing`
	visible, calls := parseToolCalls(text, declared("create_spec", "list_specs"))
	require.Len(t, calls, 2)
	assert.Equal(t, "Creating it now.  trailing", visible)
	assert.Equal(t, "create_spec", calls[0].Name)
	assert.JSONEq(t, `{"title":"Pets"}`, string(calls[0].Arguments))
	assert.Equal(t, "list_specs", calls[1].Name)
	assert.JSONEq(t, `{}`, string(calls[1].Arguments))
	assert.NotEqual(t, calls[0].ID, calls[1].ID)
	assert.True(t, strings.HasPrefix(calls[0].ID, "call_"))
}

func TestParseToolCallsWholeResponse(t *testing.T) {
	visible, calls := parseToolCalls(`  {"tool_calls": [{"name": "validate", "arguments": {"strict": true}}]}`+"\n", nil)
	require.Len(t, calls, 1)
	assert.Equal(t, "validate", calls[0].Name)
	assert.Empty(t, visible)
}

func TestParseToolCallsNone(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		tools []ToolDefinition
	}{
		{"plain", "plain answer", nil},
		{"broken", `[{"name": broken`, nil},
		{"unknown name inside text", `Try [{"name": "ghost"}] later`, declared("validate")},
		{"empty name", `[{"name": ""}]`, nil},
		{"openapi document", openAPIAnswer, declared("validate")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			visible, calls := parseToolCalls(tt.text, tt.tools)
			assert.Empty(t, calls)
			assert.Equal(t, strings.TrimSpace(tt.text), visible)
		})
	}
}

func TestBuildResponseStripsToolJSON(t *testing.T) {
	a := &GollmAdapter{provider: "gemini", model: "gemini-2.5-flash"}
	resp := a.buildResponse(Request{Messages: []Message{UserMessage("go")}, Tools: declared("list_specs")},
		`Let me check.
[{"name": "list_specs", "arguments": {}}]`)

	assert.Equal(t, "Let me check.", resp.Text())
	assert.Equal(t, "tool_calls", resp.FinishReason.Reason)
	assert.Equal(t, "gemini-2.5-flash", resp.Model)
	require.Len(t, resp.ToolCalls(), 1)

	plain := a.buildResponse(Request{Model: "override"}, "just text")
	assert.Equal(t, "just text", plain.Text())
	assert.Equal(t, "stop", plain.FinishReason.Reason)
	assert.Equal(t, "override", plain.Model)
}

func TestBuildResponseKeepsJSONAnswer(t *testing.T) {
	a := &GollmAdapter{provider: "gemini", model: "gemini-2.5-flash"}
	resp := a.buildResponse(Request{Tools: declared("validate", "generate")}, openAPIAnswer)

	assert.Equal(t, openAPIAnswer, resp.Text())
	assert.Empty(t, resp.ToolCalls())
	assert.Equal(t, "stop", resp.FinishReason.Reason)
}

func TestStreamKeepsJSONAnswer(t *testing.T) {
	tokens := []string{
		`Here is the spec: {"paths":{"/users/{id}":{"get":{"parameters":[`,
		`{"na`,
		`me":"id","in":"path","required":true}]}}}}`,
	}
	for _, streaming := range []bool{true, false} {
		a := &GollmAdapter{provider: "gemini", model: "m", llm: &fakeLLM{streaming: streaming, tokens: tokens}}
		text, calls, resp := drainStream(t, a, Request{Tools: declared("validate")})

		assert.Equal(t, openAPIAnswer, text)
		assert.Empty(t, calls)
		assert.Equal(t, openAPIAnswer, resp.Text())
		assert.Equal(t, "stop", resp.FinishReason.Reason)
	}
}

func TestStreamEmitsDeclaredToolCall(t *testing.T) {
	a := &GollmAdapter{provider: "gemini", model: "m", llm: &fakeLLM{streaming: true, tokens: []string{
		"Checking. ", `[{"name":"valid`, `ate","arguments":{"strict":true}}]`,
	}}}
	text, calls, resp := drainStream(t, a, Request{Tools: declared("validate")})

	assert.Equal(t, "Checking. ", text)
	require.Len(t, calls, 1)
	assert.Equal(t, "validate", calls[0].Name)
	assert.JSONEq(t, `{"strict":true}`, string(calls[0].Arguments))
	assert.Equal(t, "tool_calls", resp.FinishReason.Reason)
	assert.Equal(t, "Checking.", resp.Text())
}

func TestToolJSONGuardHoldsBackDeclaredCall(t *testing.T) {
	g := newToolJSONGuard(declared("x"))
	var shown strings.Builder
	for _, delta := range []string{"Sure, ", "calling [", `{"na`, `me": "x"}]`, " more"} {
		shown.WriteString(g.push(delta))
	}
	shown.WriteString(g.flush())
	assert.Equal(t, "Sure, calling  more", shown.String())
	require.Len(t, g.calls, 1)
}

func TestToolJSONGuardReleasesUndeclaredCall(t *testing.T) {
	g := newToolJSONGuard(declared("x"))
	var shown strings.Builder
	for _, delta := range []string{"Sure, ", "calling [", `{"na`, `me": "y"}]`, " more"} {
		shown.WriteString(g.push(delta))
	}
	shown.WriteString(g.flush())
	assert.Equal(t, `Sure, calling [{"name": "y"}] more`, shown.String())
	assert.Empty(t, g.calls)
}

func TestToolJSONGuardWholeResponseWaitsForEnd(t *testing.T) {
	g := newToolJSONGuard(nil)
	assert.Empty(t, g.push(`[{"name":"id"}]`))
	assert.Empty(t, g.flush())
	require.Len(t, g.calls, 1)
	assert.Equal(t, "id", g.calls[0].Name)

	g = newToolJSONGuard(nil)
	assert.Empty(t, g.push(`[{"name":"id"}]`))
	assert.Equal(t, `[{"name":"id"}] is the parameter list`, g.push(" is the parameter list")+g.flush())
	assert.Empty(t, g.calls)
}

func TestToolJSONGuardReleasesFalseAlarm(t *testing.T) {
	g := newToolJSONGuard(nil)
	var shown strings.Builder
	for _, delta := range []string{"an array [", "1, 2] and {", "braces}"} {
		shown.WriteString(g.push(delta))
	}
	shown.WriteString(g.flush())
	assert.Equal(t, "an array [1, 2] and {braces}", shown.String())
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 10, estimateTokens(Request{}))
	assert.Equal(t, 2, estimateTokens(Request{Messages: []Message{UserMessage("12345678")}}))
}
