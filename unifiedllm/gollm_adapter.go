package unifiedllm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// Tool calls come back from gollm embedded in the response text, in one of
// these two shapes.
var toolCallMarkers = []string{`{"tool_calls"`, `[{"name"`}

// GollmAdapter wraps a gollm.LLM and implements ProviderAdapter.
type GollmAdapter struct {
	provider string
	llm      gollm.LLM
	model    string
}

// GollmAdapterOption configures a GollmAdapter.
type GollmAdapterOption func(*gollmAdapterConfig)

type gollmAdapterConfig struct {
	model       string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// WithModel sets the default model for the adapter.
func WithModel(model string) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.model = model
	}
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(n int) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.maxTokens = n
	}
}

// WithTemperature sets the default temperature.
func WithTemperature(t float64) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.temperature = t
	}
}

// WithGollmOptions adds raw gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.extraOpts = append(c.extraOpts, opts...)
	}
}

// NewGollmAdapter creates an adapter for provider. An empty apiKey lets gollm
// read the provider's usual environment variable.
func NewGollmAdapter(provider, apiKey string, opts ...GollmAdapterOption) (*GollmAdapter, error) {
	cfg := &gollmAdapterConfig{
		maxTokens:   4096,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		if info := DefaultModel(provider); info != nil {
			model = info.ID
		} else {
			return nil, &ConfigurationError{SDKError: SDKError{
				Message: fmt.Sprintf("no model configured and no catalog default for provider %q", provider),
			}}
		}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // Retry is handled by the caller.
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("create gollm LLM for provider %s", provider),
			Cause:   err,
		}}
	}

	return &GollmAdapter{provider: provider, llm: llm, model: model}, nil
}

// Name returns the provider identifier.
func (a *GollmAdapter) Name() string {
	return a.provider
}

// Stream sends a streaming request. Text that belongs to an embedded tool
// call is held back from the deltas and delivered as ToolCallEnd events.
// Providers without streaming support get a single delta.
func (a *GollmAdapter) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	prompt := a.translateRequest(req)
	a.applyRequestOptions(req)

	if !a.llm.SupportsStreaming() {
		ch := make(chan StreamEvent, 8)
		go func() {
			defer close(ch)
			ch <- StreamEvent{Type: StreamStart}
			text, err := a.llm.Generate(ctx, prompt)
			if err != nil {
				ch <- StreamEvent{Type: StreamError, Error: a.translateError(err)}
				return
			}
			guard := newToolJSONGuard(req.Tools)
			if visible := guard.push(text) + guard.flush(); visible != "" {
				ch <- StreamEvent{Type: TextStart, TextID: "text_0"}
				ch <- StreamEvent{Type: TextDelta, Delta: visible, TextID: "text_0"}
				ch <- StreamEvent{Type: TextEnd, TextID: "text_0"}
			}
			a.finish(ch, req, text)
		}()
		return ch, nil
	}

	stream, err := a.llm.Stream(ctx, prompt)
	if err != nil {
		return nil, a.translateError(err)
	}

	ch := make(chan StreamEvent, 64)
	go func() {
		defer close(ch)
		defer stream.Close()

		ch <- StreamEvent{Type: StreamStart}

		var (
			full    strings.Builder
			started bool
		)
		guard := newToolJSONGuard(req.Tools)
		emit := func(delta string) {
			if delta == "" {
				return
			}
			if !started {
				ch <- StreamEvent{Type: TextStart, TextID: "text_0"}
				started = true
			}
			ch <- StreamEvent{Type: TextDelta, Delta: delta, TextID: "text_0"}
		}

		for {
			token, err := stream.Next(ctx)
			if err == io.EOF {
				break
			}
			if err != nil {
				ch <- StreamEvent{Type: StreamError, Error: a.translateError(err)}
				return
			}
			if token == nil {
				continue
			}
			full.WriteString(token.Text)
			emit(guard.push(token.Text))
		}
		emit(guard.flush())
		if started {
			ch <- StreamEvent{Type: TextEnd, TextID: "text_0"}
		}
		a.finish(ch, req, full.String())
	}()

	return ch, nil
}

// finish emits the parsed tool calls and the final response.
func (a *GollmAdapter) finish(ch chan<- StreamEvent, req Request, fullText string) {
	resp := a.buildResponse(req, fullText)
	for _, tc := range resp.ToolCalls() {
		tc := tc
		ch <- StreamEvent{Type: ToolCallEnd, ToolCall: &tc}
	}
	ch <- StreamEvent{
		Type:         StreamFinish,
		FinishReason: &resp.FinishReason,
		Usage:        &resp.Usage,
		Response:     resp,
	}
}

// translateRequest flattens the conversation into a single gollm prompt.
func (a *GollmAdapter) translateRequest(req Request) *gollm.Prompt {
	var system []string
	var parts []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.TextContent())
		case RoleUser:
			parts = append(parts, msg.TextContent())
		case RoleAssistant:
			if text := msg.TextContent(); text != "" {
				parts = append(parts, "[Assistant]: "+text)
			}
			for _, tc := range msg.ToolCalls() {
				parts = append(parts, fmt.Sprintf("[Tool Call %s]: %s %s", tc.ID, tc.Name, string(tc.Arguments)))
			}
		case RoleTool:
			for _, part := range msg.Content {
				if part.Kind != ContentToolResult || part.ToolResult == nil {
					continue
				}
				prefix := "[Tool Result]"
				if part.ToolResult.IsError {
					prefix = "[Tool Error]"
				}
				parts = append(parts, prefix+": "+part.ToolResult.Content)
			}
		}
	}

	text := strings.Join(parts, "\n")
	if text == "" {
		text = "Hello"
	}

	var opts []gollm.PromptOption
	if len(system) > 0 {
		opts = append(opts, gollm.WithSystemPrompt(strings.TrimSpace(strings.Join(system, "\n")), gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		opts = append(opts, gollm.WithMaxLength(*req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		tools := make([]gollm.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		opts = append(opts, gollm.WithTools(tools))
		if req.ToolChoice != nil {
			opts = append(opts, gollm.WithToolChoice(req.ToolChoice.Mode))
		}
	}

	return gollm.NewPrompt(text, opts...)
}

func (a *GollmAdapter) applyRequestOptions(req Request) {
	if req.Model != "" {
		a.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
	}
}

func (a *GollmAdapter) buildResponse(req Request, text string) *Response {
	model := req.Model
	if model == "" {
		model = a.model
	}

	cleaned, calls := parseToolCalls(text, req.Tools)
	var content []ContentPart
	if cleaned != "" {
		content = append(content, TextPart(cleaned))
	}
	for _, tc := range calls {
		content = append(content, ToolCallPart(tc.ID, tc.Name, tc.Arguments))
	}

	finish := FinishReason{Reason: "stop", Raw: "stop"}
	if len(calls) > 0 {
		finish = FinishReason{Reason: "tool_calls", Raw: "tool_calls"}
	}

	in := estimateTokens(req)
	out := len(text) / 4
	return &Response{
		ID:           "resp_" + uuid.NewString()[:8],
		Model:        model,
		Provider:     a.provider,
		Message:      Message{Role: RoleAssistant, Content: content},
		FinishReason: finish,
		Usage:        Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out},
	}
}

type rawToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// parseToolCalls splits a complete response into its visible text and the
// tool calls embedded in it. It applies the same rules as the streaming
// guard, so the final text matches what was streamed.
func parseToolCalls(text string, tools []ToolDefinition) (string, []ToolCall) {
	g := newToolJSONGuard(tools)
	visible := g.push(text) + g.flush()
	return strings.TrimSpace(visible), g.calls
}

// decodeToolCalls decodes the JSON value at the start of s, which begins with
// marker. It returns the calls and the length of the value. An incomplete
// value yields io.ErrUnexpectedEOF.
func decodeToolCalls(s, marker string) ([]rawToolCall, int, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	var raw []rawToolCall
	if marker == toolCallMarkers[0] {
		var wrapped struct {
			ToolCalls []rawToolCall `json:"tool_calls"`
		}
		if err := dec.Decode(&wrapped); err != nil {
			return nil, 0, err
		}
		raw = wrapped.ToolCalls
	} else if err := dec.Decode(&raw); err != nil {
		return nil, 0, err
	}
	if len(raw) == 0 {
		return nil, 0, errNotToolCalls
	}
	for _, rc := range raw {
		if rc.Name == "" {
			return nil, 0, errNotToolCalls
		}
	}
	return raw, int(dec.InputOffset()), nil
}

var errNotToolCalls = errors.New("not a tool call list")

func firstMarker(text string) (int, string) {
	best, which := -1, ""
	for _, m := range toolCallMarkers {
		if i := strings.Index(text, m); i >= 0 && (best < 0 || i < best) {
			best, which = i, m
		}
	}
	return best, which
}

// toolJSONGuard filters streamed deltas so that embedded tool-call JSON is
// not shown as text. A candidate is taken as tool calls only when every name
// in it is a declared tool, or when it is the whole response. Anything else,
// such as a JSON document that happens to contain a "name" list, is released
// unchanged.
type toolJSONGuard struct {
	known   map[string]bool
	pending string
	spoken  bool // non-space text has been released
	calls   []ToolCall
}

func newToolJSONGuard(tools []ToolDefinition) *toolJSONGuard {
	known := make(map[string]bool, len(tools))
	for _, t := range tools {
		known[t.Name] = true
	}
	return &toolJSONGuard{known: known}
}

func (g *toolJSONGuard) push(delta string) string {
	g.pending += delta
	return g.drain(false)
}

// flush releases everything still held back. A whole-response candidate is
// only accepted here, once nothing can follow it.
func (g *toolJSONGuard) flush() string {
	return g.drain(true)
}

func (g *toolJSONGuard) drain(final bool) string {
	var out strings.Builder
	release := func(n int) {
		s := g.pending[:n]
		g.pending = g.pending[n:]
		out.WriteString(s)
		if strings.TrimSpace(s) != "" {
			g.spoken = true
		}
	}

	for g.pending != "" {
		idx, marker := firstMarker(g.pending)
		if idx < 0 {
			hold := 0
			if !final {
				hold = markerPrefixLen(g.pending)
			}
			release(len(g.pending) - hold)
			break
		}
		release(idx)

		raw, n, err := decodeToolCalls(g.pending, marker)
		if errors.Is(err, io.ErrUnexpectedEOF) && !final {
			break
		}
		if err != nil {
			// Not tool-call JSON; step past the marker's first byte.
			release(1)
			continue
		}

		if !g.allKnown(raw) {
			if g.spoken || strings.TrimSpace(g.pending[n:]) != "" {
				release(n)
				continue
			}
			if !final {
				break
			}
		}
		g.accept(raw)
		g.pending = g.pending[n:]
	}
	return out.String()
}

func (g *toolJSONGuard) allKnown(raw []rawToolCall) bool {
	for _, rc := range raw {
		if !g.known[rc.Name] {
			return false
		}
	}
	return true
}

func (g *toolJSONGuard) accept(raw []rawToolCall) {
	for _, rc := range raw {
		args := rc.Arguments
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		g.calls = append(g.calls, ToolCall{
			ID:        "call_" + uuid.NewString()[:8],
			Name:      rc.Name,
			Arguments: args,
		})
	}
}

// markerPrefixLen returns the length of the longest suffix of s that is a
// proper prefix of a marker.
func markerPrefixLen(s string) int {
	longest := 0
	for _, m := range toolCallMarkers {
		for n := len(m) - 1; n > longest; n-- {
			if strings.HasSuffix(s, m[:n]) {
				longest = n
				break
			}
		}
	}
	return longest
}

// translateError maps a gollm error onto the error hierarchy by inspecting
// its message; gollm does not expose status codes.
func (a *GollmAdapter) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	pe := ProviderError{SDKError: SDKError{Message: msg, Cause: err}, Provider: a.provider}

	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		pe.StatusCode = 401
		return &AuthenticationError{ProviderError: pe}
	case strings.Contains(lower, "403") || strings.Contains(lower, "forbidden"):
		pe.StatusCode = 403
		return &AccessDeniedError{ProviderError: pe}
	case strings.Contains(lower, "404") || strings.Contains(lower, "not found"):
		pe.StatusCode = 404
		return &NotFoundError{ProviderError: pe}
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		pe.StatusCode, pe.Retryable = 429, true
		return &RateLimitError{ProviderError: pe}
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
		pe.StatusCode = 413
		return &ContextLengthError{ProviderError: pe}
	case strings.Contains(lower, "500") || strings.Contains(lower, "internal server"):
		pe.StatusCode, pe.Retryable = 500, true
		return &ServerError{ProviderError: pe}
	case strings.Contains(lower, "timeout"):
		return &RequestTimeoutError{SDKError: SDKError{Message: msg, Cause: err}}
	case strings.Contains(lower, "content filter") || strings.Contains(lower, "safety"):
		return &ContentFilterError{ProviderError: pe}
	default:
		pe.Retryable = true
		return &pe
	}
}

func estimateTokens(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.TextContent()) / 4
	}
	if total == 0 {
		total = 10
	}
	return total
}
