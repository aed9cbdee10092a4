package unifiedllm

// StreamAccumulator collects stream events into a complete Response.
type StreamAccumulator struct {
	textOrder []string
	textParts map[string]string
	reasoning []string
	toolCalls []ToolCall
	finish    *FinishReason
	usage     *Usage
	response  *Response
	err       error
}

// NewStreamAccumulator creates an empty StreamAccumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{
		textParts: make(map[string]string),
	}
}

// Process ingests a single stream event.
func (sa *StreamAccumulator) Process(event StreamEvent) {
	switch event.Type {
	case TextDelta:
		id := event.TextID
		if id == "" {
			id = "default"
		}
		if _, seen := sa.textParts[id]; !seen {
			sa.textOrder = append(sa.textOrder, id)
		}
		sa.textParts[id] += event.Delta
	case ReasoningDelta:
		sa.reasoning = append(sa.reasoning, event.ReasoningDelta)
	case ToolCallEnd:
		if event.ToolCall != nil {
			sa.toolCalls = append(sa.toolCalls, *event.ToolCall)
		}
	case StreamFinish:
		sa.finish = event.FinishReason
		sa.usage = event.Usage
		sa.response = event.Response
	case StreamError:
		sa.err = event.Error
		if sa.err == nil {
			sa.err = &StreamFailure{SDKError: SDKError{Message: "stream ended with an error event"}}
		}
	}
}

// Err returns the error carried by a StreamError event, if any.
func (sa *StreamAccumulator) Err() error {
	return sa.err
}

// Response returns the final response. A response delivered with the
// finish event wins; otherwise one is assembled from the collected parts.
func (sa *StreamAccumulator) Response() *Response {
	if sa.response != nil {
		return sa.response
	}

	var content []ContentPart
	for _, part := range sa.reasoning {
		content = append(content, ContentPart{Kind: ContentThinking, Thinking: &ThinkingData{Text: part}})
	}
	for _, id := range sa.textOrder {
		content = append(content, TextPart(sa.textParts[id]))
	}
	for _, tc := range sa.toolCalls {
		content = append(content, ToolCallPart(tc.ID, tc.Name, tc.Arguments))
	}

	fr := FinishReason{Reason: "stop"}
	if len(sa.toolCalls) > 0 {
		fr = FinishReason{Reason: "tool_calls"}
	}
	if sa.finish != nil {
		fr = *sa.finish
	}

	usage := Usage{}
	if sa.usage != nil {
		usage = *sa.usage
	}

	return &Response{
		Message:      Message{Role: RoleAssistant, Content: content},
		FinishReason: fr,
		Usage:        usage,
	}
}
