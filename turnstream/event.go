package turnstream

import (
	"fmt"
	"strings"
)

// Event is one fragment of agent output delivered during a turn. The set of
// variants is closed: TextChunk, ToolCall, ToolResult and StreamError.
type Event interface {
	event()
}

// TextChunk is natural-language output to display verbatim.
type TextChunk struct {
	Content string `json:"content"`
}

// ToolCall marks that the agent invoked an external tool.
type ToolCall struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ToolResult carries the field map returned by a tool invocation.
type ToolResult struct {
	ID     string                 `json:"id,omitempty"`
	Name   string                 `json:"name,omitempty"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// StreamError is a diagnostic for the stream. Empty strings mean absent.
type StreamError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (TextChunk) event()   {}
func (ToolCall) event()    {}
func (ToolResult) event()  {}
func (StreamError) event() {}

var (
	_ Event = TextChunk{}
	_ Event = ToolCall{}
	_ Event = ToolResult{}
	_ Event = StreamError{}
)

// Failed reports whether the result is classified as a tool failure.
func (r ToolResult) Failed() bool {
	return ToolFailed(r.Fields)
}

func (e StreamError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Message != "":
		return e.Message
	case e.Code != "":
		return e.Code
	default:
		return "stream error"
	}
}

// ToolFailed applies the tool outcome rule: a result failed iff it has an
// "error" key (any value) or a "status" whose string form equals "error",
// ignoring case. Nothing else counts as failure.
func ToolFailed(fields map[string]interface{}) bool {
	if fields == nil {
		return false
	}
	if _, ok := fields["error"]; ok {
		return true
	}
	status, ok := fields["status"]
	if !ok {
		return false
	}
	var s string
	switch v := status.(type) {
	case string:
		s = v
	case nil:
		return false
	default:
		s = fmt.Sprint(v)
	}
	return strings.EqualFold(s, "error")
}
