package turnstream

// Diagnostic is the post-turn summary of anomalies in a completed turn.
type Diagnostic int

const (
	// DiagnosticNone marks a clean turn.
	DiagnosticNone Diagnostic = iota
	// DiagnosticToolError marks a failing tool result or a stream-level error.
	DiagnosticToolError
	// DiagnosticEmptyAnswer marks a turn that used a tool but produced no text.
	DiagnosticEmptyAnswer
)

const (
	toolErrorMessage   = "An error occurred during tool execution or in the agent's response processing."
	emptyAnswerMessage = "Agent used a tool but provided no text response."
)

// Diagnose picks at most one diagnostic. An errored turn is always reported
// as an error, even when it also produced no text.
func Diagnose(toolInvoked, toolErrored bool, text string) Diagnostic {
	switch {
	case toolErrored:
		return DiagnosticToolError
	case toolInvoked && text == "":
		return DiagnosticEmptyAnswer
	default:
		return DiagnosticNone
	}
}

// Message returns the human-readable diagnostic line, or "" for a clean turn.
func (d Diagnostic) Message() string {
	switch d {
	case DiagnosticToolError:
		return toolErrorMessage
	case DiagnosticEmptyAnswer:
		return emptyAnswerMessage
	default:
		return ""
	}
}

func (d Diagnostic) String() string {
	switch d {
	case DiagnosticToolError:
		return "tool_error"
	case DiagnosticEmptyAnswer:
		return "empty_answer"
	default:
		return "none"
	}
}
