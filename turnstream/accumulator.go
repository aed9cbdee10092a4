package turnstream

import (
	"io"
	"strings"
)

type flusher interface {
	Flush() error
}

// Accumulator folds the Events of a single turn into the rendered text and
// the two outcome flags. It is owned by one turn and discarded afterwards.
type Accumulator struct {
	out         io.Writer
	text        []string
	toolInvoked bool
	toolErrored bool
	events      int
}

// NewAccumulator returns an Accumulator that echoes text to out. A nil out
// discards the echo.
func NewAccumulator(out io.Writer) *Accumulator {
	if out == nil {
		out = io.Discard
	}
	return &Accumulator{out: out}
}

// Fold applies one Event. It never fails; write errors on the output surface
// are ignored so the turn keeps draining.
func (a *Accumulator) Fold(ev Event) {
	a.events++
	switch e := ev.(type) {
	case TextChunk:
		a.appendText(e.Content)
	case *TextChunk:
		if e != nil {
			a.appendText(e.Content)
		}
	case ToolCall:
		a.toolInvoked = true
	case *ToolCall:
		if e != nil {
			a.toolInvoked = true
		}
	case ToolResult:
		if e.Failed() {
			a.toolErrored = true
		}
	case *ToolResult:
		if e != nil && e.Failed() {
			a.toolErrored = true
		}
	case StreamError:
		a.toolErrored = true
	case *StreamError:
		if e != nil {
			a.toolErrored = true
		}
	}
}

func (a *Accumulator) appendText(s string) {
	a.text = append(a.text, s)
	if s == "" {
		return
	}
	_, _ = io.WriteString(a.out, s)
	if f, ok := a.out.(flusher); ok {
		_ = f.Flush()
	}
}

// Drain folds every Event of s, in delivery order, until the stream closes.
// A terminal error on the stream counts as a stream-level error.
func (a *Accumulator) Drain(s *Stream) {
	if s == nil {
		return
	}
	for ev := range s.Events() {
		a.Fold(ev)
	}
	if err := s.Err(); err != nil {
		a.toolErrored = true
	}
}

// MarkErrored records an error signal that did not arrive as an Event, such
// as a failure to start the stream.
func (a *Accumulator) MarkErrored() {
	a.toolErrored = true
}

// Text returns the concatenation of all TextChunk contents seen so far.
func (a *Accumulator) Text() string {
	return strings.Join(a.text, "")
}

// ToolInvoked reports whether any ToolCall was folded.
func (a *Accumulator) ToolInvoked() bool { return a.toolInvoked }

// ToolErrored reports whether a failing ToolResult, a StreamError or a
// terminal stream error was seen.
func (a *Accumulator) ToolErrored() bool { return a.toolErrored }

// Count returns the number of Events folded.
func (a *Accumulator) Count() int { return a.events }

// Diagnose applies the post-turn diagnostic rule to the current state.
func (a *Accumulator) Diagnose() Diagnostic {
	return Diagnose(a.toolInvoked, a.toolErrored, a.Text())
}
