package agentloop

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TruncationMode specifies which part of an oversized output is kept.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

// DefaultToolOutputLimit caps the characters of a tool result kept in history
// when no per-tool limit is configured.
const DefaultToolOutputLimit = 30000

// TruncateOutput shortens output to roughly maxChars bytes, never splitting a
// UTF-8 sequence. The console always receives the full result; only the copy
// sent back to the model is truncated.
func TruncateOutput(output string, maxChars int, mode TruncationMode) string {
	if maxChars <= 0 || len(output) <= maxChars {
		return output
	}
	removed := len(output) - maxChars

	if mode == TruncateTail {
		start := runeBoundary(output, len(output)-maxChars)
		return fmt.Sprintf("[output truncated: first %d characters removed]\n", removed) + output[start:]
	}

	half := maxChars / 2
	head := runeBoundary(output, half)
	tail := runeBoundary(output, len(output)-half)
	return output[:head] +
		fmt.Sprintf("\n[output truncated: %d characters removed from the middle]\n", removed) +
		output[tail:]
}

// TruncateLines keeps the first and last lines of output so that at most
// maxLines remain.
func TruncateLines(output string, maxLines int) string {
	if maxLines <= 0 {
		return output
	}
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}
	head := maxLines / 2
	tail := maxLines - head
	return strings.Join(lines[:head], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", len(lines)-head-tail) +
		strings.Join(lines[len(lines)-tail:], "\n")
}

// TruncateToolOutput applies the character limit for toolName, then the line
// limit if one is set.
func TruncateToolOutput(output, toolName string, charLimits, lineLimits map[string]int) string {
	limit, ok := charLimits[toolName]
	if !ok {
		limit = DefaultToolOutputLimit
	}
	result := TruncateOutput(output, limit, TruncateHeadTail)
	if lines, ok := lineLimits[toolName]; ok {
		result = TruncateLines(result, lines)
	}
	return result
}

// runeBoundary moves i back to the start of the UTF-8 sequence containing it.
func runeBoundary(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
