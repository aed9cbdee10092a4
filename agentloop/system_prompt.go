package agentloop

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const toolCallFormat = `To call tools, end your reply with a JSON array of calls and nothing after it:
[{"name": "<tool name>", "arguments": {<arguments matching the tool's parameters>}}]
Results come back in the next message. When you are done, answer in plain text without a tool call array.`

// BuildSystemPrompt assembles the system prompt: agent identity and
// instruction, an environment block, and the tools the agent may call.
func BuildSystemPrompt(p Profile, tools []ToolDefinition, now time.Time) string {
	var sb strings.Builder

	if p.Description != "" {
		fmt.Fprintf(&sb, "You are %s. %s\n\n", p.Name, p.Description)
	}
	sb.WriteString(p.Instruction)

	sb.WriteString("\n\n<environment>\n")
	fmt.Fprintf(&sb, "Today's date: %s\n", now.Format("2006-01-02"))
	if p.Model != "" {
		fmt.Fprintf(&sb, "Model: %s\n", p.Model)
	}
	sb.WriteString("</environment>")

	if len(tools) == 0 {
		return sb.String()
	}

	sb.WriteString("\n\n# Tools\n\n")
	sb.WriteString(toolCallFormat)
	sb.WriteString("\n")
	for _, t := range tools {
		fmt.Fprintf(&sb, "\n## %s\n", t.Name)
		if t.Description != "" {
			sb.WriteString(t.Description)
			sb.WriteString("\n")
		}
		if len(t.Parameters) > 0 {
			if params, err := json.Marshal(t.Parameters); err == nil {
				fmt.Fprintf(&sb, "Parameters: %s\n", params)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
