package agentloop

import (
	"time"

	"github.com/martinemde/agentconsole/unifiedllm"
)

// TurnKind discriminates between turn types.
type TurnKind string

const (
	TurnUser        TurnKind = "user"
	TurnAssistant   TurnKind = "assistant"
	TurnToolResults TurnKind = "tool_results"
	TurnSteering    TurnKind = "steering"
)

// Turn is a single entry in a session's conversation history.
type Turn struct {
	Kind        TurnKind         `json:"kind"`
	Timestamp   time.Time        `json:"timestamp"`
	User        *UserTurn        `json:"user,omitempty"`
	Assistant   *AssistantTurn   `json:"assistant,omitempty"`
	ToolResults *ToolResultsTurn `json:"tool_results,omitempty"`
	Steering    *SteeringTurn    `json:"steering,omitempty"`
}

// UserTurn holds user input.
type UserTurn struct {
	Content string `json:"content"`
}

// AssistantTurn holds one model response.
type AssistantTurn struct {
	Content    string                `json:"content"`
	ToolCalls  []unifiedllm.ToolCall `json:"tool_calls,omitempty"`
	Usage      unifiedllm.Usage      `json:"usage"`
	ResponseID string                `json:"response_id,omitempty"`
}

// ToolOutcome is the history record of one executed tool call. Content is
// the JSON encoding of the tool's fields, possibly truncated.
type ToolOutcome struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error"`
}

// ToolResultsTurn holds the outcomes of one tool round.
type ToolResultsTurn struct {
	Results []ToolOutcome `json:"results"`
}

// SteeringTurn holds a message injected by the runner, such as a loop warning.
type SteeringTurn struct {
	Content string `json:"content"`
}

func NewUserTurn(content string) Turn {
	return Turn{Kind: TurnUser, Timestamp: time.Now(), User: &UserTurn{Content: content}}
}

func NewAssistantTurn(content string, toolCalls []unifiedllm.ToolCall, usage unifiedllm.Usage, responseID string) Turn {
	return Turn{
		Kind:      TurnAssistant,
		Timestamp: time.Now(),
		Assistant: &AssistantTurn{
			Content:    content,
			ToolCalls:  toolCalls,
			Usage:      usage,
			ResponseID: responseID,
		},
	}
}

func NewToolResultsTurn(results []ToolOutcome) Turn {
	return Turn{Kind: TurnToolResults, Timestamp: time.Now(), ToolResults: &ToolResultsTurn{Results: results}}
}

func NewSteeringTurn(content string) Turn {
	return Turn{Kind: TurnSteering, Timestamp: time.Now(), Steering: &SteeringTurn{Content: content}}
}

// TextContent returns the text of a user, assistant or steering turn.
func (t Turn) TextContent() string {
	switch {
	case t.Kind == TurnUser && t.User != nil:
		return t.User.Content
	case t.Kind == TurnAssistant && t.Assistant != nil:
		return t.Assistant.Content
	case t.Kind == TurnSteering && t.Steering != nil:
		return t.Steering.Content
	}
	return ""
}

// ConvertHistoryToMessages converts turn history into LLM messages. Steering
// turns are sent as user messages.
func ConvertHistoryToMessages(history []Turn) []unifiedllm.Message {
	var messages []unifiedllm.Message
	for _, turn := range history {
		switch turn.Kind {
		case TurnUser, TurnSteering:
			if text := turn.TextContent(); text != "" {
				messages = append(messages, unifiedllm.UserMessage(text))
			}
		case TurnAssistant:
			if turn.Assistant == nil {
				continue
			}
			msg := unifiedllm.Message{Role: unifiedllm.RoleAssistant}
			if turn.Assistant.Content != "" {
				msg.Content = append(msg.Content, unifiedllm.TextPart(turn.Assistant.Content))
			}
			for _, tc := range turn.Assistant.ToolCalls {
				msg.Content = append(msg.Content, unifiedllm.ToolCallPart(tc.ID, tc.Name, tc.Arguments))
			}
			messages = append(messages, msg)
		case TurnToolResults:
			if turn.ToolResults == nil {
				continue
			}
			for _, r := range turn.ToolResults.Results {
				messages = append(messages, unifiedllm.ToolResultMessage(r.CallID, r.Content, r.IsError))
			}
		}
	}
	return messages
}
