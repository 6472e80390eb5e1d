package agent

import (
	"time"

	"github.com/google/uuid"

	"github.com/ferrywell/devpad/llm"
)

// TurnKind discriminates between turn types.
type TurnKind string

const (
	TurnUser      TurnKind = "user"
	TurnAssistant TurnKind = "assistant"
	TurnTool      TurnKind = "tool"
	TurnSystem    TurnKind = "system"
)

// Turn is a single entry in a chat's conversation history. Turns are
// append-only and never mutated after creation; ordering within a chat is
// the sole causal signal.
type Turn struct {
	ID          string           `json:"id"`
	Kind        TurnKind         `json:"kind"`
	Content     string           `json:"content,omitempty"`
	ToolCalls   []llm.ToolCall   `json:"tool_calls,omitempty"`   // assistant turns only
	ToolResults []llm.ToolResult `json:"tool_results,omitempty"` // tool turns only
	CreatedAt   time.Time        `json:"created_at"`
}

// NewUserTurn creates a user Turn.
func NewUserTurn(content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Kind:      TurnUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewAssistantTurn creates an assistant Turn carrying the streamed text and
// any tool invocations the model emitted.
func NewAssistantTurn(content string, toolCalls []llm.ToolCall) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Kind:      TurnAssistant,
		Content:   content,
		ToolCalls: toolCalls,
		CreatedAt: time.Now(),
	}
}

// NewToolTurn creates a tool Turn holding one outcome per invocation of the
// preceding assistant turn.
func NewToolTurn(results []llm.ToolResult) Turn {
	return Turn{
		ID:          uuid.NewString(),
		Kind:        TurnTool,
		ToolResults: results,
		CreatedAt:   time.Now(),
	}
}

// NewSystemTurn creates a system Turn.
func NewSystemTurn(content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Kind:      TurnSystem,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// TurnsToMessages converts stored history into provider messages. The
// mapping is lossless for tool calls and results so the adapters can
// re-encode past invocations exactly as they happened.
func TurnsToMessages(history []Turn) []llm.Message {
	var messages []llm.Message
	for _, turn := range history {
		switch turn.Kind {
		case TurnSystem:
			messages = append(messages, llm.SystemMessage(turn.Content))
		case TurnUser:
			messages = append(messages, llm.UserMessage(turn.Content))
		case TurnAssistant:
			msg := llm.Message{Role: llm.RoleAssistant}
			if turn.Content != "" {
				msg.Content = append(msg.Content, llm.TextPart(turn.Content))
			}
			for _, tc := range turn.ToolCalls {
				msg.Content = append(msg.Content, llm.ToolCallPart(tc.ID, tc.Name, tc.Arguments))
			}
			if len(msg.Content) == 0 {
				continue
			}
			messages = append(messages, msg)
		case TurnTool:
			// All outcomes of one round ride in a single tool message; the
			// adapters split or merge per vendor protocol.
			msg := llm.Message{Role: llm.RoleTool}
			for _, tr := range turn.ToolResults {
				msg.Content = append(msg.Content, llm.ToolResultPart(tr.ToolCallID, tr.Content, tr.IsError))
			}
			if len(msg.Content) == 0 {
				continue
			}
			messages = append(messages, msg)
		}
	}
	return messages
}
