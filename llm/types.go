// Package llm normalizes three vendor chat-completion protocols into one
// message/event vocabulary consumed by the agent loop.
package llm

import (
	"encoding/json"
	"strings"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentKind is the discriminator tag for ContentPart.
type ContentKind string

const (
	ContentText       ContentKind = "text"
	ContentToolCall   ContentKind = "tool_call"
	ContentToolResult ContentKind = "tool_result"
)

// ToolCallData represents a model-initiated tool invocation carried inside
// an assistant message.
type ToolCallData struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResultData holds the outcome of one tool execution, carried inside a
// tool message.
type ToolResultData struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// ContentPart is a tagged union representing one part of a message.
type ContentPart struct {
	Kind       ContentKind     `json:"kind"`
	Text       string          `json:"text,omitempty"`
	ToolCall   *ToolCallData   `json:"tool_call,omitempty"`
	ToolResult *ToolResultData `json:"tool_result,omitempty"`
}

// TextPart creates a text ContentPart.
func TextPart(text string) ContentPart {
	return ContentPart{Kind: ContentText, Text: text}
}

// ToolCallPart creates a tool call ContentPart.
func ToolCallPart(id, name string, args json.RawMessage) ContentPart {
	return ContentPart{
		Kind:     ContentToolCall,
		ToolCall: &ToolCallData{ID: id, Name: name, Arguments: args},
	}
}

// ToolResultPart creates a tool result ContentPart.
func ToolResultPart(toolCallID, content string, isError bool) ContentPart {
	return ContentPart{
		Kind:       ContentToolResult,
		ToolResult: &ToolResultData{ToolCallID: toolCallID, Content: content, IsError: isError},
	}
}

// Message is the fundamental unit of conversation.
type Message struct {
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
}

// TextContent returns the concatenation of all text content parts.
func (m Message) TextContent() string {
	var sb strings.Builder
	for _, part := range m.Content {
		if part.Kind == ContentText {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// ToolCalls extracts all tool call data from the message content.
func (m Message) ToolCalls() []ToolCallData {
	var calls []ToolCallData
	for _, part := range m.Content {
		if part.Kind == ContentToolCall && part.ToolCall != nil {
			calls = append(calls, *part.ToolCall)
		}
	}
	return calls
}

// SystemMessage creates a system Message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentPart{TextPart(text)}}
}

// UserMessage creates a user Message with text content.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentPart{TextPart(text)}}
}

// AssistantMessage creates an assistant Message with text content.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentPart{TextPart(text)}}
}

// ToolDefinition describes a tool the model may call.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// ToolCall is a fully decoded invocation extracted from a model response.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is produced by executing one ToolCall.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// Finish reasons, normalized across vendors.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
	FinishLength    = "length"
	FinishError     = "error"
)

// FinishReason describes why generation stopped. Raw preserves the vendor's
// own wording.
type FinishReason struct {
	Reason string `json:"reason"`
	Raw    string `json:"raw,omitempty"`
}

// Usage tracks token consumption when the vendor reports it.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add returns a new Usage that is the sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// Request is the input type for both Complete and Stream.
type Request struct {
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	ToolDefs    []ToolDefinition `json:"tools,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
}

// Response is the output of Complete.
type Response struct {
	ID           string       `json:"id"`
	Model        string       `json:"model"`
	Provider     string       `json:"provider"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        Usage        `json:"usage"`
}

// Text returns the concatenated text from all text parts in the response message.
func (r Response) Text() string {
	return r.Message.TextContent()
}

// ToolCallsFromResponse extracts tool calls from the response message.
func (r Response) ToolCallsFromResponse() []ToolCall {
	var calls []ToolCall
	for _, part := range r.Message.Content {
		if part.Kind == ContentToolCall && part.ToolCall != nil {
			calls = append(calls, ToolCall{
				ID:        part.ToolCall.ID,
				Name:      part.ToolCall.Name,
				Arguments: part.ToolCall.Arguments,
			})
		}
	}
	return calls
}

// StreamEventType identifies the kind of stream event.
type StreamEventType string

const (
	StreamTextDelta StreamEventType = "text_delta"
	StreamToolCall  StreamEventType = "tool_call"
	StreamFinish    StreamEventType = "finish"
	StreamError     StreamEventType = "error"
)

// StreamEvent is a single event from a streaming response, produced in
// emission order. Concatenating the Delta of every text_delta event
// reconstructs the assistant text. A tool_call event carries a fully decoded
// invocation; partial argument fragments are never surfaced.
type StreamEvent struct {
	Type         StreamEventType `json:"type"`
	Delta        string          `json:"delta,omitempty"`
	ToolCall     *ToolCall       `json:"tool_call,omitempty"`
	FinishReason *FinishReason   `json:"finish_reason,omitempty"`
	Usage        *Usage          `json:"usage,omitempty"`
	Response     *Response       `json:"response,omitempty"`
	Err          error           `json:"-"`
}
