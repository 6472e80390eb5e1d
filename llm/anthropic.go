package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	anthropicDefaultURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion    = "2023-06-01"
	anthropicMaxTokens  = 8192
)

// anthropicAdapter speaks the Messages API: system prompt as a top-level
// field, tool calls as tool_use content blocks, tool results as tool_result
// blocks inside a user message.
type anthropicAdapter struct {
	apiKey string
	url    string
	httpc  *http.Client
}

func newAnthropicAdapter(opts Options) *anthropicAdapter {
	url := opts.BaseURL
	if url == "" {
		url = anthropicDefaultURL
	}
	return &anthropicAdapter{
		apiKey: opts.APIKey,
		url:    url,
		httpc:  opts.httpClient(),
	}
}

func (a *anthropicAdapter) Name() string { return string(ProviderAnthropic) }

// Wire types.

type antContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type antMessage struct {
	Role    string       `json:"role"`
	Content []antContent `json:"content"`
}

type antTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type antRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	System      string       `json:"system,omitempty"`
	Messages    []antMessage `json:"messages"`
	Tools       []antTool    `json:"tools,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Stream      bool         `json:"stream,omitempty"`
}

type antUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type antResponse struct {
	ID         string       `json:"id"`
	Model      string       `json:"model"`
	Content    []antContent `json:"content"`
	StopReason string       `json:"stop_reason"`
	Usage      antUsage     `json:"usage"`
}

var antStopReasons = map[string]string{
	"end_turn":      FinishStop,
	"stop_sequence": FinishStop,
	"tool_use":      FinishToolCalls,
	"max_tokens":    FinishLength,
}

func antFinish(raw string) FinishReason {
	reason, ok := antStopReasons[raw]
	if !ok {
		reason = FinishStop
	}
	return FinishReason{Reason: reason, Raw: raw}
}

// encodeRequest re-encodes ordered turns into the Messages API shape. System
// turns are pulled out into the top-level field; tool turns become user
// messages listing every tool_result block.
func (a *anthropicAdapter) encodeRequest(req Request, stream bool) (*antRequest, error) {
	out := &antRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = anthropicMaxTokens
	}

	var system []string
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, strings.TrimSpace(msg.TextContent()))
		case RoleUser:
			out.Messages = append(out.Messages, antMessage{
				Role:    "user",
				Content: []antContent{{Type: "text", Text: msg.TextContent()}},
			})
		case RoleAssistant:
			var blocks []antContent
			if text := msg.TextContent(); text != "" {
				blocks = append(blocks, antContent{Type: "text", Text: text})
			}
			for _, tc := range msg.ToolCalls() {
				input := tc.Arguments
				if len(input) == 0 {
					input = json.RawMessage(`{}`)
				}
				blocks = append(blocks, antContent{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: input,
				})
			}
			if len(blocks) == 0 {
				continue
			}
			out.Messages = append(out.Messages, antMessage{Role: "assistant", Content: blocks})
		case RoleTool:
			// All results from one tool turn ride in a single user message.
			var blocks []antContent
			for _, part := range msg.Content {
				if part.Kind != ContentToolResult || part.ToolResult == nil {
					continue
				}
				blocks = append(blocks, antContent{
					Type:      "tool_result",
					ToolUseID: part.ToolResult.ToolCallID,
					Content:   part.ToolResult.Content,
					IsError:   part.ToolResult.IsError,
				})
			}
			if len(blocks) == 0 {
				continue
			}
			out.Messages = append(out.Messages, antMessage{Role: "user", Content: blocks})
		}
	}
	out.System = strings.TrimSpace(strings.Join(system, "\n\n"))

	for _, td := range req.ToolDefs {
		out.Tools = append(out.Tools, antTool{
			Name:        td.Name,
			Description: td.Description,
			InputSchema: td.Parameters,
		})
	}
	return out, nil
}

func (a *anthropicAdapter) decodeResponse(wire *antResponse) *Response {
	msg := Message{Role: RoleAssistant}
	for _, block := range wire.Content {
		switch block.Type {
		case "text":
			msg.Content = append(msg.Content, TextPart(block.Text))
		case "tool_use":
			args := block.Input
			if len(args) == 0 {
				args = json.RawMessage(`{}`)
			}
			msg.Content = append(msg.Content, ToolCallPart(block.ID, block.Name, args))
		}
	}
	return &Response{
		ID:           wire.ID,
		Model:        wire.Model,
		Provider:     a.Name(),
		Message:      msg,
		FinishReason: antFinish(wire.StopReason),
		Usage: Usage{
			InputTokens:  wire.Usage.InputTokens,
			OutputTokens: wire.Usage.OutputTokens,
			TotalTokens:  wire.Usage.InputTokens + wire.Usage.OutputTokens,
		},
	}
}

func (a *anthropicAdapter) do(ctx context.Context, wire *antRequest) (*http.Response, error) {
	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", a.apiKey)
	httpReq.Header.Set("Anthropic-Version", anthropicVersion)

	resp, err := a.httpc.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{AdapterError{Message: "anthropic request failed", Cause: err}}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, ErrorFromStatusCode(resp.StatusCode, a.Name(), string(body))
	}
	return resp, nil
}

// Complete sends a blocking request.
func (a *anthropicAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	wire, err := a.encodeRequest(req, false)
	if err != nil {
		return nil, err
	}
	resp, err := a.do(ctx, wire)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded antResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &StreamDecodeError{AdapterError{Message: "anthropic response decode failed", Cause: err}}
	}
	return a.decodeResponse(&decoded), nil
}

// Streaming event envelope. The Messages API frames every event as a data:
// line whose JSON carries a type discriminator.
type antStreamEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`

	Message      *antResponse `json:"message,omitempty"`
	ContentBlock *antContent  `json:"content_block,omitempty"`
	Delta        *struct {
		Type        string `json:"type"`
		Text        string `json:"text,omitempty"`
		PartialJSON string `json:"partial_json,omitempty"`
		StopReason  string `json:"stop_reason,omitempty"`
	} `json:"delta,omitempty"`
	Usage *antUsage `json:"usage,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Stream sends a streaming request. Tool-use argument fragments arrive as
// input_json_delta events keyed by block index; a block is decoded and
// emitted only at its content_block_stop.
func (a *anthropicAdapter) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	wire, err := a.encodeRequest(req, true)
	if err != nil {
		return nil, err
	}
	resp, err := a.do(ctx, wire)
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamEvent, 64)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		type openBlock struct {
			id   string
			name string
			args strings.Builder
		}
		blocks := make(map[int]*openBlock)

		var (
			text       strings.Builder
			toolCalls  []ToolCall
			usage      Usage
			stopReason string
			respID     string
		)

		reader := newSSEReader(resp.Body)
		for {
			payload, err := reader.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				ch <- StreamEvent{Type: StreamError, Err: &NetworkError{AdapterError{Message: "anthropic stream read failed", Cause: err}}}
				return
			}

			var event antStreamEvent
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				// A malformed frame is dropped, not fatal to the stream.
				slog.WarnContext(ctx, "anthropic_stream_bad_frame", "error", err)
				continue
			}

			switch event.Type {
			case "message_start":
				if event.Message != nil {
					respID = event.Message.ID
					usage.InputTokens = event.Message.Usage.InputTokens
				}
			case "content_block_start":
				if event.ContentBlock != nil && event.ContentBlock.Type == "tool_use" {
					blocks[event.Index] = &openBlock{
						id:   event.ContentBlock.ID,
						name: event.ContentBlock.Name,
					}
				}
			case "content_block_delta":
				if event.Delta == nil {
					continue
				}
				switch event.Delta.Type {
				case "text_delta":
					text.WriteString(event.Delta.Text)
					ch <- StreamEvent{Type: StreamTextDelta, Delta: event.Delta.Text}
				case "input_json_delta":
					if block := blocks[event.Index]; block != nil {
						block.args.WriteString(event.Delta.PartialJSON)
					}
				}
			case "content_block_stop":
				block := blocks[event.Index]
				if block == nil {
					continue
				}
				delete(blocks, event.Index)
				call := ToolCall{
					ID:        block.id,
					Name:      block.name,
					Arguments: decodeToolArguments(block.args.String()),
				}
				toolCalls = append(toolCalls, call)
				ch <- StreamEvent{Type: StreamToolCall, ToolCall: &call}
			case "message_delta":
				if event.Delta != nil && event.Delta.StopReason != "" {
					stopReason = event.Delta.StopReason
				}
				if event.Usage != nil {
					usage.OutputTokens = event.Usage.OutputTokens
				}
			case "error":
				msg := "anthropic stream error"
				if event.Error != nil {
					msg = fmt.Sprintf("anthropic stream error: %s: %s", event.Error.Type, event.Error.Message)
				}
				ch <- StreamEvent{Type: StreamError, Err: &ServerError{ProviderError{
					AdapterError: AdapterError{Message: msg},
					Provider:     a.Name(),
					Retryable:    true,
				}}}
				return
			case "message_stop":
				// Terminal sentinel; fall through to finish below.
			}
		}

		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
		finish := antFinish(stopReason)
		msg := Message{Role: RoleAssistant}
		if text.Len() > 0 {
			msg.Content = append(msg.Content, TextPart(text.String()))
		}
		for _, tc := range toolCalls {
			msg.Content = append(msg.Content, ToolCallPart(tc.ID, tc.Name, tc.Arguments))
		}
		ch <- StreamEvent{
			Type:         StreamFinish,
			FinishReason: &finish,
			Usage:        &usage,
			Response: &Response{
				ID:           respID,
				Model:        req.Model,
				Provider:     a.Name(),
				Message:      msg,
				FinishReason: finish,
				Usage:        usage,
			},
		}
	}()
	return ch, nil
}

// decodeToolArguments parses buffered argument JSON. A parse failure yields
// an empty argument object rather than aborting the stream.
func decodeToolArguments(buffered string) json.RawMessage {
	trimmed := strings.TrimSpace(buffered)
	if trimmed == "" {
		return json.RawMessage(`{}`)
	}
	if !json.Valid([]byte(trimmed)) {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(trimmed)
}
