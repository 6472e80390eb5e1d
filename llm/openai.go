package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const openaiDefaultURL = "https://api.openai.com/v1/chat/completions"

// openaiAdapter speaks the Chat Completions protocol using go-openai's wire
// structs over its own HTTP transport, so the request shape can follow the
// model catalog's quirk flags (reasoning models reject temperature, tools,
// and the max_tokens field).
type openaiAdapter struct {
	apiKey string
	url    string
	httpc  *http.Client
}

func newOpenAIAdapter(opts Options) *openaiAdapter {
	url := opts.BaseURL
	if url == "" {
		url = openaiDefaultURL
	}
	return &openaiAdapter{
		apiKey: opts.APIKey,
		url:    url,
		httpc:  opts.httpClient(),
	}
}

func (a *openaiAdapter) Name() string { return string(ProviderOpenAI) }

func (a *openaiAdapter) encodeRequest(req Request, stream bool) openai.ChatCompletionRequest {
	quirks := ModelQuirks(req.Model)
	out := openai.ChatCompletionRequest{
		Model:  req.Model,
		Stream: stream,
	}
	if req.MaxTokens > 0 {
		if quirks.UsesMaxCompletionTokens {
			out.MaxCompletionTokens = req.MaxTokens
		} else {
			out.MaxTokens = req.MaxTokens
		}
	}
	if req.Temperature != nil && quirks.SupportsTemperature {
		out.Temperature = float32(*req.Temperature)
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			out.Messages = append(out.Messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: msg.TextContent(),
			})
		case RoleUser:
			out.Messages = append(out.Messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.TextContent(),
			})
		case RoleAssistant:
			wire := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.TextContent(),
			}
			for _, tc := range msg.ToolCalls() {
				args := string(tc.Arguments)
				if args == "" {
					args = "{}"
				}
				wire.ToolCalls = append(wire.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: args,
					},
				})
			}
			out.Messages = append(out.Messages, wire)
		case RoleTool:
			// Each result becomes its own role=tool message keyed by call ID.
			for _, part := range msg.Content {
				if part.Kind != ContentToolResult || part.ToolResult == nil {
					continue
				}
				out.Messages = append(out.Messages, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    part.ToolResult.Content,
					ToolCallID: part.ToolResult.ToolCallID,
				})
			}
		}
	}

	if quirks.SupportsTools {
		for _, td := range req.ToolDefs {
			out.Tools = append(out.Tools, openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        td.Name,
					Description: td.Description,
					Parameters:  td.Parameters,
				},
			})
		}
	}
	return out
}

var openaiFinishReasons = map[string]string{
	"stop":           FinishStop,
	"tool_calls":     FinishToolCalls,
	"function_call":  FinishToolCalls,
	"length":         FinishLength,
	"content_filter": FinishError,
}

func openaiFinish(raw string) FinishReason {
	reason, ok := openaiFinishReasons[raw]
	if !ok {
		reason = FinishStop
	}
	return FinishReason{Reason: reason, Raw: raw}
}

func (a *openaiAdapter) do(ctx context.Context, wire openai.ChatCompletionRequest) (*http.Response, error) {
	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpc.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{AdapterError{Message: "openai request failed", Cause: err}}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, ErrorFromStatusCode(resp.StatusCode, a.Name(), string(body))
	}
	return resp, nil
}

// Complete sends a blocking request.
func (a *openaiAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	resp, err := a.do(ctx, a.encodeRequest(req, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded openai.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &StreamDecodeError{AdapterError{Message: "openai response decode failed", Cause: err}}
	}
	if len(decoded.Choices) == 0 {
		return nil, &StreamDecodeError{AdapterError{Message: "openai response contained no choices"}}
	}

	choice := decoded.Choices[0]
	msg := Message{Role: RoleAssistant}
	if choice.Message.Content != "" {
		msg.Content = append(msg.Content, TextPart(choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		msg.Content = append(msg.Content, ToolCallPart(
			tc.ID, tc.Function.Name, decodeToolArguments(tc.Function.Arguments)))
	}
	return &Response{
		ID:           decoded.ID,
		Model:        decoded.Model,
		Provider:     a.Name(),
		Message:      msg,
		FinishReason: openaiFinish(string(choice.FinishReason)),
		Usage: Usage{
			InputTokens:  decoded.Usage.PromptTokens,
			OutputTokens: decoded.Usage.CompletionTokens,
			TotalTokens:  decoded.Usage.TotalTokens,
		},
	}, nil
}

// Stream sends a streaming request. Chat Completions interleaves tool-call
// argument fragments in choice deltas keyed by tool-call index, with a
// literal [DONE] sentinel ending the stream.
func (a *openaiAdapter) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	wire := a.encodeRequest(req, true)
	wire.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	resp, err := a.do(ctx, wire)
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamEvent, 64)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		type openCall struct {
			id   string
			name string
			args strings.Builder
		}
		calls := make(map[int]*openCall)

		var (
			text      strings.Builder
			usage     Usage
			rawFinish string
			respID    string
			respModel string
		)

		flushCalls := func() []ToolCall {
			indexes := make([]int, 0, len(calls))
			for i := range calls {
				indexes = append(indexes, i)
			}
			sort.Ints(indexes)
			var out []ToolCall
			for _, i := range indexes {
				c := calls[i]
				call := ToolCall{
					ID:        c.id,
					Name:      c.name,
					Arguments: decodeToolArguments(c.args.String()),
				}
				out = append(out, call)
				ch <- StreamEvent{Type: StreamToolCall, ToolCall: &call}
			}
			calls = make(map[int]*openCall)
			return out
		}

		var toolCalls []ToolCall
		reader := newSSEReader(resp.Body)
		for {
			payload, err := reader.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				ch <- StreamEvent{Type: StreamError, Err: &NetworkError{AdapterError{Message: "openai stream read failed", Cause: err}}}
				return
			}
			if payload == "[DONE]" {
				break
			}

			var chunk openai.ChatCompletionStreamResponse
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				slog.WarnContext(ctx, "openai_stream_bad_frame", "error", err)
				continue
			}
			if chunk.ID != "" {
				respID = chunk.ID
			}
			if chunk.Model != "" {
				respModel = chunk.Model
			}
			if chunk.Usage != nil {
				usage.InputTokens = chunk.Usage.PromptTokens
				usage.OutputTokens = chunk.Usage.CompletionTokens
				usage.TotalTokens = chunk.Usage.TotalTokens
			}
			if len(chunk.Choices) == 0 {
				continue
			}

			choice := chunk.Choices[0]
			if choice.Delta.Content != "" {
				text.WriteString(choice.Delta.Content)
				ch <- StreamEvent{Type: StreamTextDelta, Delta: choice.Delta.Content}
			}
			for _, tc := range choice.Delta.ToolCalls {
				index := 0
				if tc.Index != nil {
					index = *tc.Index
				}
				call := calls[index]
				if call == nil {
					call = &openCall{}
					calls[index] = call
				}
				if tc.ID != "" {
					call.id = tc.ID
				}
				if tc.Function.Name != "" {
					call.name = tc.Function.Name
				}
				call.args.WriteString(tc.Function.Arguments)
			}
			if choice.FinishReason != "" {
				rawFinish = string(choice.FinishReason)
				toolCalls = append(toolCalls, flushCalls()...)
			}
		}
		// If the stream ended without a finish chunk, still surface any
		// buffered calls.
		toolCalls = append(toolCalls, flushCalls()...)

		finish := openaiFinish(rawFinish)
		msg := Message{Role: RoleAssistant}
		if text.Len() > 0 {
			msg.Content = append(msg.Content, TextPart(text.String()))
		}
		for _, tc := range toolCalls {
			msg.Content = append(msg.Content, ToolCallPart(tc.ID, tc.Name, tc.Arguments))
		}
		if respModel == "" {
			respModel = req.Model
		}
		ch <- StreamEvent{
			Type:         StreamFinish,
			FinishReason: &finish,
			Usage:        &usage,
			Response: &Response{
				ID:           respID,
				Model:        respModel,
				Provider:     a.Name(),
				Message:      msg,
				FinishReason: finish,
				Usage:        usage,
			},
		}
	}()
	return ch, nil
}
