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

	"github.com/google/uuid"
)

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// geminiAdapter speaks the generateContent protocol: contents/parts instead
// of messages, role "model" for the assistant, and functionCall parts that
// carry no vendor-assigned IDs. Call IDs are synthesized locally and mapped
// back positionally when history is re-encoded.
type geminiAdapter struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

func newGeminiAdapter(opts Options) *geminiAdapter {
	base := opts.BaseURL
	if base == "" {
		base = geminiDefaultBaseURL
	}
	return &geminiAdapter{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimSuffix(base, "/"),
		httpc:   opts.httpClient(),
	}
}

func (a *geminiAdapter) Name() string { return string(ProviderGemini) }

// Wire types.

type gemPart struct {
	Text             string           `json:"text,omitempty"`
	FunctionCall     *gemFunctionCall `json:"functionCall,omitempty"`
	FunctionResponse *gemFunctionResp `json:"functionResponse,omitempty"`
}

type gemFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type gemFunctionResp struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type gemContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []gemPart `json:"parts"`
}

type gemFunctionDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type gemTool struct {
	FunctionDeclarations []gemFunctionDecl `json:"functionDeclarations"`
}

type gemGenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type gemRequest struct {
	Contents          []gemContent         `json:"contents"`
	SystemInstruction *gemContent          `json:"systemInstruction,omitempty"`
	Tools             []gemTool            `json:"tools,omitempty"`
	GenerationConfig  *gemGenerationConfig `json:"generationConfig,omitempty"`
}

type gemUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type gemCandidate struct {
	Content      gemContent `json:"content"`
	FinishReason string     `json:"finishReason"`
}

type gemResponse struct {
	Candidates    []gemCandidate `json:"candidates"`
	UsageMetadata *gemUsage      `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
}

var geminiFinishReasons = map[string]string{
	"STOP":       FinishStop,
	"MAX_TOKENS": FinishLength,
	"SAFETY":     FinishError,
	"RECITATION": FinishError,
}

func geminiFinish(raw string, sawToolCall bool) FinishReason {
	// Gemini reports STOP even when the turn ends on a function call.
	if sawToolCall {
		return FinishReason{Reason: FinishToolCalls, Raw: raw}
	}
	reason, ok := geminiFinishReasons[raw]
	if !ok {
		reason = FinishStop
	}
	return FinishReason{Reason: reason, Raw: raw}
}

// encodeRequest re-encodes ordered turns into contents/parts. Tool results
// are matched to their originating call by walking history in order, since
// functionResponse parts are keyed by function name rather than call ID.
func (a *geminiAdapter) encodeRequest(req Request) *gemRequest {
	out := &gemRequest{}

	var system []string
	callNames := make(map[string]string) // synthesized call ID -> function name

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, strings.TrimSpace(msg.TextContent()))
		case RoleUser:
			out.Contents = append(out.Contents, gemContent{
				Role:  "user",
				Parts: []gemPart{{Text: msg.TextContent()}},
			})
		case RoleAssistant:
			var parts []gemPart
			if text := msg.TextContent(); text != "" {
				parts = append(parts, gemPart{Text: text})
			}
			for _, tc := range msg.ToolCalls() {
				callNames[tc.ID] = tc.Name
				var args map[string]any
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &args); err != nil {
						args = nil
					}
				}
				parts = append(parts, gemPart{FunctionCall: &gemFunctionCall{
					Name: tc.Name,
					Args: args,
				}})
			}
			if len(parts) == 0 {
				continue
			}
			out.Contents = append(out.Contents, gemContent{Role: "model", Parts: parts})
		case RoleTool:
			var parts []gemPart
			for _, part := range msg.Content {
				if part.Kind != ContentToolResult || part.ToolResult == nil {
					continue
				}
				name := callNames[part.ToolResult.ToolCallID]
				response := map[string]any{"output": part.ToolResult.Content}
				if part.ToolResult.IsError {
					response = map[string]any{"error": part.ToolResult.Content}
				}
				parts = append(parts, gemPart{FunctionResponse: &gemFunctionResp{
					Name:     name,
					Response: response,
				}})
			}
			if len(parts) == 0 {
				continue
			}
			out.Contents = append(out.Contents, gemContent{Role: "user", Parts: parts})
		}
	}

	if joined := strings.TrimSpace(strings.Join(system, "\n\n")); joined != "" {
		out.SystemInstruction = &gemContent{Parts: []gemPart{{Text: joined}}}
	}

	if len(req.ToolDefs) > 0 {
		decls := make([]gemFunctionDecl, 0, len(req.ToolDefs))
		for _, td := range req.ToolDefs {
			decls = append(decls, gemFunctionDecl{
				Name:        td.Name,
				Description: td.Description,
				Parameters:  td.Parameters,
			})
		}
		out.Tools = []gemTool{{FunctionDeclarations: decls}}
	}

	if req.MaxTokens > 0 || req.Temperature != nil {
		out.GenerationConfig = &gemGenerationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
		}
	}
	return out
}

func (a *geminiAdapter) do(ctx context.Context, url string, wire *gemRequest) (*http.Response, error) {
	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", a.apiKey)

	resp, err := a.httpc.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{AdapterError{Message: "gemini request failed", Cause: err}}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, ErrorFromStatusCode(resp.StatusCode, a.Name(), string(body))
	}
	return resp, nil
}

func synthesizeCallID() string {
	return "call_" + uuid.NewString()
}

// Complete sends a blocking request.
func (a *geminiAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", a.baseURL, req.Model)
	resp, err := a.do(ctx, url, a.encodeRequest(req))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded gemResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &StreamDecodeError{AdapterError{Message: "gemini response decode failed", Cause: err}}
	}
	if len(decoded.Candidates) == 0 {
		return nil, &StreamDecodeError{AdapterError{Message: "gemini response contained no candidates"}}
	}

	candidate := decoded.Candidates[0]
	msg := Message{Role: RoleAssistant}
	sawToolCall := false
	for _, part := range candidate.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			sawToolCall = true
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil || part.FunctionCall.Args == nil {
				args = json.RawMessage(`{}`)
			}
			msg.Content = append(msg.Content, ToolCallPart(
				synthesizeCallID(), part.FunctionCall.Name, args))
		case part.Text != "":
			msg.Content = append(msg.Content, TextPart(part.Text))
		}
	}

	var usage Usage
	if decoded.UsageMetadata != nil {
		usage = Usage{
			InputTokens:  decoded.UsageMetadata.PromptTokenCount,
			OutputTokens: decoded.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  decoded.UsageMetadata.TotalTokenCount,
		}
	}
	return &Response{
		ID:           uuid.NewString(),
		Model:        req.Model,
		Provider:     a.Name(),
		Message:      msg,
		FinishReason: geminiFinish(candidate.FinishReason, sawToolCall),
		Usage:        usage,
	}, nil
}

// Stream sends a streaming request on the alt=sse variant. Each data: frame
// is a complete gemResponse chunk; function calls arrive whole rather than
// fragmented, so no argument buffering is needed.
func (a *geminiAdapter) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", a.baseURL, req.Model)
	resp, err := a.do(ctx, url, a.encodeRequest(req))
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamEvent, 64)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		var (
			text        strings.Builder
			toolCalls   []ToolCall
			usage       Usage
			rawFinish   string
			sawToolCall bool
		)

		reader := newSSEReader(resp.Body)
		for {
			payload, err := reader.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				ch <- StreamEvent{Type: StreamError, Err: &NetworkError{AdapterError{Message: "gemini stream read failed", Cause: err}}}
				return
			}

			var chunk gemResponse
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				slog.WarnContext(ctx, "gemini_stream_bad_frame", "error", err)
				continue
			}
			if chunk.UsageMetadata != nil {
				usage = Usage{
					InputTokens:  chunk.UsageMetadata.PromptTokenCount,
					OutputTokens: chunk.UsageMetadata.CandidatesTokenCount,
					TotalTokens:  chunk.UsageMetadata.TotalTokenCount,
				}
			}
			if len(chunk.Candidates) == 0 {
				continue
			}

			candidate := chunk.Candidates[0]
			if candidate.FinishReason != "" {
				rawFinish = candidate.FinishReason
			}
			for _, part := range candidate.Content.Parts {
				switch {
				case part.FunctionCall != nil:
					sawToolCall = true
					args, err := json.Marshal(part.FunctionCall.Args)
					if err != nil || part.FunctionCall.Args == nil {
						args = json.RawMessage(`{}`)
					}
					call := ToolCall{
						ID:        synthesizeCallID(),
						Name:      part.FunctionCall.Name,
						Arguments: args,
					}
					toolCalls = append(toolCalls, call)
					ch <- StreamEvent{Type: StreamToolCall, ToolCall: &call}
				case part.Text != "":
					text.WriteString(part.Text)
					ch <- StreamEvent{Type: StreamTextDelta, Delta: part.Text}
				}
			}
		}

		finish := geminiFinish(rawFinish, sawToolCall)
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
				ID:           uuid.NewString(),
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
