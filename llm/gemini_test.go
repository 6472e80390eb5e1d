package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiEncodeRequest(t *testing.T) {
	adapter := newGeminiAdapter(Options{APIKey: "k"})
	wire := adapter.encodeRequest(Request{
		Model: "gemini-2.0-flash",
		Messages: []Message{
			SystemMessage("first instruction"),
			SystemMessage("second instruction"),
			UserMessage("delete tmp.txt"),
			{Role: RoleAssistant, Content: []ContentPart{
				ToolCallPart("call_abc", "delete_file", json.RawMessage(`{"path":"tmp.txt"}`)),
			}},
			{Role: RoleTool, Content: []ContentPart{
				ToolResultPart("call_abc", "deleted", false),
			}},
		},
		ToolDefs: []ToolDefinition{{Name: "delete_file", Parameters: map[string]any{"type": "object"}}},
	})

	if wire.SystemInstruction == nil {
		t.Fatal("system instruction missing")
	}
	if got := wire.SystemInstruction.Parts[0].Text; got != "first instruction\n\nsecond instruction" {
		t.Errorf("system instruction = %q, want both prompts joined", got)
	}
	if len(wire.Contents) != 3 {
		t.Fatalf("got %d contents, want 3", len(wire.Contents))
	}
	if wire.Contents[1].Role != "model" {
		t.Errorf("assistant role = %q, want model", wire.Contents[1].Role)
	}
	fc := wire.Contents[1].Parts[0].FunctionCall
	if fc == nil || fc.Name != "delete_file" || fc.Args["path"] != "tmp.txt" {
		t.Errorf("functionCall = %+v", fc)
	}
	// Result is matched back to its call by name, since the wire format has
	// no call IDs.
	fr := wire.Contents[2].Parts[0].FunctionResponse
	if fr == nil || fr.Name != "delete_file" {
		t.Fatalf("functionResponse = %+v", fr)
	}
	if fr.Response["output"] != "deleted" {
		t.Errorf("response payload = %+v", fr.Response)
	}
}

func TestGeminiEncodeErrorResult(t *testing.T) {
	adapter := newGeminiAdapter(Options{APIKey: "k"})
	wire := adapter.encodeRequest(Request{
		Messages: []Message{
			{Role: RoleAssistant, Content: []ContentPart{
				ToolCallPart("call_1", "read_file", json.RawMessage(`{}`)),
			}},
			{Role: RoleTool, Content: []ContentPart{
				ToolResultPart("call_1", "no such file", true),
			}},
		},
	})
	fr := wire.Contents[1].Parts[0].FunctionResponse
	if fr.Response["error"] != "no such file" {
		t.Errorf("error result payload = %+v", fr.Response)
	}
}

func TestGeminiComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Goog-Api-Key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		if !strings.HasSuffix(r.URL.Path, "models/gemini-2.0-flash:generateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `{
			"candidates": [{
				"content": {"role": "model", "parts": [
					{"text": "Reading it."},
					{"functionCall": {"name": "read_file", "args": {"path": "go.mod"}}}
				]},
				"finishReason": "STOP"
			}],
			"usageMetadata": {"promptTokenCount": 8, "candidatesTokenCount": 4, "totalTokenCount": 12}
		}`)
	}))
	defer server.Close()

	adapter := newGeminiAdapter(Options{APIKey: "test-key", BaseURL: server.URL})
	resp, err := adapter.Complete(context.Background(), Request{Model: "gemini-2.0-flash", Messages: []Message{UserMessage("read go.mod")}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	calls := resp.ToolCallsFromResponse()
	if len(calls) != 1 {
		t.Fatalf("calls = %+v", calls)
	}
	if !strings.HasPrefix(calls[0].ID, "call_") {
		t.Errorf("call ID %q not synthesized", calls[0].ID)
	}
	var args map[string]any
	if err := json.Unmarshal(calls[0].Arguments, &args); err != nil || args["path"] != "go.mod" {
		t.Errorf("arguments = %s", calls[0].Arguments)
	}
	// A STOP with a function call present normalizes to tool_calls.
	if resp.FinishReason.Reason != FinishToolCalls {
		t.Errorf("finish = %q", resp.FinishReason.Reason)
	}
	if resp.Usage.TotalTokens != 12 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestGeminiStream(t *testing.T) {
	frames := []string{
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"Alm"}]}}]}`,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"ost"}]}}]}`,
		`{"candidates":[{"content":{"role":"model","parts":[]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":2,"candidatesTokenCount":6,"totalTokenCount":8}}`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":streamGenerateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("alt") != "sse" {
			t.Errorf("alt = %q, want sse", r.URL.Query().Get("alt"))
		}
		for _, frame := range frames {
			io.WriteString(w, "data: "+frame+"\n\n")
		}
	}))
	defer server.Close()

	adapter := newGeminiAdapter(Options{APIKey: "k", BaseURL: server.URL})
	ch, err := adapter.Stream(context.Background(), Request{Model: "gemini-2.0-flash", Messages: []Message{UserMessage("hi")}})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var (
		text   strings.Builder
		finish *StreamEvent
	)
	for event := range ch {
		switch event.Type {
		case StreamTextDelta:
			text.WriteString(event.Delta)
		case StreamFinish:
			saved := event
			finish = &saved
		case StreamError:
			t.Fatalf("unexpected stream error: %v", event.Err)
		}
	}

	if text.String() != "Almost" {
		t.Errorf("assembled text = %q", text.String())
	}
	if finish == nil {
		t.Fatal("no finish event")
	}
	if finish.FinishReason.Reason != FinishStop {
		t.Errorf("finish = %q", finish.FinishReason.Reason)
	}
	if finish.Usage.TotalTokens != 8 {
		t.Errorf("usage = %+v", finish.Usage)
	}
	if finish.Response.Text() != "Almost" {
		t.Errorf("final response text = %q", finish.Response.Text())
	}
}
