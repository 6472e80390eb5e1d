package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ferrywell/devpad/llm"
	"github.com/ferrywell/devpad/toolbox"
)

// ErrIterationLimit terminates a run whose model kept requesting tools past
// the configured cap. It is distinct from tool and transport errors.
var ErrIterationLimit = errors.New("iteration limit reached")

// ErrAborted terminates a run stopped by Abort.
var ErrAborted = errors.New("run aborted")

// ToolRunner executes tool calls. toolbox.Executor is the production
// implementation.
type ToolRunner interface {
	Definitions() []llm.ToolDefinition
	Run(ctx context.Context, name string, args json.RawMessage) toolbox.Result
}

// Config holds per-session tunables.
type Config struct {
	MaxIterations int // rounds of tool execution per user input
	MaxTokens     int
	Temperature   *float64
	EventBuffer   int
	Retry         llm.RetryPolicy
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		MaxIterations: 10,
		EventBuffer:   256,
		Retry:         llm.DefaultRetryPolicy(),
	}
}

// Session drives one conversation: it replays stored history, alternates
// provider calls and tool executions, persists every turn, and emits a
// structured event stream. Sessions share no mutable state with each other.
type Session struct {
	id      string
	chatID  string
	adapter llm.ProviderAdapter
	model   string
	tools   ToolRunner
	store   HistoryStore
	project ProjectContext
	emitter *EventEmitter
	config  Config

	mu      sync.Mutex
	history []Turn
	loaded  bool
	aborted bool
	running bool
}

// NewSession creates a session for one chat. History is reloaded from the
// store on the first Run.
func NewSession(chatID string, adapter llm.ProviderAdapter, model string, tools ToolRunner, store HistoryStore, project ProjectContext, config *Config) *Session {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
		if cfg.MaxIterations <= 0 {
			cfg.MaxIterations = 10
		}
	}
	id := uuid.NewString()
	return &Session{
		id:      id,
		chatID:  chatID,
		adapter: adapter,
		model:   model,
		tools:   tools,
		store:   store,
		project: project,
		emitter: NewEventEmitter(id, cfg.EventBuffer),
		config:  cfg,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Events returns the event channel consumed by the transport layer.
func (s *Session) Events() <-chan Event {
	return s.emitter.Events()
}

// Abort stops the run at the next round boundary.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
}

// Close releases the event channel. Pending events already emitted remain
// readable until drained.
func (s *Session) Close() {
	s.emitter.Close()
}

// History returns a copy of the in-memory conversation history.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// appendTurn persists a turn and, only on success, adds it to the working
// history. A store failure is fatal to the run; a turn is never silently
// dropped.
func (s *Session) appendTurn(ctx context.Context, turn Turn) error {
	if err := s.store.AppendTurn(ctx, s.chatID, turn); err != nil {
		return fmt.Errorf("persist %s turn: %w", turn.Kind, err)
	}
	s.mu.Lock()
	s.history = append(s.history, turn)
	s.mu.Unlock()
	return nil
}

// ensureHistory loads stored turns on first use and seeds the system prompt
// as the permanent first turn of a new chat.
func (s *Session) ensureHistory(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	stored, err := s.store.LoadHistory(ctx, s.chatID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	s.mu.Lock()
	s.history = stored
	s.loaded = true
	s.mu.Unlock()

	if len(stored) == 0 {
		prompt := BuildSystemPrompt(s.project, s.tools.Definitions())
		if err := s.appendTurn(ctx, NewSystemTurn(prompt)); err != nil {
			return err
		}
	}
	return nil
}

// Run processes one user message through the loop. It returns after emitting
// exactly one terminal done or error event.
func (s *Session) Run(ctx context.Context, userInput string) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("session is already processing a message")
	}
	s.running = true
	s.aborted = false
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if err := s.ensureHistory(ctx); err != nil {
		return s.fail(err, "persistence")
	}
	// The user turn is durable before the first provider call, so it
	// survives a crash mid-run.
	if err := s.appendTurn(ctx, NewUserTurn(userInput)); err != nil {
		return s.fail(err, "persistence")
	}

	var totalUsage llm.Usage

	for iteration := 0; ; iteration++ {
		if iteration >= s.config.MaxIterations {
			s.emitter.Emit(EventError, map[string]any{
				"message": fmt.Sprintf("stopped after %d rounds of tool execution", s.config.MaxIterations),
				"reason":  "iteration_limit",
			})
			return ErrIterationLimit
		}
		if err := ctx.Err(); err != nil {
			return s.fail(err, "cancelled")
		}
		s.mu.Lock()
		aborted := s.aborted
		s.mu.Unlock()
		if aborted {
			return s.fail(ErrAborted, "aborted")
		}

		s.emitter.Emit(EventThinking, map[string]any{"iteration": iteration})
		slog.DebugContext(ctx, "completion_request", "session", s.id, "iteration", iteration)

		response, err := s.streamCompletion(ctx)
		if err != nil {
			return s.fail(err, "provider")
		}
		totalUsage = totalUsage.Add(response.Usage)

		toolCalls := response.ToolCallsFromResponse()
		if err := s.appendTurn(ctx, NewAssistantTurn(response.Text(), toolCalls)); err != nil {
			return s.fail(err, "persistence")
		}

		if len(toolCalls) == 0 {
			s.emitter.Emit(EventDone, map[string]any{
				"iterations":    iteration + 1,
				"input_tokens":  totalUsage.InputTokens,
				"output_tokens": totalUsage.OutputTokens,
			})
			return nil
		}

		results := s.executeToolCalls(ctx, toolCalls)
		if err := s.appendTurn(ctx, NewToolTurn(results)); err != nil {
			return s.fail(err, "persistence")
		}
	}
}

// streamCompletion issues one provider request and forwards stream events to
// the emitter. The final accumulated response comes from the stream's finish
// event.
func (s *Session) streamCompletion(ctx context.Context) (*llm.Response, error) {
	request := llm.Request{
		Model:       s.model,
		Messages:    TurnsToMessages(s.History()),
		ToolDefs:    s.tools.Definitions(),
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	}

	// Retry covers request initiation; an error mid-stream is terminal since
	// partial output has already been forwarded.
	events, err := llm.Retry(ctx, s.config.Retry, func(ctx context.Context) (<-chan llm.StreamEvent, error) {
		return s.adapter.Stream(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	var response *llm.Response
	for event := range events {
		switch event.Type {
		case llm.StreamTextDelta:
			s.emitter.Emit(EventContent, map[string]any{"text": event.Delta})
		case llm.StreamToolCall:
			s.emitter.Emit(EventToolCall, map[string]any{
				"id":        event.ToolCall.ID,
				"name":      event.ToolCall.Name,
				"arguments": string(event.ToolCall.Arguments),
			})
		case llm.StreamFinish:
			response = event.Response
		case llm.StreamError:
			return nil, event.Err
		}
	}
	if response == nil {
		return nil, &llm.StreamDecodeError{AdapterError: llm.AdapterError{Message: "stream ended without a finish event"}}
	}
	return response, nil
}

// executeToolCalls dispatches invocations sequentially in emission order and
// returns exactly one outcome per invocation. Tool failures become
// error-flagged outcomes; they never abort the run.
func (s *Session) executeToolCalls(ctx context.Context, calls []llm.ToolCall) []llm.ToolResult {
	results := make([]llm.ToolResult, 0, len(calls))
	for _, call := range calls {
		result := s.tools.Run(ctx, call.Name, call.Arguments)
		content := truncateToolOutput(call.Name, result.Content)

		slog.DebugContext(ctx, "tool_executed",
			"session", s.id, "tool", call.Name, "error", result.IsError)
		s.emitter.Emit(EventToolResult, map[string]any{
			"id":       call.ID,
			"name":     call.Name,
			"content":  content,
			"is_error": result.IsError,
		})
		results = append(results, llm.ToolResult{
			ToolCallID: call.ID,
			Content:    content,
			IsError:    result.IsError,
		})
	}
	return results
}

// fail emits the terminal error event and returns the error unchanged.
func (s *Session) fail(err error, reason string) error {
	slog.Error("session_failed", "session", s.id, "reason", reason, "error", err)
	s.emitter.Emit(EventError, map[string]any{
		"message": err.Error(),
		"reason":  reason,
	})
	return err
}
