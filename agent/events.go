package agent

import (
	"sync"
	"time"
)

// EventKind identifies the type of session event.
type EventKind string

const (
	// EventThinking marks the start of each completion request.
	EventThinking EventKind = "thinking"
	// EventContent carries one streamed assistant text fragment; consumers
	// reconstruct the full message by concatenating fragments in order.
	EventContent EventKind = "content"
	// EventToolCall announces an invocation as it is decoded from the stream.
	EventToolCall EventKind = "tool_call"
	// EventToolResult reports one completed tool execution.
	EventToolResult EventKind = "tool_result"
	// EventDone terminates a successful run.
	EventDone EventKind = "done"
	// EventError terminates a failed run. Every run ends with exactly one
	// done or error event.
	EventError EventKind = "error"
)

// Event is a typed event emitted by the agent loop.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventEmitter delivers events to the transport layer via a buffered
// channel.
type EventEmitter struct {
	sessionID string
	ch        chan Event
	closed    bool
	mu        sync.Mutex
}

// NewEventEmitter creates an EventEmitter with a buffered channel.
func NewEventEmitter(sessionID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{
		sessionID: sessionID,
		ch:        make(chan Event, bufferSize),
	}
}

// Emit sends an event. After Close, events are silently dropped so a
// finished consumer cannot panic the loop.
func (e *EventEmitter) Emit(kind EventKind, data map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := Event{
		Kind:      kind,
		Timestamp: time.Now(),
		SessionID: e.sessionID,
		Data:      data,
	}
	select {
	case e.ch <- event:
	default:
		// Channel full; drop rather than block the loop.
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.ch
}

// Close closes the event channel. Safe to call multiple times.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
