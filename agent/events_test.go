package agent

import "testing"

func TestEmitterDeliversInOrder(t *testing.T) {
	emitter := NewEventEmitter("s1", 8)
	emitter.Emit(EventThinking, nil)
	emitter.Emit(EventContent, map[string]any{"text": "a"})
	emitter.Emit(EventDone, nil)
	emitter.Close()

	var kinds []EventKind
	for event := range emitter.Events() {
		kinds = append(kinds, event.Kind)
		if event.SessionID != "s1" {
			t.Errorf("session id = %q", event.SessionID)
		}
	}
	want := []EventKind{EventThinking, EventContent, EventDone}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds = %v, want %v", kinds, want)
		}
	}
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	emitter := NewEventEmitter("s1", 8)
	emitter.Close()
	emitter.Emit(EventContent, nil) // must not panic
	emitter.Close()                 // idempotent

	if _, open := <-emitter.Events(); open {
		t.Error("channel still open after Close")
	}
}

func TestEmitFullBufferDoesNotBlock(t *testing.T) {
	emitter := NewEventEmitter("s1", 1)
	emitter.Emit(EventContent, nil)
	done := make(chan struct{})
	go func() {
		emitter.Emit(EventContent, nil) // buffer full; must drop, not block
		close(done)
	}()
	<-done
	emitter.Close()
}
