package agent

import (
	"context"
	"sync"
)

// HistoryStore persists conversation turns. Implementations must make
// AppendTurn durable before returning; the loop treats a store failure as
// fatal rather than silently dropping a turn.
type HistoryStore interface {
	LoadHistory(ctx context.Context, chatID string) ([]Turn, error)
	AppendTurn(ctx context.Context, chatID string, turn Turn) error
}

// ProjectContext supplies everything a session needs to know about the
// project it is operating on.
type ProjectContext interface {
	// WorkingDirectory is the absolute project root all tool effects are
	// confined to.
	WorkingDirectory() string
	// DisplayName is the human-readable project name used in the system
	// prompt.
	DisplayName() string
	// EnvOverlay returns project-scoped environment variables layered over
	// the host environment for shell commands.
	EnvOverlay() map[string]string
}

// MemoryHistoryStore is an in-memory HistoryStore for tests and the CLI,
// where conversations do not outlive the process.
type MemoryHistoryStore struct {
	mu    sync.Mutex
	chats map[string][]Turn
}

func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{chats: make(map[string][]Turn)}
}

func (s *MemoryHistoryStore) LoadHistory(ctx context.Context, chatID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.chats[chatID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryHistoryStore) AppendTurn(ctx context.Context, chatID string, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chatID] = append(s.chats[chatID], turn)
	return nil
}

// StaticProject is a ProjectContext backed by plain values.
type StaticProject struct {
	Dir  string
	Name string
	Env  map[string]string
}

func (p StaticProject) WorkingDirectory() string     { return p.Dir }
func (p StaticProject) DisplayName() string          { return p.Name }
func (p StaticProject) EnvOverlay() map[string]string { return p.Env }
