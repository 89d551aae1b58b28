package memory

import (
	"context"
	"sync"

	"github.com/finvisor/finvisor/core"
)

// InMemoryStore is a process-local Store. Messages are kept in append order
// per session; user memory documents live in a map keyed by user id.
// Protected by an RWMutex; suitable for tests and single-process deployments.
type InMemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*core.UserMemory
	messages map[string][]core.Message // sessionID -> messages, arrival order
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:    map[string]*core.UserMemory{},
		messages: map[string][]core.Message{},
	}
}

// GetUserMemory returns the user's document, initializing and persisting the
// empty shape on first access.
func (s *InMemoryStore) GetUserMemory(_ context.Context, userID string) (*core.UserMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.users[userID]
	if !ok {
		m = core.NewUserMemory(userID)
		s.users[userID] = m
	}
	return m.Clone(), nil
}

// GetConversationHistory returns up to limit most recent messages,
// oldest-first. A limit <= 0 returns the full history.
func (s *InMemoryStore) GetConversationHistory(_ context.Context, sessionID string, limit int) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[sessionID]
	start := 0
	if limit > 0 && len(msgs) > limit {
		start = len(msgs) - limit
	}
	out := make([]core.Message, len(msgs)-start)
	copy(out, msgs[start:])
	return out, nil
}

// SaveMessage appends a message to the session history.
func (s *InMemoryStore) SaveMessage(_ context.Context, msg core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	return nil
}

// UpdateUserMemory applies the partial update and returns the merged document.
func (s *InMemoryStore) UpdateUserMemory(_ context.Context, userID string, update core.MemoryUpdate) (*core.UserMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.users[userID]
	if !ok {
		m = core.NewUserMemory(userID)
		s.users[userID] = m
	}
	m.Apply(update)
	return m.Clone(), nil
}
