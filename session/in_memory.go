package session

import (
	"errors"
	"sync"

	"github.com/finvisor/finvisor/core"
)

// ErrNotFound is returned when a session id is unknown to the store.
var ErrNotFound = errors.New("session not found")

// Store tracks live sessions.
type Store interface {
	// Create registers a new session with the given id.
	Create(id string) (*core.Session, error)

	// Get returns an existing session.
	Get(id string) (*core.Session, error)

	// AcquireTurn blocks until the session's turn lock is free, then returns
	// the session and a release function. Turns within one session are
	// serialized by construction; different sessions proceed concurrently.
	AcquireTurn(id string) (*core.Session, func(), error)
}

type entry struct {
	sess   *core.Session
	turnMu sync.Mutex
}

// InMemoryStore is a volatile Store backed by a process-local map. Safe for
// concurrent access; best suited for single-process deployments and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewInMemoryStore constructs an empty session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: map[string]*entry{}}
}

// Create registers a session. Creating an id that already exists returns the
// existing session unchanged so retried creates are harmless.
func (s *InMemoryStore) Create(id string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		return e.sess, nil
	}
	e := &entry{sess: core.NewSession(id)}
	s.entries[id] = e
	return e.sess, nil
}

// Get returns the live session for id.
func (s *InMemoryStore) Get(id string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.sess, nil
}

// AcquireTurn serializes turn processing for one session.
func (s *InMemoryStore) AcquireTurn(id string) (*core.Session, func(), error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrNotFound
	}
	e.turnMu.Lock()
	return e.sess, e.turnMu.Unlock, nil
}
