package core

import (
	"sync"
	"time"
)

// SessionMetrics aggregates per-session counters surfaced via status queries.
type SessionMetrics struct {
	TotalConversations  int           `json:"total_conversations"`
	TotalToolCalls      int           `json:"total_tool_calls"`
	SuccessfulToolCalls int           `json:"successful_tool_calls"`
	AverageResponseTime time.Duration `json:"average_response_time"`
	LastActivity        time.Time     `json:"last_activity"`
}

// Session represents one conversational container. It tracks the observable
// agent state, the completed-turn counter and aggregate metrics, plus a
// financial-context scratch map fed by successful data-fetch tools.
// It is safe for concurrent access, though turns within a session are
// serialized by the owning store.
//
// Contract:
//   - mutations update the Updated timestamp
//   - agent-state changes go through the closed transition table; forcing an
//     illegal move is rejected
//   - FinancialContext values are last-writer-wins per tool name
type Session struct {
	ID               string         `json:"id"`
	Created          time.Time      `json:"created"`
	Updated          time.Time      `json:"updated"`
	Authenticated    bool           `json:"authenticated"`
	State            AgentState     `json:"agent_state"`
	CurrentWorkflow  WorkflowType   `json:"current_workflow,omitempty"`
	ConversationTurn int            `json:"conversation_turn"`
	Metrics          SessionMetrics `json:"metrics"`
	FinancialContext map[string]any `json:"financial_context,omitempty"`

	mu sync.RWMutex
}

// NewSession creates a session in the ready state.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:               id,
		Created:          now,
		Updated:          now,
		State:            StateReady,
		FinancialContext: map[string]any{},
	}
}

// AgentState returns the current observable state.
func (s *Session) AgentState() AgentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State
}

// SetAgentState transitions to next, returning an error on an illegal move.
func (s *Session) SetAgentState(next AgentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.State.Transition(next)
	if err != nil {
		return err
	}
	s.State = st
	s.Updated = time.Now().UTC()
	return nil
}

// ForceError moves the session into the error state from wherever it is.
// Error is reachable from every non-error state, so this cannot fail except
// when already in error, in which case it is a no-op.
func (s *Session) ForceError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State != StateError {
		s.State = StateError
		s.Updated = time.Now().UTC()
	}
}

// SetAuthenticated flags the session as authenticated for protected tools.
func (s *Session) SetAuthenticated(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Authenticated = v
	s.Updated = time.Now().UTC()
}

// IsAuthenticated reports the authentication flag.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Authenticated
}

// CompleteTurn records a finished user/assistant exchange: bumps the turn
// counter, folds tool counts and response time into the metrics and stamps
// the workflow that served the turn.
func (s *Session) CompleteTurn(workflow WorkflowType, totalTools, successfulTools int, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ConversationTurn++
	s.CurrentWorkflow = workflow
	s.Metrics.TotalConversations++
	s.Metrics.TotalToolCalls += totalTools
	s.Metrics.SuccessfulToolCalls += successfulTools
	// Running mean over completed conversations.
	n := time.Duration(s.Metrics.TotalConversations)
	s.Metrics.AverageResponseTime += (elapsed - s.Metrics.AverageResponseTime) / n
	s.Metrics.LastActivity = time.Now().UTC()
	s.Updated = s.Metrics.LastActivity
}

// MergeFinancialContext folds successful data-fetch results into the session
// scratch context, keyed by tool name. Last writer wins per key.
func (s *Session) MergeFinancialContext(delta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range delta {
		s.FinancialContext[k] = v
	}
	s.Updated = time.Now().UTC()
}

// FinancialContextSnapshot returns a shallow copy safe for reads outside the lock.
func (s *Session) FinancialContextSnapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.FinancialContext))
	for k, v := range s.FinancialContext {
		out[k] = v
	}
	return out
}

// Snapshot returns a copy of the session's externally visible fields.
func (s *Session) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{
		ID:               s.ID,
		Created:          s.Created,
		Updated:          s.Updated,
		Authenticated:    s.Authenticated,
		State:            s.State,
		CurrentWorkflow:  s.CurrentWorkflow,
		ConversationTurn: s.ConversationTurn,
		Metrics:          s.Metrics,
		FinancialContext: nil,
	}
}
