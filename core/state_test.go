package core

import "testing"

func TestStateTransitions_HappyPath(t *testing.T) {
	path := []AgentState{
		StateThinking, StateExecutingTools, StateEvaluating,
		StateExecutingTools, StateResponding, StateReady,
	}
	state := StateReady
	for _, next := range path {
		got, err := state.Transition(next)
		if err != nil {
			t.Fatalf("transition %s -> %s: %v", state, next, err)
		}
		state = got
	}
	if state != StateReady {
		t.Fatalf("expected ready, got %s", state)
	}
}

func TestStateTransitions_Invalid(t *testing.T) {
	if _, err := StateReady.Transition(StateResponding); err == nil {
		t.Fatal("expected error for ready -> responding")
	}
	if _, err := StateResponding.Transition(StateThinking); err == nil {
		t.Fatal("expected error for responding -> thinking")
	}
}

func TestStateTransitions_ErrorIsNotSticky(t *testing.T) {
	// Any non-error state can fail into error.
	for _, from := range []AgentState{StateReady, StateThinking, StateExecutingTools, StateEvaluating, StateResponding} {
		if !from.CanTransition(StateError) {
			t.Fatalf("expected %s -> error to be allowed", from)
		}
	}
	// The next message recovers the session.
	got, err := StateError.Transition(StateThinking)
	if err != nil {
		t.Fatalf("error -> thinking: %v", err)
	}
	if got != StateThinking {
		t.Fatalf("expected thinking, got %s", got)
	}
}

func TestSession_SetAgentStateValidates(t *testing.T) {
	s := NewSession("s1")
	if err := s.SetAgentState(StateResponding); err == nil {
		t.Fatal("expected rejection of ready -> responding")
	}
	if s.AgentState() != StateReady {
		t.Fatalf("state changed on rejected transition: %s", s.AgentState())
	}
	if err := s.SetAgentState(StateThinking); err != nil {
		t.Fatalf("ready -> thinking: %v", err)
	}
	s.ForceError()
	if s.AgentState() != StateError {
		t.Fatalf("expected error, got %s", s.AgentState())
	}
	if err := s.SetAgentState(StateThinking); err != nil {
		t.Fatalf("error -> thinking: %v", err)
	}
}
