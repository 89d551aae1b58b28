package core

import "fmt"

// AgentState is the observable phase of processing a single conversational
// turn. States form a closed cycle: a healthy turn walks
// ready → thinking → executing_tools → evaluating → responding → ready.
// Any failure lands in error, which is terminal for the turn but not for the
// session: the next inbound message moves error → thinking again.
type AgentState string

const (
	// StateReady indicates the session is idle and can accept a message.
	StateReady AgentState = "ready"
	// StateThinking indicates a message was received and planning is underway.
	StateThinking AgentState = "thinking"
	// StateExecutingTools indicates tool calls from the active plan are running.
	StateExecutingTools AgentState = "executing_tools"
	// StateEvaluating indicates an orchestration iteration is assessing results.
	StateEvaluating AgentState = "evaluating"
	// StateResponding indicates the final answer is being assembled.
	StateResponding AgentState = "responding"
	// StateError indicates the current turn failed. Not sticky across turns.
	StateError AgentState = "error"
)

// validTransitions is the closed transition table. Error is reachable from
// every non-terminal state, so it is handled separately in CanTransition.
var validTransitions = map[AgentState][]AgentState{
	StateReady:          {StateThinking},
	StateThinking:       {StateExecutingTools, StateEvaluating, StateResponding},
	StateExecutingTools: {StateEvaluating, StateResponding, StateExecutingTools},
	StateEvaluating:     {StateExecutingTools, StateResponding},
	StateResponding:     {StateReady},
	StateError:          {StateThinking},
}

// CanTransition reports whether moving from s to next is a legal step.
func (s AgentState) CanTransition(next AgentState) bool {
	if next == StateError {
		return s != StateError
	}
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition validates and returns the next state, or an error describing the
// illegal move. Callers that already hold the session lock can assign the
// result directly.
func (s AgentState) Transition(next AgentState) (AgentState, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("illegal agent state transition %s -> %s", s, next)
	}
	return next, nil
}

// Terminal reports whether the state ends a turn (responding or error).
func (s AgentState) Terminal() bool {
	return s == StateResponding || s == StateError
}
