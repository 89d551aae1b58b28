package core

import (
	"errors"
	"fmt"
)

// FailureReason classifies turn-level failures. Tool-level failures are
// absorbed into execution records and never surface as a TurnError; the
// reasons below cover everything that can end or degrade a whole turn.
type FailureReason string

const (
	// ReasonToolFailure marks a single failed tool call. Partial success
	// is tolerated, so this appears in records rather than turn errors.
	ReasonToolFailure FailureReason = "tool_failure"
	// ReasonTotalFailure means every tool call in a plan failed and no
	// answer was synthesized.
	ReasonTotalFailure FailureReason = "total_failure"
	// ReasonPlanningFailure means the model could not produce a plan
	// even after a retry with shortened context.
	ReasonPlanningFailure FailureReason = "planning_failure"
	// ReasonOrchestrationCapped means the coordinator hit its iteration
	// limit. The turn still carries a best-effort answer.
	ReasonOrchestrationCapped FailureReason = "orchestration_capped"
	// ReasonTimeout means the session deadline elapsed. The turn ends in
	// state error and leaves memory untouched.
	ReasonTimeout FailureReason = "timeout"
	// ReasonAuthRequired means a tool needing authentication was called
	// on an unauthenticated session.
	ReasonAuthRequired FailureReason = "auth_required"
)

// TurnError is a classified failure of one conversation turn.
type TurnError struct {
	Reason  FailureReason
	Message string
	Err     error
}

func (e *TurnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *TurnError) Unwrap() error { return e.Err }

// NewTurnError builds a classified turn error wrapping cause (which may be
// nil).
func NewTurnError(reason FailureReason, message string, cause error) *TurnError {
	return &TurnError{Reason: reason, Message: message, Err: cause}
}

// ReasonOf extracts the failure reason from err, or "" if err carries none.
func ReasonOf(err error) FailureReason {
	var te *TurnError
	if errors.As(err, &te) {
		return te.Reason
	}
	return ""
}

// IsReason reports whether err is a TurnError with the given reason.
func IsReason(err error, reason FailureReason) bool {
	return ReasonOf(err) == reason
}
