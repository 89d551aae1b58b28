package core

import (
	"context"

	"github.com/finvisor/finvisor/logging"
)

// ToolContext is the scoped execution environment handed to a tool call. It
// carries correlation identifiers, the session's authentication flag and a
// logger; tools never see the session object itself.
type ToolContext struct {
	ctx           context.Context
	sessionID     string
	userID        string
	executionID   string
	authenticated bool

	*loggerAdapter
}

// NewToolContext builds a tool context for one execution.
func NewToolContext(
	ctx context.Context,
	sessionID, userID, executionID string,
	authenticated bool,
	logger logging.Logger,
) *ToolContext {
	return &ToolContext{
		ctx:           ctx,
		sessionID:     sessionID,
		userID:        userID,
		executionID:   executionID,
		authenticated: authenticated,
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Context returns the cancellation context bounding this call.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// SessionID returns the owning session identifier.
func (tc *ToolContext) SessionID() string { return tc.sessionID }

// UserID returns the derived memory-owner identifier.
func (tc *ToolContext) UserID() string { return tc.userID }

// ExecutionID returns the id correlating this call with its execution record.
func (tc *ToolContext) ExecutionID() string { return tc.executionID }

// Authenticated reports whether the session may use auth-protected tools.
func (tc *ToolContext) Authenticated() bool { return tc.authenticated }
