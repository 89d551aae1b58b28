package core

import "time"

// MessageRole identifies the author of a stored conversation message.
type MessageRole string

const (
	// RoleUser marks a message written by the end user.
	RoleUser MessageRole = "user"
	// RoleAssistant marks a message produced by the agent.
	RoleAssistant MessageRole = "assistant"
)

// MessageMetadata carries optional per-message annotations recorded when the
// assistant answers: which workflow served the turn, which tools ran and how
// long the turn took.
type MessageMetadata struct {
	Workflow  WorkflowType  `json:"workflow,omitempty"`
	ToolsUsed []string      `json:"tools_used,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Capped    bool          `json:"capped,omitempty"`
	Degraded  bool          `json:"degraded,omitempty"`
}

// Message is one immutable conversation history entry. Messages are ordered
// by Timestamp within a session; append order equals arrival order.
type Message struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	Role      MessageRole      `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

// NewMessage builds a message with a fresh id and UTC timestamp.
func NewMessage(sessionID string, role MessageRole, content string) Message {
	return Message{
		ID:        NewID(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}
