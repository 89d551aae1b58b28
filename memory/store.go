package memory

import (
	"context"

	"github.com/finvisor/finvisor/core"
)

// Store persists user memory documents and session message history.
//
// Contract:
//   - GetUserMemory initializes and persists an empty-shaped document on
//     first access, then returns it; a second immediate read returns an
//     identical record (no duplicate initialization).
//   - GetConversationHistory returns the most recent limit messages in
//     chronological (oldest-first) order.
//   - SaveMessage appends an immutable message; append order within a
//     session equals arrival order.
//   - UpdateUserMemory applies a partial update under the core.UserMemory
//     merge policy and returns the resulting document.
//
// Writes are last-writer-wins per field group. This is safe while turns
// within a session are serialized by the caller.
type Store interface {
	GetUserMemory(ctx context.Context, userID string) (*core.UserMemory, error)
	GetConversationHistory(ctx context.Context, sessionID string, limit int) ([]core.Message, error)
	SaveMessage(ctx context.Context, msg core.Message) error
	UpdateUserMemory(ctx context.Context, userID string, update core.MemoryUpdate) (*core.UserMemory, error)
}
