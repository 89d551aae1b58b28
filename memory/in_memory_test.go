package memory

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/finvisor/finvisor/core"
)

var _ Store = (*InMemoryStore)(nil)

func TestGetUserMemory_IdempotentInitialization(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	first, err := store.GetUserMemory(ctx, "u1")
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if first.Episodic.InteractionCount != 0 {
		t.Fatalf("expected zero interactions, got %d", first.Episodic.InteractionCount)
	}
	if len(first.Episodic.Topics) != 0 || len(first.Semantic.Preferences) != 0 {
		t.Fatalf("expected empty shape, got %+v", first)
	}

	second, err := store.GetUserMemory(ctx, "u1")
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("second read differs:\n%+v\n%+v", first, second)
	}
}

func TestGetUserMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	m, _ := store.GetUserMemory(ctx, "u1")
	m.Working["polluted"] = true

	again, _ := store.GetUserMemory(ctx, "u1")
	if _, ok := again.Working["polluted"]; ok {
		t.Fatal("caller mutation leaked into the store")
	}
}

func TestUpdateUserMemory_MergePolicy(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	for i := 0; i < 3; i++ {
		if _, err := store.UpdateUserMemory(ctx, "u1", core.MemoryUpdate{
			Episodic: &core.EpisodicUpdate{Topics: []string{"stocks"}},
		}); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	m, _ := store.GetUserMemory(ctx, "u1")
	if m.Episodic.InteractionCount != 3 {
		t.Fatalf("expected 3 interactions, got %d", m.Episodic.InteractionCount)
	}
	if len(m.Episodic.Topics) != 3 {
		t.Fatalf("duplicates must be kept, got %v", m.Episodic.Topics)
	}
}

func TestGetConversationHistory_OldestFirstAndLimited(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	for i := 0; i < 5; i++ {
		msg := core.NewMessage("s1", core.RoleUser, fmt.Sprintf("message %d", i))
		msg.Timestamp = time.Now().UTC().Add(time.Duration(i) * time.Second)
		if err := store.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	history, err := store.GetConversationHistory(ctx, "s1", 3)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	// The most recent 3, oldest first.
	if history[0].Content != "message 2" || history[2].Content != "message 4" {
		t.Fatalf("unexpected window: %q .. %q", history[0].Content, history[2].Content)
	}
	for i := 1; i < len(history); i++ {
		if history[i].Timestamp.Before(history[i-1].Timestamp) {
			t.Fatalf("history not in non-decreasing timestamp order at %d", i)
		}
	}

	all, _ := store.GetConversationHistory(ctx, "s1", 100)
	if len(all) != 5 {
		t.Fatalf("expected all 5 messages, got %d", len(all))
	}
}

func TestGetConversationHistory_EmptySession(t *testing.T) {
	store := NewInMemoryStore()
	history, err := store.GetConversationHistory(context.Background(), "nope", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d", len(history))
	}
}
