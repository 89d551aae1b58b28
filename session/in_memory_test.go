package session

import (
	"sync"
	"testing"
	"time"

	"github.com/finvisor/finvisor/core"
)

var _ Store = (*InMemoryStore)(nil)

func TestCreateAndGet(t *testing.T) {
	s := NewInMemoryStore()
	sess, err := s.Create("s1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.AgentState() != core.StateReady {
		t.Fatalf("new session must start ready, got %s", sess.AgentState())
	}

	got, err := s.Get("s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != sess {
		t.Fatal("get must return the same session instance")
	}

	if _, err := s.Get("missing"); err == nil {
		t.Fatal("expected not-found error")
	}

	// Create is idempotent for an existing id.
	again, err := s.Create("s1")
	if err != nil {
		t.Fatalf("re-create: %v", err)
	}
	if again != sess {
		t.Fatal("re-create must not replace the session")
	}
}

func TestAcquireTurn_SerializesSameSession(t *testing.T) {
	s := NewInMemoryStore()
	if _, err := s.Create("s1"); err != nil {
		t.Fatalf("create: %v", err)
	}

	var mu sync.Mutex
	var active, maxActive int

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, release, err := s.AcquireTurn("s1")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			defer release()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("turns within one session must be serialized, saw %d concurrent", maxActive)
	}
}

func TestAcquireTurn_DifferentSessionsRunConcurrently(t *testing.T) {
	s := NewInMemoryStore()
	if _, err := s.Create("a"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create("b"); err != nil {
		t.Fatal(err)
	}

	_, releaseA, err := s.AcquireTurn("a")
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer releaseA()

	done := make(chan struct{})
	go func() {
		_, releaseB, err := s.AcquireTurn("b")
		if err == nil {
			releaseB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a held turn on session a must not block session b")
	}
}
