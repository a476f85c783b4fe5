package pool

import (
	"context"
	"testing"
	"time"

	"llmhostd/pkg/types"
)

func testModel(key string, sessions int) types.Model {
	return types.Model{Key: key, Architecture: "mock", Sessions: sessions}
}

func TestAcquireRelease_ReusesIdleSession(t *testing.T) {
	m := New([]types.Model{testModel("m", 1)}, Config{MaxConcurrent: 4}, nil)

	h, err := m.Acquire(context.Background(), "m")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	first := h.Session()
	h.Release()

	h2, err := m.Acquire(context.Background(), "m")
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if h2.Session() != first {
		t.Fatalf("expected the idle session to be reused")
	}
	h2.Release()
}

// A poisoned session must never be handed back out, even though the
// instance's idle slot is otherwise free.
func TestAcquireRelease_PoisonedSessionIsDiscarded(t *testing.T) {
	m := New([]types.Model{testModel("m", 1)}, Config{MaxConcurrent: 4}, nil)

	h, err := m.Acquire(context.Background(), "m")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	first := h.Session()
	h.Poison()
	h.Release()

	h2, err := m.Acquire(context.Background(), "m")
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if h2.Session() == first {
		t.Fatalf("poisoned session must not be reused")
	}
	h2.Release()
}

// Per-model admission is bounded by Sessions: a second caller must wait
// until the first releases.
func TestAcquire_BlocksUntilPerModelSlotFrees(t *testing.T) {
	m := New([]types.Model{testModel("m", 1)}, Config{MaxConcurrent: 4}, nil)

	h, err := m.Acquire(context.Background(), "m")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := m.Acquire(ctx, "m"); err == nil {
		t.Fatalf("expected second acquire to time out while the only slot is held")
	}

	h.Release()
	h3, err := m.Acquire(context.Background(), "m")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	h3.Release()
}

func TestAcquire_UnknownModel(t *testing.T) {
	m := New(nil, Config{MaxConcurrent: 4}, nil)
	if _, err := m.Acquire(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for unknown model")
	}
}

func TestWithSession_ReleasesOnError(t *testing.T) {
	m := New([]types.Model{testModel("m", 1)}, Config{MaxConcurrent: 4}, nil)

	boom := context.Canceled
	err := m.WithSession(context.Background(), "m", func(h *SessionHandle) error {
		return boom
	})
	if err != boom {
		t.Fatalf("expected fn's error to propagate, got %v", err)
	}

	// The slot must have been released despite the error.
	h, err := m.Acquire(context.Background(), "m")
	if err != nil {
		t.Fatalf("acquire after failed WithSession: %v", err)
	}
	h.Release()
}
