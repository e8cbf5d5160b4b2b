package ivr

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore(0)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemoryStorePutGetRoundTrip(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	session := NewSession("s-1")
	session.MemberID = "456"
	session.DTMF = []string{"1", "4", "5", "6"}
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := store.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.MemberID != "456" || len(loaded.DTMF) != 4 {
		t.Fatalf("unexpected session: %+v", loaded)
	}
}

// Mutating a loaded session must not touch the stored copy until Put,
// matching how the Redis backend behaves.
func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	session := NewSession("s-1")
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := store.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loaded.State = StateEnded
	loaded.DTMF = append(loaded.DTMF, "0")

	reloaded, err := store.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reloaded.State != StateMainMenu || len(reloaded.DTMF) != 0 {
		t.Fatalf("stored session was mutated without Put: %+v", reloaded)
	}
}

func TestMemoryStoreRemove(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	if err := store.Put(ctx, NewSession("s-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Remove(ctx, "s-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get(ctx, "s-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after remove, got %v", err)
	}

	// Removing an absent session is not an error.
	if err := store.Remove(ctx, "s-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMemoryStoreExpiresSessions(t *testing.T) {
	store := NewMemoryStore(20 * time.Millisecond)
	defer store.Close()
	ctx := context.Background()

	if err := store.Put(ctx, NewSession("s-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get(ctx, "s-1"); err != nil {
		t.Fatalf("fresh session should be readable: %v", err)
	}

	time.Sleep(40 * time.Millisecond)
	if _, err := store.Get(ctx, "s-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
}

func TestMemoryStorePutRefreshesExpiry(t *testing.T) {
	store := NewMemoryStore(30 * time.Millisecond)
	defer store.Close()
	ctx := context.Background()

	session := NewSession("s-1")
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Keep touching the session past its original deadline.
	for i := 0; i < 3; i++ {
		time.Sleep(15 * time.Millisecond)
		if err := store.Put(ctx, session); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if _, err := store.Get(ctx, "s-1"); err != nil {
		t.Fatalf("an active session must not expire: %v", err)
	}
}
