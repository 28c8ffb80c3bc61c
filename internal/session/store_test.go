package session

import (
	"context"
	"testing"
	"time"
)

func TestStore_PutGet(t *testing.T) {
	store := NewStore(time.Hour)
	sess := New("doc-1", "a.pdf", nil, 5)
	store.Put(sess)

	got := store.Get("doc-1")
	if got == nil {
		t.Fatal("expected to get session back")
	}
	if got.ID != "doc-1" {
		t.Errorf("expected ID %q, got %q", "doc-1", got.ID)
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := NewStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing session")
	}
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(time.Hour)
	store.Put(New("doc-1", "a.pdf", nil, 5))

	if !store.Delete("doc-1") {
		t.Error("expected Delete to report the session existed")
	}
	if store.Get("doc-1") != nil {
		t.Error("expected session gone after Delete")
	}
	if store.Delete("doc-1") {
		t.Error("expected Delete of missing session to report false")
	}
}

func TestStore_Len(t *testing.T) {
	store := NewStore(time.Hour)
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d", store.Len())
	}
	store.Put(New("doc-1", "a.pdf", nil, 5))
	store.Put(New("doc-2", "b.pdf", nil, 5))
	if store.Len() != 2 {
		t.Errorf("expected 2 sessions, got %d", store.Len())
	}
}

func TestStore_TTLCleanup(t *testing.T) {
	store := NewStore(50 * time.Millisecond)

	expired := New("old", "a.pdf", nil, 5)
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	fresh := New("new", "b.pdf", nil, 5)
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired session to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh session to survive cleanup")
	}
}

func TestStore_TouchDefersCleanup(t *testing.T) {
	store := NewStore(50 * time.Millisecond)
	sess := New("doc-1", "a.pdf", nil, 5)
	store.Put(sess)

	time.Sleep(30 * time.Millisecond)
	sess.Touch()
	time.Sleep(30 * time.Millisecond)

	store.Cleanup()
	if store.Get("doc-1") == nil {
		t.Error("expected touched session to survive cleanup")
	}
}

func TestStore_CleanupEmpty(t *testing.T) {
	store := NewStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}

func TestStore_StartStop(t *testing.T) {
	store := NewStore(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store.Start(ctx)
	store.Put(New("doc-1", "a.pdf", nil, 5))
	store.Stop()

	// The janitor is gone; the store itself still works.
	if store.Get("doc-1") == nil {
		t.Error("expected session to remain after Stop")
	}
}
