package dedup

import (
	"testing"
	"time"
)

func hashOf(b byte) [32]byte {
	var h [32]byte
	h[0] = b
	return h
}

func TestInsertAndLookup(t *testing.T) {
	idx, err := New(time.Minute, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	now := time.Now()
	h := hashOf(1)
	if err := idx.Insert(h, 5, now); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	id, ok := idx.Lookup(h, now.Add(time.Second))
	if !ok || id != 5 {
		t.Fatalf("Lookup = (%d, %v), want (5, true)", id, ok)
	}
}

func TestLookupExpiresOutsideWindow(t *testing.T) {
	idx, err := New(time.Minute, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	now := time.Now()
	h := hashOf(2)
	if err := idx.Insert(h, 1, now); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, ok := idx.Lookup(h, now.Add(2*time.Minute)); ok {
		t.Fatalf("expected entry to be treated as expired past the window")
	}
}

func TestInsertThrottlesWhenFull(t *testing.T) {
	idx, err := New(time.Hour, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	now := time.Now()
	if err := idx.Insert(hashOf(1), 1, now); err != nil {
		t.Fatalf("Insert 1: %v", err)
	}
	if err := idx.Insert(hashOf(2), 2, now); err != nil {
		t.Fatalf("Insert 2: %v", err)
	}
	if err := idx.Insert(hashOf(3), 3, now); err != ErrFull {
		t.Fatalf("Insert 3 = %v, want ErrFull", err)
	}
}

func TestInsertEvictsExpiredToMakeRoom(t *testing.T) {
	idx, err := New(time.Minute, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := time.Now()
	if err := idx.Insert(hashOf(1), 1, start); err != nil {
		t.Fatalf("Insert 1: %v", err)
	}
	if err := idx.Insert(hashOf(2), 2, start); err != nil {
		t.Fatalf("Insert 2: %v", err)
	}
	later := start.Add(2 * time.Minute)
	if err := idx.Insert(hashOf(3), 3, later); err != nil {
		t.Fatalf("Insert 3 after expiry should evict room: %v", err)
	}
	if idx.Len() != 1 {
		t.Fatalf("Len = %d, want 1 after evicting both expired entries and inserting one", idx.Len())
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	idx, err := New(time.Hour, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	now := time.Now()
	if err := idx.Insert(hashOf(9), 42, now); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	snap := idx.Snapshot()
	if len(snap) != 1 || snap[0].BlockID != 42 {
		t.Fatalf("Snapshot = %+v, want one entry with BlockID 42", snap)
	}

	idx2, err := New(time.Hour, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := idx2.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	id, ok := idx2.Lookup(hashOf(9), now.Add(time.Second))
	if !ok || id != 42 {
		t.Fatalf("Lookup after restore = (%d, %v), want (42, true)", id, ok)
	}
}
