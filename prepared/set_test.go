package prepared

import (
	"testing"
	"time"
)

func TestInsertLookupRemove(t *testing.T) {
	s := New()
	now := time.Now()
	var h [32]byte
	h[0] = 7

	if _, ok := s.Lookup(h, now); ok {
		t.Fatalf("expected no entry before insert")
	}
	s.Insert(h, now)
	preparedAt, ok := s.Lookup(h, now.Add(time.Minute))
	if !ok || !preparedAt.Equal(now) {
		t.Fatalf("Lookup = (%v, %v), want (%v, true)", preparedAt, ok, now)
	}
	s.Remove(h)
	if _, ok := s.Lookup(h, now); ok {
		t.Fatalf("expected entry removed")
	}
}

func TestLookupExpiresAfter24h(t *testing.T) {
	s := New()
	now := time.Now()
	var h [32]byte
	h[0] = 3
	s.Insert(h, now)
	if _, ok := s.Lookup(h, now.Add(25*time.Hour)); ok {
		t.Fatalf("expected entry to expire after 24h")
	}
}

func TestCleanupExpiredIsIdempotent(t *testing.T) {
	s := New()
	now := time.Now()
	var h [32]byte
	h[0] = 1
	s.Insert(h, now)

	later := now.Add(25 * time.Hour)
	first := s.CleanupExpired(later)
	second := s.CleanupExpired(later)
	if first != 1 {
		t.Fatalf("first CleanupExpired = %d, want 1", first)
	}
	if second != 0 {
		t.Fatalf("second CleanupExpired = %d, want 0 (idempotent)", second)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s := New()
	now := time.Now()
	var h [32]byte
	h[0] = 9
	s.Insert(h, now)

	snap := s.Snapshot()
	s2 := New()
	s2.Restore(snap)
	preparedAt, ok := s2.Lookup(h, now)
	if !ok || !preparedAt.Equal(now) {
		t.Fatalf("after restore, Lookup = (%v, %v), want (%v, true)", preparedAt, ok, now)
	}
}
