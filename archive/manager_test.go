package archive

import (
	"context"
	"testing"

	"github.com/txlogd/txlog/block"
)

type fakeShard struct {
	id         string
	bytesUsed  uint64
	maxBytes   uint64
	blockCount uint64
	closed     bool
}

func (s *fakeShard) InsertBlocks(ctx context.Context, blocks []block.WithID) error {
	s.blockCount += uint64(len(blocks))
	return nil
}
func (s *fakeShard) GetBlocks(ctx context.Context, requests []Range) (GetBlocksResult, error) {
	return GetBlocksResult{}, nil
}
func (s *fakeShard) RemainingCapacity() uint64 {
	if s.bytesUsed >= s.maxBytes {
		return 0
	}
	return s.maxBytes - s.bytesUsed
}
func (s *fakeShard) TotalTransactions() uint64 { return s.blockCount }
func (s *fakeShard) Close() error              { s.closed = true; return nil }

type fakeFactory struct {
	created int
	failN   int // fail the first failN creations
}

func (f *fakeFactory) CreateShard(ctx context.Context, addr ShardAddress, maxMemoryBytes uint64) (Shard, error) {
	f.created++
	if f.created <= f.failN {
		return nil, errFakeCreate
	}
	return &fakeShard{id: addr.String(), maxBytes: maxMemoryBytes}, nil
}

var errFakeCreate = &fakeCreateError{}

type fakeCreateError struct{}

func (e *fakeCreateError) Error() string { return "fake creation failure" }

func TestRequestCapacityCreatesThenReusesActiveShard(t *testing.T) {
	f := &fakeFactory{}
	m := NewManager(Config{MaxMemorySizeBytes: 100, InitialCycles: 1, ReservedCycles: 1, MaxRetries: 3}, f, 10)

	shard1, addr1, err := m.RequestCapacity(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("first RequestCapacity: %v", err)
	}
	shard2, addr2, err := m.RequestCapacity(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("second RequestCapacity: %v", err)
	}
	if addr1 != addr2 || shard1 != shard2 {
		t.Fatalf("expected the active shard to be reused while it has room")
	}
	if f.created != 1 {
		t.Fatalf("factory.created = %d, want 1", f.created)
	}
}

func TestRequestCapacityOpensNewShardWhenFull(t *testing.T) {
	f := &fakeFactory{}
	m := NewManager(Config{MaxMemorySizeBytes: 10, InitialCycles: 1, ReservedCycles: 1, MaxRetries: 3}, f, 10)

	_, addr1, err := m.RequestCapacity(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("first RequestCapacity: %v", err)
	}
	if err := m.RecordInsert(addr1, 4, 10); err != nil {
		t.Fatalf("RecordInsert: %v", err)
	}

	_, addr2, err := m.RequestCapacity(context.Background(), 10, 5)
	if err != nil {
		t.Fatalf("second RequestCapacity: %v", err)
	}
	if addr1 == addr2 {
		t.Fatalf("expected a new shard once the active shard is full")
	}
	if f.created != 2 {
		t.Fatalf("factory.created = %d, want 2", f.created)
	}

	shards := m.Shards()
	if len(shards) != 2 || shards[0].Status != StatusFull {
		t.Fatalf("expected first shard marked Full, got %+v", shards)
	}
}

func TestRequestCapacityInsufficientCycles(t *testing.T) {
	f := &fakeFactory{}
	m := NewManager(Config{MaxMemorySizeBytes: 10, InitialCycles: 5, ReservedCycles: 5, MaxRetries: 3}, f, 9)
	if _, _, err := m.RequestCapacity(context.Background(), 1, 0); err != ErrInsufficientCycles {
		t.Fatalf("RequestCapacity = %v, want ErrInsufficientCycles", err)
	}
}

func TestRequestCapacityExhaustsRetries(t *testing.T) {
	f := &fakeFactory{failN: 10}
	m := NewManager(Config{MaxMemorySizeBytes: 10, InitialCycles: 1, ReservedCycles: 1, MaxRetries: 2}, f, 100)

	if _, _, err := m.RequestCapacity(context.Background(), 1, 0); err == nil {
		t.Fatalf("expected first failed creation to return a retryable error")
	}
	if _, _, err := m.RequestCapacity(context.Background(), 1, 0); err != ErrArchiveCreationFailed {
		t.Fatalf("second failure = %v, want ErrArchiveCreationFailed", err)
	}
}

func TestLocateFindsContainingShard(t *testing.T) {
	f := &fakeFactory{}
	m := NewManager(Config{MaxMemorySizeBytes: 10, InitialCycles: 1, ReservedCycles: 1, MaxRetries: 3}, f, 10)

	_, addr1, _ := m.RequestCapacity(context.Background(), 10, 0)
	_ = m.RecordInsert(addr1, 4, 10)
	_, addr2, _ := m.RequestCapacity(context.Background(), 10, 5)
	_ = m.RecordInsert(addr2, 9, 10)

	got, info, ok := m.Locate(2)
	if !ok || got != addr1 {
		t.Fatalf("Locate(2) = (%v, %v), want shard1", got, ok)
	}
	if info.IDRangeStart != 0 || info.IDRangeEnd != 4 {
		t.Fatalf("Locate(2) info = %+v", info)
	}

	got, _, ok = m.Locate(7)
	if !ok || got != addr2 {
		t.Fatalf("Locate(7) = (%v, %v), want shard2", got, ok)
	}

	if _, _, ok := m.Locate(100); ok {
		t.Fatalf("Locate(100) should not find a shard")
	}
}
