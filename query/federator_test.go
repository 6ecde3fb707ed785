package query

import (
	"context"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/txlogd/txlog/archive"
	"github.com/txlogd/txlog/block"
	"github.com/txlogd/txlog/dedup"
	"github.com/txlogd/txlog/ledger"
	"github.com/txlogd/txlog/prepared"
	"github.com/txlogd/txlog/txn"
)

type fakeShard struct {
	blockCount uint64
}

func (s *fakeShard) InsertBlocks(ctx context.Context, blocks []block.WithID) error {
	s.blockCount += uint64(len(blocks))
	return nil
}
func (s *fakeShard) GetBlocks(ctx context.Context, requests []archive.Range) (archive.GetBlocksResult, error) {
	return archive.GetBlocksResult{}, nil
}
func (s *fakeShard) RemainingCapacity() uint64 { return 1 << 30 }
func (s *fakeShard) TotalTransactions() uint64 { return s.blockCount }
func (s *fakeShard) Close() error              { return nil }

type fakeFactory struct{}

func (f *fakeFactory) CreateShard(ctx context.Context, addr archive.ShardAddress, maxMemoryBytes uint64) (archive.Shard, error) {
	return &fakeShard{}, nil
}

func newTestLogAndManager(t *testing.T) (*ledger.Log, *archive.Manager) {
	idx, err := dedup.New(time.Hour, 1000)
	if err != nil {
		t.Fatalf("dedup.New: %v", err)
	}
	cfg := ledger.LogConfig{
		SupportedBlockTypes:     map[string]bool{"1mint": true},
		TxWindow:                time.Hour,
		MaxTransactionsInWindow: 1000,
	}
	l := ledger.InitLog(cfg, idx, prepared.New())
	m := archive.NewManager(archive.Config{MaxMemorySizeBytes: 1 << 20, InitialCycles: 1, ReservedCycles: 1, MaxRetries: 3}, &fakeFactory{}, 100)
	return l, m
}

func TestGetBlocksAllHot(t *testing.T) {
	l, m := newTestLogAndManager(t)
	for i := 0; i < 3; i++ {
		if _, err := l.Append(&txn.Mint{To: "X", Amount: uint64(i + 1)}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	f, err := NewFederator(l, m, 100)
	if err != nil {
		t.Fatalf("NewFederator: %v", err)
	}
	res := f.GetBlocks([]archive.Range{{Start: 0, Length: 3}})
	if res.LogLength != 3 || len(res.LocalBlocks) != 3 || len(res.ArchivedBlocks) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestGetBlocksSplitsAcrossArchiveBoundary(t *testing.T) {
	l, m := newTestLogAndManager(t)
	for i := 0; i < 5; i++ {
		if _, err := l.Append(&txn.Mint{To: "X", Amount: uint64(i + 1)}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	// Offload ids 0-2 out of the hot log, as the offload job would.
	batch := l.DrainPrefix(1 << 20)
	if len(batch) != 5 {
		t.Fatalf("DrainPrefix returned %d, want 5", len(batch))
	}
	archived, hot := batch[:3], batch[3:]
	l.RequeuePrefix(hot)

	_, addr, err := m.RequestCapacity(context.Background(), 1<<10, archived[0].ID)
	if err != nil {
		t.Fatalf("RequestCapacity: %v", err)
	}
	if err := m.RecordInsert(addr, archived[len(archived)-1].ID, 1<<10); err != nil {
		t.Fatalf("RecordInsert: %v", err)
	}

	f, err := NewFederator(l, m, 100)
	if err != nil {
		t.Fatalf("NewFederator: %v", err)
	}
	res := f.GetBlocks([]archive.Range{{Start: 0, Length: 5}})
	if res.LogLength != 5 {
		t.Fatalf("LogLength = %d, want 5, full result:\n%s", res.LogLength, spew.Sdump(res))
	}
	if len(res.LocalBlocks) != 2 {
		t.Fatalf("LocalBlocks = %d, want 2 (ids 3,4), full result:\n%s", len(res.LocalBlocks), spew.Sdump(res))
	}
	if len(res.ArchivedBlocks) != 1 || len(res.ArchivedBlocks[0].Requests) != 1 {
		t.Fatalf("ArchivedBlocks = %+v, want one shard with one sub-range", res.ArchivedBlocks)
	}
	sub := res.ArchivedBlocks[0].Requests[0]
	if sub.Start != 0 || sub.Length != 3 {
		t.Fatalf("archived sub-request = %+v, want {0,3}", sub)
	}
}

func TestGetBlocksReflectsSecondBatchIntoSameActiveShard(t *testing.T) {
	l, m := newTestLogAndManager(t)
	for i := 0; i < 6; i++ {
		if _, err := l.Append(&txn.Mint{To: "X", Amount: uint64(i + 1)}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	f, err := NewFederator(l, m, 100)
	if err != nil {
		t.Fatalf("NewFederator: %v", err)
	}

	// Offload the first 3 blocks into a shard, and observe it through the
	// same Federator instance before the second batch lands.
	firstBatch := l.DrainPrefix(1 << 20)
	archived, hot := firstBatch[:3], firstBatch[3:]
	l.RequeuePrefix(hot)
	_, addr, err := m.RequestCapacity(context.Background(), 1<<10, archived[0].ID)
	if err != nil {
		t.Fatalf("RequestCapacity: %v", err)
	}
	if err := m.RecordInsert(addr, archived[len(archived)-1].ID, 1<<10); err != nil {
		t.Fatalf("RecordInsert: %v", err)
	}
	res := f.GetBlocks([]archive.Range{{Start: 0, Length: 6}})
	if len(res.ArchivedBlocks) != 1 || res.ArchivedBlocks[0].Requests[0].Length != 3 {
		t.Fatalf("after first batch: %+v, full result:\n%s", res.ArchivedBlocks, spew.Sdump(res))
	}

	// A second batch lands in the SAME active shard (RecordInsert extends
	// its range without changing the shard count). Querying the same
	// Federator instance again must see the extended range, not a stale
	// cached one.
	secondBatch := l.DrainPrefix(1 << 20)
	if err := m.RecordInsert(addr, secondBatch[len(secondBatch)-1].ID, 1<<10); err != nil {
		t.Fatalf("RecordInsert: %v", err)
	}

	res = f.GetBlocks([]archive.Range{{Start: 0, Length: 6}})
	if len(res.ArchivedBlocks) != 1 {
		t.Fatalf("ArchivedBlocks = %+v, want exactly one shard, full result:\n%s", res.ArchivedBlocks, spew.Sdump(res))
	}
	sub := res.ArchivedBlocks[0].Requests[0]
	if sub.Start != 0 || sub.Length != 6 {
		t.Fatalf("archived sub-request = %+v, want {0,6} covering both batches, full result:\n%s", sub, spew.Sdump(res))
	}
	if len(res.LocalBlocks) != 0 {
		t.Fatalf("LocalBlocks = %d, want 0 (both batches offloaded), full result:\n%s", len(res.LocalBlocks), spew.Sdump(res))
	}
}

func TestGetBlocksCapsResponseSize(t *testing.T) {
	l, m := newTestLogAndManager(t)
	for i := 0; i < 10; i++ {
		if _, err := l.Append(&txn.Mint{To: "X", Amount: uint64(i + 1)}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	f, err := NewFederator(l, m, 4)
	if err != nil {
		t.Fatalf("NewFederator: %v", err)
	}
	res := f.GetBlocks([]archive.Range{{Start: 0, Length: 10}})
	if len(res.LocalBlocks) != 4 {
		t.Fatalf("LocalBlocks = %d, want 4 (capped)", len(res.LocalBlocks))
	}
}
