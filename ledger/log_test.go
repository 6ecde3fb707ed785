package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/txlogd/txlog/block"
	"github.com/txlogd/txlog/certhash"
	"github.com/txlogd/txlog/dedup"
	"github.com/txlogd/txlog/prepared"
	"github.com/txlogd/txlog/txn"
)

func newTestLog(t *testing.T, window time.Duration, maxInWindow int) (*Log, *time.Time) {
	idx, err := dedup.New(window, maxInWindow)
	if err != nil {
		t.Fatalf("dedup.New: %v", err)
	}
	cfg := LogConfig{
		SupportedBlockTypes:     map[string]bool{"1mint": true, "1xfer": true, "1burn": true},
		TxWindow:                window,
		MaxTransactionsInWindow: maxInWindow,
	}
	l := InitLog(cfg, idx, prepared.New())
	now := time.Now()
	l.SetClock(func() time.Time { return now })
	return l, &now
}

func u64p(v uint64) *uint64 { return &v }

func TestAppendChainsHashes(t *testing.T) {
	l, _ := newTestLog(t, time.Hour, 100)

	idA, err := l.Append(&txn.Mint{To: "X", Amount: 100})
	if err != nil {
		t.Fatalf("append A: %v", err)
	}
	idB, err := l.Append(&txn.Transfer{From: "X", To: "Y", Amount: 40})
	if err != nil {
		t.Fatalf("append B: %v", err)
	}
	idC, err := l.Append(&txn.Burn{From: "Y", Amount: 10})
	if err != nil {
		t.Fatalf("append C: %v", err)
	}
	if idA != 0 || idB != 1 || idC != 2 {
		t.Fatalf("ids = %d,%d,%d, want 0,1,2", idA, idB, idC)
	}

	entries := l.HotRange(0, 3)
	if len(entries) != 3 {
		t.Fatalf("HotRange returned %d entries, want 3", len(entries))
	}
	phashB, ok := block.PHash(entries[1].Block)
	if !ok {
		t.Fatalf("block B missing phash")
	}
	if phashB != certhash.Of(entries[0].Block) {
		t.Fatalf("block B.phash != H(block A)")
	}
	phashC, ok := block.PHash(entries[2].Block)
	if !ok {
		t.Fatalf("block C missing phash")
	}
	if phashC != certhash.Of(entries[1].Block) {
		t.Fatalf("block C.phash != H(block B)")
	}
	if l.LogLength() != 3 {
		t.Fatalf("LogLength = %d, want 3", l.LogLength())
	}
}

func TestDuplicateRejectionAndWindowExpiry(t *testing.T) {
	l, now := newTestLog(t, 50*time.Millisecond, 100)

	mint := &txn.Mint{To: "X", Amount: 100}
	if _, err := l.Append(mint); err != nil {
		t.Fatalf("first append: %v", err)
	}

	_, err := l.Append(mint)
	var dup *DuplicateError
	if !errors.As(err, &dup) || dup.Of != 0 {
		t.Fatalf("second append = %v, want DuplicateError{Of:0}", err)
	}

	*now = now.Add(100 * time.Millisecond)
	id, err := l.Append(mint)
	if err != nil {
		t.Fatalf("append after window elapsed: %v", err)
	}
	if id != 1 {
		t.Fatalf("id = %d, want 1", id)
	}
}

func TestPrepareCommitHappyPath(t *testing.T) {
	l, _ := newTestLog(t, time.Hour, 100)

	mint := &txn.Mint{To: "X", Amount: 100}
	p, err := l.Prepare(mint)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	id, err := l.Commit(mint, p.PreparedAt)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if id != 0 {
		t.Fatalf("id = %d, want 0", id)
	}

	if _, err := l.Commit(mint, p.PreparedAt); !errors.Is(err, ErrNotPrepared) {
		t.Fatalf("second commit = %v, want ErrNotPrepared", err)
	}
}

func TestPrepareDuplicatePrepare(t *testing.T) {
	l, _ := newTestLog(t, time.Hour, 100)
	mint := &txn.Mint{To: "X", Amount: 100}
	if _, err := l.Prepare(mint); err != nil {
		t.Fatalf("first prepare: %v", err)
	}
	if _, err := l.Prepare(mint); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second prepare = %v, want ErrDuplicate", err)
	}
}

func TestUnsupportedBlockType(t *testing.T) {
	l, _ := newTestLog(t, time.Hour, 100)
	nft := &txn.NFTMint{To: "X", TokenID: 1}
	if _, err := l.Append(nft); !errors.Is(err, ErrUnsupportedBlockType) {
		t.Fatalf("append nft = %v, want ErrUnsupportedBlockType", err)
	}
}

func TestInvalidTransaction(t *testing.T) {
	l, _ := newTestLog(t, time.Hour, 100)
	mint := &txn.Mint{To: "", Amount: 100}
	if _, err := l.Append(mint); !errors.Is(err, ErrInvalidTransaction) {
		t.Fatalf("append invalid mint = %v, want ErrInvalidTransaction", err)
	}
}

func TestThrottled(t *testing.T) {
	l, _ := newTestLog(t, time.Hour, 2)
	if _, err := l.Append(&txn.Mint{To: "A", Amount: 1}); err != nil {
		t.Fatalf("append 1: %v", err)
	}
	if _, err := l.Append(&txn.Mint{To: "B", Amount: 1}); err != nil {
		t.Fatalf("append 2: %v", err)
	}
	if _, err := l.Append(&txn.Mint{To: "C", Amount: 1}); !errors.Is(err, ErrThrottled) {
		t.Fatalf("append 3 = %v, want ErrThrottled", err)
	}
}

func TestTimestampBounds(t *testing.T) {
	l, now := newTestLog(t, time.Hour, 100)
	future := uint64(now.Add(10 * time.Minute).UnixNano())
	mint := &txn.Mint{To: "X", Amount: 1, UserTimestampNs: u64p(future)}
	if _, err := l.Append(mint); !errors.Is(err, ErrCreatedInFuture) {
		t.Fatalf("append future = %v, want ErrCreatedInFuture", err)
	}

	past := uint64(now.Add(-2 * time.Hour).UnixNano())
	old := &txn.Mint{To: "X", Amount: 1, UserTimestampNs: u64p(past)}
	if _, err := l.Append(old); !errors.Is(err, ErrTooOld) {
		t.Fatalf("append old = %v, want ErrTooOld", err)
	}
}

func TestDrainPrefixAndRequeue(t *testing.T) {
	l, _ := newTestLog(t, time.Hour, 100)
	for i := 0; i < 5; i++ {
		if _, err := l.Append(&txn.Mint{To: "X", Amount: uint64(i + 1)}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	batch := l.DrainPrefix(1 << 20)
	if len(batch) != 5 {
		t.Fatalf("DrainPrefix returned %d entries, want 5", len(batch))
	}
	if len(l.HotRange(0, 5)) != 0 {
		t.Fatalf("expected hot log empty after drain")
	}
	l.RequeuePrefix(batch)
	if len(l.HotRange(0, 5)) != 5 {
		t.Fatalf("expected hot log restored after requeue")
	}
	if l.LogLength() != 5 {
		t.Fatalf("LogLength = %d, want 5 (unaffected by drain/requeue)", l.LogLength())
	}
}

type recordingCertifier struct {
	lastBlockIndex uint64
	tipHash        certhash.Hash
	calls          int
}

func (c *recordingCertifier) Certify(lastBlockIndex uint64, tipHash certhash.Hash) {
	c.lastBlockIndex = lastBlockIndex
	c.tipHash = tipHash
	c.calls++
}

func TestSetCertifierCertifiesEmptyStateImmediately(t *testing.T) {
	l, _ := newTestLog(t, time.Hour, 100)
	c := &recordingCertifier{}
	l.SetCertifier(c)
	if c.calls != 1 {
		t.Fatalf("calls = %d, want 1", c.calls)
	}
	if c.lastBlockIndex != 0 || c.tipHash != certhash.Zero {
		t.Fatalf("got (%d, %s), want (0, zero) for an empty log", c.lastBlockIndex, c.tipHash)
	}
}

func TestReplaceStateRecertifiesRestoredTip(t *testing.T) {
	l, _ := newTestLog(t, time.Hour, 100)
	c := &recordingCertifier{}
	l.SetCertifier(c)

	if _, err := l.Append(&txn.Mint{To: "X", Amount: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}
	wantTip := l.TipHash()

	// Simulate a fresh Log restored from a snapshot taken after the append
	// above: the certifier is wired before state is restored, so without
	// ReplaceState re-certifying, Current() would still report the empty
	// log's certificate.
	restored, _ := newTestLog(t, time.Hour, 100)
	fresh := &recordingCertifier{}
	restored.SetCertifier(fresh)
	restored.ReplaceState(l.TakeState())

	if fresh.calls != 2 {
		t.Fatalf("calls = %d, want 2 (SetCertifier + ReplaceState)", fresh.calls)
	}
	if fresh.lastBlockIndex != 0 || fresh.tipHash != wantTip {
		t.Fatalf("got (%d, %s), want (0, %s) after restoring a one-block state", fresh.lastBlockIndex, fresh.tipHash, wantTip)
	}
}
