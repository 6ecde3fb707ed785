// Package ledger implements the hot log: block construction and hash
// chaining, duplicate-and-window admission, and the two-phase
// prepare/commit submission path. It owns the only mutable state a caller
// can observe the core mutating — everything else (dedup, prepared,
// archive) is wired in as a collaborator.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/txlogd/txlog/block"
	"github.com/txlogd/txlog/certhash"
	"github.com/txlogd/txlog/dedup"
	"github.com/txlogd/txlog/prepared"
	"github.com/txlogd/txlog/txn"
	"github.com/txlogd/txlog/utils/log"
)

// Certifier is notified after every successful append so it can
// re-publish the tip certificate. Implementations must not block the
// caller; Certify is invoked while the log's mutex is held.
type Certifier interface {
	Certify(lastBlockIndex uint64, tipHash certhash.Hash)
}

// Log is the single owner of the hot log's mutable state. All operations
// run under one mutex, mirroring a single-threaded cooperative scheduler:
// nothing about the log is observed half-updated.
type Log struct {
	mu sync.Mutex

	state LogState
	cfg   LogConfig

	window *dedup.Index
	prep   *prepared.Set

	certifier Certifier
	clock     func() time.Time
}

// InitLog constructs a fresh Log with empty state. window and prep are
// injected so the same instances can be shared with a persistence layer
// for upgrade snapshotting.
func InitLog(cfg LogConfig, window *dedup.Index, prep *prepared.Set) *Log {
	return &Log{
		cfg: cfg,
		state: LogState{
			NextID:  0,
			TipHash: certhash.Zero,
		},
		window: window,
		prep:   prep,
		clock:  time.Now,
	}
}

// SetCertifier wires in the certifier invoked after every append, and
// immediately certifies the log's current state (the empty state's
// (0, certhash.Zero) if nothing has been appended yet, or the current tip
// otherwise) so icrc3_get_tip_certificate has a real certificate to return
// even before the first append. A nil certifier (the default) disables
// re-certification, useful in tests.
func (l *Log) SetCertifier(c Certifier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.certifier = c
	l.certifyCurrentLocked()
}

// certifyCurrentLocked re-publishes the certificate for whatever state l
// currently holds. It is a no-op if no certifier is wired in.
func (l *Log) certifyCurrentLocked() {
	if l.certifier == nil {
		return
	}
	lastBlockIndex := uint64(0)
	if l.state.NextID > 0 {
		lastBlockIndex = l.state.NextID - 1
	}
	l.certifier.Certify(lastBlockIndex, l.state.TipHash)
}

// SetClock overrides the log's notion of "now", for deterministic tests of
// window and throttle behavior.
func (l *Log) SetClock(clock func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clock = clock
}

// TakeState returns the current LogState for upgrade persistence. The
// caller owns the returned value; it is not mutated further by the Log
// until ReplaceState is called.
func (l *Log) TakeState() LogState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// ReplaceState restores a previously taken LogState, e.g. after an
// upgrade. It does not touch the window index or prepared set; those are
// restored independently via their own Restore methods.
func (l *Log) ReplaceState(s LogState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = s
	l.certifyCurrentLocked()
}

// Append is the direct submission path.
func (l *Log) Append(tx txn.Transaction) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.purgeExpiredLocked(now)

	h, err := l.admissionCheckLocked(tx, now)
	if err != nil {
		return 0, err
	}
	return l.appendBlockLocked(tx, h, now)
}

// Prepare validates and reserves a transaction without appending it.
func (l *Log) Prepare(tx txn.Transaction) (PreparedTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.purgeExpiredLocked(now)

	h, err := l.admissionCheckLocked(tx, now)
	if err != nil {
		return PreparedTransaction{}, err
	}
	if _, ok := l.prep.Lookup(h, now); ok {
		return PreparedTransaction{}, ErrDuplicate
	}
	l.prep.Insert(h, now)
	return PreparedTransaction{ContentHash: h, PreparedAt: now}, nil
}

// Commit finalizes a previously prepared transaction.
func (l *Log) Commit(tx txn.Transaction, preparedAt time.Time) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.purgeExpiredLocked(now)

	h := tx.ContentHash()
	gotPreparedAt, ok := l.prep.Lookup(h, now)
	if !ok || !gotPreparedAt.Equal(preparedAt) {
		return 0, ErrNotPrepared
	}

	if _, err := l.admissionCheckLocked(tx, now); err != nil {
		return 0, err
	}

	id, err := l.appendBlockLocked(tx, h, now)
	if err != nil {
		return 0, err
	}
	l.prep.Remove(h)
	return id, nil
}

// PreparedCount returns the number of prepared entries currently tracked.
func (l *Log) PreparedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prep.Count()
}

// CleanupExpiredPrepared removes expired prepared entries and reports how
// many were removed.
func (l *Log) CleanupExpiredPrepared() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prep.CleanupExpired(l.clock())
}

// TipHash returns the current tip hash.
func (l *Log) TipHash() certhash.Hash {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.TipHash
}

// LogLength returns the total number of blocks ever appended, including
// those already offloaded to an archive shard.
func (l *Log) LogLength() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.LogLength
}

// OldestHotID returns the smallest block id currently resident in the hot
// log and true, or (0, false) if the hot log is empty. Ids below this
// boundary, if any have ever been appended, live in an archive shard; the
// query federator uses this to split a read request without walking shard
// metadata for the common case.
func (l *Log) OldestHotID() (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.state.Entries) == 0 {
		return 0, false
	}
	return l.state.Entries[0].ID, true
}

// HotRange returns entries resident in the hot log within [start, start+length),
// clipped to what is actually hot-resident; it never reaches into an
// archive shard.
func (l *Log) HotRange(start, length uint64) []block.WithID {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []block.WithID
	end := start + length
	for _, e := range l.state.Entries {
		if e.ID >= start && e.ID < end {
			out = append(out, e)
		}
	}
	return out
}

// HotLen returns the number of blocks currently resident in the hot log,
// i.e. not yet offloaded to an archive shard. The offload job compares
// this against its archive threshold before draining a batch.
func (l *Log) HotLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.state.Entries)
}

// DrainPrefix removes and returns a prefix of the hot log's entries whose
// total encoded size does not exceed maxBytes, for the offload job to hand
// to an archive shard. The first entry is always included, even when it
// alone is larger than maxBytes. The log's counters (NextID, LogLength, TipHash) are
// untouched; only Entries shrinks.
func (l *Log) DrainPrefix(maxBytes int) []block.WithID {
	l.mu.Lock()
	defer l.mu.Unlock()

	used := 0
	n := 0
	for n < len(l.state.Entries) {
		size := len(block.EncodeForOffload(l.state.Entries[n].Block))
		if n > 0 && used+size > maxBytes {
			break
		}
		used += size
		n++
	}
	batch := make([]block.WithID, n)
	copy(batch, l.state.Entries[:n])
	l.state.Entries = l.state.Entries[n:]
	return batch
}

// RequeuePrefix puts a previously drained batch back at the front of the
// hot log, used when an offload attempt fails after DrainPrefix removed
// the batch optimistically.
func (l *Log) RequeuePrefix(batch []block.WithID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Entries = append(batch, l.state.Entries...)
}

func (l *Log) purgeExpiredLocked(now time.Time) {
	l.window.PurgeExpired(now)
	l.prep.CleanupExpired(now)
}

func (l *Log) checkBlockTypeAndFields(tx txn.Transaction) error {
	if !l.cfg.SupportedBlockTypes[tx.BlockType()] {
		return fmt.Errorf("%w: %q", ErrUnsupportedBlockType, tx.BlockType())
	}
	if err := tx.ValidateFields(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	return nil
}

func (l *Log) timestampCheckLocked(tx txn.Transaction, now time.Time) error {
	ts, hasUserTs := tx.Timestamp()
	if !hasUserTs {
		return nil
	}
	nowNs := uint64(now.UnixNano())
	windowNs := uint64(l.cfg.TxWindow.Nanoseconds())
	driftNs := uint64(PermittedDrift.Nanoseconds())

	var lower uint64
	if nowNs > windowNs {
		lower = nowNs - windowNs
	}
	upper := nowNs + driftNs

	if ts < lower {
		return ErrTooOld
	}
	if ts > upper {
		return ErrCreatedInFuture
	}
	return nil
}

func (l *Log) throttleCheckLocked() error {
	if l.window.Len() >= l.cfg.MaxTransactionsInWindow {
		return ErrThrottled
	}
	return nil
}

// admissionCheckLocked runs steps shared by append, prepare, and commit:
// block-type and field validation, duplicate detection, timestamp bounds,
// and the window throttle. It does not mutate state.
func (l *Log) admissionCheckLocked(tx txn.Transaction, now time.Time) (h [32]byte, err error) {
	if err = l.checkBlockTypeAndFields(tx); err != nil {
		return
	}
	h = tx.ContentHash()
	if id, dup := l.window.Lookup(h, now); dup {
		err = &DuplicateError{Of: id}
		return
	}
	if err = l.timestampCheckLocked(tx, now); err != nil {
		return
	}
	if err = l.throttleCheckLocked(); err != nil {
		return
	}
	return h, nil
}

// appendBlockLocked builds and appends the block for an already-admitted
// transaction, updates the tip, records the window entry, and notifies the
// certifier.
func (l *Log) appendBlockLocked(tx txn.Transaction, h [32]byte, now time.Time) (uint64, error) {
	id := l.state.NextID
	blockVal := block.Build(l.state.TipHash, tx.BlockType(), uint64(now.UnixNano()), tx.ToValue())
	newTip := certhash.Of(blockVal)

	l.state.Entries = append(l.state.Entries, block.WithID{ID: id, Block: blockVal})
	l.state.NextID++
	l.state.LogLength++
	l.state.TipHash = newTip

	if err := l.window.Insert(h, id, now); err != nil {
		return 0, errors.Wrap(ErrInternal, err.Error())
	}

	if l.certifier != nil {
		l.certifier.Certify(id, newTip)
	}

	log.Debugf("appended block id=%d btype=%s tip=%s", id, tx.BlockType(), newTip)
	return id, nil
}
