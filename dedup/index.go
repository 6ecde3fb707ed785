// Package dedup implements the replay-window index from a transaction's
// content hash to the id of the block that admitted it. Entries older than
// the configured window are evicted opportunistically rather than by a
// background sweep.
package dedup

import (
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"github.com/allegro/bigcache"
	"github.com/pkg/errors"
)

// ErrFull indicates the index is at capacity and no entry qualifies for
// age-based eviction; the caller should treat this as a throttle signal.
var ErrFull = errors.New("window index full")

type orderedKey struct {
	key        string
	insertedAt time.Time
}

// Index is the bigcache-backed bulk store for WindowEntry, with a small
// ordered slice of keys layered on top so exact-age eviction can be done
// without relying on bigcache's own coarse per-shard expiry.
type Index struct {
	mu      sync.Mutex
	cache   *bigcache.BigCache
	order   []orderedKey
	window  time.Duration
	maxSize int
}

// New creates an Index bounded to maxSize live entries, each valid for
// window before it becomes eligible for eviction.
func New(window time.Duration, maxSize int) (*Index, error) {
	cfg := bigcache.DefaultConfig(window)
	cfg.Shards = 64
	cfg.Verbose = false
	cache, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "creating window index cache")
	}
	return &Index{
		cache:   cache,
		window:  window,
		maxSize: maxSize,
	}, nil
}

func encodeEntry(blockID uint64, insertedAt time.Time) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], blockID)
	binary.BigEndian.PutUint64(buf[8:16], uint64(insertedAt.UnixNano()))
	return buf
}

func decodeEntry(b []byte) (blockID uint64, insertedAt time.Time) {
	blockID = binary.BigEndian.Uint64(b[0:8])
	insertedAt = time.Unix(0, int64(binary.BigEndian.Uint64(b[8:16])))
	return
}

func keyFor(h [32]byte) string {
	return hex.EncodeToString(h[:])
}

// Lookup reports the block id previously admitted under h, if the entry is
// both present and still inside the window as of now.
func (idx *Index) Lookup(h [32]byte, now time.Time) (blockID uint64, ok bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	b, err := idx.cache.Get(keyFor(h))
	if err != nil {
		return 0, false
	}
	id, insertedAt := decodeEntry(b)
	if now.Sub(insertedAt) > idx.window {
		return 0, false
	}
	return id, true
}

// Insert records h -> blockID as admitted at now. If the index is at
// capacity, it first evicts entries older than window from the front of the
// insertion order; if none qualify, it returns ErrFull and inserts nothing.
func (idx *Index) Insert(h [32]byte, blockID uint64, now time.Time) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(idx.order) >= idx.maxSize {
		idx.evictExpiredLocked(now)
		if len(idx.order) >= idx.maxSize {
			return ErrFull
		}
	}

	key := keyFor(h)
	if err := idx.cache.Set(key, encodeEntry(blockID, now)); err != nil {
		return errors.Wrap(err, "inserting window entry")
	}
	idx.order = append(idx.order, orderedKey{key: key, insertedAt: now})
	return nil
}

// PurgeExpired evicts every entry whose age exceeds window as of now and
// returns the number removed. Safe to call opportunistically on every
// admission and offload tick.
func (idx *Index) PurgeExpired(now time.Time) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	before := len(idx.order)
	idx.evictExpiredLocked(now)
	return before - len(idx.order)
}

// evictExpiredLocked drops entries from the front of the insertion order
// while their age exceeds window. Callers must hold idx.mu.
func (idx *Index) evictExpiredLocked(now time.Time) {
	i := 0
	for i < len(idx.order) && now.Sub(idx.order[i].insertedAt) > idx.window {
		_ = idx.cache.Delete(idx.order[i].key)
		i++
	}
	if i > 0 {
		idx.order = idx.order[i:]
	}
}

// Len reports the number of live entries tracked by the ordered index.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.order)
}

// Entry is the gob-friendly projection of a WindowEntry, used to carry the
// index across an upgrade snapshot.
type Entry struct {
	Hash       [32]byte
	BlockID    uint64
	InsertedAt time.Time
}

// Snapshot exports every live entry in insertion order.
func (idx *Index) Snapshot() []Entry {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	out := make([]Entry, 0, len(idx.order))
	for _, ok := range idx.order {
		b, err := idx.cache.Get(ok.key)
		if err != nil {
			continue
		}
		id, insertedAt := decodeEntry(b)
		var h [32]byte
		raw, err := hex.DecodeString(ok.key)
		if err != nil || len(raw) != 32 {
			continue
		}
		copy(h[:], raw)
		out = append(out, Entry{Hash: h, BlockID: id, InsertedAt: insertedAt})
	}
	return out
}

// Restore rebuilds the index from a prior Snapshot, preserving original
// insertion order and insertion timestamps.
func (idx *Index) Restore(entries []Entry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.order = idx.order[:0]
	for _, e := range entries {
		key := keyFor(e.Hash)
		if err := idx.cache.Set(key, encodeEntry(e.BlockID, e.InsertedAt)); err != nil {
			return errors.Wrap(err, "restoring window entry")
		}
		idx.order = append(idx.order, orderedKey{key: key, insertedAt: e.InsertedAt})
	}
	return nil
}
