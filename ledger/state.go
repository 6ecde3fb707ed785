package ledger

import (
	"time"

	"github.com/txlogd/txlog/block"
	"github.com/txlogd/txlog/certhash"
)

// PermittedDrift is the fixed future-timestamp tolerance for admission.
const PermittedDrift = 2 * time.Minute

// LogState is the ordered list of recent blocks still held in the hot log,
// plus the counters needed to resume appending and to locate blocks that
// have since been offloaded to an archive shard.
type LogState struct {
	// Entries holds only the blocks not yet offloaded. Older ids live in
	// archive shards; LogLength still counts them.
	Entries []block.WithID
	// NextID is the id that will be assigned to the next appended block.
	NextID uint64
	// TipHash is H(block at id NextID-1), or the zero hash if NextID == 0.
	TipHash certhash.Hash
	// LogLength is the total number of blocks ever appended, including
	// those already offloaded.
	LogLength uint64
}

// LogConfig is the subset of the host configuration the hot log enforces
// directly.
type LogConfig struct {
	SupportedBlockTypes     map[string]bool
	TxWindow                time.Duration
	MaxTransactionsInWindow int
}

// PreparedTransaction is returned by Prepare and consumed by Commit.
type PreparedTransaction struct {
	ContentHash [32]byte
	PreparedAt  time.Time
}
