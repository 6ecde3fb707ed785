// Package archive implements the lifecycle of secondary storage shards:
// creation, capacity tracking, sequential placement, and retry of failed
// offloads. Shards are addressed by an opaque ShardAddress; the manager
// never hashes a block id to a shard, it only walks a sorted id-range list.
package archive

import (
	"context"

	"github.com/txlogd/txlog/block"
)

// Range is a half-open (start, length) read request, the same shape used
// by the query federator.
type Range struct {
	Start  uint64
	Length uint64
}

// GetBlocksResult mirrors the core's own get_blocks response shape so a
// shard can be queried the same way regardless of whether it is local
// (LevelDBShard) or remote (RPCShard).
type GetBlocksResult struct {
	Blocks []block.WithID
}

// Shard is the capability the archive manager and query federator need
// from a storage shard, regardless of where it actually lives.
type Shard interface {
	// InsertBlocks durably stores a contiguous batch. Any failure is
	// treated as total failure of the batch; there is no partial-success
	// contract.
	InsertBlocks(ctx context.Context, blocks []block.WithID) error
	// GetBlocks answers range reads clipped to the shard's own id range by
	// the caller before this is invoked.
	GetBlocks(ctx context.Context, requests []Range) (GetBlocksResult, error)
	// RemainingCapacity reports how many more bytes the shard can accept
	// before it must be marked Full.
	RemainingCapacity() uint64
	// TotalTransactions reports how many blocks the shard currently holds.
	TotalTransactions() uint64
	// Close releases any resources the shard holds open.
	Close() error
}

// Status is a shard's lifecycle state.
type Status int

const (
	// StatusActive is accepting new blocks.
	StatusActive Status = iota
	// StatusFull has reached max_memory_size_bytes and will not be written
	// to again.
	StatusFull
	// StatusFailed records a shard whose creation or an operation against
	// it failed unrecoverably.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusFull:
		return "full"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ShardInfo is the manager's bookkeeping record for one shard, independent
// of the Shard implementation backing it.
type ShardInfo struct {
	Address      ShardAddress
	IDRangeStart uint64
	IDRangeEnd   uint64 // inclusive; meaningless while HasBlocks is false
	HasBlocks    bool
	BytesUsed    uint64
	Status       Status
}

// Empty reports whether the shard has never received a block.
func (si ShardInfo) Empty() bool {
	return !si.HasBlocks
}

// Contains reports whether id falls within the shard's assigned range.
func (si ShardInfo) Contains(id uint64) bool {
	return !si.Empty() && id >= si.IDRangeStart && id <= si.IDRangeEnd
}

// Factory creates a new shard, which may be an in-process LevelDBShard or
// an out-of-process one reached over RPC, depending on the platform's
// creation flow.
type Factory interface {
	CreateShard(ctx context.Context, addr ShardAddress, maxMemoryBytes uint64) (Shard, error)
}
