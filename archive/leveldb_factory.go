package archive

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
)

// LevelDBFactory creates one leveldb directory per shard under a base
// directory, named by the shard's address. It stands in for the platform's
// creation flow when archive shards are colocated in-process rather than
// spawned as separate canisters.
type LevelDBFactory struct {
	BaseDir string
}

// CreateShard implements Factory.
func (f *LevelDBFactory) CreateShard(ctx context.Context, addr ShardAddress, maxMemoryBytes uint64) (Shard, error) {
	dir := filepath.Join(f.BaseDir, addr.String())
	shard, err := OpenLevelDBShard(dir, maxMemoryBytes)
	if err != nil {
		return nil, errors.Wrapf(err, "creating shard at %s", dir)
	}
	return shard, nil
}

// ReopenShard reopens a previously created shard by address, for use after
// an upgrade's ReplaceState.
func (f *LevelDBFactory) ReopenShard(addr ShardAddress, maxMemoryBytes uint64) (Shard, error) {
	return f.CreateShard(context.Background(), addr, maxMemoryBytes)
}
