package archive

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/txlogd/txlog/block"
)

var (
	blockKeyPrefix = []byte{'B', 'K'}
	metaBytesKey   = []byte{'M', 'U'} // bytes used
	metaCountKey   = []byte{'M', 'C'} // total transactions
)

// LevelDBShard is a durable, in-process archive shard backed by goleveldb,
// keyed by a fixed prefix plus the big-endian block id.
type LevelDBShard struct {
	db         *leveldb.DB
	maxBytes   uint64
	bytesUsed  uint64
	blockCount uint64
}

// OpenLevelDBShard opens (creating if absent) a shard rooted at dir.
func OpenLevelDBShard(dir string, maxBytes uint64) (*LevelDBShard, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, errors.Wrap(err, "opening archive shard database")
	}
	s := &LevelDBShard{db: db, maxBytes: maxBytes}
	if v, err := db.Get(metaBytesKey, nil); err == nil {
		s.bytesUsed = binary.BigEndian.Uint64(v)
	}
	if v, err := db.Get(metaCountKey, nil); err == nil {
		s.blockCount = binary.BigEndian.Uint64(v)
	}
	return s, nil
}

func blockKey(id uint64) []byte {
	key := make([]byte, len(blockKeyPrefix)+8)
	copy(key, blockKeyPrefix)
	binary.BigEndian.PutUint64(key[len(blockKeyPrefix):], id)
	return key
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// InsertBlocks writes an entire batch as one leveldb write batch. Any
// failure aborts the whole write; there is no partial-success path.
func (s *LevelDBShard) InsertBlocks(ctx context.Context, blocks []block.WithID) error {
	batch := new(leveldb.Batch)
	var added uint64
	for _, b := range blocks {
		enc := block.EncodeForOffload(b.Block)
		batch.Put(blockKey(b.ID), enc)
		added += uint64(len(enc))
	}
	if err := s.db.Write(batch, nil); err != nil {
		return errors.Wrap(err, "writing archive batch")
	}
	s.bytesUsed += added
	s.blockCount += uint64(len(blocks))
	_ = s.db.Put(metaBytesKey, encodeUint64(s.bytesUsed), nil)
	_ = s.db.Put(metaCountKey, encodeUint64(s.blockCount), nil)
	return nil
}

// GetBlocks answers a set of range requests already clipped to this
// shard's id range by the caller.
func (s *LevelDBShard) GetBlocks(ctx context.Context, requests []Range) (GetBlocksResult, error) {
	var out GetBlocksResult
	for _, r := range requests {
		for id := r.Start; id < r.Start+r.Length; id++ {
			v, err := s.db.Get(blockKey(id), nil)
			if err == leveldb.ErrNotFound {
				continue
			}
			if err != nil {
				return GetBlocksResult{}, errors.Wrapf(err, "reading block %d from shard", id)
			}
			val, err := block.DecodeOffloaded(v)
			if err != nil {
				return GetBlocksResult{}, errors.Wrapf(err, "decoding block %d from shard", id)
			}
			out.Blocks = append(out.Blocks, block.WithID{ID: id, Block: val})
		}
	}
	return out, nil
}

// RemainingCapacity reports how many more bytes the shard can accept.
func (s *LevelDBShard) RemainingCapacity() uint64 {
	if s.bytesUsed >= s.maxBytes {
		return 0
	}
	return s.maxBytes - s.bytesUsed
}

// TotalTransactions reports the number of blocks currently held.
func (s *LevelDBShard) TotalTransactions() uint64 {
	return s.blockCount
}

// Close releases the underlying database handle.
func (s *LevelDBShard) Close() error {
	return s.db.Close()
}
