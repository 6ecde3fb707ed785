package archive

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/txlogd/txlog/utils/log"
)

// Config is the subset of host configuration the archive manager enforces.
type Config struct {
	MaxMemorySizeBytes uint64
	InitialCycles      uint64
	ReservedCycles     uint64
	MaxRetries         int
}

// ArchiveState is the gob-friendly projection of the manager's bookkeeping,
// used to carry it across an upgrade snapshot. It does not include open
// Shard handles; those are reopened by the caller after restore using each
// ShardInfo's Address.
type ArchiveState struct {
	Shards          []ShardInfo
	ActiveShard     *ShardAddress
	RetryCount      int
	AvailableCycles uint64
}

// Manager owns the lifecycle of archive shards: creation, placement,
// capacity tracking, and retry bookkeeping for failed offloads.
type Manager struct {
	mu sync.Mutex

	cfg     Config
	factory Factory

	shards          []ShardInfo // ordered ascending by IDRangeStart
	open            map[ShardAddress]Shard
	activeShard     *ShardAddress
	retryCount      int
	availableCycles uint64
}

// NewManager constructs an empty Manager. availableCycles is the platform's
// starting cycles balance available to fund shard creation.
func NewManager(cfg Config, factory Factory, availableCycles uint64) *Manager {
	return &Manager{
		cfg:             cfg,
		factory:         factory,
		open:            make(map[ShardAddress]Shard),
		availableCycles: availableCycles,
	}
}

// RequestCapacity implements the placement algorithm: reuse the active
// shard if it has room for batchBytes more, else mark it Full and create a
// new one. idRangeStart is the id of the first block the new shard (if
// one must be created) will receive.
func (m *Manager) RequestCapacity(ctx context.Context, batchBytes uint64, idRangeStart uint64) (Shard, ShardAddress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeShard != nil {
		idx, ok := m.indexOfLocked(*m.activeShard)
		if ok && m.shards[idx].BytesUsed+batchBytes <= m.cfg.MaxMemorySizeBytes {
			return m.open[*m.activeShard], *m.activeShard, nil
		}
		if ok {
			m.shards[idx].Status = StatusFull
		}
		m.activeShard = nil
	}

	if m.availableCycles < m.cfg.InitialCycles+m.cfg.ReservedCycles {
		return nil, ShardAddress{}, ErrInsufficientCycles
	}

	addr := NewShardAddress()
	shard, err := m.factory.CreateShard(ctx, addr, m.cfg.MaxMemorySizeBytes)
	if err != nil {
		m.retryCount++
		if m.retryCount >= m.cfg.MaxRetries {
			log.Errorf("archive shard creation exhausted retries: %v", err)
			return nil, ShardAddress{}, ErrArchiveCreationFailed
		}
		return nil, ShardAddress{}, errors.Wrap(err, "creating archive shard")
	}
	m.retryCount = 0
	m.availableCycles -= m.cfg.InitialCycles

	info := ShardInfo{
		Address:      addr,
		IDRangeStart: idRangeStart,
		Status:       StatusActive,
	}
	m.shards = append(m.shards, info)
	m.open[addr] = shard
	m.activeShard = &addr

	log.Infof("created archive shard %s starting at id %d", addr, idRangeStart)
	return shard, addr, nil
}

// RecordInsert updates a shard's bookkeeping after a successful
// InsertBlocks call.
func (m *Manager) RecordInsert(addr ShardAddress, lastID uint64, bytesAdded uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.indexOfLocked(addr)
	if !ok {
		return ErrShardNotFound
	}
	m.shards[idx].IDRangeEnd = lastID
	m.shards[idx].HasBlocks = true
	m.shards[idx].BytesUsed += bytesAdded
	return nil
}

// Locate returns the address of the shard holding id, if any. Shards are
// kept sorted by IDRangeStart so this is a binary search.
func (m *Manager) Locate(id uint64) (ShardAddress, ShardInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := sort.Search(len(m.shards), func(i int) bool {
		return m.shards[i].IDRangeStart > id
	})
	if i == 0 {
		return ShardAddress{}, ShardInfo{}, false
	}
	candidate := m.shards[i-1]
	if candidate.Contains(id) {
		return candidate.Address, candidate, true
	}
	return ShardAddress{}, ShardInfo{}, false
}

// ShardFor returns the open Shard handle for addr, for GetBlocks fan-out.
func (m *Manager) ShardFor(addr ShardAddress) (Shard, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.open[addr]
	return s, ok
}

// Shards returns a snapshot of the manager's shard bookkeeping, ordered by
// id range, for icrc3_get_archives.
func (m *Manager) Shards() []ShardInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ShardInfo, len(m.shards))
	copy(out, m.shards)
	return out
}

// TakeState exports the manager's bookkeeping (not its open Shard handles)
// for an upgrade snapshot.
func (m *Manager) TakeState() ArchiveState {
	m.mu.Lock()
	defer m.mu.Unlock()
	shards := make([]ShardInfo, len(m.shards))
	copy(shards, m.shards)
	var active *ShardAddress
	if m.activeShard != nil {
		a := *m.activeShard
		active = &a
	}
	return ArchiveState{
		Shards:          shards,
		ActiveShard:     active,
		RetryCount:      m.retryCount,
		AvailableCycles: m.availableCycles,
	}
}

// ReplaceState restores bookkeeping from a prior TakeState. The caller is
// responsible for reopening each shard (e.g. via the Factory's
// platform-specific reopen path) and registering it with Reopen before any
// read or write against that shard's address.
func (m *Manager) ReplaceState(s ArchiveState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shards = s.Shards
	m.activeShard = s.ActiveShard
	m.retryCount = s.RetryCount
	m.availableCycles = s.AvailableCycles
	m.open = make(map[ShardAddress]Shard, len(s.Shards))
}

// Reopen registers a live Shard handle for an address already present in
// the manager's bookkeeping, e.g. after reconnecting post-upgrade.
func (m *Manager) Reopen(addr ShardAddress, shard Shard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indexOfLocked(addr); !ok {
		return ErrShardNotFound
	}
	m.open[addr] = shard
	return nil
}

func (m *Manager) indexOfLocked(addr ShardAddress) (int, bool) {
	for i, s := range m.shards {
		if s.Address == addr {
			return i, true
		}
	}
	return 0, false
}
