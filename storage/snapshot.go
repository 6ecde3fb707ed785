// Package storage persists the engine's full in-memory state to a single
// snapshot so a restart (or a host-initiated upgrade) resumes without
// replaying anything. It does not implement its own WAL; the certified log
// itself is the source of truth while the process is up, and a snapshot is
// just a point-in-time copy of it.
package storage

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/txlogd/txlog/archive"
	"github.com/txlogd/txlog/config"
	"github.com/txlogd/txlog/dedup"
	"github.com/txlogd/txlog/ledger"
	"github.com/txlogd/txlog/prepared"
)

// snapshotKey is the sole key the store ever writes; there is exactly one
// live snapshot, never a history of them.
var snapshotKey = []byte{'S', 'N', 'A', 'P'}

// formatVersion guards against decoding a snapshot written by an
// incompatible future version of Snapshot.
const formatVersion byte = 1

// Snapshot is the gob-encodable projection of every package's persisted
// state. Every field here is already safe to gob-encode: value.Value and
// archive.ShardAddress implement GobEncoder/GobDecoder themselves to route
// around their unexported fields.
type Snapshot struct {
	Log     ledger.LogState
	Window  []dedup.Entry
	Pending []prepared.PreparedEntry
	Archive archive.ArchiveState
	Config  config.Config
}

// Store is a single-key goleveldb-backed holder for the latest Snapshot.
// Keyed storage is overkill for one value, but it keeps the on-disk format
// consistent with the archive shards' own goleveldb use and gives Save a
// crash-safe, atomic write for free.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if absent) the snapshot database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "opening snapshot store")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save gob-encodes snap and writes it under the single snapshot key,
// prefixed with formatVersion.
func (s *Store) Save(snap Snapshot) error {
	var buf bytes.Buffer
	buf.WriteByte(formatVersion)
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}
	if err := s.db.Put(snapshotKey, buf.Bytes(), nil); err != nil {
		return errors.Wrap(err, "writing snapshot")
	}
	return nil
}

// Load reads back the most recent Snapshot written by Save. ok is false
// (with a nil error) if no snapshot has ever been saved, the case on a
// cold start.
func (s *Store) Load() (snap Snapshot, ok bool, err error) {
	raw, err := s.db.Get(snapshotKey, nil)
	if err == leveldb.ErrNotFound {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, errors.Wrap(err, "reading snapshot")
	}
	if len(raw) == 0 {
		return Snapshot{}, false, errors.New("snapshot: empty record")
	}
	if raw[0] != formatVersion {
		return Snapshot{}, false, errors.Errorf("snapshot: unsupported format version %d", raw[0])
	}
	if err := gob.NewDecoder(bytes.NewReader(raw[1:])).Decode(&snap); err != nil {
		return Snapshot{}, false, errors.Wrap(err, "decoding snapshot")
	}
	return snap, true, nil
}
