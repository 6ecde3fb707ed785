// Package block defines the Block and BlockWithID types and the hash-chain
// invariant that ties them together.
package block

import (
	"github.com/txlogd/txlog/certhash"
	"github.com/txlogd/txlog/value"
)

// Field names for the fixed top-level keys of a block Map.
const (
	FieldPHash = "phash"
	FieldBType = "btype"
	FieldTS    = "ts"
	FieldTx    = "tx"
)

// Build constructs the canonical block Value for a transaction, chaining it
// to prev via phash. Block id 0 has no predecessor; callers pass
// certhash.Zero for prev in that case.
func Build(prev certhash.Hash, btype string, ts uint64, tx value.Value) value.Value {
	return value.Map(map[string]value.Value{
		FieldPHash: value.Blob(prev.Bytes()),
		FieldBType: value.Text(btype),
		FieldTS:    value.NatFromUint64(ts),
		FieldTx:    tx,
	})
}

// WithID pairs a block with its dense, monotonically increasing id.
type WithID struct {
	ID    uint64
	Block value.Value
}

// PHash extracts the phash field of a block Value.
func PHash(b value.Value) (certhash.Hash, bool) {
	f, ok := b.Field(FieldPHash)
	if !ok {
		return certhash.Hash{}, false
	}
	h, err := certhash.FromBytes(f.AsBlob())
	if err != nil {
		return certhash.Hash{}, false
	}
	return h, true
}

// BType extracts the btype field of a block Value.
func BType(b value.Value) (string, bool) {
	f, ok := b.Field(FieldBType)
	if !ok {
		return "", false
	}
	return f.AsText(), true
}

// Timestamp extracts the ts field of a block Value in nanoseconds.
func Timestamp(b value.Value) (uint64, bool) {
	f, ok := b.Field(FieldTS)
	if !ok {
		return 0, false
	}
	return f.AsNat().Uint64(), true
}

// Tx extracts the tx field of a block Value.
func Tx(b value.Value) (value.Value, bool) {
	return b.Field(FieldTx)
}

// EncodedBlock is the canonical byte encoding of a single block's Value,
// used when offloading a batch to an archive shard.
type EncodedBlock []byte

// EncodeForOffload encodes a block's Value using the storage codec. This is
// not the certified-hash encoding used by certhash.Of; it is whatever the
// archive shard and the offload job agree on for storage and size
// accounting.
func EncodeForOffload(b value.Value) EncodedBlock {
	return value.Encode(b)
}

// DecodeOffloaded reverses EncodeForOffload.
func DecodeOffloaded(b EncodedBlock) (value.Value, error) {
	return value.Decode(b)
}
