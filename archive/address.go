package archive

import (
	uuid "github.com/satori/go.uuid"
)

// ShardAddress is an opaque handle to an archive shard. Callers never parse
// it; it is only ever compared for equality or used as a map key.
type ShardAddress struct {
	id uuid.UUID
}

// NewShardAddress allocates a fresh, random shard address.
func NewShardAddress() ShardAddress {
	return ShardAddress{id: uuid.Must(uuid.NewV4())}
}

// String renders the address for logs and diagnostics.
func (a ShardAddress) String() string {
	return a.id.String()
}

// IsZero reports whether a is the zero-value address (never issued by
// NewShardAddress).
func (a ShardAddress) IsZero() bool {
	return a.id == uuid.Nil
}

// ParseShardAddress reconstructs an address from its String form, e.g. when
// restoring ArchiveState from an upgrade snapshot.
func ParseShardAddress(s string) (ShardAddress, error) {
	id, err := uuid.FromString(s)
	if err != nil {
		return ShardAddress{}, err
	}
	return ShardAddress{id: id}, nil
}

// GobEncode implements gob.GobEncoder. id is unexported, so the default
// reflection-based encoding would silently drop it; route through the raw
// UUID bytes instead.
func (a ShardAddress) GobEncode() ([]byte, error) {
	return a.id.MarshalBinary()
}

// GobDecode implements gob.GobDecoder.
func (a *ShardAddress) GobDecode(data []byte) error {
	return a.id.UnmarshalBinary(data)
}
