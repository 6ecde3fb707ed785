// Package txn defines the transaction capability that the host
// application implements per payload type, plus a set of concrete ledger
// payload kinds (mint, transfer, burn, approve, and their NFT
// counterparts) covering the common token and collectible use cases.
package txn

import (
	"github.com/txlogd/txlog/value"
)

// Transaction is the narrow capability the core needs from a host-supplied
// payload. The core never inspects payload fields directly; it only calls
// through this interface.
type Transaction interface {
	// ValidateFields performs structural and domain-invariant validation.
	ValidateFields() error
	// Timestamp returns the user-supplied time, if any, used for window
	// checks. Absent means the core should use the current time.
	Timestamp() (uint64, bool)
	// ContentHash returns a stable digest over the semantically meaningful
	// fields, used as the dedup key. It is independent of the block that
	// will eventually contain the transaction.
	ContentHash() [32]byte
	// BlockType returns the block-type tag; it must belong to the engine's
	// configured supported_blocks.
	BlockType() string
	// ToValue converts the payload to its Value representation, becoming
	// the block's tx field.
	ToValue() value.Value
}

// BlockTypeURL describes one supported block type and the documentation
// URL for its schema, returned verbatim by icrc3_supported_block_types.
type BlockTypeURL struct {
	BlockType string `json:"block_type"`
	URL       string `json:"url"`
}
