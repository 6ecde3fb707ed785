package archive

import "github.com/pkg/errors"

var (
	// ErrArchiveCreationFailed indicates shard creation exhausted its
	// retry budget; the offload job halts and surfaces this for operator
	// attention.
	ErrArchiveCreationFailed = errors.New("archive creation failed")

	// ErrInsufficientCycles indicates the platform's cycles budget cannot
	// fund a new shard's creation and reserved operating balance.
	ErrInsufficientCycles = errors.New("insufficient cycles to create archive shard")

	// ErrShardNotFound indicates a lookup against an address the manager
	// does not recognize.
	ErrShardNotFound = errors.New("archive shard not found")
)
