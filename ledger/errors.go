package ledger

import "github.com/pkg/errors"

var (
	// ErrUnsupportedBlockType indicates a transaction's block type is not in
	// the configured allow-list.
	ErrUnsupportedBlockType = errors.New("unsupported block type")

	// ErrInvalidTransaction wraps a transaction's own field-validation failure.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrTooOld indicates a user-supplied timestamp predates the replay window.
	ErrTooOld = errors.New("transaction timestamp too old")

	// ErrCreatedInFuture indicates a user-supplied timestamp is further ahead
	// than the permitted drift.
	ErrCreatedInFuture = errors.New("transaction timestamp created in future")

	// ErrDuplicate indicates the transaction's content hash was already
	// admitted within the replay window. The id of the existing block is
	// carried on DuplicateError.
	ErrDuplicate = errors.New("duplicate transaction")

	// ErrNotPrepared indicates a commit was attempted without a matching,
	// still-live prepare entry.
	ErrNotPrepared = errors.New("transaction not prepared")

	// ErrThrottled indicates the admission window is at capacity and no
	// entries qualify for eviction.
	ErrThrottled = errors.New("admission throttled")

	// ErrInternal wraps encoding or serialization failures that are fatal
	// for the current call but never rewind the log.
	ErrInternal = errors.New("internal error")
)

// DuplicateError carries the id of the block that already holds a
// transaction's content hash.
type DuplicateError struct {
	Of uint64
}

func (e *DuplicateError) Error() string {
	return errors.Wrapf(ErrDuplicate, "of block %d", e.Of).Error()
}

// Unwrap lets errors.Is(err, ErrDuplicate) see through DuplicateError.
func (e *DuplicateError) Unwrap() error {
	return ErrDuplicate
}
