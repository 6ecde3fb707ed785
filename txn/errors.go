package txn

import "errors"

// ErrInvalidTransaction is wrapped by ValidateFields implementations to
// report a structural or domain-invariant violation.
var ErrInvalidTransaction = errors.New("invalid transaction")
