package api

import (
	"errors"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/txlogd/txlog/archive"
	"github.com/txlogd/txlog/ledger"
)

// icrc3 error codes, in the JSON-RPC application-defined range.
const (
	codeUnsupportedBlockType = -32001
	codeInvalidTransaction   = -32002
	codeTooOld               = -32003
	codeCreatedInFuture      = -32004
	codeDuplicate            = -32005
	codeNotPrepared          = -32006
	codeThrottled            = -32007
	codeInsufficientCycles   = -32008
	codeInternal             = -32009
)

func invalidParams(err error) *jsonrpc2.Error {
	return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
}

// translateLedgerError maps a ledger sentinel error (possibly wrapped) to a
// JSON-RPC error carrying a stable application code, so callers can switch
// on the code rather than string-matching the message.
func translateLedgerError(err error) *jsonrpc2.Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrUnsupportedBlockType):
		return appErr(codeUnsupportedBlockType, err)
	case errors.Is(err, ledger.ErrInvalidTransaction):
		return appErr(codeInvalidTransaction, err)
	case errors.Is(err, ledger.ErrTooOld):
		return appErr(codeTooOld, err)
	case errors.Is(err, ledger.ErrCreatedInFuture):
		return appErr(codeCreatedInFuture, err)
	case errors.Is(err, ledger.ErrDuplicate):
		return appErr(codeDuplicate, err)
	case errors.Is(err, ledger.ErrNotPrepared):
		return appErr(codeNotPrepared, err)
	case errors.Is(err, ledger.ErrThrottled):
		return appErr(codeThrottled, err)
	case errors.Is(err, archive.ErrInsufficientCycles):
		return appErr(codeInsufficientCycles, err)
	default:
		return appErr(codeInternal, err)
	}
}

func appErr(code int64, err error) *jsonrpc2.Error {
	return &jsonrpc2.Error{Code: code, Message: err.Error()}
}
