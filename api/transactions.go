package api

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/txlogd/txlog/txn"
)

// txEnvelope is the wire shape of a transaction payload: a discriminator
// plus the union of every concrete txn.Transaction's fields. The core
// never sees this type; toTransaction converts it to whichever concrete
// payload Op names before anything reaches ledger.Log.
type txEnvelope struct {
	Op              string  `json:"op"`
	From            string  `json:"from,omitempty"`
	To              string  `json:"to,omitempty"`
	Spender         string  `json:"spender,omitempty"`
	Amount          uint64  `json:"amount,omitempty"`
	TokenID         uint64  `json:"token_id,omitempty"`
	Metadata        string  `json:"metadata,omitempty"`
	Memo            string  `json:"memo,omitempty"`
	UserTimestampNs *uint64 `json:"ts,omitempty"`
}

func (e *txEnvelope) toTransaction() (txn.Transaction, error) {
	switch e.Op {
	case "mint":
		return &txn.Mint{To: e.To, Amount: e.Amount, Memo: e.Memo, UserTimestampNs: e.UserTimestampNs}, nil
	case "xfer":
		return &txn.Transfer{From: e.From, To: e.To, Amount: e.Amount, Memo: e.Memo, UserTimestampNs: e.UserTimestampNs}, nil
	case "burn":
		return &txn.Burn{From: e.From, Amount: e.Amount, Memo: e.Memo, UserTimestampNs: e.UserTimestampNs}, nil
	case "approve":
		return &txn.Approve{From: e.From, Spender: e.Spender, Amount: e.Amount, Memo: e.Memo, UserTimestampNs: e.UserTimestampNs}, nil
	case "nft_mint":
		return &txn.NFTMint{To: e.To, TokenID: e.TokenID, Metadata: e.Metadata, UserTimestampNs: e.UserTimestampNs}, nil
	case "nft_xfer":
		return &txn.NFTTransfer{From: e.From, To: e.To, TokenID: e.TokenID, UserTimestampNs: e.UserTimestampNs}, nil
	default:
		return nil, fmt.Errorf("unknown transaction op %q", e.Op)
	}
}

func (e *txEnvelope) Validate() error {
	if e.Op == "" {
		return fmt.Errorf("missing op")
	}
	return nil
}

type addTransactionParams struct {
	Tx txEnvelope `json:"tx"`
}

func (p *addTransactionParams) Validate() error { return p.Tx.Validate() }

type prepareTransactionParams struct {
	Tx txEnvelope `json:"tx"`
}

func (p *prepareTransactionParams) Validate() error { return p.Tx.Validate() }

type commitPreparedTransactionParams struct {
	Tx           txEnvelope `json:"tx"`
	PreparedAtNs int64      `json:"prepared_at_ns"`
}

func (p *commitPreparedTransactionParams) Validate() error { return p.Tx.Validate() }

type preparedTransactionResult struct {
	ContentHash  string `json:"content_hash"`
	PreparedAtNs int64  `json:"prepared_at_ns"`
}

func (s *Server) icrc3AddTransaction(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	params := paramsFrom(ctx).(*addTransactionParams)
	tx, err := params.Tx.toTransaction()
	if err != nil {
		return nil, invalidParams(err)
	}
	id, err := s.log.Append(tx)
	if err != nil {
		return nil, translateLedgerError(err)
	}
	return id, nil
}

func (s *Server) icrc3PrepareTransaction(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	params := paramsFrom(ctx).(*prepareTransactionParams)
	tx, err := params.Tx.toTransaction()
	if err != nil {
		return nil, invalidParams(err)
	}
	prepared, err := s.log.Prepare(tx)
	if err != nil {
		return nil, translateLedgerError(err)
	}
	return preparedTransactionResult{
		ContentHash:  fmt.Sprintf("%x", prepared.ContentHash),
		PreparedAtNs: prepared.PreparedAt.UnixNano(),
	}, nil
}

func (s *Server) icrc3CommitPreparedTransaction(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	params := paramsFrom(ctx).(*commitPreparedTransactionParams)
	tx, err := params.Tx.toTransaction()
	if err != nil {
		return nil, invalidParams(err)
	}
	id, err := s.log.Commit(tx, time.Unix(0, params.PreparedAtNs))
	if err != nil {
		return nil, translateLedgerError(err)
	}
	return id, nil
}

func (s *Server) preparedTransactionsCount(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	return s.log.PreparedCount(), nil
}

func (s *Server) cleanupExpiredPreparedTransactions(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	return s.log.CleanupExpiredPrepared(), nil
}
