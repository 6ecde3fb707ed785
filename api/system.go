package api

import (
	"context"
	"encoding/base64"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/txlogd/txlog/ledger"
	"github.com/txlogd/txlog/txn"
)

type propertiesResult struct {
	TxWindowNs              int64              `json:"tx_window_ns"`
	PermittedDriftNs        int64              `json:"permitted_drift_ns"`
	MaxBlocksPerResponse    int                `json:"max_blocks_per_response"`
	MaxTransactionsInWindow int                `json:"max_transactions_in_window"`
	SupportedBlockTypes     []txn.BlockTypeURL `json:"supported_block_types"`
	LogLength               uint64             `json:"log_length"`
}

func (s *Server) icrc3GetProperties(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	return propertiesResult{
		TxWindowNs:              s.cfg.TxWindow.Nanoseconds(),
		PermittedDriftNs:        ledger.PermittedDrift.Nanoseconds(),
		MaxBlocksPerResponse:    s.cfg.MaxBlocksPerResponse,
		MaxTransactionsInWindow: s.cfg.MaxTransactionsInWindow,
		SupportedBlockTypes:     s.blockTypeURLs(),
		LogLength:               s.log.LogLength(),
	}, nil
}

type tipCertificateResult struct {
	Certificate string `json:"certificate"`
	HashTree    string `json:"hash_tree"`
}

func (s *Server) icrc3GetTipCertificate(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	cert := s.certifier.Current()
	return tipCertificateResult{
		Certificate: base64.StdEncoding.EncodeToString(cert.Certificate),
		HashTree:    base64.StdEncoding.EncodeToString(cert.HashTree),
	}, nil
}

func (s *Server) icrc3SupportedBlockTypes(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	return s.blockTypeURLs(), nil
}

func (s *Server) blockTypeURLs() []txn.BlockTypeURL {
	out := make([]txn.BlockTypeURL, len(s.cfg.SupportedBlocks))
	for i, b := range s.cfg.SupportedBlocks {
		out[i] = txn.BlockTypeURL{BlockType: b.BlockType, URL: b.URL}
	}
	return out
}
