// Package api exposes the engine's host-facing operations as JSON-RPC 2.0
// methods, served over a websocket listener. HTTPStream adapts an HTTP
// connection to a jsonrpc2 object stream, but the server does not use it;
// no plain-HTTP listener is started.
package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sourcegraph/jsonrpc2"
	wsstream "github.com/sourcegraph/jsonrpc2/websocket"

	"github.com/txlogd/txlog/archive"
	"github.com/txlogd/txlog/certify"
	"github.com/txlogd/txlog/config"
	"github.com/txlogd/txlog/ledger"
	"github.com/txlogd/txlog/query"
	"github.com/txlogd/txlog/utils/log"
)

// Server wires the host-facing JSON-RPC methods to the engine's owning
// packages and serves them over a websocket listener.
type Server struct {
	log        *ledger.Log
	federator  *query.Federator
	archiveMgr *archive.Manager
	certifier  *certify.Certifier
	cfg        config.Config

	handler *JSONRPCHandler

	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	stopChan chan struct{}
}

// NewServer constructs a Server and registers every icrc3_* method against
// its own JSONRPCHandler.
func NewServer(l *ledger.Log, federator *query.Federator, archiveMgr *archive.Manager, certifier *certify.Certifier, cfg config.Config) *Server {
	s := &Server{
		log:        l,
		federator:  federator,
		archiveMgr: archiveMgr,
		certifier:  certifier,
		cfg:        cfg,
		handler:    NewJSONRPCHandler(),
	}
	s.registerMethods()
	return s
}

func (s *Server) registerMethods() {
	registerMethod(s.handler, "icrc3_add_transaction", s.icrc3AddTransaction, addTransactionParams{})
	registerMethod(s.handler, "icrc3_prepare_transaction", s.icrc3PrepareTransaction, prepareTransactionParams{})
	registerMethod(s.handler, "icrc3_commit_prepared_transaction", s.icrc3CommitPreparedTransaction, commitPreparedTransactionParams{})
	registerMethod(s.handler, "icrc3_get_blocks", s.icrc3GetBlocks, getBlocksParams{})
	registerMethod(s.handler, "icrc3_get_archives", s.icrc3GetArchives, nil)
	registerMethod(s.handler, "icrc3_get_properties", s.icrc3GetProperties, nil)
	registerMethod(s.handler, "icrc3_get_tip_certificate", s.icrc3GetTipCertificate, nil)
	registerMethod(s.handler, "icrc3_supported_block_types", s.icrc3SupportedBlockTypes, nil)
	registerMethod(s.handler, "prepared_transactions_count", s.preparedTransactionsCount, nil)
	registerMethod(s.handler, "cleanup_expired_prepared_transactions", s.cleanupExpiredPreparedTransactions, nil)
	registerMethod(s.handler, "echo", echo, nil)
}

// StartServers starts the websocket listener in a non-blocking way.
func (s *Server) StartServers() {
	s.stopChan = make(chan struct{})
	go s.runWebsocketServer()
}

// StopServers signals the websocket listener to shut down. It returns
// without waiting for the shutdown to complete.
func (s *Server) StopServers() {
	close(s.stopChan)
}

func (s *Server) runWebsocketServer() {
	var connOpts []jsonrpc2.ConnOpt

	mux := http.NewServeMux()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	mux.HandleFunc("/", func(rw http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			log.WithError(err).Error("api: upgrade http connection to websocket failed")
			http.Error(rw, errors.WithMessage(err, "could not upgrade to websocket").Error(), http.StatusBadRequest)
			return
		}
		defer conn.Close()

		log.Debug("api: accepted websocket connection")
		<-jsonrpc2.NewConn(
			context.Background(),
			wsstream.NewObjectStream(conn),
			s.handler.Handler(),
			connOpts...,
		).DisconnectNotify()
		log.Debug("api: websocket connection closed")
	})

	listener, err := net.Listen("tcp", s.ListenAddr)
	if err != nil {
		log.WithField("addr", s.ListenAddr).WithError(err).Error("api: couldn't bind to address")
		return
	}

	readTimeout, writeTimeout := s.ReadTimeout, s.WriteTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}

	httpServer := &http.Server{
		Handler:      mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("api: websocket server serve error")
		}
	}()

	<-s.stopChan

	log.Warn("api: shutting down websocket server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("api: shutdown error")
	}
	wg.Wait()
	log.Warn("api: websocket server stopped")
}
