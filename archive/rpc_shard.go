package archive

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/txlogd/txlog/block"
	"github.com/txlogd/txlog/value"
)

// RPC method names exposed by an out-of-process archive shard, per the
// shard contract.
const (
	MethodInsertBlocks      = "icrc3_archive_insertBlocks"
	MethodGetBlocks         = "icrc3_archive_getBlocks"
	MethodRemainingCapacity = "icrc3_archive_remainingCapacity"
	MethodTotalTransactions = "icrc3_archive_totalTransactions"
)

// RPCShard is a client for an archive shard running out-of-process,
// reached over a plain TCP jsonrpc2 connection (VSCode object framing),
// not over the websocket transport the host-facing API is served on.
type RPCShard struct {
	mu   sync.Mutex
	addr string
	conn *jsonrpc2.Conn
}

// DialRPCShard opens a connection to a shard listening at addr.
func DialRPCShard(ctx context.Context, addr string) (*RPCShard, error) {
	netConn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing archive shard at %s", addr)
	}
	stream := jsonrpc2.NewBufferedStream(netConn, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(noIncomingCalls))
	return &RPCShard{addr: addr, conn: conn}, nil
}

// noIncomingCalls rejects any call initiated by the shard side; this
// connection is used client-only, core-to-shard.
func noIncomingCalls(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	return nil, errors.Errorf("unexpected inbound call from archive shard: %q", req.Method)
}

type insertBlocksParams struct {
	Blocks []encodedBlockWithID `json:"blocks"`
}

type encodedBlockWithID struct {
	ID      uint64             `json:"id"`
	Encoded block.EncodedBlock `json:"encoded"`
}

// InsertBlocks implements Shard.
func (s *RPCShard) InsertBlocks(ctx context.Context, blocks []block.WithID) error {
	params := insertBlocksParams{Blocks: make([]encodedBlockWithID, len(blocks))}
	for i, b := range blocks {
		params.Blocks[i] = encodedBlockWithID{ID: b.ID, Encoded: block.EncodeForOffload(b.Block)}
	}
	var ok bool
	if err := s.call(ctx, MethodInsertBlocks, params, &ok); err != nil {
		return err
	}
	if !ok {
		return errors.New("archive shard reported insert failure")
	}
	return nil
}

type getBlocksParams struct {
	Requests []Range `json:"requests"`
}

type getBlocksReply struct {
	Blocks []encodedBlockWithID `json:"blocks"`
}

// GetBlocks implements Shard.
func (s *RPCShard) GetBlocks(ctx context.Context, requests []Range) (GetBlocksResult, error) {
	var reply getBlocksReply
	if err := s.call(ctx, MethodGetBlocks, getBlocksParams{Requests: requests}, &reply); err != nil {
		return GetBlocksResult{}, err
	}
	out := GetBlocksResult{Blocks: make([]block.WithID, 0, len(reply.Blocks))}
	for _, eb := range reply.Blocks {
		v, err := value.Decode(eb.Encoded)
		if err != nil {
			return GetBlocksResult{}, errors.Wrapf(err, "decoding block %d from remote shard", eb.ID)
		}
		out.Blocks = append(out.Blocks, block.WithID{ID: eb.ID, Block: v})
	}
	return out, nil
}

// RemainingCapacity implements Shard.
func (s *RPCShard) RemainingCapacity() uint64 {
	var capacity uint64
	if err := s.call(context.Background(), MethodRemainingCapacity, nil, &capacity); err != nil {
		return 0
	}
	return capacity
}

// TotalTransactions implements Shard.
func (s *RPCShard) TotalTransactions() uint64 {
	var total uint64
	if err := s.call(context.Background(), MethodTotalTransactions, nil, &total); err != nil {
		return 0
	}
	return total
}

// Close implements Shard.
func (s *RPCShard) Close() error {
	return s.conn.Close()
}

func (s *RPCShard) call(ctx context.Context, method string, params, reply interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.Call(ctx, method, params, reply); err != nil {
		return errors.Wrapf(err, "calling %s on archive shard %s", method, s.addr)
	}
	return nil
}
