package api

import (
	"context"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/txlogd/txlog/archive"
	"github.com/txlogd/txlog/block"
	"github.com/txlogd/txlog/query"
)

type blockRange struct {
	Start  uint64 `json:"start"`
	Length uint64 `json:"length"`
}

type getBlocksParams struct {
	Requests []blockRange `json:"requests"`
}

func (p *getBlocksParams) Validate() error { return nil }

type blockWithIDResult struct {
	ID    uint64      `json:"id"`
	Block interface{} `json:"block"`
}

type archivedSubRequestResult struct {
	ShardID  string       `json:"shard_id"`
	Requests []blockRange `json:"requests"`
}

type getBlocksResult struct {
	LogLength      uint64                     `json:"log_length"`
	Blocks         []blockWithIDResult        `json:"blocks"`
	ArchivedBlocks []archivedSubRequestResult `json:"archived_blocks"`
}

func (s *Server) icrc3GetBlocks(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	params := paramsFrom(ctx).(*getBlocksParams)

	ranges := make([]archive.Range, len(params.Requests))
	for i, r := range params.Requests {
		ranges[i] = archive.Range{Start: r.Start, Length: r.Length}
	}

	res := s.federator.GetBlocks(ranges)
	return getBlocksResult{
		LogLength:      res.LogLength,
		Blocks:         blocksToResult(res.LocalBlocks),
		ArchivedBlocks: archivedToResult(res.ArchivedBlocks),
	}, nil
}

func blocksToResult(blocks []block.WithID) []blockWithIDResult {
	out := make([]blockWithIDResult, len(blocks))
	for i, b := range blocks {
		out[i] = blockWithIDResult{ID: b.ID, Block: b.Block}
	}
	return out
}

func archivedToResult(subs []query.ArchivedSubRequest) []archivedSubRequestResult {
	out := make([]archivedSubRequestResult, len(subs))
	for i, sub := range subs {
		reqs := make([]blockRange, len(sub.Requests))
		for j, r := range sub.Requests {
			reqs[j] = blockRange{Start: r.Start, Length: r.Length}
		}
		out[i] = archivedSubRequestResult{ShardID: sub.Addr.String(), Requests: reqs}
	}
	return out
}

type archiveShardInfoResult struct {
	ShardID   string `json:"shard_id"`
	Start     uint64 `json:"start"`
	End       uint64 `json:"end"`
	Empty     bool   `json:"empty"`
	BytesUsed uint64 `json:"bytes_used"`
	Status    string `json:"status"`
}

func (s *Server) icrc3GetArchives(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	shards := s.archiveMgr.Shards()
	out := make([]archiveShardInfoResult, len(shards))
	for i, sh := range shards {
		out[i] = archiveShardInfoResult{
			ShardID:   sh.Address.String(),
			Start:     sh.IDRangeStart,
			End:       sh.IDRangeEnd,
			Empty:     sh.Empty(),
			BytesUsed: sh.BytesUsed,
			Status:    sh.Status.String(),
		}
	}
	return out, nil
}
