// Package query implements the split-and-delegate read path: a single
// get_blocks call is split across the hot log and however many archive
// shards the requested ranges touch, without the federator itself ever
// crossing into a second shard hop.
package query

import (
	"github.com/txlogd/txlog/archive"
	"github.com/txlogd/txlog/block"
	"github.com/txlogd/txlog/ledger"
)

// ArchivedSubRequest is a batch of sub-ranges clipped to a single shard's
// own id range. The caller performs the second hop against Addr itself;
// the federator never fans out to a shard on the requester's behalf.
type ArchivedSubRequest struct {
	Addr     archive.ShardAddress
	Requests []archive.Range
}

// Result is the response shape for a get_blocks call.
type Result struct {
	LogLength      uint64
	LocalBlocks    []block.WithID
	ArchivedBlocks []ArchivedSubRequest
}

// Federator answers get_blocks requests by delegating to the hot log for
// resident ids and describing, but not performing, the remaining shard
// hops.
type Federator struct {
	log     *ledger.Log
	archive *archive.Manager

	maxBlocksPerResponse int
}

// NewFederator constructs a Federator bound to the log and archive
// manager it reads through.
func NewFederator(l *ledger.Log, a *archive.Manager, maxBlocksPerResponse int) (*Federator, error) {
	return &Federator{
		log:                  l,
		archive:              a,
		maxBlocksPerResponse: maxBlocksPerResponse,
	}, nil
}

// GetBlocks implements the three-step split-and-delegate algorithm: cap
// response size, split each request across the hot/archive boundary, group
// archived sub-ranges by shard.
func (f *Federator) GetBlocks(requests []archive.Range) Result {
	logLength := f.log.LogLength()
	oldestHot, hasHot := f.log.OldestHotID()
	shards := f.archive.Shards()

	res := Result{LogLength: logLength}
	remaining := f.maxBlocksPerResponse

	for _, req := range requests {
		if remaining <= 0 {
			break
		}
		start, length := clipRequest(req, logLength, remaining)
		if length == 0 {
			continue
		}
		end := start + length

		// Everything below oldestHot is archived; everything at or above it
		// is hot-resident. If the hot log is empty, the whole request range
		// (which is, by construction, below logLength) is archived.
		archivedEnd := end
		if hasHot {
			archivedEnd = min64(oldestHot, end)
		}

		if archivedEnd > start {
			f.distributeArchived(shards, start, archivedEnd, &res)
		}
		if end > archivedEnd {
			localEntries := f.log.HotRange(archivedEnd, end-archivedEnd)
			res.LocalBlocks = append(res.LocalBlocks, localEntries...)
		}

		remaining -= int(length)
	}
	return res
}

// distributeArchived clips [start, end) against each shard's own range and
// accumulates one archive.Range per overlapping shard into res, grouped by
// shard address.
func (f *Federator) distributeArchived(shards []archive.ShardInfo, start, end uint64, res *Result) {
	byShard := make(map[archive.ShardAddress]*ArchivedSubRequest)
	var order []archive.ShardAddress

	for _, s := range shards {
		if s.Empty() {
			continue
		}
		rangeStart := max64(start, s.IDRangeStart)
		rangeEnd := min64(end, s.IDRangeEnd+1)
		if rangeStart >= rangeEnd {
			continue
		}
		sub, ok := byShard[s.Address]
		if !ok {
			sub = &ArchivedSubRequest{Addr: s.Address}
			byShard[s.Address] = sub
			order = append(order, s.Address)
		}
		sub.Requests = append(sub.Requests, archive.Range{Start: rangeStart, Length: rangeEnd - rangeStart})
	}

	for _, addr := range order {
		res.ArchivedBlocks = append(res.ArchivedBlocks, *byShard[addr])
	}
}

// clipRequest caps a single request's length to maxBlocksPerResponse, to
// logLength, and to whatever budget remains in the overall response.
func clipRequest(req archive.Range, logLength uint64, remaining int) (start, length uint64) {
	start = req.Start
	if start >= logLength {
		return start, 0
	}
	length = req.Length
	if maxAvail := logLength - start; length > maxAvail {
		length = maxAvail
	}
	if remaining >= 0 && length > uint64(remaining) {
		length = uint64(remaining)
	}
	return start, length
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
