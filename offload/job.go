// Package offload implements the periodic background job that drains old
// blocks out of the hot log into archive shards. It is the sole writer to
// the archive manager and the sole remover from the hot log, mirroring the
// single-writer-per-data-path discipline the rest of the engine follows.
package offload

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/txlogd/txlog/archive"
	"github.com/txlogd/txlog/block"
	"github.com/txlogd/txlog/ledger"
	"github.com/txlogd/txlog/utils/log"
)

var (
	tickOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "txlogd_offload_tick_total",
		Help: "Offload job ticks by outcome.",
	}, []string{"outcome"})
	batchBytesOffloaded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txlogd_offload_bytes_total",
		Help: "Total encoded bytes moved from the hot log into archive shards.",
	})
)

func init() {
	prometheus.MustRegister(tickOutcomes, batchBytesOffloaded)
}

// Config holds the tunables the offload job enforces on each tick.
type Config struct {
	// TickInterval is the cadence between ticks.
	TickInterval time.Duration
	// ArchiveThreshold is the hot log length at or below which a tick is a
	// no-op.
	ArchiveThreshold int
	// MaxSegmentSizeBytes bounds a single drained batch's encoded size.
	MaxSegmentSizeBytes int
	// RetryBackoff is how long the job waits before retrying a failed tick,
	// used in place of TickInterval until a tick succeeds.
	RetryBackoff time.Duration
}

// Job is a context-cancellable background goroutine, grounded on the same
// lifecycle shape used elsewhere in this codebase for periodic work:
// context+cancel, select on a ticker versus ctx.Done(), and a WaitGroup for
// clean shutdown.
type Job struct {
	cfg     Config
	log     *ledger.Log
	archive *archive.Manager

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	halted  bool
	haltErr error
}

// NewJob constructs an offload job bound to log and archive manager. It does
// not start ticking until Start is called.
func NewJob(parent context.Context, cfg Config, l *ledger.Log, a *archive.Manager) *Job {
	ctx, cancel := context.WithCancel(parent)
	return &Job{
		cfg:     cfg,
		log:     l,
		archive: a,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins the tick loop in its own goroutine.
func (j *Job) Start() {
	j.wg.Add(1)
	go j.run()
}

// Stop cancels the tick loop and waits for it to exit.
func (j *Job) Stop() {
	j.cancel()
	j.wg.Wait()
}

// Halted reports whether the job has stopped attempting offloads after
// exhausting shard-creation retries, and the error that caused it.
func (j *Job) Halted() (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.halted, j.haltErr
}

func (j *Job) run() {
	defer j.wg.Done()
	interval := j.cfg.TickInterval

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-time.After(interval):
			if err := j.Tick(j.ctx); err != nil {
				if stderrors.Is(err, archive.ErrArchiveCreationFailed) {
					j.mu.Lock()
					j.halted = true
					j.haltErr = err
					j.mu.Unlock()
					tickOutcomes.WithLabelValues("halted").Inc()
					log.Errorf("offload job halted: %v", err)
					return
				}
				tickOutcomes.WithLabelValues("retry").Inc()
				log.WithField("error", err).Warning("offload tick failed, retrying with backoff")
				interval = j.cfg.RetryBackoff
				continue
			}
			interval = j.cfg.TickInterval
		}
	}
}

// Tick runs one offload cycle synchronously. It is exported so tests can
// force a tick without waiting on the ticker; no admin endpoint calls it.
func (j *Job) Tick(ctx context.Context) error {
	if j.log.HotLen() <= j.cfg.ArchiveThreshold {
		tickOutcomes.WithLabelValues("noop").Inc()
		return nil
	}

	batch := j.log.DrainPrefix(j.cfg.MaxSegmentSizeBytes)
	if len(batch) == 0 {
		tickOutcomes.WithLabelValues("noop").Inc()
		return nil
	}

	batchBytes := encodedSize(batch)
	shard, addr, err := j.archive.RequestCapacity(ctx, uint64(batchBytes), batch[0].ID)
	if err != nil {
		j.log.RequeuePrefix(batch)
		return errors.Wrap(err, "requesting archive capacity")
	}

	if err := shard.InsertBlocks(ctx, batch); err != nil {
		j.log.RequeuePrefix(batch)
		return errors.Wrapf(err, "inserting %d blocks into shard %s", len(batch), addr)
	}

	lastID := batch[len(batch)-1].ID
	if err := j.archive.RecordInsert(addr, lastID, uint64(batchBytes)); err != nil {
		// The blocks are already durably stored in the shard; bookkeeping
		// falling out of sync here is a reporting defect, not a correctness
		// one, so the batch is not requeued.
		log.Errorf("recording insert into shard %s: %v", addr, err)
	}

	batchBytesOffloaded.Add(float64(batchBytes))
	tickOutcomes.WithLabelValues("success").Inc()
	log.Infof("offloaded %d blocks (ids %d-%d, %d bytes) to shard %s", len(batch), batch[0].ID, lastID, batchBytes, addr)
	return nil
}

func encodedSize(batch []block.WithID) int {
	total := 0
	for _, b := range batch {
		total += len(block.EncodeForOffload(b.Block))
	}
	return total
}
