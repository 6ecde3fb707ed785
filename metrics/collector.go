// Package metrics is the Prometheus collector umbrella: it gathers the
// live gauges the rest of the engine doesn't expose a counter for on its
// own (log length, hot-log length, prepared-set size, archive shard count)
// into one Collector, and serves them alongside the offload job's
// own directly-registered counters at a single /metrics endpoint.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/txlogd/txlog/archive"
	"github.com/txlogd/txlog/ledger"
)

type gaugeDesc struct {
	desc *prometheus.Desc
	eval func(*Collector) float64
}

// Collector reports point-in-time gauges scraped from the hot log and
// archive manager. It is stateless between scrapes: every eval call reads
// straight through to the owning package's own accessors.
type Collector struct {
	mu sync.Mutex

	log     *ledger.Log
	archive *archive.Manager

	gauges []gaugeDesc
}

// NewCollector constructs a Collector bound to the log and archive
// manager it reports on.
func NewCollector(l *ledger.Log, a *archive.Manager) *Collector {
	c := &Collector{log: l, archive: a}
	c.gauges = []gaugeDesc{
		{
			desc: prometheus.NewDesc("txlogd_log_length", "Total blocks ever appended, including offloaded ones.", nil, nil),
			eval: func(c *Collector) float64 { return float64(c.log.LogLength()) },
		},
		{
			desc: prometheus.NewDesc("txlogd_hot_len", "Blocks currently resident in the hot log.", nil, nil),
			eval: func(c *Collector) float64 { return float64(c.log.HotLen()) },
		},
		{
			desc: prometheus.NewDesc("txlogd_prepared_count", "Live prepared transactions awaiting commit.", nil, nil),
			eval: func(c *Collector) float64 { return float64(c.log.PreparedCount()) },
		},
		{
			desc: prometheus.NewDesc("txlogd_archive_shards", "Archive shards known to the manager.", nil, nil),
			eval: func(c *Collector) float64 { return float64(len(c.archive.Shards())) },
		},
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, g := range c.gauges {
		ch <- g.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, g := range c.gauges {
		ch <- prometheus.MustNewConstMetric(g.desc, prometheus.GaugeValue, g.eval(c))
	}
}
