package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/txlogd/txlog/utils/log"
)

// Register registers c on the default Prometheus registerer, the same
// registerer offload's own tick/byte counters use.
func Register(c *Collector) {
	prometheus.MustRegister(c)
}

// Serve starts an HTTP server exposing /metrics on listenAddr. It runs in
// its own goroutine and does not block the caller.
func Serve(listenAddr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(listenAddr, mux); err != nil {
			log.WithError(err).Error("metrics: serve error")
		}
	}()
}
