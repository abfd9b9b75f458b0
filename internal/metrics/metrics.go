// Package metrics exposes prometheus instruments for the server.
package metrics

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("ssels.metrics")

var (
	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ssels_requests_total",
		Help: "Structural requests by method and outcome.",
	}, []string{"method", "outcome"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ssels_request_duration_seconds",
		Help:    "Time spent answering structural requests.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"method"})

	StoreOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ssels_store_operations_total",
		Help: "Document store operations by kind.",
	}, []string{"op"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ssels_tree_cache_lookups_total",
		Help: "Tree cache lookups by result.",
	}, []string{"result"})

	OpenDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ssels_open_documents",
		Help: "Documents currently held by the store.",
	})
)

// Observe records the outcome and latency of one request.
func Observe(method string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	Requests.WithLabelValues(method, outcome).Inc()
	RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// Serve exposes /metrics on addr in the background and returns the address
// actually bound, which differs from addr when its port is 0.
func Serve(addr string) (string, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.Serve(l, mux); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Errorf("metrics server: %v", err)
		}
	}()
	return l.Addr().String(), nil
}
