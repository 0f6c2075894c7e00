// Package prometheus exports crawl events as Prometheus metrics.
package prometheus

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/fwojciec/sitecrawl"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics turns crawl events into counters and histograms.
// It is safe for concurrent use.
type Metrics struct {
	reg *prometheus.Registry

	events        *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	retryDelay    prometheus.Histogram
}

// NewMetrics registers the collectors against reg. A nil reg uses a fresh registry.
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		reg: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitecrawl_events_total",
			Help: "Crawl events partitioned by type.",
		}, []string{"type"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitecrawl_fetch_failures_total",
			Help: "Terminal fetch failures partitioned by HTTP status, 0 when no response was received.",
		}, []string{"status"}),
		retryDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sitecrawl_retry_delay_seconds",
			Help:    "Backoff delay scheduled before each retry.",
			Buckets: []float64{0.1, 0.5, 1, 3, 6, 9, 12, 15, 30},
		}),
	}
	for _, collector := range []prometheus.Collector{
		m.events,
		m.fetchFailures,
		m.retryDelay,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register crawl collector: %w", err)
		}
	}
	return m, nil
}

// Observe records e. Its method value satisfies sitecrawl.EventFunc.
func (m *Metrics) Observe(e sitecrawl.Event) {
	m.events.WithLabelValues(e.Type.String()).Inc()
	switch e.Type {
	case sitecrawl.EventRetry:
		m.retryDelay.Observe(e.Delay.Seconds())
	case sitecrawl.EventFetchFailed:
		m.fetchFailures.WithLabelValues(strconv.Itoa(e.Status)).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
