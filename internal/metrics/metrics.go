// Package metrics exposes C10's in-process Stats snapshot as Prometheus
// collectors, served over the secondary HTTP surface's /metrics path.
//
// The collector set mirrors the teacher's (now-deleted) infrastructure/
// metrics package: a handful of package-level Prometheus vectors registered
// once against a dedicated Registry, read by a scrape-time Collect rather
// than updated inline on the request path — narrowed here from per-service
// business counters to request, response-byte, error and per-kind request
// counts (no latency metric is exported) plus a live connection gauge C9
// updates directly.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Akaere-NetWorks/whois-server/internal/stats"
)

// Collector adapts a *stats.Stats snapshot into Prometheus's pull model: it
// implements prometheus.Collector, computing metric values from the
// snapshot only when scraped.
type Collector struct {
	stats *stats.Stats

	requestsTotal *prometheus.Desc
	bytesTotal    *prometheus.Desc
	errorsTotal   *prometheus.Desc
	requestsByKind *prometheus.Desc
}

// NewCollector wraps s for Prometheus registration.
func NewCollector(s *stats.Stats) *Collector {
	return &Collector{
		stats: s,
		requestsTotal: prometheus.NewDesc(
			"whois_requests_total", "Total WHOIS requests served since start.", nil, nil),
		bytesTotal: prometheus.NewDesc(
			"whois_response_bytes_total", "Total response bytes written since start.", nil, nil),
		errorsTotal: prometheus.NewDesc(
			"whois_errors_total", "Total requests that ended in an error comment.", nil, nil),
		requestsByKind: prometheus.NewDesc(
			"whois_requests_by_kind_total", "Requests observed in the current hourly bucket, by query kind.", []string{"kind"}, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requestsTotal
	ch <- c.bytesTotal
	ch <- c.errorsTotal
	ch <- c.requestsByKind
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.stats.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.requestsTotal, prometheus.CounterValue, float64(snap.TotalRequests))
	ch <- prometheus.MustNewConstMetric(c.bytesTotal, prometheus.CounterValue, float64(snap.TotalBytes))
	ch <- prometheus.MustNewConstMetric(c.errorsTotal, prometheus.CounterValue, float64(snap.TotalErrors))

	if len(snap.Hourly) == 0 {
		return
	}
	current := snap.Hourly[len(snap.Hourly)-1]
	for kind, count := range current.ByKind {
		ch <- prometheus.MustNewConstMetric(c.requestsByKind, prometheus.CounterValue, float64(count), kind)
	}
}

// ConnectionGauge tracks live connection count for C9; it is updated
// directly on admit/release rather than derived from a Stats snapshot,
// since concurrency is instantaneous state, not an accumulating counter.
var ConnectionGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "whois_active_connections",
	Help: "Currently admitted TCP/SSH connections.",
})

// NewRegistry builds a dedicated Prometheus registry carrying this
// package's collectors plus the Go/process default collectors, the way the
// teacher's metrics package registers against its own registry rather than
// the global one (so a misbehaving import elsewhere can't pollute scrapes).
func NewRegistry(s *stats.Stats) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(s))
	reg.MustRegister(ConnectionGauge)
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return reg
}
