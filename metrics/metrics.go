// Package metrics holds the process-wide prometheus collectors. Everything
// is registered against the default registerer at init, the way the rest of
// the collectors in this codebase are.
package metrics

import (
	"time"

	"github.com/paulbellamy/ratecounter"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for RequestsTotal.
const (
	OutcomeHit            = "hit"
	OutcomeMiss           = "miss"
	OutcomeBadRequest     = "bad_request"
	OutcomeNotImplemented = "not_implemented"
	OutcomeUpstreamError  = "upstream_error"
	OutcomeClientError    = "client_error"
)

// Cache event labels for CacheEvents.
const (
	CacheEventHit    = "hit"
	CacheEventMiss   = "miss"
	CacheEventInsert = "insert"
	CacheEventEvict  = "evict"
	CacheEventDrop   = "drop"
	CacheEventPurge  = "purge"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Subsystem: "proxy",
		Name:      "requests_total",
		Help:      "The total number of handled client requests by outcome",
	}, []string{"outcome"})

	ActiveWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "relay",
		Subsystem: "proxy",
		Name:      "active_workers",
		Help:      "The number of connection workers currently running",
	})

	RelayedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "relay",
		Subsystem: "proxy",
		Name:      "relayed_bytes_total",
		Help:      "The total number of origin reply bytes forwarded to clients",
	})

	CacheEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Subsystem: "cache",
		Name:      "events_total",
		Help:      "The total number of cache events by kind",
	}, []string{"event"})

	CacheBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "relay",
		Subsystem: "cache",
		Name:      "bytes",
		Help:      "The sum of stored object lengths",
	})

	CacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "relay",
		Subsystem: "cache",
		Name:      "entries",
		Help:      "The number of cached objects",
	})

	requestRate = ratecounter.NewRateCounter(time.Minute)

	requestRateGauge = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "relay",
		Subsystem: "proxy",
		Name:      "request_rate_per_minute",
		Help:      "Requests handled over the trailing minute",
	}, func() float64 {
		return float64(requestRate.Rate())
	})
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		ActiveWorkers,
		RelayedBytes,
		CacheEvents,
		CacheBytes,
		CacheEntries,
		requestRateGauge,
	)
}

// MarkRequest records one finished request with its outcome label.
func MarkRequest(outcome string) {
	requestRate.Incr(1)
	RequestsTotal.WithLabelValues(outcome).Inc()
}
