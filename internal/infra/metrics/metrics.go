// Package metrics provides Prometheus collection for the notification pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface used by the scheduler, dispatcher and match lookup.
type Recorder interface {
	RecordBatch(sent, noMatches, errors int)
	RecordLookup(outcome string)
	RecordCacheHit()
	RecordCacheMiss()
	RecordUpstreamLatency(d time.Duration)
	RecordUpstreamStatus(code int)
	RecordDispatch(ok bool)
	RecordEnqueue(ok bool)
	RecordReconcile(removed, errors int)
}

// Collector implements Recorder with Prometheus metrics.
type Collector struct {
	batchRuns        prometheus.Counter
	batchOutcomes    *prometheus.CounterVec
	lookups          *prometheus.CounterVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	upstreamLatency  prometheus.Histogram
	upstreamStatus   *prometheus.CounterVec
	dispatched       *prometheus.CounterVec
	enqueued         *prometheus.CounterVec
	reconcileRemoved prometheus.Counter
	reconcileErrors  prometheus.Counter
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		batchRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchday_batch_runs_total",
			Help: "Scheduler batches executed",
		}),
		batchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchday_batch_subscribers_total",
			Help: "Subscribers evaluated by the scheduler, by outcome",
		}, []string{"outcome"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchday_lookups_total",
			Help: "City match lookups, by outcome",
		}, []string{"outcome"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchday_cache_hits_total",
			Help: "Match cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchday_cache_misses_total",
			Help: "Match cache misses",
		}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "matchday_upstream_latency_seconds",
			Help:    "Latency of match-data API calls",
			Buckets: prometheus.DefBuckets,
		}),
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchday_upstream_status_total",
			Help: "Match-data API responses by HTTP status code",
		}, []string{"status_code"}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchday_dispatched_total",
			Help: "Queued messages handed to Telegram, by result",
		}, []string{"result"}),
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchday_enqueued_total",
			Help: "Messages written to the queue, by result",
		}, []string{"result"}),
		reconcileRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchday_reconcile_removed_total",
			Help: "Subscribers removed because they blocked the bot",
		}),
		reconcileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchday_reconcile_errors_total",
			Help: "Ambiguous probe failures during reconciliation",
		}),
	}

	reg.MustRegister(
		c.batchRuns,
		c.batchOutcomes,
		c.lookups,
		c.cacheHits,
		c.cacheMisses,
		c.upstreamLatency,
		c.upstreamStatus,
		c.dispatched,
		c.enqueued,
		c.reconcileRemoved,
		c.reconcileErrors,
	)

	return c
}

func (c *Collector) RecordBatch(sent, noMatches, errors int) {
	c.batchRuns.Inc()
	c.batchOutcomes.WithLabelValues("sent").Add(float64(sent))
	c.batchOutcomes.WithLabelValues("no_matches").Add(float64(noMatches))
	c.batchOutcomes.WithLabelValues("error").Add(float64(errors))
}

func (c *Collector) RecordLookup(outcome string) {
	c.lookups.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordCacheHit()  { c.cacheHits.Inc() }
func (c *Collector) RecordCacheMiss() { c.cacheMisses.Inc() }

func (c *Collector) RecordUpstreamLatency(d time.Duration) {
	c.upstreamLatency.Observe(d.Seconds())
}

func (c *Collector) RecordUpstreamStatus(code int) {
	c.upstreamStatus.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (c *Collector) RecordDispatch(ok bool) {
	c.dispatched.WithLabelValues(result(ok)).Inc()
}

func (c *Collector) RecordEnqueue(ok bool) {
	c.enqueued.WithLabelValues(result(ok)).Inc()
}

func (c *Collector) RecordReconcile(removed, errors int) {
	c.reconcileRemoved.Add(float64(removed))
	c.reconcileErrors.Add(float64(errors))
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute returns a mux serving /metrics.
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordBatch(int, int, int)           {}
func (Nop) RecordLookup(string)                 {}
func (Nop) RecordCacheHit()                     {}
func (Nop) RecordCacheMiss()                    {}
func (Nop) RecordUpstreamLatency(time.Duration) {}
func (Nop) RecordUpstreamStatus(int)            {}
func (Nop) RecordDispatch(bool)                 {}
func (Nop) RecordEnqueue(bool)                  {}
func (Nop) RecordReconcile(int, int)            {}
