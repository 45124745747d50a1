package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteTotal counts live quote outcomes: ok, incomplete (unresolved
	// shipping) or error.
	QuoteTotal *prometheus.CounterVec
	// QuoteCacheHits counts quotes served from the Redis cache.
	QuoteCacheHits prometheus.Counter
	// QuoteDuration records full pipeline latency in milliseconds.
	QuoteDuration prometheus.Histogram
	// RecomputeTotal counts edited-order recompute outcomes.
	RecomputeTotal *prometheus.CounterVec
	// RecomputeWarnings counts recomputes that produced shipping warnings.
	RecomputeWarnings prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_total",
			Help:      "Count of cart quote outcomes.",
		}, []string{"result"})
		QuoteCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_cache_hits_total",
			Help:      "Number of quotes served from the cache.",
		})
		QuoteDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_duration_ms",
			Help:      "Latency of the full pricing pipeline in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		})
		RecomputeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_recompute_total",
			Help:      "Count of edited-order recompute outcomes.",
		}, []string{"result"})
		RecomputeWarnings = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_recompute_warnings_total",
			Help:      "Number of recomputes that produced shipping warnings.",
		})

		mustRegisterCollector(reg, QuoteTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteCacheHits, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				QuoteCacheHits = v
			}
		})
		mustRegisterCollector(reg, QuoteDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				QuoteDuration = v
			}
		})
		mustRegisterCollector(reg, RecomputeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RecomputeTotal = v
			}
		})
		mustRegisterCollector(reg, RecomputeWarnings, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				RecomputeWarnings = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
