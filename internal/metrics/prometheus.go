package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "phorium"

// PrometheusRecorder exports metrics through a dedicated Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	debits           *prometheus.CounterVec
	grants           *prometheus.CounterVec
	planChanges      *prometheus.CounterVec
	balanceCache     *prometheus.CounterVec
	generations      *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	storefrontCalls  *prometheus.CounterVec
}

// NewPrometheus creates a recorder with its own registry.
func NewPrometheus() *PrometheusRecorder {
	p := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		debits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credits",
			Name:      "debits_total",
			Help:      "Credit debit attempts by outcome.",
		}, []string{"outcome"}),
		grants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credits",
			Name:      "grants_total",
			Help:      "Credit grant attempts by outcome.",
		}, []string{"outcome"}),
		planChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credits",
			Name:      "plan_changes_total",
			Help:      "Plan assignments by resulting plan.",
		}, []string{"plan"}),
		balanceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credits",
			Name:      "balance_cache_total",
			Help:      "Balance cache lookups by result.",
		}, []string{"result"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Generation requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "provider_duration_seconds",
			Help:      "Duration of upstream AI provider calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}, []string{"kind"}),
		storefrontCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storefront",
			Name:      "calls_total",
			Help:      "Storefront Admin API calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}

	p.registry.MustRegister(
		p.debits,
		p.grants,
		p.planChanges,
		p.balanceCache,
		p.generations,
		p.providerDuration,
		p.storefrontCalls,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)

	return p
}

// Handler returns an HTTP handler exposing the registered metrics.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) IncDebit(outcome string) {
	p.debits.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncGrant(outcome string) {
	p.grants.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncPlanChange(plan string) {
	p.planChanges.WithLabelValues(plan).Inc()
}

func (p *PrometheusRecorder) IncBalanceCacheHit() {
	p.balanceCache.WithLabelValues("hit").Inc()
}

func (p *PrometheusRecorder) IncBalanceCacheMiss() {
	p.balanceCache.WithLabelValues("miss").Inc()
}

func (p *PrometheusRecorder) IncGeneration(kind, outcome string) {
	p.generations.WithLabelValues(kind, outcome).Inc()
}

func (p *PrometheusRecorder) ObserveProviderDuration(kind string, duration time.Duration) {
	p.providerDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncStorefrontCall(operation, outcome string) {
	p.storefrontCalls.WithLabelValues(operation, outcome).Inc()
}
