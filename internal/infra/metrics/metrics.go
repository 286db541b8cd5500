// Package metrics exposes Prometheus collectors for reports, declarations
// and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/caseledger/internal/casefile"
	"github.com/kislikjeka/caseledger/internal/distribution"
	"github.com/kislikjeka/caseledger/internal/ledger"
)

const namespace = "caseledger"

// Registry holds every collector. It implements casefile.Metrics and
// distribution.Metrics.
type Registry struct {
	gatherer prometheus.Gatherer

	reportsBuilt    *prometheus.CounterVec
	reportDuration  *prometheus.HistogramVec
	reportAnomalies *prometheus.CounterVec
	reportCache     *prometheus.CounterVec
	declarations    *prometheus.CounterVec
	declaredAmount  *prometheus.CounterVec
	deletions       *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

var (
	_ casefile.Metrics     = (*Registry)(nil)
	_ distribution.Metrics = (*Registry)(nil)
)

// New registers the collectors with reg. Passing nil uses a fresh registry.
func New(reg *prometheus.Registry) *Registry {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Registry{
		gatherer: reg,

		reportsBuilt: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "built_total",
			Help:      "Reports computed from a case snapshot.",
		}, []string{"kind"}),
		reportDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "duration_seconds",
			Help:      "Time to load a snapshot and compute a report.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}),
		reportAnomalies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "anomalies_total",
			Help:      "Non-terminal anomalies attached to reports.",
		}, []string{"code"}),
		reportCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "cache_lookups_total",
			Help:      "Report cache lookups by result.",
		}, []string{"kind", "result"}),
		declarations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "declared_total",
			Help:      "Distributions declared.",
		}, []string{"type"}),
		declaredAmount: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "declared_amount",
			Help:      "Net amount declared for distribution, in currency units.",
		}, []string{"type"}),
		deletions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "deleted_total",
			Help:      "Declarations deleted.",
		}, []string{"type"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "rejected_total",
			Help:      "Distribution calculations rejected.",
		}, []string{"reason"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// ReportBuilt implements casefile.Metrics
func (r *Registry) ReportBuilt(kind casefile.ReportKind, elapsed time.Duration) {
	r.reportsBuilt.WithLabelValues(string(kind)).Inc()
	r.reportDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// ReportAnomaly implements casefile.Metrics
func (r *Registry) ReportAnomaly(code ledger.AnomalyCode) {
	r.reportAnomalies.WithLabelValues(string(code)).Inc()
}

// ReportCacheLookup implements casefile.Metrics
func (r *Registry) ReportCacheLookup(kind casefile.ReportKind, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.reportCache.WithLabelValues(string(kind), result).Inc()
}

// DeclarationCreated implements distribution.Metrics
func (r *Registry) DeclarationCreated(t distribution.CreditorType, net decimal.Decimal) {
	r.declarations.WithLabelValues(string(t)).Inc()
	r.declaredAmount.WithLabelValues(string(t)).Add(net.InexactFloat64())
}

// DeclarationDeleted implements distribution.Metrics
func (r *Registry) DeclarationDeleted(t distribution.CreditorType) {
	r.deletions.WithLabelValues(string(t)).Inc()
}

// CalculationRejected implements distribution.Metrics
func (r *Registry) CalculationRejected(reason string) {
	r.rejections.WithLabelValues(reason).Inc()
}

// ObserveHTTP records one served request
func (r *Registry) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
