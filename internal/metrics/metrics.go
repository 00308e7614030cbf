package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kirana"

// Metrics owns a private registry so tests can build as many as they need.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	salesRecorded   *prometheus.CounterVec
	salesCancelled  prometheus.Counter
	partialCommits  *prometheus.CounterVec
	daysClosed      *prometheus.CounterVec
	stockClamped    prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		salesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_recorded_total",
			Help:      "Bills recorded, by payment mode.",
		}, []string{"payment_mode"}),
		salesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_cancelled_total",
			Help:      "Bills moved to CANCELLED.",
		}),
		partialCommits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_commits_total",
			Help:      "Compound operations that stopped after their first step.",
		}, []string{"op"}),
		daysClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "days_closed_total",
			Help:      "Cash ledger days closed, by mode.",
		}, []string{"mode"}),
		stockClamped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_clamped_total",
			Help:      "Stock adjustments floored at zero.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		m.salesRecorded,
		m.salesCancelled,
		m.partialCommits,
		m.daysClosed,
		m.stockClamped,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SaleRecorded(paymentMode string) {
	if m == nil {
		return
	}
	m.salesRecorded.WithLabelValues(paymentMode).Inc()
}

func (m *Metrics) SaleCancelled() {
	if m == nil {
		return
	}
	m.salesCancelled.Inc()
}

func (m *Metrics) PartialCommit(op string) {
	if m == nil {
		return
	}
	m.partialCommits.WithLabelValues(op).Inc()
}

func (m *Metrics) DayClosed(mode string) {
	if m == nil {
		return
	}
	m.daysClosed.WithLabelValues(mode).Inc()
}

func (m *Metrics) StockClamped() {
	if m == nil {
		return
	}
	m.stockClamped.Inc()
}

func (m *Metrics) ObserveRequest(method string, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
