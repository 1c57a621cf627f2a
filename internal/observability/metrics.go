package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "qsr"

// Metrics are the service's Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ViewsTotal      *prometheus.CounterVec
	NoDataTotal     *prometheus.CounterVec
	DatasetRows     prometheus.Gauge
	LoadDuration    prometheus.Histogram

	gatherer prometheus.Gatherer
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return newMetrics(reg, reg)
}

func newMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ViewsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pipeline_views_total",
			Help:      "Dashboard views computed, by view.",
		}, []string{"view"}),
		NoDataTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pipeline_no_data_total",
			Help:      "Views whose selection left no rows.",
		}, []string{"view"}),
		DatasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "dataset_observations",
			Help:      "Observations in the loaded sales sheet.",
		}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Time spent reading and melting the sales sheet.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		gatherer: gatherer,
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ViewsTotal,
		m.NoDataTotal,
		m.DatasetRows,
		m.LoadDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveView(view string, noData bool) {
	if m == nil {
		return
	}
	m.ViewsTotal.WithLabelValues(view).Inc()
	if noData {
		m.NoDataTotal.WithLabelValues(view).Inc()
	}
}

func (m *Metrics) ObserveLoad(rows int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DatasetRows.Set(float64(rows))
	m.LoadDuration.Observe(elapsed.Seconds())
}
