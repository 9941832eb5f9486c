package gateway

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/knowdhq/knowd/internal/knowledge"
)

// Metrics holds the gateway's Prometheus collectors. Each gateway instance
// owns its registry so tests can start gateways side by side.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	records       *prometheus.GaugeVec
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "knowd",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Store operations served, by operation name.",
		}, []string{"operation"}),
		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "knowd",
			Subsystem: "gateway",
			Name:      "errors_total",
			Help:      "Store operation failures, by operation name.",
		}, []string{"operation"}),
		records: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "knowd",
			Subsystem: "store",
			Name:      "records",
			Help:      "Records currently held, by record kind.",
		}, []string{"kind"}),
	}
}

// RecordRequest counts one served operation.
func (m *Metrics) RecordRequest(op string) {
	m.requestsTotal.WithLabelValues(op).Inc()
}

// RecordError counts one failed operation.
func (m *Metrics) RecordError(op string) {
	m.errorsTotal.WithLabelValues(op).Inc()
}

// UpdateRecordCounts refreshes the per-kind record gauges from the store.
func (m *Metrics) UpdateRecordCounts(ctx context.Context, store knowledge.Store) {
	stats, err := store.Stats(ctx)
	if err != nil {
		return
	}
	m.records.WithLabelValues("entity").Set(float64(stats.Entities))
	m.records.WithLabelValues("fact").Set(float64(stats.Facts))
	m.records.WithLabelValues("note").Set(float64(stats.Notes))
	m.records.WithLabelValues("conversation").Set(float64(stats.Conversations))
}

// Handler returns the /metrics exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
