package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry     *prometheus.Registry
	saves        prometheus.Counter
	saveFailures *prometheus.CounterVec
}

// NewMetrics registers collectors. Store-derived gauges read store on scrape.
func NewMetrics(store *Store) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		saves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slot_saves_total",
			Help: "Successful save_slots requests",
		}),
		saveFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slot_save_failures_total",
			Help: "Rejected or failed save_slots requests",
		}, []string{"reason"}),
	}
	m.registry.MustRegister(m.saves, m.saveFailures)

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "slots_stored",
			Help: "Slots stored across all lots",
		},
		func() float64 { return float64(store.SlotCount()) },
	))
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "lots_stored",
			Help: "Lots with saved slots",
		},
		func() float64 { return float64(store.LotCount()) },
	))
	return m
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) saved() {
	m.saves.Inc()
}

func (m *Metrics) failed(reason string) {
	m.saveFailures.WithLabelValues(reason).Inc()
}
