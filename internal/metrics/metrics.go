// Package metrics holds the Prometheus collectors of the countries API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh outcomes used as label values.
const (
	OutcomeSuccess           = "success"
	OutcomeSourceUnavailable = "source_unavailable"
	OutcomeConflict          = "conflict"
	OutcomeError             = "error"
)

// RefreshMetrics tracks refresh runs and the resulting data set.
type RefreshMetrics struct {
	registry *prometheus.Registry

	RefreshTotal        *prometheus.CounterVec
	RefreshDuration     prometheus.Histogram
	CountriesProcessed  *prometheus.CounterVec
	CountriesStored     prometheus.Gauge
	LastRefreshUnixTime prometheus.Gauge
	SideEffectErrors    *prometheus.CounterVec
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *RefreshMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	return &RefreshMetrics{
		registry: reg,
		RefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "countries_refresh_total",
				Help: "Refresh runs by outcome",
			},
			[]string{"outcome"},
		),
		RefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "countries_refresh_duration_seconds",
				Help:    "Wall time of refresh runs, fetch included",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),
		CountriesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "countries_processed_total",
				Help: "Country records handled by refreshes, by result",
			},
			[]string{"result"},
		),
		CountriesStored: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "countries_stored",
				Help: "Countries stored after the last successful refresh",
			},
		),
		LastRefreshUnixTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "countries_last_refresh_timestamp_seconds",
				Help: "Unix time of the last successful refresh",
			},
		),
		SideEffectErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "countries_refresh_side_effect_errors_total",
				Help: "Failures of post-commit artifact uploads and event publishing",
			},
			[]string{"target"},
		),
	}
}

// RecordRefresh records a finished refresh run.
func (m *RefreshMetrics) RecordRefresh(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(outcome).Inc()
	m.RefreshDuration.Observe(elapsed.Seconds())
}

// RecordCommitted records the counts of a committed refresh.
func (m *RefreshMetrics) RecordCommitted(inserted, updated, skipped int, total int64, at time.Time) {
	if m == nil {
		return
	}
	m.CountriesProcessed.WithLabelValues("inserted").Add(float64(inserted))
	m.CountriesProcessed.WithLabelValues("updated").Add(float64(updated))
	m.CountriesProcessed.WithLabelValues("skipped").Add(float64(skipped))
	m.CountriesStored.Set(float64(total))
	m.LastRefreshUnixTime.Set(float64(at.Unix()))
}

// RecordSideEffectError counts a failed post-commit action.
func (m *RefreshMetrics) RecordSideEffectError(target string) {
	if m == nil {
		return
	}
	m.SideEffectErrors.WithLabelValues(target).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *RefreshMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
