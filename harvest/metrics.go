package harvest

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles Prometheus collectors for harvesting runs.
type Metrics struct {
	Registry            *prometheus.Registry
	RecordsTotal        prometheus.Counter
	DuplicatesTotal     prometheus.Counter
	StaleRowsTotal      prometheus.Counter
	FareFallbacksTotal  prometheus.Counter
	ScrollSteps         prometheus.Histogram
	RoutesTotal         *prometheus.CounterVec
	RetriesTotal        prometheus.Counter
	NavigationErrsTotal *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	records := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvest_records_total",
		Help: "Total bus records harvested across all routes.",
	})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvest_duplicates_total",
		Help: "Rows skipped because their identity was already seen.",
	})
	staleRows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvest_stale_rows_total",
		Help: "Rows skipped because their handle went stale mid-read.",
	})
	fareFallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvest_fare_fallbacks_total",
		Help: "Rows where the fare breakdown was unavailable and the single visible fare was used.",
	})
	scrollSteps := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "harvest_scroll_steps",
		Help:    "Scroll steps taken per route harvest.",
		Buckets: prometheus.LinearBuckets(0, 5, 8),
	})
	routes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_routes_total",
		Help: "Route attempts by terminal outcome.",
	}, []string{"outcome"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvest_retries_total",
		Help: "Route attempt retries scheduled.",
	})
	navErrs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_navigation_errors_total",
		Help: "Navigation and surface errors by category.",
	}, []string{"category"})

	registry.MustRegister(records, duplicates, staleRows, fareFallbacks, scrollSteps, routes, retries, navErrs)

	return &Metrics{
		Registry:            registry,
		RecordsTotal:        records,
		DuplicatesTotal:     duplicates,
		StaleRowsTotal:      staleRows,
		FareFallbacksTotal:  fareFallbacks,
		ScrollSteps:         scrollSteps,
		RoutesTotal:         routes,
		RetriesTotal:        retries,
		NavigationErrsTotal: navErrs,
	}
}

// IncRecords counts one harvested record.
func (m *Metrics) IncRecords() {
	if m == nil {
		return
	}
	m.RecordsTotal.Inc()
}

// IncDuplicates counts one dedupe skip.
func (m *Metrics) IncDuplicates() {
	if m == nil {
		return
	}
	m.DuplicatesTotal.Inc()
}

// IncStaleRows counts one stale-handle skip.
func (m *Metrics) IncStaleRows() {
	if m == nil {
		return
	}
	m.StaleRowsTotal.Inc()
}

// IncFareFallbacks counts one fare extraction that degraded to the single
// visible fare.
func (m *Metrics) IncFareFallbacks() {
	if m == nil {
		return
	}
	m.FareFallbacksTotal.Inc()
}

// ObserveScrollSteps records how many scroll steps one harvest took.
func (m *Metrics) ObserveScrollSteps(n int) {
	if m == nil {
		return
	}
	m.ScrollSteps.Observe(float64(n))
}

// IncRoute counts a terminal route outcome.
func (m *Metrics) IncRoute(outcome string) {
	if m == nil {
		return
	}
	m.RoutesTotal.WithLabelValues(outcome).Inc()
}

// IncRetries counts one scheduled retry.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncNavigationError counts one classified navigation/surface error.
func (m *Metrics) IncNavigationError(category string) {
	if m == nil {
		return
	}
	m.NavigationErrsTotal.WithLabelValues(category).Inc()
}
