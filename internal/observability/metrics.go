package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// visibility engine.
type Metrics struct {
	VisibilityChecks *prometheus.CounterVec // labels: classification

	// Grid search metrics.
	GridSearches       *prometheus.CounterVec   // labels: mode={targeted,full}
	GridSearchDuration *prometheus.HistogramVec // labels: mode={targeted,full}
	GridCellsScanned   prometheus.Counter
	GridCellsMatched   prometheus.Histogram
	WorkerPoolSize     prometheus.Gauge
	WorkerFaults       prometheus.Counter

	// Calendar assembly metrics.
	Night1Outcomes     *prometheus.CounterVec // labels: outcome={direct,inherited,exhausted}
	CalendarAssemblies prometheus.Counter
	CalendarDuration   prometheus.Histogram
	MonthsPublished    prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		VisibilityChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moonsight",
			Name:      "visibility_checks_total",
			Help:      "Crescent visibility classifications by outcome.",
		}, []string{"classification"}),
		GridSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moonsight",
			Name:      "grid_searches_total",
			Help:      "Grid searches by mode.",
		}, []string{"mode"}),
		GridSearchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "moonsight",
			Name:      "grid_search_duration_seconds",
			Help:      "Wall time of one grid search by mode.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"mode"}),
		GridCellsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moonsight",
			Name:      "grid_cells_scanned_total",
			Help:      "Lattice cells visited across all grid searches.",
		}),
		GridCellsMatched: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "moonsight",
			Name:      "grid_cells_matched",
			Help:      "Matching cells per targeted grid search.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		WorkerPoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "moonsight",
			Name:      "worker_pool_size",
			Help:      "Workers of the most recent grid search.",
		}),
		WorkerFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moonsight",
			Name:      "worker_faults_total",
			Help:      "Grid workers that panicked; their bands report no matches.",
		}),
		Night1Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moonsight",
			Name:      "night1_outcomes_total",
			Help:      "Night-1 searches by outcome.",
		}, []string{"outcome"}),
		CalendarAssemblies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moonsight",
			Name:      "calendar_assemblies_total",
			Help:      "Completed lunar calendar computations.",
		}),
		CalendarDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "moonsight",
			Name:      "calendar_duration_seconds",
			Help:      "Wall time of a full calendar assembly.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		MonthsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moonsight",
			Name:      "months_published_total",
			Help:      "Month records published to the events topic.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moonsight",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moonsight",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "moonsight",
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "moonsight",
			Name:      "geocode_enabled",
			Help:      "1 when city geocoding is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.VisibilityChecks,
		m.GridSearches,
		m.GridSearchDuration,
		m.GridCellsScanned,
		m.GridCellsMatched,
		m.WorkerPoolSize,
		m.WorkerFaults,
		m.Night1Outcomes,
		m.CalendarAssemblies,
		m.CalendarDuration,
		m.MonthsPublished,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		VisibilityChecks:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "moonsight", Name: "visibility_checks_total"}, []string{"classification"}),
		GridSearches:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "moonsight", Name: "grid_searches_total"}, []string{"mode"}),
		GridSearchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "moonsight", Name: "grid_search_duration_seconds"}, []string{"mode"}),
		GridCellsScanned:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "moonsight", Name: "grid_cells_scanned_total"}),
		GridCellsMatched:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "moonsight", Name: "grid_cells_matched"}),
		WorkerPoolSize:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "moonsight", Name: "worker_pool_size"}),
		WorkerFaults:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "moonsight", Name: "worker_faults_total"}),
		Night1Outcomes:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "moonsight", Name: "night1_outcomes_total"}, []string{"outcome"}),
		CalendarAssemblies: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "moonsight", Name: "calendar_assemblies_total"}),
		CalendarDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "moonsight", Name: "calendar_duration_seconds"}),
		MonthsPublished:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "moonsight", Name: "months_published_total"}),
		GeocodeRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "moonsight", Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "moonsight", Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "moonsight", Name: "geocode_api_duration_seconds"}),
		GeocodeEnabled:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "moonsight", Name: "geocode_enabled"}),
	}
}
