package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// turbidity pipeline.
type Metrics struct {
	ScenesConsumed    prometheus.Counter
	SummariesProduced prometheus.Counter
	TransformErrors   prometheus.Counter
	NoDataScenes      prometheus.Counter
	UndefinedPixels   prometheus.Counter
	PipelineRunning   prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
	MaskedPixelRatio        prometheus.Histogram

	// Series metrics.
	SeriesLength       *prometheus.GaugeVec // labels: river
	SeriesReplacements prometheus.Counter

	// Alerting metrics.
	AlertRequests *prometheus.CounterVec // labels: outcome={delivered,error}
	AlertCache    *prometheus.CounterVec // labels: result={hit,miss}
	AlertEnabled  prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ScenesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "river_turbidity",
			Name:      "scenes_consumed_total",
			Help:      "Total scenes read from the source topic.",
		}),
		SummariesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "river_turbidity",
			Name:      "summaries_produced_total",
			Help:      "Total turbidity summaries written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "river_turbidity",
			Name:      "transform_errors_total",
			Help:      "Total scene transformation failures (malformed or misaligned scenes).",
		}),
		NoDataScenes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "river_turbidity",
			Name:      "no_data_scenes_total",
			Help:      "Scenes skipped for too few valid water pixels or an implausible mean.",
		}),
		UndefinedPixels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "river_turbidity",
			Name:      "undefined_pixels_total",
			Help:      "Index pixels excluded as undefined (zero-denominator divisions).",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "river_turbidity",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "river_turbidity",
			Name:      "batch_size",
			Help:      "Number of scenes per batch extracted from Kafka.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 50},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "river_turbidity",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		MaskedPixelRatio: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "river_turbidity",
			Name:      "masked_pixel_ratio",
			Help:      "Fraction of scene pixels classified as water.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		SeriesLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "river_turbidity",
			Name:      "series_length",
			Help:      "Number of trend points held per river series.",
		}, []string{"river"}),
		SeriesReplacements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "river_turbidity",
			Name:      "series_replacements_total",
			Help:      "Series upserts that replaced an existing same-date entry.",
		}),
		AlertRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "river_turbidity",
			Name:      "alert_requests_total",
			Help:      "Alert webhook deliveries by outcome.",
		}, []string{"outcome"}),
		AlertCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "river_turbidity",
			Name:      "alert_cache_total",
			Help:      "Alert dedupe cache lookups by result.",
		}, []string{"result"}),
		AlertEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "river_turbidity",
			Name:      "alert_enabled",
			Help:      "1 when webhook alerting is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.ScenesConsumed,
		m.SummariesProduced,
		m.TransformErrors,
		m.NoDataScenes,
		m.UndefinedPixels,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.MaskedPixelRatio,
		m.SeriesLength,
		m.SeriesReplacements,
		m.AlertRequests,
		m.AlertCache,
		m.AlertEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ScenesConsumed:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "river_turbidity", Name: "scenes_consumed_total"}),
		SummariesProduced:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "river_turbidity", Name: "summaries_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "river_turbidity", Name: "transform_errors_total"}),
		NoDataScenes:            prometheus.NewCounter(prometheus.CounterOpts{Namespace: "river_turbidity", Name: "no_data_scenes_total"}),
		UndefinedPixels:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "river_turbidity", Name: "undefined_pixels_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "river_turbidity", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "river_turbidity", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "river_turbidity", Name: "batch_processing_duration_seconds"}),
		MaskedPixelRatio:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "river_turbidity", Name: "masked_pixel_ratio"}),
		SeriesLength:            prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "river_turbidity", Name: "series_length"}, []string{"river"}),
		SeriesReplacements:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "river_turbidity", Name: "series_replacements_total"}),
		AlertRequests:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "river_turbidity", Name: "alert_requests_total"}, []string{"outcome"}),
		AlertCache:              prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "river_turbidity", Name: "alert_cache_total"}, []string{"result"}),
		AlertEnabled:            prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "river_turbidity", Name: "alert_enabled"}),
	}
}
