package pipeline

import (
	"context"
	"log/slog"
	"math"

	"github.com/sedimentwatch/river-turbidity-etl/internal/config"
	"github.com/sedimentwatch/river-turbidity-etl/internal/domain"
	"github.com/sedimentwatch/river-turbidity-etl/internal/observability"
)

// SceneTransformer implements Transformer: it parses a raw scene, derives
// the turbidity index and water mask, summarizes the masked region, feeds
// the per-river trend series and latest-raster store, and optionally sends
// a webhook alert on critical status.
type SceneTransformer struct {
	ndwiThreshold float64
	summaryOpts   domain.SummaryOptions
	statuses      domain.StatusThresholds

	series  *domain.SeriesStore
	latest  *domain.LatestRasters
	alerter domain.Alerter

	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewTransformer creates a SceneTransformer. Pass a nil alerter to disable
// webhook alerting.
func NewTransformer(cfg *config.Config, series *domain.SeriesStore, latest *domain.LatestRasters, alerter domain.Alerter, metrics *observability.Metrics, logger *slog.Logger) *SceneTransformer {
	return &SceneTransformer{
		ndwiThreshold: cfg.NDWIThreshold,
		summaryOpts: domain.SummaryOptions{
			MinValidPixels: cfg.MinWaterPixels,
			MinPlausible:   cfg.SummaryMin,
			MaxPlausible:   cfg.SummaryMax,
		},
		statuses: domain.StatusThresholds{
			Moderate: cfg.StatusModerate,
			Critical: cfg.StatusCritical,
		},
		series:  series,
		latest:  latest,
		alerter: alerter,
		metrics: metrics,
		logger:  logger,
	}
}

func (t *SceneTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.TurbiditySummary, error) {
	scene, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.TurbiditySummary{}, err
	}

	index := domain.ComputeTurbidityIndex(scene.Bands)
	mask := domain.ComputeWaterMask(scene.Bands, t.ndwiThreshold)
	t.observeRasters(index, mask)

	// The latest rasters are retained even for scenes that summarize to
	// no-data, so the calibration view can show why a date was skipped.
	t.latest.Put(scene.River, domain.SceneRasters{SceneID: scene.ID, Index: index, Mask: mask})

	masked, err := domain.Summarize(index, mask, t.summaryOpts)
	if err != nil {
		return domain.TurbiditySummary{}, err
	}

	status := domain.ClassifyStatus(masked.MeanTurbidity, t.statuses)
	summary := domain.NewTurbiditySummary(scene, masked, status)

	if t.series.Ensure(scene.River).Upsert(summary.TrendPoint()) {
		t.metrics.SeriesReplacements.Inc()
	}
	t.metrics.SeriesLength.WithLabelValues(scene.River).Set(float64(t.series.Get(scene.River).Len()))

	if status == domain.StatusCritical && t.alerter != nil {
		alert := domain.Alert{
			River:         summary.River,
			AcquiredAt:    summary.AcquiredAt,
			MeanTurbidity: summary.MeanTurbidity,
			Status:        status,
		}
		// Alert delivery is best-effort: a webhook outage must not stall
		// summary production.
		if err := t.alerter.Send(ctx, alert); err != nil {
			t.logger.Warn("alert delivery failed", "error", err, "river", summary.River)
		}
	}

	return summary, nil
}

// observeRasters records per-scene raster metrics: the undefined-pixel
// count and the fraction of pixels classified as water.
func (t *SceneTransformer) observeRasters(index domain.IndexRaster, mask domain.WaterMask) {
	undefined := 0
	for _, v := range index.Values {
		if math.IsNaN(v) {
			undefined++
		}
	}
	if undefined > 0 {
		t.metrics.UndefinedPixels.Add(float64(undefined))
	}
	if total := len(mask.Water); total > 0 {
		t.metrics.MaskedPixelRatio.Observe(float64(mask.WaterCount()) / float64(total))
	}
}
