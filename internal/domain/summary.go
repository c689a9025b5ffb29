package domain

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ErrNoData indicates that a scene produced no usable summary: too few
// valid water pixels. Callers skip the date; they must never coerce this
// to a numeric value.
var ErrNoData = errors.New("no valid water pixels for summary")

// ErrImplausibleSummary indicates that the masked mean fell outside the
// configured plausibility bounds and was rejected as sensor or cloud noise.
var ErrImplausibleSummary = errors.New("masked mean outside plausibility bounds")

// Status labels for a summarized scene, ordered by sediment load.
const (
	StatusClear    = "clear"
	StatusModerate = "moderate"
	StatusCritical = "critical"
)

// SummaryOptions controls the validity gates applied by Summarize.
type SummaryOptions struct {
	// MinValidPixels is the smallest number of valid (water, non-NaN)
	// pixels required for a summary to count.
	MinValidPixels int

	// MinPlausible and MaxPlausible bound the acceptable masked mean.
	// Means outside the open interval are rejected with
	// ErrImplausibleSummary. The gate applies only when
	// MaxPlausible > MinPlausible.
	MinPlausible float64
	MaxPlausible float64
}

// StatusThresholds maps a masked mean to a status label.
type StatusThresholds struct {
	Moderate float64 // mean above this is at least moderate
	Critical float64 // mean above this is critical
}

// MaskedSummary is the scalar trend point for one acquisition: the mean
// turbidity index over valid water pixels.
type MaskedSummary struct {
	AcquiredAt    time.Time
	MeanTurbidity float64
	ValidPixels   int // water pixels with a defined index value
	WaterPixels   int // pixels the mask classified as water
	TotalPixels   int
}

// Summarize computes the mean index value at pixels where the mask is true,
// ignoring NaN pixels. It returns ErrDimensionMismatch when raster and mask
// disagree in size, ErrNoData when fewer than MinValidPixels valid pixels
// exist, and ErrImplausibleSummary when the mean falls outside the
// plausibility bounds. Pure function; no side effects.
func Summarize(idx IndexRaster, mask WaterMask, opts SummaryOptions) (MaskedSummary, error) {
	if idx.Width != mask.Width || idx.Height != mask.Height {
		return MaskedSummary{}, fmt.Errorf("%w: index raster is %dx%d, mask is %dx%d",
			ErrDimensionMismatch, idx.Width, idx.Height, mask.Width, mask.Height)
	}

	waterPixels := 0
	valid := make([]float64, 0, len(idx.Values))
	for i, v := range idx.Values {
		if !mask.Water[i] {
			continue
		}
		waterPixels++
		if math.IsNaN(v) {
			continue
		}
		valid = append(valid, v)
	}

	minValid := opts.MinValidPixels
	if minValid < 1 {
		minValid = 1
	}
	if len(valid) < minValid {
		return MaskedSummary{}, fmt.Errorf("%w: %d valid of %d water pixels, need %d",
			ErrNoData, len(valid), waterPixels, minValid)
	}

	mean := stat.Mean(valid, nil)
	if opts.MaxPlausible > opts.MinPlausible && (mean <= opts.MinPlausible || mean >= opts.MaxPlausible) {
		return MaskedSummary{}, fmt.Errorf("%w: mean %.4f outside (%.2f, %.2f)",
			ErrImplausibleSummary, mean, opts.MinPlausible, opts.MaxPlausible)
	}

	return MaskedSummary{
		AcquiredAt:    idx.AcquiredAt,
		MeanTurbidity: mean,
		ValidPixels:   len(valid),
		WaterPixels:   waterPixels,
		TotalPixels:   len(idx.Values),
	}, nil
}

// ClassifyStatus maps a masked mean to a status label using the given
// thresholds.
func ClassifyStatus(mean float64, t StatusThresholds) string {
	switch {
	case mean > t.Critical:
		return StatusCritical
	case mean > t.Moderate:
		return StatusModerate
	default:
		return StatusClear
	}
}
