package domain

import "math"

// ComputeTurbidityIndex derives the NDTI raster (Red−Green)/(Red+Green) from
// a band set. Pixels where Red+Green == 0 are NaN: they carry no optical
// signal and must not pull a masked mean toward zero. Pure function of its
// input.
func ComputeTurbidityIndex(bs BandSet) IndexRaster {
	values := make([]float64, len(bs.Red.Pixels))
	for i := range values {
		values[i] = normalizedDifference(bs.Red.Pixels[i], bs.Green.Pixels[i])
	}
	return IndexRaster{
		Width:      bs.Width(),
		Height:     bs.Height(),
		AcquiredAt: bs.AcquiredAt,
		Values:     values,
	}
}

// ComputeWaterMask classifies each pixel as water when its NDWI
// (Green−NIR)/(Green+NIR) exceeds the threshold. Zero-denominator pixels
// classify as non-water, so a doubtful pixel can never enter a summary.
// Idempotent: the same band set and threshold always yield the same mask.
func ComputeWaterMask(bs BandSet, threshold float64) WaterMask {
	water := make([]bool, len(bs.Green.Pixels))
	for i := range water {
		ndwi := normalizedDifference(bs.Green.Pixels[i], bs.NIR.Pixels[i])
		water[i] = !math.IsNaN(ndwi) && ndwi > threshold
	}
	return WaterMask{Width: bs.Width(), Height: bs.Height(), Water: water}
}

// normalizedDifference computes (a−b)/(a+b), returning NaN when the
// denominator is zero.
func normalizedDifference(a, b float64) float64 {
	denom := a + b
	if denom == 0 {
		return math.NaN()
	}
	return (a - b) / denom
}
