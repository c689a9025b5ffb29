package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrDimensionMismatch indicates that the bands of a scene disagree in size,
// or that a raster and mask of different sizes were combined. It is fatal to
// the call that produced it; no partial result is returned.
var ErrDimensionMismatch = errors.New("raster dimensions do not match")

// RasterTile is a 2D grid of per-pixel reflectance values for one spectral
// band. Pixels are row-major: index = y*Width + x. Tiles are treated as
// immutable once constructed.
type RasterTile struct {
	Width      int
	Height     int
	AcquiredAt time.Time
	Pixels     []float64
}

// NewRasterTile validates that the pixel slice matches the declared
// dimensions and returns the tile.
func NewRasterTile(width, height int, acquiredAt time.Time, pixels []float64) (RasterTile, error) {
	if width <= 0 || height <= 0 {
		return RasterTile{}, fmt.Errorf("%w: invalid tile size %dx%d", ErrDimensionMismatch, width, height)
	}
	if len(pixels) != width*height {
		return RasterTile{}, fmt.Errorf("%w: %d pixels for %dx%d tile", ErrDimensionMismatch, len(pixels), width, height)
	}
	return RasterTile{Width: width, Height: height, AcquiredAt: acquiredAt, Pixels: pixels}, nil
}

// At returns the reflectance value at (x, y).
func (t RasterTile) At(x, y int) float64 {
	return t.Pixels[y*t.Width+x]
}

// BandSet holds the co-registered Red, Green, and near-infrared tiles for
// one acquisition. Construction enforces that all three bands share width,
// height, and acquisition time, so the per-pixel computations never need to
// re-check alignment.
type BandSet struct {
	River      string
	AcquiredAt time.Time
	Red        RasterTile
	Green      RasterTile
	NIR        RasterTile
}

// NewBandSet validates band alignment and returns the set. A mismatch in
// any dimension or acquisition time is rejected here rather than surfacing
// as an index error deep inside a computation.
func NewBandSet(river string, red, green, nir RasterTile) (BandSet, error) {
	for name, band := range map[string]RasterTile{"green": green, "nir": nir} {
		if band.Width != red.Width || band.Height != red.Height {
			return BandSet{}, fmt.Errorf("%w: %s band is %dx%d, red band is %dx%d",
				ErrDimensionMismatch, name, band.Width, band.Height, red.Width, red.Height)
		}
		if !band.AcquiredAt.Equal(red.AcquiredAt) {
			return BandSet{}, fmt.Errorf("%w: %s band acquired at %s, red band at %s",
				ErrDimensionMismatch, name, band.AcquiredAt.Format(time.RFC3339), red.AcquiredAt.Format(time.RFC3339))
		}
	}
	return BandSet{
		River:      river,
		AcquiredAt: red.AcquiredAt,
		Red:        red,
		Green:      green,
		NIR:        nir,
	}, nil
}

// Width returns the shared band width.
func (b BandSet) Width() int { return b.Red.Width }

// Height returns the shared band height.
func (b BandSet) Height() int { return b.Red.Height }

// IndexRaster is a derived 2D grid of scalar index values with the same
// dimensions as its source BandSet. Undefined pixels (zero-denominator
// divisions) are NaN, never 0. Derived rasters are not mutated after
// creation.
type IndexRaster struct {
	Width      int
	Height     int
	AcquiredAt time.Time
	Values     []float64
}

// At returns the index value at (x, y). NaN marks an undefined pixel.
func (r IndexRaster) At(x, y int) float64 {
	return r.Values[y*r.Width+x]
}

// WaterMask is a boolean raster classifying each pixel as water or not.
type WaterMask struct {
	Width  int
	Height int
	Water  []bool
}

// At reports whether the pixel at (x, y) classified as water.
func (m WaterMask) At(x, y int) bool {
	return m.Water[y*m.Width+x]
}

// WaterCount returns the number of pixels classified as water.
func (m WaterMask) WaterCount() int {
	n := 0
	for _, w := range m.Water {
		if w {
			n++
		}
	}
	return n
}
