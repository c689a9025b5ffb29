package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// RawSceneRecord is the flat JSON structure produced by the collector: one
// Sentinel-2 acquisition with its three bands as row-major float arrays.
type RawSceneRecord struct {
	SceneID    string    `json:"scene_id"`
	River      string    `json:"river"`
	AcquiredAt time.Time `json:"acquired_at"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CloudCover float64   `json:"cloud_cover"` // percent, from the catalog item
	Red        []float64 `json:"red"`         // B04
	Green      []float64 `json:"green"`       // B03
	NIR        []float64 `json:"nir"`         // B08
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Scene is the domain-rich representation after parsing: a validated band
// set plus collector metadata. Each Scene is owned exclusively by the
// computation call that parsed it and is discarded once its rasters and
// summary are derived.
type Scene struct {
	ID         string
	River      string
	CloudCover float64
	Bands      BandSet

	RawPayload []byte
}

// ParseRawEvent deserializes a RawEvent's value into a Scene, enforcing the
// band-alignment invariant at construction. A record whose bands disagree
// with the declared dimensions fails here with ErrDimensionMismatch rather
// than deep inside the index computation.
func ParseRawEvent(raw RawEvent) (Scene, error) {
	var rec RawSceneRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Scene{}, fmt.Errorf("parse raw scene: %w", err)
	}

	if rec.River == "" {
		return Scene{}, fmt.Errorf("parse raw scene: missing river key")
	}
	if rec.AcquiredAt.IsZero() {
		return Scene{}, fmt.Errorf("parse raw scene: missing acquisition time")
	}

	red, err := NewRasterTile(rec.Width, rec.Height, rec.AcquiredAt, rec.Red)
	if err != nil {
		return Scene{}, fmt.Errorf("red band: %w", err)
	}
	green, err := NewRasterTile(rec.Width, rec.Height, rec.AcquiredAt, rec.Green)
	if err != nil {
		return Scene{}, fmt.Errorf("green band: %w", err)
	}
	nir, err := NewRasterTile(rec.Width, rec.Height, rec.AcquiredAt, rec.NIR)
	if err != nil {
		return Scene{}, fmt.Errorf("nir band: %w", err)
	}

	bands, err := NewBandSet(rec.River, red, green, nir)
	if err != nil {
		return Scene{}, err
	}

	id := rec.SceneID
	if id == "" {
		id = generateSceneID(rec.River, rec.AcquiredAt, rec.Width, rec.Height)
	}

	return Scene{
		ID:         id,
		River:      rec.River,
		CloudCover: rec.CloudCover,
		Bands:      bands,
		RawPayload: raw.Value,
	}, nil
}

// generateSceneID produces a deterministic ID from the scene's key fields.
// Deterministic IDs keep sink-topic keys stable under replay: reprocessing
// the same raw scene produces the same message key.
func generateSceneID(river string, acquiredAt time.Time, width, height int) string {
	input := fmt.Sprintf("%s|%s|%dx%d", river, acquiredAt.UTC().Format(time.RFC3339), width, height)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if river == "" {
		return short
	}
	return river + "-" + short
}

// TurbiditySummary is the serialized form destined for the sink topic: one
// scalar trend point with its scene provenance.
type TurbiditySummary struct {
	SceneID       string    `json:"scene_id"`
	River         string    `json:"river"`
	AcquiredAt    time.Time `json:"acquired_at"`
	MeanTurbidity float64   `json:"mean_turbidity"`
	Status        string    `json:"status"`
	ValidPixels   int       `json:"valid_pixels"`
	WaterPixels   int       `json:"water_pixels"`
	TotalPixels   int       `json:"total_pixels"`
	CloudCover    float64   `json:"cloud_cover,omitempty"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// NewTurbiditySummary assembles the sink record for a summarized scene,
// stamping ProcessedAt from the package clock.
func NewTurbiditySummary(scene Scene, ms MaskedSummary, status string) TurbiditySummary {
	return TurbiditySummary{
		SceneID:       scene.ID,
		River:         scene.River,
		AcquiredAt:    ms.AcquiredAt,
		MeanTurbidity: ms.MeanTurbidity,
		Status:        status,
		ValidPixels:   ms.ValidPixels,
		WaterPixels:   ms.WaterPixels,
		TotalPixels:   ms.TotalPixels,
		CloudCover:    scene.CloudCover,
		ProcessedAt:   clock.Now(),
	}
}

// TrendPoint converts the summary into its series entry.
func (s TurbiditySummary) TrendPoint() TrendPoint {
	return TrendPoint{
		AcquiredAt:    s.AcquiredAt,
		MeanTurbidity: s.MeanTurbidity,
		ValidPixels:   s.ValidPixels,
		Status:        s.Status,
	}
}
