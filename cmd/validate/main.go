// Command validate replays a scene fixture file through the full
// parse → index → mask → summarize path and checks the engine's invariants:
// band alignment, mask idempotency, sentinel handling, summary plausibility,
// and series ordering under out-of-order insertion.
//
// Usage:
//
//	go run ./cmd/validate -scenes data/mock/river_scenes_2023.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/sedimentwatch/river-turbidity-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	scenesPath := flag.String("scenes", "", "path to scene fixture JSON")
	ndwiThreshold := flag.Float64("ndwi-threshold", 0.0, "water mask threshold")
	minPixels := flag.Int("min-pixels", 50, "minimum valid water pixels per scene")
	flag.Parse()

	if *scenesPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*scenesPath, *ndwiThreshold, *minPixels); code != 0 {
		os.Exit(code)
	}
}

func run(scenesPath string, ndwiThreshold float64, minPixels int) int {
	records, err := loadScenes(scenesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load scenes: %v\n", err)
		return 1
	}

	fmt.Println("=== River Scene Integrity Validation ===")
	fmt.Println()

	opts := domain.SummaryOptions{
		MinValidPixels: minPixels,
		MinPlausible:   -0.5,
		MaxPlausible:   0.8,
	}

	phases := []*phase{
		validateParsing(records),
		validateIndexRasters(records),
		validateMaskIdempotency(records, ndwiThreshold),
		validateSummaries(records, ndwiThreshold, opts),
		validateSeriesOrdering(records, ndwiThreshold, opts),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Scenes: %d\n", len(records))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadScenes(path string) ([]domain.RawSceneRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []domain.RawSceneRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no scenes in %s", path)
	}
	return records, nil
}

// parseScene round-trips a record through the real event parsing path.
func parseScene(rec domain.RawSceneRecord) (domain.Scene, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return domain.Scene{}, err
	}
	return domain.ParseRawEvent(domain.RawEvent{Value: payload})
}

func validateParsing(records []domain.RawSceneRecord) *phase {
	p := &phase{name: "Scene parsing & band alignment"}
	for _, rec := range records {
		scene, err := parseScene(rec)
		if err != nil {
			p.errorf("%s: %v", rec.SceneID, err)
			continue
		}
		if scene.Bands.Width() != rec.Width || scene.Bands.Height() != rec.Height {
			p.errorf("%s: parsed %dx%d, declared %dx%d",
				rec.SceneID, scene.Bands.Width(), scene.Bands.Height(), rec.Width, rec.Height)
		}
		if scene.ID == "" {
			p.errorf("%s: empty scene ID after parsing", rec.SceneID)
		}
	}
	return p
}

func validateIndexRasters(records []domain.RawSceneRecord) *phase {
	p := &phase{name: "NDTI raster derivation"}
	for _, rec := range records {
		scene, err := parseScene(rec)
		if err != nil {
			continue // reported by the parsing phase
		}
		index := domain.ComputeTurbidityIndex(scene.Bands)
		if len(index.Values) != rec.Width*rec.Height {
			p.errorf("%s: index raster has %d values, want %d", rec.SceneID, len(index.Values), rec.Width*rec.Height)
			continue
		}
		for i, v := range index.Values {
			denom := scene.Bands.Red.Pixels[i] + scene.Bands.Green.Pixels[i]
			switch {
			case denom == 0 && !math.IsNaN(v):
				p.errorf("%s: pixel %d has zero denominator but index %.4f, want NaN", rec.SceneID, i, v)
			case denom != 0 && (v < -1 || v > 1):
				p.errorf("%s: pixel %d index %.4f outside [-1, 1]", rec.SceneID, i, v)
			}
		}
	}
	return p
}

func validateMaskIdempotency(records []domain.RawSceneRecord, threshold float64) *phase {
	p := &phase{name: "Water mask idempotency"}
	for _, rec := range records {
		scene, err := parseScene(rec)
		if err != nil {
			continue
		}
		first := domain.ComputeWaterMask(scene.Bands, threshold)
		second := domain.ComputeWaterMask(scene.Bands, threshold)
		for i := range first.Water {
			if first.Water[i] != second.Water[i] {
				p.errorf("%s: mask differs at pixel %d between runs", rec.SceneID, i)
				break
			}
		}
	}
	return p
}

func validateSummaries(records []domain.RawSceneRecord, threshold float64, opts domain.SummaryOptions) *phase {
	p := &phase{name: "Masked summary plausibility"}
	for _, rec := range records {
		scene, err := parseScene(rec)
		if err != nil {
			continue
		}
		index := domain.ComputeTurbidityIndex(scene.Bands)
		mask := domain.ComputeWaterMask(scene.Bands, threshold)

		summary, err := domain.Summarize(index, mask, opts)
		if err != nil {
			// No-data is a legitimate outcome; only report it, don't fail.
			fmt.Printf("  note: %s: %v\n", rec.SceneID, err)
			continue
		}
		if math.IsNaN(summary.MeanTurbidity) {
			p.errorf("%s: summary mean is NaN", rec.SceneID)
		}
		if summary.ValidPixels > summary.WaterPixels {
			p.errorf("%s: %d valid pixels exceed %d water pixels", rec.SceneID, summary.ValidPixels, summary.WaterPixels)
		}
		if summary.MeanTurbidity <= opts.MinPlausible || summary.MeanTurbidity >= opts.MaxPlausible {
			p.errorf("%s: mean %.4f escaped plausibility gate", rec.SceneID, summary.MeanTurbidity)
		}
	}
	return p
}

func validateSeriesOrdering(records []domain.RawSceneRecord, threshold float64, opts domain.SummaryOptions) *phase {
	p := &phase{name: "Series date ordering"}

	store := domain.NewSeriesStore()
	// Insert in reverse to prove ordering holds for out-of-order input.
	for i := len(records) - 1; i >= 0; i-- {
		scene, err := parseScene(records[i])
		if err != nil {
			continue
		}
		index := domain.ComputeTurbidityIndex(scene.Bands)
		mask := domain.ComputeWaterMask(scene.Bands, threshold)
		summary, err := domain.Summarize(index, mask, opts)
		if err != nil {
			continue
		}
		store.Ensure(scene.River).Upsert(domain.TrendPoint{
			AcquiredAt:    summary.AcquiredAt,
			MeanTurbidity: summary.MeanTurbidity,
			ValidPixels:   summary.ValidPixels,
		})
	}

	for _, river := range store.Rivers() {
		points := store.Get(river).Points()
		for i := 1; i < len(points); i++ {
			if points[i].AcquiredAt.Before(points[i-1].AcquiredAt) {
				p.errorf("%s: point %d (%s) before point %d (%s)",
					river, i, points[i].AcquiredAt, i-1, points[i-1].AcquiredAt)
			}
		}
	}
	return p
}
