package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sedimentwatch/river-turbidity-etl/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes health, readiness, and metrics endpoints plus the
// dashboard API: river registry, per-river trend series, and the latest
// derived rasters.
type Server struct {
	httpServer *http.Server
	series     *domain.SeriesStore
	latest     *domain.LatestRasters
	rivers     []domain.River
	logger     *slog.Logger
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(addr string, ready ReadinessChecker, series *domain.SeriesStore, latest *domain.LatestRasters, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		series: series,
		latest: latest,
		rivers: domain.DefaultRivers(),
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/rivers", s.handleRivers)
	mux.HandleFunc("GET /api/rivers/{river}/series", s.handleSeries)
	mux.HandleFunc("GET /api/rivers/{river}/latest", s.handleLatest)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// riverEntry is a registry river plus its current observation count.
type riverEntry struct {
	domain.River
	Observations int `json:"observations"`
}

func (s *Server) handleRivers(w http.ResponseWriter, _ *http.Request) {
	entries := make([]riverEntry, 0, len(s.rivers))
	seen := make(map[string]bool, len(s.rivers))
	for _, r := range s.rivers {
		seen[r.Key] = true
		e := riverEntry{River: r}
		if series := s.series.Get(r.Key); series != nil {
			e.Observations = series.Len()
		}
		entries = append(entries, e)
	}
	// Rivers outside the registry still appear once the collector has
	// published scenes for them.
	for _, key := range s.series.Rivers() {
		if seen[key] {
			continue
		}
		entries = append(entries, riverEntry{
			River:        domain.River{Key: key, Name: key},
			Observations: s.series.Get(key).Len(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"rivers": entries})
}

// seriesResponse carries a river's trend points and aggregates.
type seriesResponse struct {
	River  string              `json:"river"`
	Points []domain.TrendPoint `json:"points"`
	Stats  domain.SeriesStats  `json:"stats"`
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	river := r.PathValue("river")
	series := s.series.Get(river)
	if series == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no observations for river " + river})
		return
	}

	stats, ok := series.Stats()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no observations for river " + river})
		return
	}

	writeJSON(w, http.StatusOK, seriesResponse{
		River:  river,
		Points: series.Points(),
		Stats:  stats,
	})
}

// latestResponse carries the most recent derived rasters for a river.
// Undefined index pixels serialize as null: encoding/json cannot represent
// NaN, and 0 would read as a valid "clear" value.
type latestResponse struct {
	River      string     `json:"river"`
	SceneID    string     `json:"scene_id"`
	AcquiredAt time.Time  `json:"acquired_at"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	Index      []*float64 `json:"index"` // row-major NDTI, null = undefined
	Water      []bool     `json:"water"` // row-major mask
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	river := r.PathValue("river")
	sr, ok := s.latest.Get(river)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no scenes for river " + river})
		return
	}

	index := make([]*float64, len(sr.Index.Values))
	for i, v := range sr.Index.Values {
		if math.IsNaN(v) {
			continue
		}
		v := v
		index[i] = &v
	}

	writeJSON(w, http.StatusOK, latestResponse{
		River:      river,
		SceneID:    sr.SceneID,
		AcquiredAt: sr.Index.AcquiredAt,
		Width:      sr.Index.Width,
		Height:     sr.Index.Height,
		Index:      index,
		Water:      sr.Mask.Water,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
