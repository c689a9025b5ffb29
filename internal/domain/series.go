package domain

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// TrendPoint is one dated entry in a river's turbidity series.
type TrendPoint struct {
	AcquiredAt    time.Time `json:"acquired_at"`
	MeanTurbidity float64   `json:"mean_turbidity"`
	ValidPixels   int       `json:"valid_pixels"`
	Status        string    `json:"status"`
}

// SeriesStats are aggregates over a whole series, for trend plotting.
type SeriesStats struct {
	MeanTurbidity float64   `json:"mean_turbidity"`
	TrendPerYear  float64   `json:"trend_per_year"`
	Observations  int       `json:"observations"`
	FirstDate     time.Time `json:"first_date"`
	LastDate      time.Time `json:"last_date"`
}

// TimeSeries is an append-only, date-ascending sequence of trend points for
// one river. All access is serialized through an internal mutex, so
// summaries for different dates may be upserted concurrently. Entries are
// never mutated after insertion; a duplicate date replaces the whole entry.
type TimeSeries struct {
	mu     sync.Mutex
	points []TrendPoint
}

// Upsert inserts a point keeping ascending acquisition-date order. When an
// entry for the same UTC calendar day already exists, the new point replaces
// it (last write wins): reprocessing a scene must converge to the latest
// computation rather than plot two values for one date. Returns true when
// an existing entry was replaced.
func (s *TimeSeries) Upsert(p TrendPoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dateKey(p.AcquiredAt)
	i := sort.Search(len(s.points), func(i int) bool {
		return !dateKey(s.points[i].AcquiredAt).Before(key)
	})

	if i < len(s.points) && dateKey(s.points[i].AcquiredAt).Equal(key) {
		s.points[i] = p
		return true
	}

	s.points = append(s.points, TrendPoint{})
	copy(s.points[i+1:], s.points[i:])
	s.points[i] = p
	return false
}

// Points returns a copy of the series in ascending date order.
func (s *TimeSeries) Points() []TrendPoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TrendPoint, len(s.points))
	copy(out, s.points)
	return out
}

// Len returns the number of entries in the series.
func (s *TimeSeries) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points)
}

// Stats computes series aggregates. The trend slope is a least-squares
// linear regression of mean turbidity against years since the first
// observation; it is zero until at least two points exist. Returns false
// when the series is empty.
func (s *TimeSeries) Stats() (SeriesStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.points) == 0 {
		return SeriesStats{}, false
	}

	means := make([]float64, len(s.points))
	for i, p := range s.points {
		means[i] = p.MeanTurbidity
	}

	stats := SeriesStats{
		MeanTurbidity: stat.Mean(means, nil),
		Observations:  len(s.points),
		FirstDate:     s.points[0].AcquiredAt,
		LastDate:      s.points[len(s.points)-1].AcquiredAt,
	}

	if len(s.points) >= 2 {
		years := make([]float64, len(s.points))
		first := s.points[0].AcquiredAt
		for i, p := range s.points {
			years[i] = p.AcquiredAt.Sub(first).Hours() / (24 * 365.25)
		}
		_, slope := stat.LinearRegression(years, means, nil, false)
		stats.TrendPerYear = slope
	}

	return stats, true
}

// dateKey truncates an acquisition time to its UTC calendar day, the
// identity under which duplicate series entries are detected.
func dateKey(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SeriesStore holds one TimeSeries per river.
type SeriesStore struct {
	mu     sync.RWMutex
	series map[string]*TimeSeries
}

// NewSeriesStore creates an empty store.
func NewSeriesStore() *SeriesStore {
	return &SeriesStore{series: make(map[string]*TimeSeries)}
}

// Ensure returns the series for a river, creating it if absent.
func (st *SeriesStore) Ensure(river string) *TimeSeries {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.series[river]
	if !ok {
		s = &TimeSeries{}
		st.series[river] = s
	}
	return s
}

// Get returns the series for a river, or nil when none exists.
func (st *SeriesStore) Get(river string) *TimeSeries {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.series[river]
}

// Rivers returns the keys of all rivers with at least one series, sorted.
func (st *SeriesStore) Rivers() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	keys := make([]string, 0, len(st.series))
	for k := range st.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
