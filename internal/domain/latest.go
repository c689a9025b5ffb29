package domain

import "sync"

// SceneRasters pairs the derived rasters of one scene for presentation:
// the turbidity index for visualization and the water mask for overlay.
type SceneRasters struct {
	SceneID string
	Index   IndexRaster
	Mask    WaterMask
}

// LatestRasters retains the most recently acquired rasters per river, for
// the dashboard's calibration view. Only the newest acquisition is kept;
// an older scene arriving late never overwrites a newer one.
type LatestRasters struct {
	mu     sync.RWMutex
	scenes map[string]SceneRasters
}

// NewLatestRasters creates an empty store.
func NewLatestRasters() *LatestRasters {
	return &LatestRasters{scenes: make(map[string]SceneRasters)}
}

// Put stores the rasters for a river unless a newer acquisition is already
// held. Returns true when the store was updated.
func (l *LatestRasters) Put(river string, sr SceneRasters) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.scenes[river]; ok && cur.Index.AcquiredAt.After(sr.Index.AcquiredAt) {
		return false
	}
	l.scenes[river] = sr
	return true
}

// Get returns the latest rasters for a river.
func (l *LatestRasters) Get(river string) (SceneRasters, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	sr, ok := l.scenes[river]
	return sr, ok
}
