package topoplot

import (
	"encoding/binary"
	"math"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/twpayne/go-topoplot/delaunay"
)

// A TriangulationCache is a Triangulator that caches triangulations by sensor
// layout, so repeated interpolations of changing values over the same
// positions triangulate once. It is safe for concurrent use.
type TriangulationCache struct {
	mutex sync.Mutex
	cache *lru.Cache[uint64, *delaunay.Triangulation]
}

// NewTriangulationCache returns a new TriangulationCache holding up to size
// triangulations.
func NewTriangulationCache(size int) (*TriangulationCache, error) {
	cache, err := lru.New[uint64, *delaunay.Triangulation](size)
	if err != nil {
		return nil, err
	}
	return &TriangulationCache{
		cache: cache,
	}, nil
}

// Len returns the number of cached triangulations.
func (c *TriangulationCache) Len() int {
	return c.cache.Len()
}

// Triangulate returns the triangulation of positions, using the cache if
// possible. Errors are not cached.
func (c *TriangulationCache) Triangulate(positions []Point) (*delaunay.Triangulation, error) {
	key := layoutKey(positions)

	if t, ok := c.get(key, positions); ok {
		triangulationCacheHits.Inc()
		return t, nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if t, ok := c.get(key, positions); ok {
		triangulationCacheHits.Inc()
		return t, nil
	}

	triangulationCacheMisses.Inc()

	t, err := delaunay.Triangulate(positions)
	if err != nil {
		return nil, err
	}

	if eviction := c.cache.Add(key, t); eviction {
		triangulationCacheEvictions.Inc()
		Logf("topoplot: triangulation cache full, evicted oldest layout")
	}

	return t, nil
}

// get returns the cached triangulation for key if it was built from exactly
// positions.
func (c *TriangulationCache) get(key uint64, positions []Point) (*delaunay.Triangulation, bool) {
	t, ok := c.cache.Get(key)
	if !ok || !slices.Equal(t.Points, positions) {
		return nil, false
	}
	return t, true
}

func layoutKey(positions []Point) uint64 {
	buf := make([]byte, 0, 16*len(positions))
	for _, p := range positions {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p.X))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p.Y))
	}
	return xxhash.Sum64(buf)
}
