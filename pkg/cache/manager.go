package cache

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Region names used across the engine. Regions are created by the composition
// root and shared by all concurrent runs.
const (
	RegionGeneral       = "general"
	RegionSearchResults = "search-results"
	RegionEmbeddings    = "embeddings"
	RegionAPIResponses  = "api-responses"
)

// RegionConfig bounds one named region.
type RegionConfig struct {
	MaxEntries int
	MaxBytes   int64
	TTL        time.Duration
}

type entry struct {
	value value
	size  int64
}

type value = any

// Region is a size/TTL-bounded key-value store with LRU eviction.
type Region struct {
	name   string
	config RegionConfig

	mu    sync.Mutex
	store *lru.LRU[string, entry]

	// bytes is atomic: the evict callback also fires on the LRU's internal
	// TTL-expiry goroutine, outside r.mu.
	bytes atomic.Int64

	hits   int64
	misses int64
}

func newRegion(name string, config RegionConfig) *Region {
	r := &Region{name: name, config: config}
	r.store = lru.NewLRU(config.MaxEntries, func(_ string, e entry) {
		r.bytes.Add(-e.size)
	}, config.TTL)
	return r
}

// estimateSize approximates the in-memory footprint of a value.
func estimateSize(v any) int64 {
	switch t := v.(type) {
	case string:
		return int64(len(t))
	case []byte:
		return int64(len(t))
	case []float32:
		return int64(len(t) * 4)
	case [][]float32:
		var n int64
		for _, row := range t {
			n += int64(len(row) * 4)
		}
		return n
	default:
		// Fallback: JSON length is a rough but stable proxy.
		if data, err := json.Marshal(v); err == nil {
			return int64(len(data))
		}
		return 64
	}
}

func (r *Region) Set(key string, v any) {
	size := estimateSize(v)

	r.mu.Lock()
	defer r.mu.Unlock()

	// Remove first so the evict callback settles the byte count for overwrites.
	r.store.Remove(key)

	r.store.Add(key, entry{value: v, size: size})
	r.bytes.Add(size)

	// Enforce the byte budget by dropping least-recently-used entries.
	for r.bytes.Load() > r.config.MaxBytes && r.store.Len() > 0 {
		keys := r.store.Keys()
		if len(keys) == 0 {
			break
		}
		r.store.Remove(keys[0])
	}
}

func (r *Region) Get(key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.store.Get(key)
	if !ok {
		r.misses++
		return nil, false
	}
	r.hits++
	return e.value, true
}

func (r *Region) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Contains(key)
}

func (r *Region) Delete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store.Remove(key)
}

func (r *Region) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store.Purge()
	r.bytes.Store(0)
}

func (r *Region) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Len()
}

// RegionStats is a point-in-time usage snapshot.
type RegionStats struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
	Bytes   int64  `json:"bytes"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
}

func (r *Region) Stats() RegionStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RegionStats{
		Name:    r.name,
		Entries: r.store.Len(),
		Bytes:   r.bytes.Load(),
		Hits:    r.hits,
		Misses:  r.misses,
	}
}

// Manager owns the named cache regions.
type Manager struct {
	mu      sync.RWMutex
	regions map[string]*Region
}

// NewManager creates a manager with the standard engine regions.
func NewManager() *Manager {
	m := &Manager{regions: make(map[string]*Region)}
	m.CreateRegion(RegionGeneral, RegionConfig{MaxEntries: 1000, MaxBytes: 16 << 20, TTL: 10 * time.Minute})
	m.CreateRegion(RegionSearchResults, RegionConfig{MaxEntries: 500, MaxBytes: 64 << 20, TTL: 5 * time.Minute})
	m.CreateRegion(RegionEmbeddings, RegionConfig{MaxEntries: 2000, MaxBytes: 64 << 20, TTL: 30 * time.Minute})
	m.CreateRegion(RegionAPIResponses, RegionConfig{MaxEntries: 500, MaxBytes: 16 << 20, TTL: 2 * time.Minute})
	return m
}

// CreateRegion adds or replaces a named region.
func (m *Manager) CreateRegion(name string, config RegionConfig) *Region {
	if config.MaxEntries <= 0 {
		config.MaxEntries = 100
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = 8 << 20
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}

	r := newRegion(name, config)
	m.mu.Lock()
	m.regions[name] = r
	m.mu.Unlock()
	return r
}

// Region returns a named region, or nil if it does not exist.
func (m *Manager) Region(name string) *Region {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.regions[name]
}

// Stats aggregates usage across all regions.
func (m *Manager) Stats() []RegionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RegionStats, 0, len(m.regions))
	for _, r := range m.regions {
		out = append(out, r.Stats())
	}
	return out
}
