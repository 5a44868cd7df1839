package cache

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRegionSetGet(t *testing.T) {
	m := NewManager()
	r := m.Region(RegionGeneral)

	r.Set("key", "value")
	got, ok := r.Get("key")
	if !ok || got != "value" {
		t.Fatalf("Get() = %v, %v; want value, true", got, ok)
	}

	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) should miss")
	}
}

func TestRegionTTLExpiry(t *testing.T) {
	m := &Manager{regions: make(map[string]*Region)}
	r := m.CreateRegion("short", RegionConfig{MaxEntries: 10, MaxBytes: 1 << 20, TTL: 20 * time.Millisecond})

	r.Set("key", "value")
	if _, ok := r.Get("key"); !ok {
		t.Fatal("entry should be present before TTL")
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := r.Get("key"); ok {
		t.Error("entry should have expired")
	}
}

func TestRegionBytesSettleAfterBackgroundExpiry(t *testing.T) {
	m := &Manager{regions: make(map[string]*Region)}
	r := m.CreateRegion("expiring", RegionConfig{MaxEntries: 50, MaxBytes: 1 << 20, TTL: 20 * time.Millisecond})

	for i := 0; i < 10; i++ {
		r.Set(fmt.Sprintf("key-%d", i), strings.Repeat("v", 100))
	}

	// The LRU expires entries on its own goroutine; the byte counter must
	// follow it back to zero.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := r.Stats(); s.Entries == 0 && s.Bytes == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	s := r.Stats()
	t.Fatalf("bytes did not settle after expiry: entries=%d bytes=%d", s.Entries, s.Bytes)
}

func TestRegionConcurrentSetGetStats(t *testing.T) {
	m := &Manager{regions: make(map[string]*Region)}
	r := m.CreateRegion("hammer", RegionConfig{MaxEntries: 32, MaxBytes: 4 << 10, TTL: time.Millisecond})

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("key-%d-%d", g, i%8)
				r.Set(key, strings.Repeat("v", 64))
				r.Get(key)
				r.Stats()
			}
		}(g)
	}
	wg.Wait()

	if s := r.Stats(); s.Bytes < 0 {
		t.Errorf("byte counter went negative: %d", s.Bytes)
	}
}

func TestRegionEntryCap(t *testing.T) {
	m := &Manager{regions: make(map[string]*Region)}
	r := m.CreateRegion("small", RegionConfig{MaxEntries: 3, MaxBytes: 1 << 20, TTL: time.Minute})

	for i := 0; i < 5; i++ {
		r.Set(fmt.Sprintf("key-%d", i), "value")
	}

	if got := r.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	// Oldest entries are evicted first.
	if r.Has("key-0") || r.Has("key-1") {
		t.Error("oldest entries should have been evicted")
	}
	if !r.Has("key-4") {
		t.Error("newest entry should survive")
	}
}

func TestRegionByteBudget(t *testing.T) {
	m := &Manager{regions: make(map[string]*Region)}
	r := m.CreateRegion("tiny", RegionConfig{MaxEntries: 100, MaxBytes: 100, TTL: time.Minute})

	big := make([]byte, 60)
	r.Set("a", big)
	r.Set("b", big) // pushes total over 100 bytes, evicting "a"

	if r.Has("a") {
		t.Error("entry a should have been evicted for the byte budget")
	}
	if !r.Has("b") {
		t.Error("entry b should survive")
	}
	if stats := r.Stats(); stats.Bytes > 100 {
		t.Errorf("bytes = %d, want <= 100", stats.Bytes)
	}
}

func TestRegionOverwriteSettlesBytes(t *testing.T) {
	m := &Manager{regions: make(map[string]*Region)}
	r := m.CreateRegion("ow", RegionConfig{MaxEntries: 10, MaxBytes: 1 << 20, TTL: time.Minute})

	r.Set("key", make([]byte, 40))
	r.Set("key", make([]byte, 10))

	if stats := r.Stats(); stats.Bytes != 10 {
		t.Errorf("bytes after overwrite = %d, want 10", stats.Bytes)
	}
}

func TestRegionStatsCounters(t *testing.T) {
	m := NewManager()
	r := m.Region(RegionSearchResults)

	r.Set("key", "value")
	r.Get("key")
	r.Get("key")
	r.Get("missing")

	stats := r.Stats()
	if stats.Hits != 2 {
		t.Errorf("hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("misses = %d, want 1", stats.Misses)
	}
	if stats.Name != RegionSearchResults {
		t.Errorf("name = %q, want %q", stats.Name, RegionSearchResults)
	}
}

func TestEstimateSize(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want int64
	}{
		{"string", "hello", 5},
		{"bytes", []byte{1, 2, 3}, 3},
		{"vector", []float32{1, 2, 3}, 12},
		{"matrix", [][]float32{{1, 2}, {3}}, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := estimateSize(tt.v); got != tt.want {
				t.Errorf("estimateSize() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestManagerStandardRegions(t *testing.T) {
	m := NewManager()
	for _, name := range []string{RegionGeneral, RegionSearchResults, RegionEmbeddings, RegionAPIResponses} {
		if m.Region(name) == nil {
			t.Errorf("standard region %q missing", name)
		}
	}
	if got := len(m.Stats()); got != 4 {
		t.Errorf("Stats() size = %d, want 4", got)
	}
}
