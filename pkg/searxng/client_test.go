package searxng

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ai-answer-engine-be/pkg/cache"
	"ai-answer-engine-be/pkg/resilience"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func resultsJSON(results ...map[string]any) []byte {
	data, _ := json.Marshal(map[string]any{"results": results})
	return data
}

func testClient(baseURL string) *Client {
	return NewClient(ClientConfig{
		BaseURL:         baseURL,
		AttemptTimeouts: []time.Duration{time.Second},
	}, nil, nil, nil, nil)
}

func TestSearchParsesAndDedupes(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("missing format=json parameter")
		}
		w.Write(resultsJSON(
			map[string]any{"title": "One", "url": "https://example.com/a", "content": "first"},
			map[string]any{"title": "Dup", "url": "https://example.com/a/", "content": "same page"},
			map[string]any{"title": "Two", "url": "https://other.org/b", "content": "second"},
			map[string]any{"title": "No URL", "content": "dropped"},
		))
	})

	c := testClient(backend.URL)
	resp, err := c.Search(context.Background(), "test query", SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("len(results) = %d, want 2 (duplicate and url-less dropped)", len(resp.Results))
	}
}

func TestSearchCachesResponses(t *testing.T) {
	var calls int32
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write(resultsJSON(map[string]any{"title": "One", "url": "https://example.com", "content": "x"}))
	})

	m := cache.NewManager()
	c := NewClient(ClientConfig{BaseURL: backend.URL}, m.Region(cache.RegionSearchResults), nil, nil, nil)

	for i := 0; i < 3; i++ {
		if _, err := c.Search(context.Background(), "same query", SearchOptions{}); err != nil {
			t.Fatalf("Search() error = %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("upstream calls = %d, want 1 (cached)", got)
	}

	// A different query misses the cache.
	c.Search(context.Background(), "other query", SearchOptions{})
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("upstream calls = %d, want 2", got)
	}
}

func TestSearchRespectsMaxResults(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		var results []map[string]any
		for i := 0; i < 30; i++ {
			results = append(results, map[string]any{
				"title": "R", "url": fmt.Sprintf("https://example.com/%d", i), "content": "x",
			})
		}
		w.Write(resultsJSON(results...))
	})

	c := testClient(backend.URL)
	resp, err := c.Search(context.Background(), "q", SearchOptions{MaxResults: 5})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 5 {
		t.Errorf("len(results) = %d, want 5", len(resp.Results))
	}
}

func TestSearchWithFallbackDegrades(t *testing.T) {
	var sawFallbackEngines atomic.Bool
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("engines") == "" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		sawFallbackEngines.Store(true)
		w.Write(resultsJSON(map[string]any{"title": "F", "url": "https://example.com", "content": "x"}))
	})

	c := NewClient(ClientConfig{
		BaseURL:         backend.URL,
		FallbackEngines: []string{"google", "bing"},
	}, nil, nil, nil, nil)

	resp, err := c.SearchWithFallback(context.Background(), "q", SearchOptions{})
	if err != nil {
		t.Fatalf("SearchWithFallback() error = %v", err)
	}
	if !resp.Degraded {
		t.Error("fallback response should be flagged degraded")
	}
	if !sawFallbackEngines.Load() {
		t.Error("fallback should restrict the engine set")
	}
}

func TestMultiQuerySearchMergesByWeight(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		switch q {
		case "alpha":
			w.Write(resultsJSON(
				map[string]any{"title": "Shared", "url": "https://shared.example", "content": "x"},
				map[string]any{"title": "Alpha only", "url": "https://alpha.example", "content": "x"},
			))
		default:
			w.Write(resultsJSON(
				map[string]any{"title": "Shared", "url": "https://shared.example/", "content": "x"},
				map[string]any{"title": "Beta only", "url": "https://beta.example", "content": "x"},
			))
		}
	})

	c := testClient(backend.URL)
	resp, err := c.MultiQuerySearch(context.Background(), []WeightedQuery{
		{Query: "alpha", Weight: 1.0},
		{Query: "beta", Weight: 3.0},
	})
	if err != nil {
		t.Fatalf("MultiQuerySearch() error = %v", err)
	}
	// Shared URL dedupes across queries despite the trailing slash.
	if len(resp.Results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(resp.Results))
	}
	// Heavier-weighted rank-1 results lead.
	if resp.Results[0].Score < resp.Results[len(resp.Results)-1].Score {
		t.Error("results should be sorted by descending score")
	}
}

func TestMultiQuerySearchToleratesPartialFailure(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(resultsJSON(map[string]any{"title": "Good", "url": "https://example.com", "content": "x"}))
	})

	c := testClient(backend.URL)
	resp, err := c.MultiQuerySearch(context.Background(), []WeightedQuery{
		{Query: "bad"},
		{Query: "good"},
	})
	if err != nil {
		t.Fatalf("MultiQuerySearch() error = %v", err)
	}
	if len(resp.Results) != 1 {
		t.Errorf("len(results) = %d, want 1", len(resp.Results))
	}
}

func TestMultiQuerySearchAllFailed(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := testClient(backend.URL)
	if _, err := c.MultiQuerySearch(context.Background(), []WeightedQuery{{Query: "a"}, {Query: "b"}}); err == nil {
		t.Fatal("expected error when every query fails")
	}
}

func TestSearchRetriesTransientErrors(t *testing.T) {
	var calls int32
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(resultsJSON(map[string]any{"title": "OK", "url": "https://example.com", "content": "x"}))
	})

	retry := resilience.NewRetryHandler(resilience.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	}, resilience.NewErrorTracker())

	c := NewClient(ClientConfig{BaseURL: backend.URL}, nil, nil, retry, nil)
	resp, err := c.Search(context.Background(), "q", SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 1 {
		t.Errorf("len(results) = %d, want 1", len(resp.Results))
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("upstream calls = %d, want 3", got)
	}
}

func TestSearchBreakerOpensAfterRepeatedFailures(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	breaker := resilience.NewCircuitBreaker("searxng", resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  time.Minute,
	})
	c := NewClient(ClientConfig{BaseURL: backend.URL}, nil, nil, nil, breaker)

	c.Search(context.Background(), "q1", SearchOptions{})
	c.Search(context.Background(), "q2", SearchOptions{})

	if state := breaker.State(); state != resilience.StateOpen {
		t.Fatalf("breaker state = %v, want OPEN", state)
	}
	if _, err := c.Search(context.Background(), "q3", SearchOptions{}); err == nil {
		t.Fatal("open breaker should reject the call")
	}
}

func TestHealthCheck(t *testing.T) {
	healthy := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("path = %s, want /healthz", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})
	if !testClient(healthy.URL).HealthCheck(context.Background()) {
		t.Error("healthy backend should report true")
	}

	down := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if testClient(down.URL).HealthCheck(context.Background()) {
		t.Error("unhealthy backend should report false")
	}
}

func TestDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.example.com/page", "example.com"},
		{"https://sub.example.org", "sub.example.org"},
		{"not a url", "not a url"},
	}
	for _, tt := range tests {
		if got := Domain(tt.url); got != tt.want {
			t.Errorf("Domain(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestDiversifyByDomain(t *testing.T) {
	results := []Result{
		{URL: "https://a.example/1"},
		{URL: "https://a.example/2"},
		{URL: "https://b.example/1"},
	}
	out := diversifyByDomain(results)
	if Domain(out[0].URL) == Domain(out[1].URL) {
		t.Errorf("first two results share a domain: %v", out)
	}
}
