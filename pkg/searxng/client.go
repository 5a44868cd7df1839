package searxng

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"ai-answer-engine-be/pkg/cache"
	"ai-answer-engine-be/pkg/pool"
	"ai-answer-engine-be/pkg/resilience"

	"golang.org/x/sync/singleflight"
)

// Result is one web search hit.
type Result struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	ImageURL      string  `json:"img_src,omitempty"`
	Engine        string  `json:"engine,omitempty"`
	PublishedDate string  `json:"publishedDate,omitempty"`
	Score         float64 `json:"score,omitempty"`
}

// Response bundles results with backend query suggestions.
type Response struct {
	Results     []Result `json:"results"`
	Suggestions []string `json:"suggestions"`
	// Degraded marks a response produced by the reduced-engine fallback path.
	Degraded bool `json:"degraded,omitempty"`
}

// SearchOptions filter a query.
type SearchOptions struct {
	Categories []string
	Engines    []string
	TimeRange  string // "day", "week", "month", "year"
	Language   string
	MaxResults int
}

// WeightedQuery is one query in a multi-query batch; weight scales result scores
// when merging.
type WeightedQuery struct {
	Query   string
	Weight  float64
	Options SearchOptions
}

// ClientConfig tunes the retrieval client.
type ClientConfig struct {
	BaseURL string
	// Progressive per-attempt timeouts; attempts beyond the list reuse the last.
	AttemptTimeouts []time.Duration
	MaxResults      int
	// FallbackEngines is the reduced known-reliable engine set for degraded retries.
	FallbackEngines    []string
	FallbackMaxResults int
	HealthTimeout      time.Duration
}

func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:            baseURL,
		AttemptTimeouts:    []time.Duration{5 * time.Second, 8 * time.Second, 12 * time.Second},
		MaxResults:         20,
		FallbackEngines:    []string{"google", "bing"},
		FallbackMaxResults: 8,
		HealthTimeout:      2 * time.Second,
	}
}

// Client issues queries to a SearxNG-compatible backend with in-flight request
// de-duplication, a short-TTL result cache, progressive-timeout retries and a
// bounded outbound connection pool.
type Client struct {
	config  ClientConfig
	http    *http.Client
	cache   *cache.Region
	pool    *pool.ConnectionPool
	retry   *resilience.RetryHandler
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
}

func NewClient(
	config ClientConfig,
	cacheRegion *cache.Region,
	connPool *pool.ConnectionPool,
	retry *resilience.RetryHandler,
	breaker *resilience.CircuitBreaker,
) *Client {
	if len(config.AttemptTimeouts) == 0 {
		config.AttemptTimeouts = DefaultClientConfig(config.BaseURL).AttemptTimeouts
	}
	if config.MaxResults <= 0 {
		config.MaxResults = 20
	}
	if config.HealthTimeout <= 0 {
		config.HealthTimeout = 2 * time.Second
	}
	return &Client{
		config: config,
		// Per-attempt deadlines come from the context; no client-level timeout.
		http:    &http.Client{},
		cache:   cacheRegion,
		pool:    connPool,
		retry:   retry,
		breaker: breaker,
	}
}

// Search runs one query. Concurrent identical queries share a single upstream call.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	key := cacheKey(query, opts)

	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			if resp, ok := cached.(*Response); ok {
				return resp, nil
			}
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		resp, err := c.searchUpstream(ctx, query, opts)
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			c.cache.Set(key, resp)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Response), nil
}

// SearchWithFallback retries a failed search once with a reduced engine set and
// a smaller result cap, flagging the response as degraded.
func (c *Client) SearchWithFallback(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	resp, err := c.Search(ctx, query, opts)
	if err == nil {
		return resp, nil
	}

	degradedOpts := opts
	degradedOpts.Engines = c.config.FallbackEngines
	degradedOpts.MaxResults = c.config.FallbackMaxResults

	resp, fallbackErr := c.Search(ctx, query, degradedOpts)
	if fallbackErr != nil {
		return nil, fmt.Errorf("search failed (fallback also failed: %v): %w", fallbackErr, err)
	}
	resp.Degraded = true
	return resp, nil
}

// MultiQuerySearch executes weighted queries and returns merged, URL-deduplicated,
// score-sorted results. Individual query failures contribute zero results.
func (c *Client) MultiQuerySearch(ctx context.Context, queries []WeightedQuery) (*Response, error) {
	type scored struct {
		result Result
		score  float64
	}

	merged := make(map[string]scored)
	var suggestions []string
	failures := 0

	for _, wq := range queries {
		weight := wq.Weight
		if weight <= 0 {
			weight = 1.0
		}

		resp, err := c.Search(ctx, wq.Query, wq.Options)
		if err != nil {
			failures++
			continue
		}
		suggestions = append(suggestions, resp.Suggestions...)

		for rank, res := range resp.Results {
			// Positional score when the backend reports none.
			base := res.Score
			if base <= 0 {
				base = 1.0 / float64(rank+1)
			}
			score := base * weight

			key := normalizeURL(res.URL)
			if existing, ok := merged[key]; !ok || score > existing.score {
				merged[key] = scored{result: res, score: score}
			}
		}
	}

	if failures == len(queries) && len(queries) > 0 {
		return nil, fmt.Errorf("all %d queries failed", len(queries))
	}

	out := make([]scored, 0, len(merged))
	for _, s := range merged {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })

	results := make([]Result, len(out))
	for i, s := range out {
		results[i] = s.result
		results[i].Score = s.score
	}

	return &Response{
		Results:     diversifyByDomain(results),
		Suggestions: dedupeStrings(suggestions),
	}, nil
}

// HealthCheck probes backend liveness. It never returns an error.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.config.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", c.config.BaseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// searchUpstream performs the actual HTTP calls with retry and progressive timeouts.
func (c *Client) searchUpstream(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	var slot *pool.Slot
	if c.pool != nil {
		var err error
		slot, err = c.pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer c.pool.Release(slot)
	}

	attempt := 0
	var resp *Response

	operation := func(ctx context.Context) error {
		timeout := c.attemptTimeout(attempt)
		attempt++

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		r, err := c.doSearch(callCtx, query, opts)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(ctx, func(ctx context.Context) error {
			if c.retry != nil {
				return c.retry.Execute(ctx, "searxng", operation)
			}
			return operation(ctx)
		})
	} else if c.retry != nil {
		err = c.retry.Execute(ctx, "searxng", operation)
	} else {
		err = operation(ctx)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) attemptTimeout(attempt int) time.Duration {
	if attempt >= len(c.config.AttemptTimeouts) {
		return c.config.AttemptTimeouts[len(c.config.AttemptTimeouts)-1]
	}
	return c.config.AttemptTimeouts[attempt]
}

type searxngRawResponse struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		ImgSrc        string  `json:"img_src"`
		Engine        string  `json:"engine"`
		PublishedDate string  `json:"publishedDate"`
		Score         float64 `json:"score"`
	} `json:"results"`
	Suggestions []string `json:"suggestions"`
}

func (c *Client) doSearch(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	if len(opts.Categories) > 0 {
		params.Set("categories", strings.Join(opts.Categories, ","))
	}
	if len(opts.Engines) > 0 {
		params.Set("engines", strings.Join(opts.Engines, ","))
	}
	if opts.TimeRange != "" {
		params.Set("time_range", opts.TimeRange)
	}
	if opts.Language != "" {
		params.Set("language", opts.Language)
	}

	endpoint := c.config.BaseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searxng request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searxng error: status %d, body: %s", res.StatusCode, truncate(string(body), 200))
	}

	var raw searxngRawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}

	results := make([]Result, 0, len(raw.Results))
	seen := make(map[string]bool)
	for _, r := range raw.Results {
		if r.URL == "" {
			continue
		}
		key := normalizeURL(r.URL)
		if seen[key] {
			continue
		}
		seen[key] = true

		results = append(results, Result{
			Title:         r.Title,
			URL:           r.URL,
			Content:       r.Content,
			ImageURL:      r.ImgSrc,
			Engine:        r.Engine,
			PublishedDate: r.PublishedDate,
			Score:         r.Score,
		})
		if len(results) >= maxResults {
			break
		}
	}

	return &Response{
		Results:     diversifyByDomain(results),
		Suggestions: raw.Suggestions,
	}, nil
}

// diversifyByDomain keeps one result per domain in a first pass, then appends
// the remainder in original order.
func diversifyByDomain(results []Result) []Result {
	if len(results) <= 1 {
		return results
	}

	seen := make(map[string]bool)
	first := make([]Result, 0, len(results))
	rest := make([]Result, 0, len(results))

	for _, r := range results {
		domain := Domain(r.URL)
		if !seen[domain] {
			seen[domain] = true
			first = append(first, r)
		} else {
			rest = append(rest, r)
		}
	}

	return append(first, rest...)
}

// Domain extracts the host part of a URL for diversity grouping.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func normalizeURL(rawURL string) string {
	return strings.TrimRight(strings.ToLower(rawURL), "/")
}

func cacheKey(query string, opts SearchOptions) string {
	return strings.Join([]string{
		query,
		strings.Join(opts.Categories, ","),
		strings.Join(opts.Engines, ","),
		opts.TimeRange,
		opts.Language,
	}, "|")
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
