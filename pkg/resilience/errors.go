package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"
)

// ErrorKind classifies upstream failures for retry and reporting decisions.
type ErrorKind string

const (
	KindTimeout            ErrorKind = "TIMEOUT"
	KindNetwork            ErrorKind = "NETWORK"
	KindRateLimit          ErrorKind = "RATE_LIMIT"
	KindQuota              ErrorKind = "QUOTA"
	KindServiceUnavailable ErrorKind = "SERVICE_UNAVAILABLE"
	KindConnection         ErrorKind = "CONNECTION"
	KindUnknown            ErrorKind = "UNKNOWN"
)

// Classify maps an error to its kind by inspecting error types and message text.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return KindTimeout
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") || strings.Contains(msg, "status 429"):
		return KindRateLimit
	case strings.Contains(msg, "quota"):
		return KindQuota
	case strings.Contains(msg, "service unavailable") || strings.Contains(msg, "status 503") || strings.Contains(msg, "status 502"):
		return KindServiceUnavailable
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe"):
		return KindConnection
	case strings.Contains(msg, "network") || strings.Contains(msg, "no such host") || strings.Contains(msg, "dns"):
		return KindNetwork
	default:
		return KindUnknown
	}
}

// Retryable reports whether a kind is worth retrying.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindTimeout, KindNetwork, KindRateLimit, KindServiceUnavailable, KindConnection:
		return true
	default:
		return false
	}
}

type errorStat struct {
	Count        int64
	LastOccurred time.Time
	LastMessage  string
}

// ErrorTracker keeps rolling failure counts keyed by (context, kind).
type ErrorTracker struct {
	mu    sync.RWMutex
	stats map[string]*errorStat
}

func NewErrorTracker() *ErrorTracker {
	return &ErrorTracker{
		stats: make(map[string]*errorStat),
	}
}

// Record registers an error occurrence under the given context label.
func (t *ErrorTracker) Record(contextName string, err error) ErrorKind {
	kind := Classify(err)

	t.mu.Lock()
	defer t.mu.Unlock()

	key := contextName + ":" + string(kind)
	stat, ok := t.stats[key]
	if !ok {
		stat = &errorStat{}
		t.stats[key] = stat
	}
	stat.Count++
	stat.LastOccurred = time.Now()
	stat.LastMessage = err.Error()

	return kind
}

// ErrorStat is a read-only snapshot of one (context, kind) bucket.
type ErrorStat struct {
	Key          string    `json:"key"`
	Count        int64     `json:"count"`
	LastOccurred time.Time `json:"last_occurred"`
	LastMessage  string    `json:"last_message"`
}

// Snapshot returns all buckets, for health/observability endpoints.
func (t *ErrorTracker) Snapshot() []ErrorStat {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]ErrorStat, 0, len(t.stats))
	for key, stat := range t.stats {
		out = append(out, ErrorStat{
			Key:          key,
			Count:        stat.Count,
			LastOccurred: stat.LastOccurred,
			LastMessage:  stat.LastMessage,
		})
	}
	return out
}

// Count returns the recorded occurrences for one (context, kind) pair.
func (t *ErrorTracker) Count(contextName string, kind ErrorKind) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if stat, ok := t.stats[contextName+":"+string(kind)]; ok {
		return stat.Count
	}
	return 0
}
