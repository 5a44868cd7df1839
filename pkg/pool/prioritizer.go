package pool

import (
	"container/heap"
	"strings"
	"sync"
	"time"
)

// Tier is the caller's service level.
type Tier string

const (
	TierFree    Tier = "free"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

// PrioritizerWeights blends the scoring signals. Zero value uses defaults.
type PrioritizerWeights struct {
	Complexity float64
	Tier       float64
	TimeOfDay  float64
	Pressure   float64
}

func DefaultPrioritizerWeights() PrioritizerWeights {
	return PrioritizerWeights{
		Complexity: 0.4,
		Tier:       0.3,
		TimeOfDay:  0.1,
		Pressure:   0.2,
	}
}

var technicalVocabulary = []string{
	"algorithm", "architecture", "implementation", "performance", "protocol",
	"benchmark", "compare", "versus", " vs ", "difference", "tradeoff",
	"analysis", "optimize", "latency", "throughput", "framework",
}

// QueryPrioritizer scores pending queries so higher-priority work is dequeued
// first when outbound concurrency is saturated.
type QueryPrioritizer struct {
	weights PrioritizerWeights

	mu sync.Mutex
	// resourcePressure in [0,1]; updated by the caller from pool usage.
	resourcePressure float64
	queue            priorityQueue
	// now is swappable for tests.
	now func() time.Time
}

func NewQueryPrioritizer(weights PrioritizerWeights) *QueryPrioritizer {
	if weights == (PrioritizerWeights{}) {
		weights = DefaultPrioritizerWeights()
	}
	return &QueryPrioritizer{
		weights: weights,
		now:     time.Now,
	}
}

// SetResourcePressure records current load in [0,1].
func (qp *QueryPrioritizer) SetResourcePressure(pressure float64) {
	if pressure < 0 {
		pressure = 0
	}
	if pressure > 1 {
		pressure = 1
	}
	qp.mu.Lock()
	qp.resourcePressure = pressure
	qp.mu.Unlock()
}

// Score computes the priority for a query in [0,1]. Higher runs sooner.
func (qp *QueryPrioritizer) Score(query string, tier Tier) float64 {
	qp.mu.Lock()
	pressure := qp.resourcePressure
	now := qp.now()
	qp.mu.Unlock()

	complexity := complexityScore(query)
	tierScore := tierScore(tier)
	load := timeOfDayScore(now)

	// Under pressure, simple queries are favored to drain the queue faster.
	pressureScore := (1 - pressure) + pressure*(1-complexity)
	if pressureScore > 1 {
		pressureScore = 1
	}

	w := qp.weights
	score := w.Complexity*complexity + w.Tier*tierScore + w.TimeOfDay*load + w.Pressure*pressureScore
	total := w.Complexity + w.Tier + w.TimeOfDay + w.Pressure
	if total > 0 {
		score /= total
	}
	return score
}

func complexityScore(query string) float64 {
	words := strings.Fields(query)
	score := float64(len(words)) / 30.0
	if score > 0.6 {
		score = 0.6
	}

	lower := strings.ToLower(query)
	for _, term := range technicalVocabulary {
		if strings.Contains(lower, term) {
			score += 0.1
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}

func tierScore(tier Tier) float64 {
	switch tier {
	case TierPremium:
		return 1.0
	case TierPro:
		return 0.7
	default:
		return 0.4
	}
}

// timeOfDayScore approximates expected load: off-peak hours score higher.
func timeOfDayScore(now time.Time) float64 {
	hour := now.Hour()
	if hour >= 9 && hour < 18 {
		return 0.3 // business hours, high load
	}
	if hour >= 18 && hour < 23 {
		return 0.6
	}
	return 1.0 // overnight, idle
}

// PendingQuery is one queued unit of work.
type PendingQuery struct {
	Query    string
	Tier     Tier
	Priority float64
	Enqueued time.Time

	index int
}

// Enqueue scores and inserts a query into the work queue.
func (qp *QueryPrioritizer) Enqueue(query string, tier Tier) *PendingQuery {
	pq := &PendingQuery{
		Query:    query,
		Tier:     tier,
		Priority: qp.Score(query, tier),
		Enqueued: qp.nowSafe(),
	}
	qp.mu.Lock()
	heap.Push(&qp.queue, pq)
	qp.mu.Unlock()
	return pq
}

// Dequeue removes and returns the highest-priority pending query, or nil.
func (qp *QueryPrioritizer) Dequeue() *PendingQuery {
	qp.mu.Lock()
	defer qp.mu.Unlock()
	if qp.queue.Len() == 0 {
		return nil
	}
	return heap.Pop(&qp.queue).(*PendingQuery)
}

// Pending returns the number of queued queries.
func (qp *QueryPrioritizer) Pending() int {
	qp.mu.Lock()
	defer qp.mu.Unlock()
	return qp.queue.Len()
}

func (qp *QueryPrioritizer) nowSafe() time.Time {
	qp.mu.Lock()
	defer qp.mu.Unlock()
	return qp.now()
}

// priorityQueue implements heap.Interface ordered by Priority descending,
// breaking ties by enqueue time (FIFO).
type priorityQueue []*PendingQuery

func (q priorityQueue) Len() int { return len(q) }

func (q priorityQueue) Less(i, j int) bool {
	if q[i].Priority != q[j].Priority {
		return q[i].Priority > q[j].Priority
	}
	return q[i].Enqueued.Before(q[j].Enqueued)
}

func (q priorityQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *priorityQueue) Push(x any) {
	pq := x.(*PendingQuery)
	pq.index = len(*q)
	*q = append(*q, pq)
}

func (q *priorityQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
