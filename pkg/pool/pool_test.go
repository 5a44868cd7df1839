package pool

import (
	"context"
	"testing"
	"time"
)

func TestConnectionPoolAcquireCreatesUpToCap(t *testing.T) {
	p := NewConnectionPool(ConnectionPoolConfig{MaxConnections: 2, IdleTimeout: time.Minute})

	s1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	s2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	created, idle := p.Usage()
	if created != 2 || idle != 0 {
		t.Errorf("Usage() = %d created, %d idle; want 2, 0", created, idle)
	}

	p.Release(s1)
	p.Release(s2)
	_, idle = p.Usage()
	if idle != 2 {
		t.Errorf("idle after release = %d, want 2", idle)
	}
}

func TestConnectionPoolBlocksWhenSaturated(t *testing.T) {
	p := NewConnectionPool(ConnectionPoolConfig{MaxConnections: 1, IdleTimeout: time.Minute})

	slot, _ := p.Acquire(context.Background())

	acquired := make(chan *Slot)
	go func() {
		s, err := p.Acquire(context.Background())
		if err != nil {
			t.Error(err)
		}
		acquired <- s
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire should block while the pool is saturated")
	case <-time.After(30 * time.Millisecond):
	}

	p.Release(slot)

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("blocked Acquire was not released")
	}
}

func TestConnectionPoolAcquireHonorsCancellation(t *testing.T) {
	p := NewConnectionPool(ConnectionPoolConfig{MaxConnections: 1, IdleTimeout: time.Minute})
	p.Acquire(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := p.Acquire(ctx); err != context.DeadlineExceeded {
		t.Errorf("Acquire() error = %v, want DeadlineExceeded", err)
	}
}

func TestConnectionPoolPruneIdle(t *testing.T) {
	p := NewConnectionPool(ConnectionPoolConfig{MaxConnections: 4, IdleTimeout: 10 * time.Millisecond})

	s1, _ := p.Acquire(context.Background())
	s2, _ := p.Acquire(context.Background())
	p.Release(s1)
	p.Release(s2)

	time.Sleep(20 * time.Millisecond)

	if pruned := p.PruneIdle(); pruned != 2 {
		t.Errorf("PruneIdle() = %d, want 2", pruned)
	}
	created, idle := p.Usage()
	if created != 0 || idle != 0 {
		t.Errorf("Usage() after prune = %d created, %d idle; want 0, 0", created, idle)
	}
}

func TestPrioritizerTierOrdering(t *testing.T) {
	qp := NewQueryPrioritizer(PrioritizerWeights{})

	query := "what is the capital of france"
	qp.Enqueue(query, TierFree)
	qp.Enqueue(query, TierPremium)
	qp.Enqueue(query, TierPro)

	order := []Tier{}
	for {
		pending := qp.Dequeue()
		if pending == nil {
			break
		}
		order = append(order, pending.Tier)
	}

	want := []Tier{TierPremium, TierPro, TierFree}
	for i, tier := range want {
		if order[i] != tier {
			t.Fatalf("dequeue order = %v, want %v", order, want)
		}
	}
}

func TestPrioritizerFIFOWithinEqualPriority(t *testing.T) {
	qp := NewQueryPrioritizer(PrioritizerWeights{})

	first := qp.Enqueue("same query", TierFree)
	// Distinct enqueue timestamps break the tie.
	time.Sleep(time.Millisecond)
	qp.Enqueue("same query", TierFree)

	if got := qp.Dequeue(); got != first {
		t.Error("equal-priority entries should dequeue in FIFO order")
	}
}

func TestPrioritizerPressureFavorsSimpleQueries(t *testing.T) {
	qp := NewQueryPrioritizer(PrioritizerWeights{})

	simple := "weather today"
	complex := "compare the performance tradeoff of algorithm architecture implementation choices for high throughput low latency protocol frameworks"

	qp.SetResourcePressure(0)
	simpleLow := qp.Score(simple, TierFree)
	complexLow := qp.Score(complex, TierFree)

	qp.SetResourcePressure(1)
	simpleHigh := qp.Score(simple, TierFree)
	complexHigh := qp.Score(complex, TierFree)

	// Pressure should close the gap in favor of the simple query.
	if (complexHigh - simpleHigh) >= (complexLow - simpleLow) {
		t.Errorf("pressure should shift priority toward simple queries: low gap %.3f, high gap %.3f",
			complexLow-simpleLow, complexHigh-simpleHigh)
	}
}

func TestPrioritizerScoreRange(t *testing.T) {
	qp := NewQueryPrioritizer(PrioritizerWeights{})
	queries := []string{"", "short", "a benchmark analysis of framework latency versus throughput optimization tradeoffs in distributed protocol implementations across architecture styles"}
	tiers := []Tier{TierFree, TierPro, TierPremium}

	for _, q := range queries {
		for _, tier := range tiers {
			score := qp.Score(q, tier)
			if score < 0 || score > 1 {
				t.Errorf("Score(%q, %v) = %v, want [0,1]", q, tier, score)
			}
		}
	}
}

func TestPrioritizerPending(t *testing.T) {
	qp := NewQueryPrioritizer(PrioritizerWeights{})
	if qp.Pending() != 0 {
		t.Fatal("new prioritizer should be empty")
	}
	qp.Enqueue("q1", TierFree)
	qp.Enqueue("q2", TierFree)
	if got := qp.Pending(); got != 2 {
		t.Errorf("Pending() = %d, want 2", got)
	}
	qp.Dequeue()
	if got := qp.Pending(); got != 1 {
		t.Errorf("Pending() after dequeue = %d, want 1", got)
	}
	if qp.Dequeue() == nil {
		t.Error("second dequeue should return the remaining entry")
	}
	if qp.Dequeue() != nil {
		t.Error("dequeue on empty queue should return nil")
	}
}
