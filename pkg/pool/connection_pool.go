package pool

import (
	"context"
	"sync"
	"time"
)

// Slot is one logical outbound connection. Callers must Release every acquired slot.
type Slot struct {
	id       int
	lastUsed time.Time
}

// ConnectionPoolConfig bounds the pool.
type ConnectionPoolConfig struct {
	MaxConnections int
	IdleTimeout    time.Duration
}

func DefaultConnectionPoolConfig() ConnectionPoolConfig {
	return ConnectionPoolConfig{
		MaxConnections: 10,
		IdleTimeout:    60 * time.Second,
	}
}

// ConnectionPool bounds concurrent outbound search calls. Acquisition is a
// channel handoff: Acquire blocks on a free slot or context cancellation, never
// busy-waits. Slots are created lazily up to MaxConnections; idle slots beyond
// IdleTimeout are pruned.
type ConnectionPool struct {
	config ConnectionPoolConfig

	mu      sync.Mutex
	created int
	idle    chan *Slot
	closed  bool
	nextID  int
}

func NewConnectionPool(config ConnectionPoolConfig) *ConnectionPool {
	def := DefaultConnectionPoolConfig()
	if config.MaxConnections <= 0 {
		config.MaxConnections = def.MaxConnections
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = def.IdleTimeout
	}
	return &ConnectionPool{
		config: config,
		idle:   make(chan *Slot, config.MaxConnections),
	}
}

// Acquire returns a free slot, creating one if the pool is under its cap.
func (p *ConnectionPool) Acquire(ctx context.Context) (*Slot, error) {
	// Fast path: an idle slot is ready.
	select {
	case slot := <-p.idle:
		return slot, nil
	default:
	}

	p.mu.Lock()
	if p.created < p.config.MaxConnections {
		p.created++
		p.nextID++
		slot := &Slot{id: p.nextID, lastUsed: time.Now()}
		p.mu.Unlock()
		return slot, nil
	}
	p.mu.Unlock()

	// Saturated: wait for a release or cancellation.
	select {
	case slot := <-p.idle:
		return slot, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a slot to the pool.
func (p *ConnectionPool) Release(slot *Slot) {
	if slot == nil {
		return
	}
	slot.lastUsed = time.Now()

	p.mu.Lock()
	if p.closed {
		p.created--
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	select {
	case p.idle <- slot:
	default:
		// Pool shrank under us; drop the slot.
		p.mu.Lock()
		p.created--
		p.mu.Unlock()
	}
}

// PruneIdle discards idle slots that have not been used within IdleTimeout.
// Returns the number of slots pruned.
func (p *ConnectionPool) PruneIdle() int {
	pruned := 0
	for {
		select {
		case slot := <-p.idle:
			if time.Since(slot.lastUsed) >= p.config.IdleTimeout {
				p.mu.Lock()
				p.created--
				p.mu.Unlock()
				pruned++
				continue
			}
			// Still fresh; put it back and stop scanning.
			p.Release(slot)
			return pruned
		default:
			return pruned
		}
	}
}

// Usage reports created and idle slot counts.
func (p *ConnectionPool) Usage() (created, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created, len(p.idle)
}

// Close drains the pool. Outstanding slots are discarded on Release.
func (p *ConnectionPool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case <-p.idle:
			p.mu.Lock()
			p.created--
			p.mu.Unlock()
		default:
			return
		}
	}
}
