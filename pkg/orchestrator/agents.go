package orchestrator

import (
	"context"
	"sync"
	"time"

	"ai-answer-engine-be/pkg/searxng"
	"ai-answer-engine-be/pkg/store"
)

// runAgents executes retrieval agents in batches of at most batchSize
// (0 means one batch), pausing between batches to respect upstream rate
// limits. Each agent owns its own status fields; collected documents are
// merged under a lock. A failed agent contributes zero documents and is
// reported through its status, never fatal to the run. All agents of a batch
// complete before the next batch starts.
func (o *Orchestrator) runAgents(
	ctx context.Context,
	run *runState,
	agents []*SearchAgent,
	batchSize int,
	pause time.Duration,
	onComplete func(*SearchAgent),
) []store.Document {
	if batchSize <= 0 || batchSize > len(agents) {
		batchSize = len(agents)
	}

	var (
		mu   sync.Mutex
		docs []store.Document
	)

	for start := 0; start < len(agents); start += batchSize {
		if ctx.Err() != nil {
			break
		}

		end := start + batchSize
		if end > len(agents) {
			end = len(agents)
		}
		batch := agents[start:end]

		var wg sync.WaitGroup
		for _, agent := range batch {
			agent := agent
			wg.Add(1)

			task := func() {
				defer wg.Done()
				found := o.runAgent(ctx, run, agent)

				mu.Lock()
				docs = append(docs, found...)
				mu.Unlock()

				if onComplete != nil {
					onComplete(agent)
				}
			}

			if o.agentPool != nil {
				if err := o.agentPool.Submit(task); err == nil {
					continue
				}
			}
			go task()
		}
		wg.Wait()

		if end < len(agents) && pause > 0 {
			select {
			case <-time.After(pause):
			case <-ctx.Done():
			}
		}
	}

	return docs
}

// runAgent executes one agent's query and reports status transitions on the
// event stream.
func (o *Orchestrator) runAgent(ctx context.Context, run *runState, agent *SearchAgent) []store.Document {
	agent.Status = StatusRunning
	run.em.emit(Event{Type: EventAgentUpdate, Data: *agent})

	resp, err := o.search.SearchWithFallback(ctx, agent.Query, searxng.SearchOptions{})
	if err != nil {
		agent.Status = StatusFailed
		run.em.emit(Event{Type: EventAgentUpdate, Data: *agent})
		o.logger.Warn("orchestrator", "agent search failed", map[string]interface{}{
			"run_id": run.runID,
			"agent":  agent.ID,
			"query":  agent.Query,
			"error":  err.Error(),
		})
		return nil
	}

	agent.Results = len(resp.Results)
	agent.Status = StatusCompleted
	run.em.emit(Event{Type: EventAgentUpdate, Data: *agent})

	return resultsToDocuments(resp.Results)
}

// dedupeDocuments removes documents whose URL was already collected, keeping
// first occurrence order.
func dedupeDocuments(docs []store.Document) []store.Document {
	seen := make(map[string]bool, len(docs))
	out := make([]store.Document, 0, len(docs))
	for _, d := range docs {
		key := d.Metadata.URL
		if key != "" && seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}
