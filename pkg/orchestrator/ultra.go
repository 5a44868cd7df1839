package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"ai-answer-engine-be/pkg/llm"
	"ai-answer-engine-be/pkg/store"
)

// ultraStrategy runs the deep-research pipeline: 8 to 12 taxonomy-spanning
// queries in bounded parallel batches, a cross-validation round that hunts
// contradictions and gaps, and a telemetry-only replanning timer.
type ultraStrategy struct {
	o *Orchestrator
}

func (s *ultraStrategy) expandQueries(ctx context.Context, run *runState) error {
	raw, err := s.o.llmProvider.Generate(ctx,
		ultraExpansionPrompt(run.req.Query, run.cfg.MinQueries, run.cfg.MaxQueries),
		llm.WithTemperature(0.7))
	if err != nil {
		return fmt.Errorf("query expansion: %w", err)
	}

	run.queries = parseQueryLines(raw, run.cfg.MinQueries, run.cfg.MaxQueries, run.req.Query)
	run.em.emitProgress("query analysis", "Research queries generated",
		fmt.Sprintf("%d taxonomy dimensions", len(run.queries)), 15)
	return nil
}

func (s *ultraStrategy) retrieve(ctx context.Context, run *runState) error {
	run.agents = make([]*SearchAgent, len(run.queries))
	for i, q := range run.queries {
		run.agents[i] = newAgent(q)
	}
	run.em.emit(Event{Type: EventAgents, Data: snapshotAgents(run.agents)})

	var completed atomic.Int64
	stopReplan := s.startReplanTimer(ctx, run, &completed)
	defer stopReplan()

	docs := s.o.runAgents(ctx, run, run.agents, run.cfg.Concurrency, run.cfg.BatchPause, func(*SearchAgent) {
		completed.Add(1)
	})

	failed := 0
	for _, a := range run.agents {
		if a.Status == StatusFailed {
			failed++
		}
	}
	if failed == len(run.agents) {
		return fmt.Errorf("all %d agents failed", failed)
	}

	// Cross-validation round: summarize what came back, let the model point
	// at contradictions and gaps, and chase them with extra queries.
	extra, err := s.crossValidate(ctx, run, docs)
	if err != nil {
		s.o.logger.Warn("orchestrator", "cross-validation skipped", map[string]interface{}{
			"run_id": run.runID,
			"error":  err.Error(),
		})
	} else {
		docs = append(docs, extra...)
	}

	if len(run.req.AttachmentIDs) > 0 && s.o.files != nil {
		fileDocs, err := s.o.files.SearchFiles(ctx, run.req.Query, run.req.AttachmentIDs, run.cfg.MaxDocuments)
		if err == nil {
			docs = append(docs, fileDocs...)
		}
	}

	run.documents = dedupeDocuments(docs)
	return nil
}

// crossValidate generates validation queries from a findings summary and
// executes them as a second agent wave, returning their documents.
func (s *ultraStrategy) crossValidate(ctx context.Context, run *runState, docs []store.Document) ([]store.Document, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	run.em.emitProgress("cross-validation", "Validating findings", "", 60)

	raw, err := s.o.llmProvider.Generate(ctx,
		crossValidationPrompt(run.req.Query, summarizeFindings(docs), run.cfg.CrossValidationMin, run.cfg.CrossValidationMax),
		llm.WithTemperature(0.5))
	if err != nil {
		return nil, fmt.Errorf("validation query generation: %w", err)
	}

	queries := parseQueryLines(raw, run.cfg.CrossValidationMin, run.cfg.CrossValidationMax, "")
	if len(queries) == 0 {
		return nil, nil
	}

	validators := make([]*SearchAgent, len(queries))
	for i, q := range queries {
		validators[i] = newAgent(q)
	}
	run.agents = append(run.agents, validators...)
	run.em.emit(Event{Type: EventAgents, Data: snapshotAgents(run.agents)})

	return s.o.runAgents(ctx, run, validators, run.cfg.Concurrency, run.cfg.BatchPause, nil), nil
}

// startReplanTimer reports agent completion ratio at a fixed interval and
// stops itself once the ratio reaches the configured threshold. Telemetry
// only; it never changes the executing plan.
func (s *ultraStrategy) startReplanTimer(ctx context.Context, run *runState, completed *atomic.Int64) func() {
	if run.cfg.ReplanInterval <= 0 || len(run.agents) == 0 {
		return func() {}
	}

	done := make(chan struct{})
	total := int64(len(run.agents))

	go func() {
		ticker := time.NewTicker(run.cfg.ReplanInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ratio := float64(completed.Load()) / float64(total)
				s.o.logger.Info("orchestrator", "replan check", map[string]interface{}{
					"run_id":     run.runID,
					"completed":  completed.Load(),
					"total":      total,
					"completion": ratio,
				})
				if ratio >= run.cfg.ReplanStopRatio {
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			close(done)
		}
	}
}

// summarizeFindings builds a compact textual digest of retrieved documents for
// the validation prompt.
func summarizeFindings(docs []store.Document) string {
	const maxEntries = 20
	const maxSnippet = 200

	var b strings.Builder
	for i, d := range docs {
		if i >= maxEntries {
			break
		}
		snippet := d.PageContent
		if len(snippet) > maxSnippet {
			snippet = snippet[:maxSnippet]
		}
		fmt.Fprintf(&b, "- %s: %s\n", d.Metadata.Title, snippet)
	}
	return b.String()
}
