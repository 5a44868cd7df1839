package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"ai-answer-engine-be/pkg/llm"
)

// quickStrategy runs exactly one rephrased query with a single retrieval
// agent, optimizing for latency. The rephrase chain short-circuits greetings
// to a conversational reply and pasted URLs to direct fetches.
type quickStrategy struct {
	o *Orchestrator
}

func (s *quickStrategy) expandQueries(ctx context.Context, run *runState) error {
	raw, err := s.o.llmProvider.Generate(ctx, rephrasePrompt(run.req.Query, run.req.History), llm.WithTemperature(0.1))
	if err != nil {
		return fmt.Errorf("query rephrase: %w", err)
	}
	raw = strings.TrimSpace(raw)

	switch {
	case strings.EqualFold(raw, "not_needed"):
		run.conversational = true
		run.em.emitProgress("query analysis", "No search needed", "conversational input", 15)
		return nil

	case strings.HasPrefix(strings.ToLower(raw), "links:"):
		run.directURLs = extractURLs(raw)
		if len(run.directURLs) == 0 {
			run.directURLs = extractURLs(run.req.Query)
		}
		run.em.emitProgress("query analysis", "Fetching linked pages", fmt.Sprintf("%d links", len(run.directURLs)), 15)
		return nil
	}

	if urls := extractURLs(run.req.Query); len(urls) > 0 {
		run.directURLs = urls
		run.em.emitProgress("query analysis", "Fetching linked pages", fmt.Sprintf("%d links", len(urls)), 15)
		return nil
	}

	if raw == "" {
		raw = run.req.Query
	}
	run.queries = []string{raw}
	run.em.emitProgress("query analysis", "Query rephrased", raw, 15)
	return nil
}

func (s *quickStrategy) retrieve(ctx context.Context, run *runState) error {
	if run.conversational {
		return nil
	}

	// Explicit links bypass search entirely.
	if len(run.directURLs) > 0 {
		for _, u := range run.directURLs {
			if s.o.fetcher == nil {
				break
			}
			doc, err := s.o.fetcher.Fetch(ctx, u)
			if err != nil {
				s.o.logger.Warn("orchestrator", "link fetch failed", map[string]interface{}{
					"run_id": run.runID,
					"url":    u,
					"error":  err.Error(),
				})
				continue
			}
			run.documents = append(run.documents, doc)
		}
		return nil
	}

	agent := newAgent(run.queries[0])
	run.agents = []*SearchAgent{agent}
	run.em.emit(Event{Type: EventAgents, Data: snapshotAgents(run.agents)})

	run.documents = dedupeDocuments(s.o.runAgents(ctx, run, run.agents, 0, 0, nil))

	if agent.Status == StatusFailed {
		// With a single agent there is nothing to fall back on.
		return fmt.Errorf("retrieval failed for %q", agent.Query)
	}

	// Attachments still contribute in Quick mode when explicitly referenced.
	if len(run.req.AttachmentIDs) > 0 && s.o.files != nil {
		fileDocs, err := s.o.files.SearchFiles(ctx, run.queries[0], run.req.AttachmentIDs, run.cfg.MaxDocuments)
		if err == nil {
			run.documents = append(run.documents, fileDocs...)
		}
	}
	return nil
}
