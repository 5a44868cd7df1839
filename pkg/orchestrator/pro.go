package orchestrator

import (
	"context"
	"fmt"

	"ai-answer-engine-be/pkg/llm"
)

// proStrategy fans out 4 to 6 topically diverse queries as independent agents,
// publishing the roster up front and per-agent updates as they complete. When
// attachments are present, file-derived sources join the pool and the rerank
// phase applies the configured file/web split.
type proStrategy struct {
	o *Orchestrator
}

func (s *proStrategy) expandQueries(ctx context.Context, run *runState) error {
	raw, err := s.o.llmProvider.Generate(ctx,
		proExpansionPrompt(run.req.Query, run.cfg.MinQueries, run.cfg.MaxQueries),
		llm.WithTemperature(0.6))
	if err != nil {
		return fmt.Errorf("query expansion: %w", err)
	}

	run.queries = parseQueryLines(raw, run.cfg.MinQueries, run.cfg.MaxQueries, run.req.Query)
	run.em.emitProgress("query analysis", "Queries generated",
		fmt.Sprintf("%d search angles", len(run.queries)), 15)
	return nil
}

func (s *proStrategy) retrieve(ctx context.Context, run *runState) error {
	run.agents = make([]*SearchAgent, len(run.queries))
	for i, q := range run.queries {
		run.agents[i] = newAgent(q)
	}
	run.em.emit(Event{Type: EventAgents, Data: snapshotAgents(run.agents)})

	webDocs := s.o.runAgents(ctx, run, run.agents, 0, 0, nil)

	failed := 0
	for _, a := range run.agents {
		if a.Status == StatusFailed {
			failed++
		}
	}
	if failed == len(run.agents) {
		return fmt.Errorf("all %d agents failed", failed)
	}

	docs := webDocs
	if len(run.req.AttachmentIDs) > 0 && s.o.files != nil {
		fileDocs, err := s.o.files.SearchFiles(ctx, run.req.Query, run.req.AttachmentIDs, run.cfg.MaxDocuments)
		if err != nil {
			s.o.logger.Warn("orchestrator", "file retrieval failed", map[string]interface{}{
				"run_id": run.runID,
				"error":  err.Error(),
			})
		} else {
			docs = append(docs, fileDocs...)
		}
	}

	run.documents = dedupeDocuments(docs)
	return nil
}
