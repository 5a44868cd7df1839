package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-answer-engine-be/pkg/llm"

	"github.com/google/uuid"
)

// planner turns the model's free-text plan into an ordered SearchPlan. Step
// kinds are resolved here, once, so execution dispatches on the enum.
type planner struct {
	llmProvider llm.LLMProvider
}

// buildPlan invokes the planning model and parses its output. A planning
// failure fails the run fast; no partial plan is executed.
func (p *planner) buildPlan(ctx context.Context, query string, mode Mode) (*SearchPlan, error) {
	raw, err := p.llmProvider.Generate(ctx, planningPrompt(query, mode), llm.WithTemperature(0.2))
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}

	steps := parseSteps(raw)
	if len(steps) == 0 {
		return nil, fmt.Errorf("planning produced no steps")
	}

	return &SearchPlan{
		Query:             query,
		Steps:             steps,
		EstimatedDuration: estimateDuration(steps, mode),
	}, nil
}

// parseSteps extracts "steps:"-prefixed lines and classifies each name into a
// StepKind. Unrecognized names become generic steps.
func parseSteps(raw string) []*SearchStep {
	var steps []*SearchStep
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		if !strings.HasPrefix(lower, "steps:") {
			continue
		}
		name := strings.TrimSpace(line[len("steps:"):])
		if name == "" {
			continue
		}
		steps = append(steps, &SearchStep{
			ID:     uuid.New().String(),
			Name:   name,
			Kind:   classifyStep(name),
			Status: StatusPending,
		})
	}
	return steps
}

// classifyStep maps a free-text step name onto the step enum at parse time.
func classifyStep(name string) StepKind {
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, "analy", "understand", "rephras", "expan", "generat quer", "query generation"):
		return StepQueryAnalysis
	case containsAny(lower, "web search", "search", "crawl"):
		return StepWebSearch
	case containsAny(lower, "retriev", "fetch", "gather", "collect"):
		return StepDocumentRetrieval
	case containsAny(lower, "rerank", "rank", "scor", "filter"):
		return StepReranking
	case containsAny(lower, "generat", "synthes", "answer", "respond", "writ", "summar"):
		return StepGeneration
	default:
		return StepGeneric
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func estimateDuration(steps []*SearchStep, mode Mode) time.Duration {
	per := 3 * time.Second
	switch mode {
	case ModePro:
		per = 6 * time.Second
	case ModeUltra:
		per = 12 * time.Second
	}
	return time.Duration(len(steps)) * per
}

// parseQueryLines splits expansion output into clean query lines, trimming
// numbering and bullets and bounding the count.
func parseQueryLines(raw string, min, max int, fallback string) []string {
	var queries []string
	seen := make(map[string]bool)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•0123456789.) ")
		line = strings.Trim(line, `"`)
		if line == "" || strings.EqualFold(line, "not_needed") {
			continue
		}
		key := strings.ToLower(line)
		if seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, line)
		if len(queries) >= max {
			break
		}
	}

	// Pad with the original question when the model under-delivers so the
	// fan-out width stays within its contract.
	for len(queries) < min && fallback != "" {
		padded := fallback
		if len(queries) > 0 {
			padded = fmt.Sprintf("%s (%d)", fallback, len(queries))
		}
		queries = append(queries, padded)
	}
	return queries
}

// extractURLs pulls http(s) links out of free text.
func extractURLs(text string) []string {
	var urls []string
	for _, field := range strings.Fields(text) {
		field = strings.Trim(field, ".,;()[]<>\"'")
		if strings.HasPrefix(field, "http://") || strings.HasPrefix(field, "https://") {
			urls = append(urls, field)
		}
	}
	return urls
}
