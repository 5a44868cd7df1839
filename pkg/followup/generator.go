package followup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ai-answer-engine-be/pkg/llm"
)

// Suggestions is one follow-up question plus a handful of related queries.
type Suggestions struct {
	FollowUp string   `json:"follow_up"`
	Related  []string `json:"related"`
}

// Generator produces follow-up suggestions from the final answer. Generation
// failures are swallowed and replaced with generic defaults; a run never fails
// because of this component.
type Generator struct {
	llmProvider llm.LLMProvider
	maxRelated  int
}

func NewGenerator(llmProvider llm.LLMProvider) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		maxRelated:  4,
	}
}

func defaultSuggestions(query string) *Suggestions {
	return &Suggestions{
		FollowUp: "Would you like me to go deeper into any part of this?",
		Related: []string{
			fmt.Sprintf("%s explained in detail", query),
			fmt.Sprintf("latest developments in %s", query),
			fmt.Sprintf("%s pros and cons", query),
		},
	}
}

// Generate asks the model for a follow-up question and related queries.
func (g *Generator) Generate(ctx context.Context, query, answer string) *Suggestions {
	if g.llmProvider == nil {
		return defaultSuggestions(query)
	}

	answerExcerpt := answer
	if len(answerExcerpt) > 2000 {
		answerExcerpt = answerExcerpt[:2000]
	}

	prompt := fmt.Sprintf(`A user asked: %q

They received this answer:
%s

Respond with JSON only, in this shape:
{"follow_up": "one natural follow-up question the user might ask next", "related": ["related search query 1", "related search query 2", "related search query 3"]}`, query, answerExcerpt)

	raw, err := g.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.7))
	if err != nil {
		return defaultSuggestions(query)
	}

	parsed, err := parseSuggestions(raw)
	if err != nil {
		return defaultSuggestions(query)
	}

	if len(parsed.Related) > g.maxRelated {
		parsed.Related = parsed.Related[:g.maxRelated]
	}
	return parsed
}

func parseSuggestions(raw string) (*Suggestions, error) {
	// Models wrap JSON in code fences or prose; extract the outermost object.
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var s Suggestions
	if err := json.Unmarshal([]byte(raw[start:end+1]), &s); err != nil {
		return nil, fmt.Errorf("parse suggestions: %w", err)
	}
	if strings.TrimSpace(s.FollowUp) == "" {
		return nil, fmt.Errorf("empty follow-up")
	}
	return &s, nil
}
