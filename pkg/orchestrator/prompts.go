package orchestrator

import (
	"fmt"
	"strings"
)

// Prompt templates for planning, query generation and synthesis. Planner output
// is free text with "steps:"-prefixed lines; parsing lives in planner.go.

func planningPrompt(query string, mode Mode) string {
	var guidance string
	switch mode {
	case ModeQuick:
		guidance = "Plan the minimum number of steps for a fast, precise answer."
	case ModePro:
		guidance = "Plan a thorough multi-angle search with parallel retrieval."
	case ModeUltra:
		guidance = "Plan an exhaustive deep-research investigation with validation."
	}

	return fmt.Sprintf(`You are a search planner. Produce an ordered plan for answering the question below.
%s

Question: %s

Output one line per step, each prefixed with "steps:" followed by a short step name, for example:
steps: query analysis
steps: web search
steps: document retrieval
steps: reranking
steps: content generation

Output only the step lines.`, guidance, query)
}

// rephrasePrompt drives the Quick-mode query chain. The model answers with a
// single rephrased search query, the literal token "not_needed" for
// conversational input, or an URL line when the user pasted links.
func rephrasePrompt(query string, history []HistoryMessage) string {
	var b strings.Builder
	b.WriteString(`Rephrase the user's latest message into a standalone web search query.

Rules:
- If the message is a greeting or simple conversation that needs no search (e.g. "Hi", "How are you", "Thanks"), respond with exactly: not_needed
- If the message contains one or more URLs the user wants summarized, respond with a line "links:" followed by the URLs, one per line.
- Otherwise respond with only the rephrased query, nothing else.

`)
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Latest message: %s", query)
	return b.String()
}

// proExpansionPrompt asks for topically diverse queries covering the angles a
// professional researcher would take.
func proExpansionPrompt(query string, min, max int) string {
	return fmt.Sprintf(`Generate between %d and %d topically diverse web search queries to research this question from multiple angles:

Question: %s

Cover these angles where applicable:
- recent developments and news
- expert analysis and opinion
- comparative angles (alternatives, competitors, trade-offs)
- practical applications and how-to

Output one query per line, no numbering, no commentary.`, min, max, query)
}

// Ultra-mode taxonomy. Each query targets one dimension of a complete research
// picture.
var ultraTaxonomy = []string{
	"contextual foundation",
	"historical context",
	"current state",
	"expert perspectives",
	"comparative analysis",
	"technical depth",
	"case studies",
	"future implications",
	"critical assessment",
	"cross-domain links",
	"practical applications",
	"research gaps",
}

func ultraExpansionPrompt(query string, min, max int) string {
	return fmt.Sprintf(`Generate between %d and %d web search queries for an exhaustive research investigation of:

Question: %s

Each query must target a distinct dimension from this taxonomy:
%s

Output one query per line, no numbering, no commentary.`, min, max, query, "- "+strings.Join(ultraTaxonomy, "\n- "))
}

func crossValidationPrompt(query, summary string, min, max int) string {
	return fmt.Sprintf(`You are validating research findings for the question: %s

Findings so far:
%s

Identify contradictions, unsupported claims and gaps in coverage. Then generate between %d and %d additional web search queries that would resolve them.

Output one query per line, no numbering, no commentary.`, query, summary, min, max)
}

func synthesisPrompt(query, context, instructions string) string {
	var b strings.Builder
	b.WriteString(`You are an expert answer engine. Answer the question using only the provided context. Cite facts naturally; if the context does not cover something, say so instead of inventing.`)
	if instructions != "" {
		fmt.Fprintf(&b, "\n\nAdditional instructions from the user: %s", instructions)
	}
	fmt.Fprintf(&b, "\n\nContext:\n%s\n\nQuestion: %s", context, query)
	return b.String()
}

func conversationalPrompt(query string, history []HistoryMessage) string {
	var b strings.Builder
	b.WriteString("You are a friendly assistant. Reply conversationally to the user's message; no search was needed.\n\n")
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	fmt.Fprintf(&b, "user: %s", query)
	return b.String()
}
