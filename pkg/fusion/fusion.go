package fusion

import (
	"context"
	"fmt"
	"strings"

	"ai-answer-engine-be/pkg/llm"
	"ai-answer-engine-be/pkg/searxng"
	"ai-answer-engine-be/pkg/store"
)

// Config bounds chunking and merging.
type Config struct {
	MaxChunkWords   int
	OverlapWords    int
	MinChunkWords   int
	MaxChunks       int
	MaxContextChars int
	GroupNearDupes  bool
}

func DefaultConfig() Config {
	return Config{
		MaxChunkWords:   2000,
		OverlapWords:    200,
		MinChunkWords:   20,
		MaxChunks:       10,
		MaxContextChars: 16000,
		GroupNearDupes:  true,
	}
}

// Fuser splits ranked documents into overlapping chunks and merges them into a
// single bounded context string for answer synthesis.
type Fuser struct {
	llmProvider llm.LLMProvider
	config      Config
}

func NewFuser(llmProvider llm.LLMProvider, config Config) *Fuser {
	def := DefaultConfig()
	if config.MaxChunkWords <= 0 {
		config.MaxChunkWords = def.MaxChunkWords
	}
	if config.OverlapWords < 0 || config.OverlapWords >= config.MaxChunkWords {
		config.OverlapWords = def.OverlapWords
	}
	if config.MinChunkWords <= 0 {
		config.MinChunkWords = def.MinChunkWords
	}
	if config.MaxChunks <= 0 {
		config.MaxChunks = def.MaxChunks
	}
	if config.MaxContextChars <= 0 {
		config.MaxContextChars = def.MaxContextChars
	}
	return &Fuser{llmProvider: llmProvider, config: config}
}

// CreateChunks splits each document into word-bounded overlapping windows,
// discards windows below the minimum useful length, removes exact duplicates
// and truncates to the configured chunk count.
func (f *Fuser) CreateChunks(query string, documents []store.RerankedDocument) []store.ContextChunk {
	if f.config.GroupNearDupes {
		documents = groupNearDuplicates(documents)
	}

	var chunks []store.ContextChunk
	seen := make(map[string]bool)

	for docIdx, doc := range documents {
		source := doc.Document.Metadata.URL
		windows := splitWords(doc.Document.PageContent, f.config.MaxChunkWords, f.config.OverlapWords)

		for chunkIdx, window := range windows {
			if wordCount(window) < f.config.MinChunkWords {
				continue
			}

			normalized := normalizeChunk(window)
			if seen[normalized] {
				continue
			}
			seen[normalized] = true

			chunks = append(chunks, store.ContextChunk{
				ID:             fmt.Sprintf("chunk-%d-%d", docIdx, chunkIdx),
				Content:        window,
				Sources:        []string{source},
				RelevanceScore: doc.RelevanceScore,
				Metadata: map[string]any{
					"document_index": docIdx,
					"chunk_index":    chunkIdx,
					"title":          doc.Document.Metadata.Title,
				},
			})

			if len(chunks) >= f.config.MaxChunks {
				return chunks
			}
		}
	}

	return chunks
}

// MergeIntoUnifiedContext asks the model to reconcile chunks into one coherent
// narrative. On any model failure it falls back to naive concatenation with
// explicit separators; the fallback never fails.
func (f *Fuser) MergeIntoUnifiedContext(ctx context.Context, query string, chunks []store.ContextChunk) string {
	if len(chunks) == 0 {
		return ""
	}

	concatenated := f.concatenate(chunks)
	if f.llmProvider == nil {
		return concatenated
	}

	prompt := fmt.Sprintf(`You are merging research snippets into one coherent context for answering a question.

Question: %s

Snippets:
%s

Rewrite the snippets into a single coherent narrative. Keep every fact, drop repetition, resolve ordering. Output only the merged text.`, query, concatenated)

	merged, err := f.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.3))
	if err != nil || strings.TrimSpace(merged) == "" {
		return concatenated
	}
	if len(merged) > f.config.MaxContextChars {
		merged = merged[:f.config.MaxContextChars]
	}
	return merged
}

func (f *Fuser) concatenate(chunks []store.ContextChunk) string {
	var b strings.Builder
	for i, chunk := range chunks {
		if b.Len()+len(chunk.Content) > f.config.MaxContextChars {
			break
		}
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		b.WriteString(chunk.Content)
	}
	return b.String()
}

// groupNearDuplicates buckets documents by (domain, normalized title prefix)
// and keeps the highest-scoring member of each bucket. A fast heuristic in
// place of full pairwise similarity grouping.
func groupNearDuplicates(documents []store.RerankedDocument) []store.RerankedDocument {
	type bucket struct {
		doc   store.RerankedDocument
		index int
	}

	best := make(map[string]bucket)
	order := make([]string, 0, len(documents))

	for i, doc := range documents {
		key := searxng.Domain(doc.Document.Metadata.URL) + "|" + titleKey(doc.Document.Metadata.Title)
		existing, ok := best[key]
		if !ok {
			best[key] = bucket{doc: doc, index: i}
			order = append(order, key)
			continue
		}
		if doc.RelevanceScore > existing.doc.RelevanceScore {
			best[key] = bucket{doc: doc, index: existing.index}
		}
	}

	out := make([]store.RerankedDocument, 0, len(best))
	for _, key := range order {
		out = append(out, best[key].doc)
	}
	return out
}

func titleKey(title string) string {
	normalized := strings.ToLower(strings.TrimSpace(title))
	words := strings.Fields(normalized)
	if len(words) > 5 {
		words = words[:5]
	}
	return strings.Join(words, " ")
}

// splitWords slices text into windows of maxWords with overlap words shared
// between consecutive windows.
func splitWords(text string, maxWords, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= maxWords {
		return []string{strings.Join(words, " ")}
	}

	step := maxWords - overlap
	if step <= 0 {
		step = maxWords
	}

	var windows []string
	for start := 0; start < len(words); start += step {
		end := start + maxWords
		if end > len(words) {
			end = len(words)
		}
		windows = append(windows, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return windows
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

// normalizeChunk lowercases and collapses whitespace for exact-duplicate detection.
func normalizeChunk(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
