package rerank

import (
	"context"
	"math"
	"sort"
	"strings"

	"ai-answer-engine-be/pkg/embedding"
	"ai-answer-engine-be/pkg/searxng"
	"ai-answer-engine-be/pkg/store"
)

// Config tunes the reranking blend. Mode strategies override Threshold and
// MaxDocuments per mode.
type Config struct {
	SemanticWeight float64
	KeywordWeight  float64
	Threshold      float64
	MaxDocuments   int
	DiversityBoost bool
}

func DefaultConfig() Config {
	return Config{
		SemanticWeight: 0.7,
		KeywordWeight:  0.3,
		Threshold:      0.3,
		MaxDocuments:   15,
		DiversityBoost: false,
	}
}

// Reranker re-scores retrieved documents against the query with a weighted
// blend of embedding cosine similarity and keyword overlap. Scoring is local;
// no model call is made beyond the embeddings.
type Reranker struct {
	embeddingProvider embedding.EmbeddingProvider
}

func NewReranker(embeddingProvider embedding.EmbeddingProvider) *Reranker {
	return &Reranker{embeddingProvider: embeddingProvider}
}

// Rerank scores, filters and orders documents. Output is sorted descending by
// score; each entry keeps its original retrieval rank.
func (r *Reranker) Rerank(ctx context.Context, query string, documents []store.Document, config Config) ([]store.RerankedDocument, error) {
	if len(documents) == 0 {
		return []store.RerankedDocument{}, nil
	}
	if config.SemanticWeight <= 0 && config.KeywordWeight <= 0 {
		config = DefaultConfig()
	}

	semantic, err := r.semanticScores(ctx, query, documents)
	if err != nil {
		// Embedding failure degrades to keyword-only scoring rather than
		// failing the run.
		semantic = make([]float64, len(documents))
	}

	terms := queryTerms(query)

	reranked := make([]store.RerankedDocument, 0, len(documents))
	for i, doc := range documents {
		keyword := keywordScore(terms, doc)
		score := config.SemanticWeight*semantic[i] + config.KeywordWeight*keyword
		score = clamp01(score)

		if score < config.Threshold {
			continue
		}

		reranked = append(reranked, store.RerankedDocument{
			Document:       doc,
			RelevanceScore: score,
			OriginalRank:   i,
		})
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].RelevanceScore > reranked[j].RelevanceScore
	})

	if config.DiversityBoost {
		reranked = diversify(reranked)
	}

	if config.MaxDocuments > 0 && len(reranked) > config.MaxDocuments {
		reranked = reranked[:config.MaxDocuments]
	}

	return reranked, nil
}

func (r *Reranker) semanticScores(ctx context.Context, query string, documents []store.Document) ([]float64, error) {
	queryVec, err := r.embeddingProvider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(documents))
	for i, doc := range documents {
		texts[i] = embeddingText(doc)
	}

	docVecs, err := r.embeddingProvider.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(documents))
	for i := range documents {
		if i < len(docVecs) {
			scores[i] = clamp01(CosineSimilarity(queryVec, docVecs[i]))
		}
	}
	return scores, nil
}

// embeddingText bounds the document text fed to the embedding model.
func embeddingText(doc store.Document) string {
	text := doc.Metadata.Title + "\n" + doc.PageContent
	const maxChars = 2000
	if len(text) > maxChars {
		return text[:maxChars]
	}
	return text
}

// CosineSimilarity computes cosine similarity between two vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// queryTerms extracts lowercase query terms longer than two characters.
func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?\"'()")
		if len(f) > 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

// keywordScore is the normalized count of query-term hits in the content, with
// a bonus for terms appearing in the title.
func keywordScore(terms []string, doc store.Document) float64 {
	if len(terms) == 0 {
		return 0
	}

	content := strings.ToLower(doc.PageContent)
	title := strings.ToLower(doc.Metadata.Title)

	var score float64
	for _, term := range terms {
		if strings.Contains(content, term) {
			score += 1.0
		}
		if strings.Contains(title, term) {
			score += 0.5
		}
	}
	return clamp01(score / (float64(len(terms)) * 1.5))
}

// diversify guarantees at least one result per source domain up front, then
// fills remaining positions by score.
func diversify(docs []store.RerankedDocument) []store.RerankedDocument {
	if len(docs) <= 1 {
		return docs
	}

	seen := make(map[string]bool)
	picked := make([]store.RerankedDocument, 0, len(docs))
	rest := make([]store.RerankedDocument, 0, len(docs))

	for _, doc := range docs {
		domain := searxng.Domain(doc.Document.Metadata.URL)
		if !seen[domain] {
			seen[domain] = true
			picked = append(picked, doc)
		} else {
			rest = append(rest, doc)
		}
	}

	return append(picked, rest...)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
