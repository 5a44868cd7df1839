package rerank

import (
	"context"
	"errors"
	"math"
	"testing"

	"ai-answer-engine-be/pkg/store"
)

// stubEmbedder returns a fixed vector per text, keyed by exact match on the
// leading characters; unknown texts get the zero-ish default.
type stubEmbedder struct {
	queryVec []float32
	docVecs  [][]float32
	fail     bool
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if s.fail {
		return nil, errors.New("embedding backend down")
	}
	return s.queryVec, nil
}

func (s *stubEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if s.fail {
		return nil, errors.New("embedding backend down")
	}
	return s.docVecs, nil
}

func doc(title, url, content string) store.Document {
	return store.Document{
		PageContent: content,
		Metadata:    store.DocumentMetadata{Title: title, URL: url},
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"empty", nil, nil, 0},
		{"mismatched", []float32{1}, []float32{1, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRerankOrdersByBlendedScore(t *testing.T) {
	embedder := &stubEmbedder{
		queryVec: []float32{1, 0},
		docVecs: [][]float32{
			{0, 1}, // irrelevant semantically
			{1, 0}, // perfect semantic match
		},
	}
	r := NewReranker(embedder)

	docs := []store.Document{
		doc("Unrelated", "https://a.example/1", "nothing in common"),
		doc("Paris guide", "https://b.example/2", "paris is the capital of france"),
	}

	ranked, err := r.Rerank(context.Background(), "capital of france paris", docs, Config{
		SemanticWeight: 0.7,
		KeywordWeight:  0.3,
		Threshold:      0.1,
		MaxDocuments:   10,
	})
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if len(ranked) == 0 {
		t.Fatal("expected at least the relevant document")
	}
	if ranked[0].Document.Metadata.URL != "https://b.example/2" {
		t.Errorf("top document = %s, want the semantic+keyword match", ranked[0].Document.Metadata.URL)
	}
	if ranked[0].OriginalRank != 1 {
		t.Errorf("OriginalRank = %d, want 1", ranked[0].OriginalRank)
	}
	for _, rd := range ranked {
		if rd.RelevanceScore < 0 || rd.RelevanceScore > 1 {
			t.Errorf("score %v outside [0,1]", rd.RelevanceScore)
		}
	}
}

func TestRerankThresholdFilters(t *testing.T) {
	embedder := &stubEmbedder{
		queryVec: []float32{1, 0},
		docVecs:  [][]float32{{0, 1}, {1, 0}},
	}
	r := NewReranker(embedder)

	docs := []store.Document{
		doc("Off topic", "https://a.example", "completely unrelated text"),
		doc("On topic", "https://b.example", "capital of france"),
	}

	ranked, err := r.Rerank(context.Background(), "capital of france", docs, Config{
		SemanticWeight: 1.0,
		KeywordWeight:  0.0,
		Threshold:      0.5,
	})
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if len(ranked) != 1 {
		t.Fatalf("len(ranked) = %d, want 1 (below-threshold doc filtered)", len(ranked))
	}
	if ranked[0].Document.Metadata.Title != "On topic" {
		t.Errorf("kept document = %q", ranked[0].Document.Metadata.Title)
	}
}

func TestRerankMaxDocumentsCap(t *testing.T) {
	vecs := make([][]float32, 10)
	docs := make([]store.Document, 10)
	for i := range docs {
		vecs[i] = []float32{1, 0}
		docs[i] = doc("Doc", "https://example.com", "capital of france")
	}
	r := NewReranker(&stubEmbedder{queryVec: []float32{1, 0}, docVecs: vecs})

	ranked, err := r.Rerank(context.Background(), "capital of france", docs, Config{
		SemanticWeight: 1.0,
		Threshold:      0.1,
		MaxDocuments:   3,
	})
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if len(ranked) != 3 {
		t.Errorf("len(ranked) = %d, want 3", len(ranked))
	}
}

func TestRerankDegradesToKeywordOnEmbeddingFailure(t *testing.T) {
	r := NewReranker(&stubEmbedder{fail: true})

	docs := []store.Document{
		doc("Paris", "https://a.example", "paris is the capital of france"),
		doc("Berlin", "https://b.example", "berlin is in germany"),
	}

	ranked, err := r.Rerank(context.Background(), "capital france paris", docs, Config{
		SemanticWeight: 0.7,
		KeywordWeight:  0.3,
		Threshold:      0.05,
	})
	if err != nil {
		t.Fatalf("Rerank() should not fail when embeddings are down: %v", err)
	}
	if len(ranked) == 0 {
		t.Fatal("keyword scoring should still surface the matching document")
	}
	if ranked[0].Document.Metadata.Title != "Paris" {
		t.Errorf("top document = %q, want Paris", ranked[0].Document.Metadata.Title)
	}
}

func TestRerankDiversityBoostSpreadsDomains(t *testing.T) {
	vecs := [][]float32{{1, 0}, {0.99, 0.1}, {0.98, 0.15}, {0.5, 0.5}}
	docs := []store.Document{
		doc("A1", "https://same.example/1", "capital of france"),
		doc("A2", "https://same.example/2", "capital of france"),
		doc("A3", "https://same.example/3", "capital of france"),
		doc("B1", "https://other.example/1", "capital of france"),
	}
	r := NewReranker(&stubEmbedder{queryVec: []float32{1, 0}, docVecs: vecs})

	ranked, err := r.Rerank(context.Background(), "capital of france", docs, Config{
		SemanticWeight: 1.0,
		Threshold:      0.1,
		DiversityBoost: true,
	})
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if len(ranked) < 2 {
		t.Fatalf("len(ranked) = %d", len(ranked))
	}
	// With diversity on, the second position belongs to the other domain even
	// though same.example docs score higher.
	if ranked[1].Document.Metadata.URL != "https://other.example/1" {
		t.Errorf("second document = %s, want the other.example entry", ranked[1].Document.Metadata.URL)
	}
}

func TestRerankEmptyInput(t *testing.T) {
	r := NewReranker(&stubEmbedder{})
	ranked, err := r.Rerank(context.Background(), "anything", nil, DefaultConfig())
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if len(ranked) != 0 {
		t.Errorf("len(ranked) = %d, want 0", len(ranked))
	}
}

func TestKeywordScore(t *testing.T) {
	terms := queryTerms("Capital of France?")
	if len(terms) != 2 {
		t.Fatalf("queryTerms = %v, want [capital france]", terms)
	}

	full := keywordScore(terms, doc("Capital of France", "", "the capital of france is paris"))
	none := keywordScore(terms, doc("Weather", "", "sunny tomorrow"))
	if full <= none {
		t.Errorf("matching doc %v should outscore non-matching %v", full, none)
	}
	if none != 0 {
		t.Errorf("non-matching score = %v, want 0", none)
	}
}
