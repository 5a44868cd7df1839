package fusion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-answer-engine-be/pkg/llm"
	"ai-answer-engine-be/pkg/store"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.response, f.err
}

func ranked(title, url, content string, score float64) store.RerankedDocument {
	return store.RerankedDocument{
		Document: store.Document{
			PageContent: content,
			Metadata:    store.DocumentMetadata{Title: title, URL: url},
		},
		RelevanceScore: score,
	}
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word" + string(rune('a'+i%26))
	}
	return strings.Join(parts, " ")
}

func TestSplitWordsWindowing(t *testing.T) {
	windows := splitWords(words(250), 100, 20)

	if len(windows) < 3 {
		t.Fatalf("len(windows) = %d, want >= 3", len(windows))
	}
	for i, w := range windows {
		if wc := wordCount(w); wc > 100 {
			t.Errorf("window %d has %d words, want <= 100", i, wc)
		}
	}
	// Consecutive windows share the overlap region.
	first := strings.Fields(windows[0])
	second := strings.Fields(windows[1])
	if first[80] != second[0] {
		t.Errorf("window 1 should start at word 80 of window 0: got %q vs %q", second[0], first[80])
	}
}

func TestSplitWordsShortText(t *testing.T) {
	windows := splitWords("just a few words", 100, 20)
	if len(windows) != 1 {
		t.Fatalf("len(windows) = %d, want 1", len(windows))
	}
	if windows[0] != "just a few words" {
		t.Errorf("window = %q", windows[0])
	}
	if splitWords("", 100, 20) != nil {
		t.Error("empty text should yield no windows")
	}
}

func TestCreateChunksFiltersAndDedupes(t *testing.T) {
	f := NewFuser(nil, Config{MaxChunkWords: 50, OverlapWords: 5, MinChunkWords: 5, MaxChunks: 10})

	docs := []store.RerankedDocument{
		ranked("A", "https://a.example", words(30), 0.9),
		ranked("Tiny", "https://b.example", "too short", 0.8),
		ranked("Dup of A", "https://c.example", words(30), 0.7), // same normalized text as A
	}

	chunks := f.CreateChunks("query", docs)
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1 (short filtered, duplicate dropped)", len(chunks))
	}
	if chunks[0].Sources[0] != "https://a.example" {
		t.Errorf("chunk source = %v", chunks[0].Sources)
	}
	if chunks[0].RelevanceScore != 0.9 {
		t.Errorf("chunk score = %v, want 0.9", chunks[0].RelevanceScore)
	}
}

func TestCreateChunksHonorsMaxChunks(t *testing.T) {
	f := NewFuser(nil, Config{MaxChunkWords: 20, OverlapWords: 2, MinChunkWords: 3, MaxChunks: 4})

	docs := []store.RerankedDocument{
		ranked("Long A", "https://a.example", words(200), 0.9),
		ranked("Long B", "https://b.example", strings.ToUpper(words(200))+" extra unique trailer", 0.8),
	}

	chunks := f.CreateChunks("query", docs)
	if len(chunks) != 4 {
		t.Errorf("len(chunks) = %d, want 4", len(chunks))
	}
}

func TestGroupNearDuplicatesKeepsBestPerBucket(t *testing.T) {
	docs := []store.RerankedDocument{
		ranked("Paris travel guide 2026 edition", "https://same.example/1", "v1", 0.5),
		ranked("Paris travel guide 2026 edition", "https://same.example/2", "v2", 0.9),
		ranked("Completely different topic", "https://other.example", "v3", 0.4),
	}

	out := groupNearDuplicates(docs)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if out[0].RelevanceScore != 0.9 {
		t.Errorf("bucket winner score = %v, want the higher-scored duplicate", out[0].RelevanceScore)
	}
}

func TestMergeUsesModelOutput(t *testing.T) {
	f := NewFuser(&fakeLLM{response: "merged narrative"}, Config{})
	chunks := []store.ContextChunk{{Content: "fact one"}, {Content: "fact two"}}

	got := f.MergeIntoUnifiedContext(context.Background(), "q", chunks)
	if got != "merged narrative" {
		t.Errorf("merged = %q, want model output", got)
	}
}

func TestMergeFallsBackOnModelFailure(t *testing.T) {
	f := NewFuser(&fakeLLM{err: errors.New("model down")}, Config{})
	chunks := []store.ContextChunk{{Content: "fact one"}, {Content: "fact two"}}

	got := f.MergeIntoUnifiedContext(context.Background(), "q", chunks)
	if !strings.Contains(got, "fact one") || !strings.Contains(got, "fact two") {
		t.Errorf("fallback should concatenate all chunks, got %q", got)
	}
	if !strings.Contains(got, "---") {
		t.Errorf("fallback should separate chunks, got %q", got)
	}
}

func TestMergeEmptyModelOutputFallsBack(t *testing.T) {
	f := NewFuser(&fakeLLM{response: "   "}, Config{})
	chunks := []store.ContextChunk{{Content: "fact one"}}

	if got := f.MergeIntoUnifiedContext(context.Background(), "q", chunks); got != "fact one" {
		t.Errorf("merged = %q, want fallback content", got)
	}
}

func TestMergeRespectsContextCharBound(t *testing.T) {
	long := strings.Repeat("x", 500)
	f := NewFuser(&fakeLLM{response: long}, Config{MaxContextChars: 100})

	got := f.MergeIntoUnifiedContext(context.Background(), "q", []store.ContextChunk{{Content: "c"}})
	if len(got) != 100 {
		t.Errorf("len(merged) = %d, want 100", len(got))
	}
}

func TestMergeEmptyChunks(t *testing.T) {
	f := NewFuser(&fakeLLM{response: "anything"}, Config{})
	if got := f.MergeIntoUnifiedContext(context.Background(), "q", nil); got != "" {
		t.Errorf("merged = %q, want empty", got)
	}
}
