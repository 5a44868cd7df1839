package followup

import (
	"context"
	"errors"
	"testing"

	"ai-answer-engine-be/pkg/llm"
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

func TestGenerateParsesModelJSON(t *testing.T) {
	g := NewGenerator(&fakeLLM{
		response: `{"follow_up": "How does it compare to X?", "related": ["x overview", "x benchmarks"]}`,
	})

	s := g.Generate(context.Background(), "what is x", "x is a thing")
	if s.FollowUp != "How does it compare to X?" {
		t.Errorf("follow_up = %q", s.FollowUp)
	}
	if len(s.Related) != 2 {
		t.Errorf("related = %v", s.Related)
	}
}

func TestGenerateHandlesFencedJSON(t *testing.T) {
	g := NewGenerator(&fakeLLM{
		response: "Here you go:\n```json\n{\"follow_up\": \"Next?\", \"related\": [\"a\"]}\n```",
	})

	s := g.Generate(context.Background(), "q", "a")
	if s.FollowUp != "Next?" {
		t.Errorf("follow_up = %q, want fenced JSON parsed", s.FollowUp)
	}
}

func TestGenerateCapsRelated(t *testing.T) {
	g := NewGenerator(&fakeLLM{
		response: `{"follow_up": "Next?", "related": ["a", "b", "c", "d", "e", "f"]}`,
	})

	s := g.Generate(context.Background(), "q", "a")
	if len(s.Related) != 4 {
		t.Errorf("len(related) = %d, want 4", len(s.Related))
	}
}

func TestGenerateFallsBackOnModelError(t *testing.T) {
	g := NewGenerator(&fakeLLM{err: errors.New("model down")})

	s := g.Generate(context.Background(), "quantum computing", "answer")
	if s == nil || s.FollowUp == "" {
		t.Fatal("fallback suggestions expected")
	}
	if len(s.Related) == 0 {
		t.Error("fallback should include related queries")
	}
}

func TestGenerateFallsBackOnMalformedOutput(t *testing.T) {
	for _, raw := range []string{"no json here", "{broken", `{"related": ["a"]}`} {
		g := NewGenerator(&fakeLLM{response: raw})
		s := g.Generate(context.Background(), "q", "a")
		if s == nil || s.FollowUp == "" {
			t.Errorf("raw %q: fallback expected", raw)
		}
	}
}

func TestGenerateNilProvider(t *testing.T) {
	g := NewGenerator(nil)
	if s := g.Generate(context.Background(), "q", "a"); s == nil || s.FollowUp == "" {
		t.Fatal("nil provider should yield defaults")
	}
}
