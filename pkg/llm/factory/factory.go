package factory

import (
	"fmt"

	"ai-answer-engine-be/pkg/llm"
	"ai-answer-engine-be/pkg/llm/ollama"
	"ai-answer-engine-be/pkg/llm/openai"
)

// NewLLMProvider selects an LLM backend implementation by name.
// Supported: "ollama", "openai" (any OpenAI-compatible endpoint).
func NewLLMProvider(providerName, modelName, ollamaBaseURL, openAIBaseURL, openAIKey string) (llm.LLMProvider, error) {
	switch providerName {
	case "ollama":
		return ollama.NewOllamaProvider(ollamaBaseURL, modelName), nil
	case "openai":
		return openai.NewOpenAIProvider(openAIBaseURL, openAIKey, modelName)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", providerName)
	}
}
