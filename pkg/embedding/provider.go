package embedding

import "context"

// EmbeddingProvider defines the interface for generating text embeddings.
type EmbeddingProvider interface {
	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments embeds a batch of document texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}
