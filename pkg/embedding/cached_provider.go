package embedding

import (
	"context"

	"ai-answer-engine-be/pkg/cache"
)

// CachedProvider decorates an EmbeddingProvider with the embeddings cache
// region so repeated texts are embedded once per TTL.
type CachedProvider struct {
	inner  EmbeddingProvider
	region *cache.Region
}

var _ EmbeddingProvider = &CachedProvider{}

func NewCachedProvider(inner EmbeddingProvider, region *cache.Region) *CachedProvider {
	return &CachedProvider{inner: inner, region: region}
}

func (p *CachedProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if p.region != nil {
		if cached, ok := p.region.Get(text); ok {
			if vec, ok := cached.([]float32); ok {
				return vec, nil
			}
		}
	}

	vec, err := p.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	if p.region != nil {
		p.region.Set(text, vec)
	}
	return vec, nil
}

func (p *CachedProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	missing := make([]string, 0, len(texts))
	missingIdx := make([]int, 0, len(texts))

	for i, text := range texts {
		if p.region != nil {
			if cached, ok := p.region.Get(text); ok {
				if vec, ok := cached.([]float32); ok {
					vectors[i] = vec
					continue
				}
			}
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	fresh, err := p.inner.EmbedDocuments(ctx, missing)
	if err != nil {
		return nil, err
	}

	for j, vec := range fresh {
		vectors[missingIdx[j]] = vec
		if p.region != nil {
			p.region.Set(missing[j], vec)
		}
	}
	return vectors, nil
}
