package service

import (
	"context"
	"fmt"

	"ai-answer-engine-be/internal/repository/contract"
	"ai-answer-engine-be/pkg/embedding"
	"ai-answer-engine-be/pkg/store"

	"github.com/google/uuid"
)

// fileSearchThreshold is the minimum cosine similarity for a segment to count
// as relevant to the run's query.
const fileSearchThreshold = 0.3

// FileSearchService retrieves attachment segments by vector similarity. It
// satisfies the orchestrator's file retrieval contract.
type FileSearchService struct {
	segmentRepo       contract.AttachmentSegmentRepository
	embeddingProvider embedding.EmbeddingProvider
}

func NewFileSearchService(
	segmentRepo contract.AttachmentSegmentRepository,
	embeddingProvider embedding.EmbeddingProvider,
) *FileSearchService {
	return &FileSearchService{
		segmentRepo:       segmentRepo,
		embeddingProvider: embeddingProvider,
	}
}

func (s *FileSearchService) SearchFiles(ctx context.Context, query string, attachmentIDs []string, limit int) ([]store.Document, error) {
	ids := make([]uuid.UUID, 0, len(attachmentIDs))
	for _, raw := range attachmentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	queryVec, err := s.embeddingProvider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := s.segmentRepo.SearchSimilarWithScore(ctx, queryVec, ids, limit, fileSearchThreshold)
	if err != nil {
		return nil, fmt.Errorf("segment search: %w", err)
	}

	docs := make([]store.Document, 0, len(scored))
	for _, sc := range scored {
		docs = append(docs, store.Document{
			PageContent: sc.Segment.Document,
			Metadata: store.DocumentMetadata{
				Title:  sc.FileName,
				URL:    fmt.Sprintf("attachment://%s#%d", sc.Segment.AttachmentId, sc.Segment.ChunkIndex),
				Engine: store.SourceFile,
			},
		})
	}
	return docs, nil
}
