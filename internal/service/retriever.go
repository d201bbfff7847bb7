package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cloo-solutions/askbase/internal/domain"
)

// DefaultTopK is the retrieval budget applied when the caller passes zero.
const DefaultTopK = 5

// KnowledgeStore provides read access to a chatbot's chunk pools.
// Implemented by the Postgres repository and by the in-memory snapshot store.
type KnowledgeStore interface {
	Search(ctx context.Context, chatbotID string, queryVector []float32, pool domain.PrivacyFlag, topK int) ([]domain.RetrievalCandidate, error)
	GetChunkMetadata(ctx context.Context, chunkID string) (*domain.KnowledgeChunk, error)
}

// RetrievalOrchestrator fetches candidates from both privacy pools, applies
// a ranking strategy and enforces the retrieval budget.
type RetrievalOrchestrator struct {
	store KnowledgeStore
}

// NewRetrievalOrchestrator creates a RetrievalOrchestrator over the given store.
func NewRetrievalOrchestrator(store KnowledgeStore) *RetrievalOrchestrator {
	return &RetrievalOrchestrator{store: store}
}

// Retrieve returns at most topK candidates ranked by the given strategy.
// Both pools are always searched: private chunks inform reasoning, their
// exclusion from citations happens at context-assembly time. A chatbot with
// no chunks yields an empty slice, not an error.
func (o *RetrievalOrchestrator) Retrieve(ctx context.Context, chatbotID string, queryVector []float32, topK int, strategy RankingStrategy) ([]domain.RetrievalCandidate, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if strategy == nil {
		strategy = NewSimilarity()
	}

	var citable, private []domain.RetrievalCandidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		citable, err = o.store.Search(gctx, chatbotID, queryVector, domain.PrivacyCitable, topK)
		if err != nil {
			return fmt.Errorf("citable pool: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		private, err = o.store.Search(gctx, chatbotID, queryVector, domain.PrivacyPrivate, topK)
		if err != nil {
			return fmt.Errorf("private pool: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeRetrievalFailed, "vector search failed", err)
	}

	merged := make([]domain.RetrievalCandidate, 0, len(citable)+len(private))
	merged = append(merged, citable...)
	merged = append(merged, private...)
	if len(merged) == 0 {
		return []domain.RetrievalCandidate{}, nil
	}

	strategy.order(merged)
	if len(merged) > topK {
		merged = merged[:topK]
	}
	for i := range merged {
		merged[i].Rank = i + 1
	}
	return merged, nil
}
