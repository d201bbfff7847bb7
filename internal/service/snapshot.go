package service

import (
	"context"
	"math"
	"sort"
	"sync/atomic"

	"github.com/cloo-solutions/askbase/internal/domain"
)

// ChunkLister loads the full active chunk set for snapshot refreshes.
type ChunkLister interface {
	ListActiveChunks(ctx context.Context) ([]domain.KnowledgeChunk, error)
}

type snapshot struct {
	byChatbot map[string][]domain.KnowledgeChunk
	byID      map[string]*domain.KnowledgeChunk
}

// SnapshotStore serves retrieval from an immutable in-memory copy of the
// knowledge base. Refresh swaps the whole snapshot atomically, so readers
// never block on concurrent ingestion and see at most one refresh cycle of
// staleness.
type SnapshotStore struct {
	lister  ChunkLister
	current atomic.Pointer[snapshot]
}

// NewSnapshotStore creates an empty SnapshotStore backed by the given lister.
func NewSnapshotStore(lister ChunkLister) *SnapshotStore {
	s := &SnapshotStore{lister: lister}
	s.current.Store(&snapshot{
		byChatbot: map[string][]domain.KnowledgeChunk{},
		byID:      map[string]*domain.KnowledgeChunk{},
	})
	return s
}

// Refresh loads the active chunk set and swaps it in as the new snapshot.
func (s *SnapshotStore) Refresh(ctx context.Context) error {
	chunks, err := s.lister.ListActiveChunks(ctx)
	if err != nil {
		return err
	}

	next := &snapshot{
		byChatbot: make(map[string][]domain.KnowledgeChunk),
		byID:      make(map[string]*domain.KnowledgeChunk, len(chunks)),
	}
	for _, c := range chunks {
		next.byChatbot[c.ChatbotID] = append(next.byChatbot[c.ChatbotID], c)
	}
	for chatbotID := range next.byChatbot {
		pool := next.byChatbot[chatbotID]
		for i := range pool {
			next.byID[pool[i].ID] = &pool[i]
		}
	}

	s.current.Store(next)
	return nil
}

// Size returns the number of chunks in the current snapshot.
func (s *SnapshotStore) Size() int {
	return len(s.current.Load().byID)
}

// Search scans the chatbot's pool for the topK nearest chunks by cosine
// similarity. Ordering is deterministic: descending score, ties broken by
// ascending chunk id.
func (s *SnapshotStore) Search(ctx context.Context, chatbotID string, queryVector []float32, pool domain.PrivacyFlag, topK int) ([]domain.RetrievalCandidate, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	snap := s.current.Load()
	chunks := snap.byChatbot[chatbotID]

	candidates := make([]domain.RetrievalCandidate, 0, len(chunks))
	for i := range chunks {
		if chunks[i].Privacy != pool {
			continue
		}
		candidates = append(candidates, domain.RetrievalCandidate{
			Chunk: &chunks[i],
			Score: CosineSimilarity(queryVector, chunks[i].Embedding),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Chunk.ID < candidates[j].Chunk.ID
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// GetChunkMetadata returns the chunk with the given id from the snapshot.
func (s *SnapshotStore) GetChunkMetadata(ctx context.Context, chunkID string) (*domain.KnowledgeChunk, error) {
	if c, ok := s.current.Load().byID[chunkID]; ok {
		return c, nil
	}
	return nil, domain.ErrChunkNotFound
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-magnitude vectors score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
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
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
