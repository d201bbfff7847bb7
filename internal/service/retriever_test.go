package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/askbase/internal/domain"
)

// MockKnowledgeStore is a mock for the KnowledgeStore interface
type MockKnowledgeStore struct {
	mock.Mock
}

func (m *MockKnowledgeStore) Search(ctx context.Context, chatbotID string, queryVector []float32, pool domain.PrivacyFlag, topK int) ([]domain.RetrievalCandidate, error) {
	args := m.Called(ctx, chatbotID, queryVector, pool, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievalCandidate), args.Error(1)
}

func (m *MockKnowledgeStore) GetChunkMetadata(ctx context.Context, chunkID string) (*domain.KnowledgeChunk, error) {
	args := m.Called(ctx, chunkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeChunk), args.Error(1)
}

func TestRetrieve_MergesBothPools(t *testing.T) {
	store := new(MockKnowledgeStore)
	vector := []float32{1, 0}

	citable := []domain.RetrievalCandidate{
		{Chunk: &domain.KnowledgeChunk{ID: "chunk-a", Privacy: domain.PrivacyCitable, Text: "a"}, Score: 0.9},
	}
	private := []domain.RetrievalCandidate{
		{Chunk: &domain.KnowledgeChunk{ID: "chunk-b", Privacy: domain.PrivacyPrivate, Text: "b"}, Score: 0.95},
	}
	store.On("Search", mock.Anything, "bot-1", vector, domain.PrivacyCitable, 5).Return(citable, nil)
	store.On("Search", mock.Anything, "bot-1", vector, domain.PrivacyPrivate, 5).Return(private, nil)

	orchestrator := NewRetrievalOrchestrator(store)
	results, err := orchestrator.Retrieve(context.Background(), "bot-1", vector, 5, NewSimilarity())

	require.NoError(t, err)
	require.Len(t, results, 2)
	// Private chunks participate in retrieval; exclusion happens at assembly.
	assert.Equal(t, "chunk-b", results[0].Chunk.ID)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, "chunk-a", results[1].Chunk.ID)
	assert.Equal(t, 2, results[1].Rank)
	store.AssertExpectations(t)
}

func TestRetrieve_EnforcesBudget(t *testing.T) {
	store := new(MockKnowledgeStore)
	vector := []float32{1, 0}

	pool := func(prefix string, n int) []domain.RetrievalCandidate {
		out := make([]domain.RetrievalCandidate, n)
		for i := range out {
			out[i] = domain.RetrievalCandidate{
				Chunk: &domain.KnowledgeChunk{ID: prefix + string(rune('a'+i)), Text: "t"},
				Score: float32(n-i) * 0.1,
			}
		}
		return out
	}
	store.On("Search", mock.Anything, "bot-1", vector, domain.PrivacyCitable, 3).Return(pool("c-", 3), nil)
	store.On("Search", mock.Anything, "bot-1", vector, domain.PrivacyPrivate, 3).Return(pool("p-", 3), nil)

	orchestrator := NewRetrievalOrchestrator(store)
	results, err := orchestrator.Retrieve(context.Background(), "bot-1", vector, 3, NewSimilarity())

	require.NoError(t, err)
	assert.Len(t, results, 3)
	for i, c := range results {
		assert.Equal(t, i+1, c.Rank)
	}
}

func TestRetrieve_EmptyKnowledgeIsNotAnError(t *testing.T) {
	store := new(MockKnowledgeStore)
	vector := []float32{1, 0}
	store.On("Search", mock.Anything, "bot-1", vector, domain.PrivacyCitable, 5).Return([]domain.RetrievalCandidate{}, nil)
	store.On("Search", mock.Anything, "bot-1", vector, domain.PrivacyPrivate, 5).Return([]domain.RetrievalCandidate{}, nil)

	orchestrator := NewRetrievalOrchestrator(store)
	results, err := orchestrator.Retrieve(context.Background(), "bot-1", vector, 5, NewSimilarity())

	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRetrieve_StoreErrorSurfacesAsRetrievalFailed(t *testing.T) {
	store := new(MockKnowledgeStore)
	vector := []float32{1, 0}
	store.On("Search", mock.Anything, "bot-1", vector, mock.Anything, 5).Return(nil, errors.New("index unreachable"))

	orchestrator := NewRetrievalOrchestrator(store)
	_, err := orchestrator.Retrieve(context.Background(), "bot-1", vector, 5, NewSimilarity())

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeRetrievalFailed, domainErr.Code)
}

func TestRetrieve_DefaultsTopKAndStrategy(t *testing.T) {
	store := new(MockKnowledgeStore)
	vector := []float32{1, 0}
	store.On("Search", mock.Anything, "bot-1", vector, domain.PrivacyCitable, DefaultTopK).Return([]domain.RetrievalCandidate{}, nil)
	store.On("Search", mock.Anything, "bot-1", vector, domain.PrivacyPrivate, DefaultTopK).Return([]domain.RetrievalCandidate{}, nil)

	orchestrator := NewRetrievalOrchestrator(store)
	_, err := orchestrator.Retrieve(context.Background(), "bot-1", vector, 0, nil)

	require.NoError(t, err)
	store.AssertExpectations(t)
}
