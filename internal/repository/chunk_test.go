//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/testutil"
)

// testVector builds a 1536-dim embedding dominated by one axis so cosine
// ordering in tests is easy to reason about.
func testVector(axis int, weight float32) []float32 {
	v := make([]float32, 1536)
	v[axis] = weight
	v[1535] = 0.1
	return v
}

func seedSource(ctx context.Context, t *testing.T, repo *KnowledgeChunkRepository, id, chatbotID string, status domain.SourceStatus) {
	t.Helper()
	err := repo.CreateSource(ctx, &domain.KnowledgeSource{
		ID:             id,
		ChatbotID:      chatbotID,
		Name:           "seed " + id,
		DefaultPrivacy: domain.PrivacyCitable,
		Status:         status,
		CreatedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)
}

func seedChunk(ctx context.Context, t *testing.T, repo *KnowledgeChunkRepository, id, sourceID, chatbotID, text string, privacy domain.PrivacyFlag, embedding []float32) {
	t.Helper()
	err := repo.CreateChunk(ctx, &domain.KnowledgeChunk{
		ID:        id,
		SourceID:  sourceID,
		ChatbotID: chatbotID,
		Text:      text,
		Embedding: embedding,
		Privacy:   privacy,
		Metadata:  map[string]string{"origin": "test"},
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func setupChunkRepo(t *testing.T) (context.Context, *pgxpool.Pool, *KnowledgeChunkRepository) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { pc.Terminate(ctx) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)

	return ctx, pool, NewKnowledgeChunkRepository(pool)
}

func TestKnowledgeChunkRepository_SearchByPool(t *testing.T) {
	ctx, _, repo := setupChunkRepo(t)

	seedSource(ctx, t, repo, "src-1", "bot-1", domain.SourceStatusActive)
	seedChunk(ctx, t, repo, "chunk-a", "src-1", "bot-1", "Our refund policy is 30 days.", domain.PrivacyCitable, testVector(0, 1.0))
	seedChunk(ctx, t, repo, "chunk-b", "src-1", "bot-1", "internal code SECRET-ALPHA-123", domain.PrivacyPrivate, testVector(0, 0.9))
	seedChunk(ctx, t, repo, "chunk-c", "src-1", "bot-1", "Shipping takes 5 business days.", domain.PrivacyCitable, testVector(1, 1.0))

	query := testVector(0, 1.0)

	citable, err := repo.Search(ctx, "bot-1", query, domain.PrivacyCitable, 5)
	require.NoError(t, err)
	require.Len(t, citable, 2)
	assert.Equal(t, "chunk-a", citable[0].Chunk.ID)
	assert.Equal(t, "chunk-c", citable[1].Chunk.ID)
	assert.Greater(t, citable[0].Score, citable[1].Score)

	private, err := repo.Search(ctx, "bot-1", query, domain.PrivacyPrivate, 5)
	require.NoError(t, err)
	require.Len(t, private, 1)
	assert.Equal(t, "chunk-b", private[0].Chunk.ID)
	assert.Equal(t, domain.PrivacyPrivate, private[0].Chunk.Privacy)
}

func TestKnowledgeChunkRepository_Search_SkipsDisabledSources(t *testing.T) {
	ctx, _, repo := setupChunkRepo(t)

	seedSource(ctx, t, repo, "src-active", "bot-1", domain.SourceStatusActive)
	seedSource(ctx, t, repo, "src-disabled", "bot-1", domain.SourceStatusDisabled)
	seedChunk(ctx, t, repo, "chunk-live", "src-active", "bot-1", "live content", domain.PrivacyCitable, testVector(0, 1.0))
	seedChunk(ctx, t, repo, "chunk-dead", "src-disabled", "bot-1", "retired content", domain.PrivacyCitable, testVector(0, 1.0))

	results, err := repo.Search(ctx, "bot-1", testVector(0, 1.0), domain.PrivacyCitable, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "chunk-live", results[0].Chunk.ID)
}

func TestKnowledgeChunkRepository_Search_IsolatesChatbots(t *testing.T) {
	ctx, _, repo := setupChunkRepo(t)

	seedSource(ctx, t, repo, "src-1", "bot-1", domain.SourceStatusActive)
	seedSource(ctx, t, repo, "src-2", "bot-2", domain.SourceStatusActive)
	seedChunk(ctx, t, repo, "chunk-bot1", "src-1", "bot-1", "bot one content", domain.PrivacyCitable, testVector(0, 1.0))
	seedChunk(ctx, t, repo, "chunk-bot2", "src-2", "bot-2", "bot two content", domain.PrivacyCitable, testVector(0, 1.0))

	results, err := repo.Search(ctx, "bot-1", testVector(0, 1.0), domain.PrivacyCitable, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "chunk-bot1", results[0].Chunk.ID)
}

func TestKnowledgeChunkRepository_ReplaceChunks(t *testing.T) {
	ctx, _, repo := setupChunkRepo(t)

	seedSource(ctx, t, repo, "src-1", "bot-1", domain.SourceStatusActive)
	seedChunk(ctx, t, repo, "chunk-old", "src-1", "bot-1", "old content", domain.PrivacyCitable, testVector(0, 1.0))

	err := repo.ReplaceChunks(ctx, "src-1", []domain.KnowledgeChunk{
		{
			ID:        "chunk-new",
			SourceID:  "src-1",
			ChatbotID: "bot-1",
			Text:      "new content",
			Embedding: testVector(0, 1.0),
			Privacy:   domain.PrivacyCitable,
		},
	})
	require.NoError(t, err)

	_, err = repo.GetChunkMetadata(ctx, "chunk-old")
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)

	chunk, err := repo.GetChunkMetadata(ctx, "chunk-new")
	require.NoError(t, err)
	assert.Equal(t, "new content", chunk.Text)
}

func TestKnowledgeChunkRepository_GetChunkMetadata(t *testing.T) {
	ctx, _, repo := setupChunkRepo(t)

	seedSource(ctx, t, repo, "src-1", "bot-1", domain.SourceStatusActive)
	seedChunk(ctx, t, repo, "chunk-a", "src-1", "bot-1", "Our refund policy is 30 days.", domain.PrivacyCitable, testVector(0, 1.0))

	chunk, err := repo.GetChunkMetadata(ctx, "chunk-a")
	require.NoError(t, err)
	assert.Equal(t, "src-1", chunk.SourceID)
	assert.Equal(t, "bot-1", chunk.ChatbotID)
	assert.Equal(t, domain.PrivacyCitable, chunk.Privacy)
	assert.Equal(t, "test", chunk.Metadata["origin"])

	_, err = repo.GetChunkMetadata(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
}

func TestKnowledgeChunkRepository_ListActiveChunks(t *testing.T) {
	ctx, _, repo := setupChunkRepo(t)

	seedSource(ctx, t, repo, "src-active", "bot-1", domain.SourceStatusActive)
	seedSource(ctx, t, repo, "src-disabled", "bot-1", domain.SourceStatusDisabled)
	seedChunk(ctx, t, repo, "chunk-a", "src-active", "bot-1", "live", domain.PrivacyCitable, testVector(0, 1.0))
	seedChunk(ctx, t, repo, "chunk-b", "src-active", "bot-1", "also live", domain.PrivacyPrivate, testVector(1, 1.0))
	seedChunk(ctx, t, repo, "chunk-c", "src-disabled", "bot-1", "retired", domain.PrivacyCitable, testVector(2, 1.0))

	chunks, err := repo.ListActiveChunks(ctx)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "chunk-a", chunks[0].ID)
	assert.Equal(t, "chunk-b", chunks[1].ID)
	assert.Len(t, chunks[0].Embedding, 1536)
}
