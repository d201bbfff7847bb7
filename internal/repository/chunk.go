package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/askbase/internal/domain"
)

// KnowledgeChunkRepository handles persistence and vector search of
// knowledge chunks.
type KnowledgeChunkRepository struct {
	pool *pgxpool.Pool
}

func NewKnowledgeChunkRepository(pool *pgxpool.Pool) *KnowledgeChunkRepository {
	return &KnowledgeChunkRepository{pool: pool}
}

// CreateSource inserts a knowledge source.
func (r *KnowledgeChunkRepository) CreateSource(ctx context.Context, source *domain.KnowledgeSource) error {
	if err := domain.ValidateSource(source); err != nil {
		return err
	}
	createdAt := source.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO knowledge_sources (id, chatbot_id, name, default_privacy, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		source.ID,
		source.ChatbotID,
		source.Name,
		string(source.DefaultPrivacy),
		string(source.Status),
		createdAt,
	)
	return err
}

// CreateChunk inserts a single knowledge chunk.
func (r *KnowledgeChunkRepository) CreateChunk(ctx context.Context, chunk *domain.KnowledgeChunk) error {
	if err := domain.ValidateChunk(chunk); err != nil {
		return err
	}
	createdAt := chunk.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO knowledge_chunks (id, source_id, chatbot_id, content, embedding, privacy, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		chunk.ID,
		chunk.SourceID,
		chunk.ChatbotID,
		chunk.Text,
		pgvector.NewVector(chunk.Embedding),
		string(chunk.Privacy),
		chunk.Metadata,
		createdAt,
	)
	return err
}

// ReplaceChunks deletes a source's chunks and inserts their replacements.
// Chunks are immutable: supersession is delete-and-insert, never update.
func (r *KnowledgeChunkRepository) ReplaceChunks(ctx context.Context, sourceID string, chunks []domain.KnowledgeChunk) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM knowledge_chunks WHERE source_id = $1`, sourceID); err != nil {
		return err
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO knowledge_chunks (id, source_id, chatbot_id, content, embedding, privacy, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID,
			c.SourceID,
			c.ChatbotID,
			c.Text,
			pgvector.NewVector(c.Embedding),
			string(c.Privacy),
			c.Metadata,
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Search performs nearest-neighbor retrieval over one privacy pool.
// Distance ordering with an id tie-break keeps results deterministic for a
// fixed snapshot.
func (r *KnowledgeChunkRepository) Search(ctx context.Context, chatbotID string, queryVector []float32, pool domain.PrivacyFlag, topK int) ([]domain.RetrievalCandidate, error) {
	if topK <= 0 {
		topK = 5
	}
	vec := pgvector.NewVector(queryVector)

	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.source_id, c.chatbot_id, c.content, c.privacy, c.metadata, c.created_at,
		        1 - (c.embedding <=> $1) AS score
		 FROM knowledge_chunks c
		 JOIN knowledge_sources s ON s.id = c.source_id
		 WHERE c.chatbot_id = $2 AND c.privacy = $3 AND s.status = 'active'
		 ORDER BY c.embedding <=> $1 ASC, c.id ASC
		 LIMIT $4`,
		vec, chatbotID, string(pool), topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]domain.RetrievalCandidate, 0, topK)
	for rows.Next() {
		var chunk domain.KnowledgeChunk
		var privacy string
		var score float32
		if err := rows.Scan(&chunk.ID, &chunk.SourceID, &chunk.ChatbotID, &chunk.Text, &privacy, &chunk.Metadata, &chunk.CreatedAt, &score); err != nil {
			return nil, err
		}
		chunk.Privacy = domain.PrivacyFlag(privacy)
		candidates = append(candidates, domain.RetrievalCandidate{Chunk: &chunk, Score: score})
	}
	return candidates, rows.Err()
}

// GetChunkMetadata returns one chunk without its embedding.
func (r *KnowledgeChunkRepository) GetChunkMetadata(ctx context.Context, chunkID string) (*domain.KnowledgeChunk, error) {
	var chunk domain.KnowledgeChunk
	var privacy string
	err := r.pool.QueryRow(ctx,
		`SELECT id, source_id, chatbot_id, content, privacy, metadata, created_at
		 FROM knowledge_chunks WHERE id = $1`,
		chunkID,
	).Scan(&chunk.ID, &chunk.SourceID, &chunk.ChatbotID, &chunk.Text, &privacy, &chunk.Metadata, &chunk.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	chunk.Privacy = domain.PrivacyFlag(privacy)
	return &chunk, nil
}

// ListActiveChunks loads every chunk whose source is active, embeddings
// included. Feeds the in-memory snapshot refresh.
func (r *KnowledgeChunkRepository) ListActiveChunks(ctx context.Context) ([]domain.KnowledgeChunk, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.source_id, c.chatbot_id, c.content, c.embedding, c.privacy, c.metadata, c.created_at
		 FROM knowledge_chunks c
		 JOIN knowledge_sources s ON s.id = c.source_id
		 WHERE s.status = 'active'
		 ORDER BY c.id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.KnowledgeChunk
	for rows.Next() {
		var chunk domain.KnowledgeChunk
		var privacy string
		var embedding pgvector.Vector
		if err := rows.Scan(&chunk.ID, &chunk.SourceID, &chunk.ChatbotID, &chunk.Text, &embedding, &privacy, &chunk.Metadata, &chunk.CreatedAt); err != nil {
			return nil, err
		}
		chunk.Embedding = embedding.Slice()
		chunk.Privacy = domain.PrivacyFlag(privacy)
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}
