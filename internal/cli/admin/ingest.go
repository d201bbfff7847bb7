package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/askbase/internal/config"
	"github.com/cloo-solutions/askbase/internal/database"
	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/openai"
	"github.com/cloo-solutions/askbase/internal/repository"
)

// ingestFile is the on-disk format consumed by the ingest command: one
// source with its pre-chunked content.
type ingestFile struct {
	SourceID       string        `json:"source_id"`
	ChatbotID      string        `json:"chatbot_id"`
	Name           string        `json:"name"`
	DefaultPrivacy string        `json:"default_privacy"`
	Chunks         []ingestChunk `json:"chunks"`
}

type ingestChunk struct {
	Text     string            `json:"text"`
	Privacy  string            `json:"privacy,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a knowledge source from a JSON file",
		Long: `Ingest reads a pre-chunked knowledge source from a JSON file, embeds
every chunk and replaces the source's chunks in the database. Existing
chunks of the same source are superseded atomically.`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("ingest requires an embedding provider: OPENAI_API_KEY not set")
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read ingest file: %w", err)
	}
	var input ingestFile
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("failed to parse ingest file: %w", err)
	}
	if input.SourceID == "" {
		input.SourceID = uuid.NewString()
	}
	if input.DefaultPrivacy == "" {
		input.DefaultPrivacy = string(domain.PrivacyCitable)
	}
	if len(input.Chunks) == 0 {
		return fmt.Errorf("ingest file contains no chunks")
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	client := openai.NewClientWithConfig(openai.Config{APIKey: cfg.OpenAIAPIKey})
	repo := repository.NewKnowledgeChunkRepository(pool)

	source := &domain.KnowledgeSource{
		ID:             input.SourceID,
		ChatbotID:      input.ChatbotID,
		Name:           input.Name,
		DefaultPrivacy: domain.PrivacyFlag(input.DefaultPrivacy),
		Status:         domain.SourceStatusActive,
		CreatedAt:      time.Now().UTC(),
	}
	if err := domain.ValidateSource(source); err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}

	chunks := make([]domain.KnowledgeChunk, 0, len(input.Chunks))
	for i, c := range input.Chunks {
		privacy := domain.PrivacyFlag(c.Privacy)
		if c.Privacy == "" {
			privacy = source.DefaultPrivacy
		}

		embedding, err := client.GenerateEmbedding(ctx, c.Text)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}

		chunks = append(chunks, domain.KnowledgeChunk{
			ID:        uuid.NewString(),
			SourceID:  source.ID,
			ChatbotID: source.ChatbotID,
			Text:      c.Text,
			Embedding: embedding,
			Privacy:   privacy,
			Metadata:  c.Metadata,
			CreatedAt: time.Now().UTC(),
		})
	}

	// Upsert the source, then swap its chunk set in one transaction.
	if err := repo.CreateSource(ctx, source); err != nil {
		log.Printf("source %s already exists, replacing chunks", source.ID)
	}
	if err := repo.ReplaceChunks(ctx, source.ID, chunks); err != nil {
		return fmt.Errorf("failed to replace chunks: %w", err)
	}

	log.Printf("ingested source %s: %d chunks for chatbot %s", source.ID, len(chunks), source.ChatbotID)
	return nil
}
