package domain

import (
	"fmt"
	"time"
)

// PrivacyFlag partitions knowledge into the citable and private pools.
// A chunk carries exactly one flag for its whole lifetime.
type PrivacyFlag string

const (
	// PrivacyCitable marks content that may be quoted and cited in answers.
	PrivacyCitable PrivacyFlag = "citable"
	// PrivacyPrivate marks content that may inform reasoning but must never
	// appear in any output.
	PrivacyPrivate PrivacyFlag = "private"
)

// SourceStatus represents the lifecycle status of a knowledge source.
type SourceStatus string

const (
	SourceStatusActive   SourceStatus = "active"
	SourceStatusDisabled SourceStatus = "disabled"
)

// KnowledgeSource is an uploaded document or crawled page a chatbot is
// backed by. Chunks inherit DefaultPrivacy at ingestion time.
type KnowledgeSource struct {
	ID             string
	ChatbotID      string
	Name           string
	DefaultPrivacy PrivacyFlag
	Status         SourceStatus
	CreatedAt      time.Time
}

// KnowledgeChunk is an immutable segment of a knowledge source. Superseded
// chunks are replaced by ingestion, never mutated in place.
type KnowledgeChunk struct {
	ID        string
	SourceID  string
	ChatbotID string
	Text      string
	Embedding []float32
	Privacy   PrivacyFlag
	Metadata  map[string]string
	CreatedAt time.Time
}

// RetrievalCandidate pairs a chunk with its similarity score for one query.
// Transient: created per query, never persisted.
type RetrievalCandidate struct {
	Chunk *KnowledgeChunk
	// Score is cosine similarity against the query vector, in [-1, 1].
	Score float32
	// Rank is assigned by the retrieval orchestrator after sorting, 1-based.
	Rank int
}

// Citable reports whether the candidate's chunk may be cited to end users.
func (c RetrievalCandidate) Citable() bool {
	return c.Chunk != nil && c.Chunk.Privacy == PrivacyCitable
}

// ValidateChunk validates a KnowledgeChunk instance.
func ValidateChunk(c *KnowledgeChunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}
	if c.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}
	if c.ChatbotID == "" {
		return fmt.Errorf("chunk ChatbotID is required")
	}
	if c.Text == "" {
		return fmt.Errorf("chunk Text is required")
	}
	if !IsValidPrivacyFlag(c.Privacy) {
		return fmt.Errorf("chunk Privacy is invalid: %s", c.Privacy)
	}
	return nil
}

// ValidateSource validates a KnowledgeSource instance.
func ValidateSource(s *KnowledgeSource) error {
	if s == nil {
		return fmt.Errorf("source cannot be nil")
	}
	if s.ID == "" {
		return fmt.Errorf("source ID is required")
	}
	if s.ChatbotID == "" {
		return fmt.Errorf("source ChatbotID is required")
	}
	if !IsValidPrivacyFlag(s.DefaultPrivacy) {
		return fmt.Errorf("source DefaultPrivacy is invalid: %s", s.DefaultPrivacy)
	}
	if !isValidSourceStatus(s.Status) {
		return fmt.Errorf("source Status is invalid: %s", s.Status)
	}
	return nil
}

// IsValidPrivacyFlag checks if a PrivacyFlag is one of the two pools.
func IsValidPrivacyFlag(f PrivacyFlag) bool {
	switch f {
	case PrivacyCitable, PrivacyPrivate:
		return true
	}
	return false
}

func isValidSourceStatus(s SourceStatus) bool {
	switch s {
	case SourceStatusActive, SourceStatusDisabled:
		return true
	}
	return false
}
