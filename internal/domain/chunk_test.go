package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateChunk(t *testing.T) {
	valid := func() *KnowledgeChunk {
		return &KnowledgeChunk{
			ID:        "chunk-1",
			SourceID:  "source-1",
			ChatbotID: "bot-1",
			Text:      "Our refund policy is 30 days.",
			Privacy:   PrivacyCitable,
		}
	}

	t.Run("valid chunk", func(t *testing.T) {
		assert.NoError(t, ValidateChunk(valid()))
	})

	t.Run("nil chunk", func(t *testing.T) {
		assert.Error(t, ValidateChunk(nil))
	})

	t.Run("missing ID", func(t *testing.T) {
		c := valid()
		c.ID = ""
		assert.Error(t, ValidateChunk(c))
	})

	t.Run("missing chatbot ID", func(t *testing.T) {
		c := valid()
		c.ChatbotID = ""
		assert.Error(t, ValidateChunk(c))
	})

	t.Run("empty text", func(t *testing.T) {
		c := valid()
		c.Text = ""
		assert.Error(t, ValidateChunk(c))
	})

	t.Run("invalid privacy flag", func(t *testing.T) {
		c := valid()
		c.Privacy = "public"
		assert.Error(t, ValidateChunk(c))
	})
}

func TestValidateSource(t *testing.T) {
	valid := func() *KnowledgeSource {
		return &KnowledgeSource{
			ID:             "source-1",
			ChatbotID:      "bot-1",
			Name:           "handbook.pdf",
			DefaultPrivacy: PrivacyPrivate,
			Status:         SourceStatusActive,
		}
	}

	t.Run("valid source", func(t *testing.T) {
		assert.NoError(t, ValidateSource(valid()))
	})

	t.Run("nil source", func(t *testing.T) {
		assert.Error(t, ValidateSource(nil))
	})

	t.Run("invalid default privacy", func(t *testing.T) {
		s := valid()
		s.DefaultPrivacy = ""
		assert.Error(t, ValidateSource(s))
	})

	t.Run("invalid status", func(t *testing.T) {
		s := valid()
		s.Status = "archived"
		assert.Error(t, ValidateSource(s))
	})
}

func TestIsValidPrivacyFlag(t *testing.T) {
	assert.True(t, IsValidPrivacyFlag(PrivacyCitable))
	assert.True(t, IsValidPrivacyFlag(PrivacyPrivate))
	assert.False(t, IsValidPrivacyFlag("public"))
	assert.False(t, IsValidPrivacyFlag(""))
}

func TestRetrievalCandidateCitable(t *testing.T) {
	t.Run("citable chunk", func(t *testing.T) {
		c := RetrievalCandidate{Chunk: &KnowledgeChunk{Privacy: PrivacyCitable}}
		assert.True(t, c.Citable())
	})

	t.Run("private chunk", func(t *testing.T) {
		c := RetrievalCandidate{Chunk: &KnowledgeChunk{Privacy: PrivacyPrivate}}
		assert.False(t, c.Citable())
	})

	t.Run("nil chunk", func(t *testing.T) {
		assert.False(t, RetrievalCandidate{}.Citable())
	})
}
