package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/askbase/internal/domain"
)

func rankedCandidates() []domain.RetrievalCandidate {
	now := time.Now()
	mk := func(id, text string, privacy domain.PrivacyFlag, rank int) domain.RetrievalCandidate {
		return domain.RetrievalCandidate{
			Chunk: &domain.KnowledgeChunk{ID: id, ChatbotID: "bot-1", Text: text, Privacy: privacy, CreatedAt: now},
			Rank:  rank,
		}
	}
	return []domain.RetrievalCandidate{
		mk("chunk-a", "refund policy is 30 days", domain.PrivacyCitable, 1),
		mk("chunk-b", "internal code SECRET-ALPHA-123", domain.PrivacyPrivate, 2),
		mk("chunk-c", "shipping takes five days", domain.PrivacyCitable, 3),
	}
}

func TestBuildContext_MarkersAndIndexes(t *testing.T) {
	assembler := NewContextAssembler(1000)
	out := assembler.BuildContext(rankedCandidates(), true)

	require.Len(t, out.Blocks, 3)
	assert.Contains(t, out.Text, "[CITABLE-1] refund policy is 30 days")
	assert.Contains(t, out.Text, "[PRIVATE] internal code SECRET-ALPHA-123")
	assert.Contains(t, out.Text, "[CITABLE-2] shipping takes five days")

	// Display index is assigned in final block order, citable only.
	assert.Equal(t, 1, out.Blocks[0].DisplayIndex)
	assert.Equal(t, 0, out.Blocks[1].DisplayIndex)
	assert.Equal(t, 2, out.Blocks[2].DisplayIndex)

	assert.Equal(t, map[int]string{1: "chunk-a", 2: "chunk-c"}, out.CitationIndex)

	require.Len(t, out.PrivateBlocks, 1)
	assert.Equal(t, "chunk-b", out.PrivateBlocks[0].ChunkID)
}

func TestBuildContext_ExcludePrivate(t *testing.T) {
	assembler := NewContextAssembler(1000)
	out := assembler.BuildContext(rankedCandidates(), false)

	require.Len(t, out.Blocks, 2)
	assert.NotContains(t, out.Text, "SECRET-ALPHA-123")
	assert.NotContains(t, out.Text, "[PRIVATE]")
	assert.Empty(t, out.PrivateBlocks)
	// Indexes stay contiguous after the private block is omitted.
	assert.Equal(t, map[int]string{1: "chunk-a", 2: "chunk-c"}, out.CitationIndex)
}

func TestBuildContext_BudgetDropsLowestRankedFirst(t *testing.T) {
	candidates := rankedCandidates()
	// Budget fits roughly two blocks of this size.
	assembler := NewContextAssembler(90)
	out := assembler.BuildContext(candidates, true)

	require.Len(t, out.Blocks, 2)
	assert.Equal(t, "chunk-a", out.Blocks[0].ChunkID)
	assert.Equal(t, "chunk-b", out.Blocks[1].ChunkID)
	assert.NotContains(t, out.Text, "shipping")
}

func TestBuildContext_NeverTruncatesMidBlock(t *testing.T) {
	long := strings.Repeat("x", 200)
	candidates := []domain.RetrievalCandidate{
		{Chunk: &domain.KnowledgeChunk{ID: "chunk-a", Text: "short text", Privacy: domain.PrivacyCitable}, Rank: 1},
		{Chunk: &domain.KnowledgeChunk{ID: "chunk-b", Text: long, Privacy: domain.PrivacyCitable}, Rank: 2},
	}
	assembler := NewContextAssembler(100)
	out := assembler.BuildContext(candidates, true)

	require.Len(t, out.Blocks, 1)
	assert.Equal(t, "chunk-a", out.Blocks[0].ChunkID)
	assert.NotContains(t, out.Text, "xxx")
	assert.LessOrEqual(t, len(out.Text), 100)
}

func TestBuildContext_BudgetHoldsForWideDisplayIndexes(t *testing.T) {
	candidates := make([]domain.RetrievalCandidate, 0, 120)
	for i := 0; i < 120; i++ {
		candidates = append(candidates, domain.RetrievalCandidate{
			Chunk: &domain.KnowledgeChunk{
				ID:      fmt.Sprintf("chunk-%03d", i),
				Text:    "ten bytes.",
				Privacy: domain.PrivacyCitable,
			},
			Rank: i + 1,
		})
	}

	// Budget admits blocks past display index 99, where markers get wider.
	maxChars := 3000
	assembler := NewContextAssembler(maxChars)
	out := assembler.BuildContext(candidates, true)

	assert.Greater(t, len(out.Blocks), 99)
	assert.LessOrEqual(t, len(out.Text), maxChars)
}

func TestBuildContext_EmptyCandidates(t *testing.T) {
	assembler := NewContextAssembler(1000)
	out := assembler.BuildContext(nil, true)

	assert.True(t, out.Empty())
	assert.Empty(t, out.Text)
	assert.Empty(t, out.CitationIndex)
}

func TestBuildContext_SkipsNilChunks(t *testing.T) {
	assembler := NewContextAssembler(1000)
	out := assembler.BuildContext([]domain.RetrievalCandidate{{Rank: 1}}, true)

	assert.True(t, out.Empty())
}
