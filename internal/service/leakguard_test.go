package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeakGuard_DetectsVerbatimFragment(t *testing.T) {
	guard := NewLeakGuard(20)
	blocks := []PrivateBlock{{ChunkID: "chunk-b", Text: "the internal escalation code is SECRET-ALPHA-123 for emergencies"}}

	generated := "Per policy, the internal escalation code is SECRET-ALPHA-123 if needed."
	detections := guard.Check(generated, blocks)

	require.Len(t, detections, 1)
	assert.Equal(t, "chunk-b", detections[0].ChunkID)
	assert.Contains(t, detections[0].Fragment, "SECRET-ALPHA-123")
}

func TestLeakGuard_CaseInsensitive(t *testing.T) {
	guard := NewLeakGuard(20)
	blocks := []PrivateBlock{{ChunkID: "chunk-b", Text: "Internal Escalation Code Is Secret-Alpha-123"}}

	generated := "the INTERNAL ESCALATION CODE IS SECRET-alpha-123 here"
	detections := guard.Check(generated, blocks)

	require.NotEmpty(t, detections)
}

func TestLeakGuard_NoDetectionOnParaphrase(t *testing.T) {
	guard := NewLeakGuard(20)
	blocks := []PrivateBlock{{ChunkID: "chunk-b", Text: "the internal escalation code is SECRET-ALPHA-123 for emergencies"}}

	generated := "There is an internal code but I cannot share it."
	detections := guard.Check(generated, blocks)

	assert.Empty(t, detections)
}

func TestLeakGuard_ShortPrivateBlockLeaksWhole(t *testing.T) {
	guard := NewLeakGuard(20)
	blocks := []PrivateBlock{{ChunkID: "chunk-b", Text: "SECRET-ALPHA-123"}}

	detections := guard.Check("the code is SECRET-ALPHA-123.", blocks)

	require.Len(t, detections, 1)
	assert.Equal(t, "SECRET-ALPHA-123", detections[0].Fragment)
}

func TestLeakGuard_Redact(t *testing.T) {
	guard := NewLeakGuard(20)
	blocks := []PrivateBlock{{ChunkID: "chunk-b", Text: "the internal escalation code is SECRET-ALPHA-123"}}

	generated := "Sure: the internal escalation code is SECRET-ALPHA-123. Anything else?"
	detections := guard.Check(generated, blocks)
	require.NotEmpty(t, detections)

	clean := guard.Redact(generated, detections)

	assert.NotContains(t, clean, "SECRET-ALPHA-123")
	assert.Contains(t, clean, RedactionMarker)
	assert.Contains(t, clean, "Anything else?")
}

func TestLeakGuard_RedactMergesOverlappingSpans(t *testing.T) {
	guard := NewLeakGuard(10)
	blocks := []PrivateBlock{
		{ChunkID: "chunk-a", Text: "alpha beta gamma delta"},
		{ChunkID: "chunk-b", Text: "gamma delta epsilon zeta"},
	}

	generated := "prefix alpha beta gamma delta epsilon zeta suffix"
	detections := guard.Check(generated, blocks)
	require.NotEmpty(t, detections)

	clean := guard.Redact(generated, detections)

	assert.Equal(t, "prefix "+RedactionMarker+" suffix", clean)
	assert.Equal(t, 1, strings.Count(clean, RedactionMarker))
}

func TestLeakGuard_EmptyInputs(t *testing.T) {
	guard := NewLeakGuard(0)

	assert.Empty(t, guard.Check("", []PrivateBlock{{ChunkID: "x", Text: "some private text here padded"}}))
	assert.Empty(t, guard.Check("some generated text", nil))
	assert.Equal(t, "text", guard.Redact("text", nil))
}

func TestLeakGuard_MultibyteTextKeepsOffsetsAligned(t *testing.T) {
	guard := NewLeakGuard(20)
	blocks := []PrivateBlock{{ChunkID: "chunk-b", Text: "the internal code is SECRET-ALPHA-123"}}

	// Lowercasing 'İ' changes its byte length, shifting every later offset.
	generated := strings.Repeat("İ", 10) + " the internal code is SECRET-ALPHA-123 end"
	detections := guard.Check(generated, blocks)

	require.NotEmpty(t, detections)
	for _, d := range detections {
		assert.True(t, utf8.ValidString(d.Fragment))
		assert.Equal(t, d.Fragment, generated[d.Start:d.End])
	}

	clean := guard.Redact(generated, detections)
	assert.True(t, utf8.ValidString(clean))
	assert.NotContains(t, clean, "SECRET-ALPHA-123")
	assert.NotContains(t, clean, "ALPHA-123")
	assert.Contains(t, clean, "end")
}

func TestLeakGuard_SharedSubstringReportedOncePerSpan(t *testing.T) {
	guard := NewLeakGuard(20)
	blocks := []PrivateBlock{
		{ChunkID: "chunk-a", Text: "first private sentence about revenue numbers"},
		{ChunkID: "chunk-b", Text: "second private sentence about merger plans"},
	}

	// Only chunk-a's sentence appears; chunk-b matches a substring of it.
	generated := "Notes: first private sentence about revenue numbers only."
	detections := guard.Check(generated, blocks)

	require.Len(t, detections, 1)
	assert.Equal(t, "chunk-a", detections[0].ChunkID)
	assert.Contains(t, detections[0].Fragment, "revenue numbers")
}

func TestLeakGuard_MultipleBlocks(t *testing.T) {
	guard := NewLeakGuard(20)
	blocks := []PrivateBlock{
		{ChunkID: "chunk-a", Text: "first private sentence about revenue numbers"},
		{ChunkID: "chunk-b", Text: "second private sentence about merger plans"},
	}

	generated := "Notes: first private sentence about revenue numbers and second private sentence about merger plans."
	detections := guard.Check(generated, blocks)

	require.Len(t, detections, 2)
	chunkIDs := []string{detections[0].ChunkID, detections[1].ChunkID}
	assert.ElementsMatch(t, []string{"chunk-a", "chunk-b"}, chunkIDs)
}
