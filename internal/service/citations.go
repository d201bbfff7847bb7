package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cloo-solutions/askbase/internal/domain"
)

// DefaultOverlapThreshold is the minimum share of a citable block's words
// that must appear in the generated text for the marker-less fallback to
// attribute a citation.
const DefaultOverlapThreshold = 0.5

var (
	citationMarkerRe = regexp.MustCompile(`\[CITABLE-(\d+)\]`)
	stripMarkerRe    = regexp.MustCompile(`\s*\[(?:CITABLE-\d+|PRIVATE)\]`)
)

// CitationExtractor maps generated references back to citable chunk ids.
type CitationExtractor struct {
	overlapThreshold float64
}

// NewCitationExtractor creates an extractor with the given fallback overlap
// threshold. Out-of-range values fall back to DefaultOverlapThreshold.
func NewCitationExtractor(overlapThreshold float64) *CitationExtractor {
	if overlapThreshold <= 0 || overlapThreshold > 1 {
		overlapThreshold = DefaultOverlapThreshold
	}
	return &CitationExtractor{overlapThreshold: overlapThreshold}
}

// ExtractCitations scans the generated text for [CITABLE-i] markers and
// resolves them through the context's citation index. References to unknown
// indexes are hallucinations and are dropped silently. When the text carries
// no markers at all, near-verbatim word overlap with a citable block above
// the threshold attributes the citation instead. The result is always a
// subset of the citable chunks that were in the assembled context.
func (e *CitationExtractor) ExtractCitations(generated string, assembled AssembledContext) []string {
	citations := []string{}
	seen := map[string]struct{}{}

	matches := citationMarkerRe.FindAllStringSubmatch(generated, -1)
	for _, m := range matches {
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		chunkID, ok := assembled.CitationIndex[idx]
		if !ok {
			continue
		}
		if _, dup := seen[chunkID]; dup {
			continue
		}
		seen[chunkID] = struct{}{}
		citations = append(citations, chunkID)
	}
	if len(matches) > 0 {
		return citations
	}

	// No explicit markers: fall back to word-overlap attribution.
	genWords := wordSet(generated)
	for _, block := range assembled.Blocks {
		if block.Privacy != domain.PrivacyCitable {
			continue
		}
		if overlapRatio(wordSet(block.Text), genWords) >= e.overlapThreshold {
			if _, dup := seen[block.ChunkID]; dup {
				continue
			}
			seen[block.ChunkID] = struct{}{}
			citations = append(citations, block.ChunkID)
		}
	}
	return citations
}

// StripMarkers removes citation and privacy markers from user-facing text.
func StripMarkers(text string) string {
	return strings.TrimSpace(stripMarkerRe.ReplaceAllString(text, ""))
}

func wordSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// overlapRatio is the share of block words present in the generated text.
func overlapRatio(block, generated map[string]struct{}) float64 {
	if len(block) == 0 {
		return 0
	}
	common := 0
	for w := range block {
		if _, ok := generated[w]; ok {
			common++
		}
	}
	return float64(common) / float64(len(block))
}
