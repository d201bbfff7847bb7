package service

import (
	"sort"
	"strings"

	"github.com/cloo-solutions/askbase/internal/domain"
)

// DefaultKeywordBoost is the score increment applied to candidates whose
// text contains a query keyword.
const DefaultKeywordBoost = 0.15

// RankingStrategy orders retrieval candidates before context assembly.
// The set of strategies is closed: implementations live in this package
// and external packages select one via the constructors below.
type RankingStrategy interface {
	order(candidates []domain.RetrievalCandidate)
	// sealed prevents implementations outside this package.
	sealed()
}

// Similarity orders candidates by descending cosine score.
type Similarity struct{}

// NewSimilarity returns the plain cosine-ordering strategy.
func NewSimilarity() Similarity { return Similarity{} }

func (Similarity) sealed() {}

func (Similarity) order(candidates []domain.RetrievalCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Chunk.ID < candidates[j].Chunk.ID
	})
}

// Recency orders candidates by descending creation time, breaking ties by
// similarity score.
type Recency struct{}

// NewRecency returns the freshness-first strategy.
func NewRecency() Recency { return Recency{} }

func (Recency) sealed() {}

func (Recency) order(candidates []domain.RetrievalCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		ti, tj := candidates[i].Chunk.CreatedAt, candidates[j].Chunk.CreatedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Chunk.ID < candidates[j].Chunk.ID
	})
}

// KeywordBoost adds a fixed increment to the cosine score of candidates
// whose text contains one of the query's keywords, then re-sorts by the
// adjusted score.
type KeywordBoost struct {
	keywords []string
	boost    float32
}

// NewKeywordBoost extracts keywords from the query text and returns a
// strategy that boosts candidates mentioning them. A non-positive boost
// falls back to DefaultKeywordBoost.
func NewKeywordBoost(queryText string, boost float32) KeywordBoost {
	if boost <= 0 {
		boost = DefaultKeywordBoost
	}
	return KeywordBoost{keywords: ExtractKeywords(queryText), boost: boost}
}

func (KeywordBoost) sealed() {}

func (s KeywordBoost) order(candidates []domain.RetrievalCandidate) {
	adjusted := make(map[string]float32, len(candidates))
	for _, c := range candidates {
		score := c.Score
		text := strings.ToLower(c.Chunk.Text)
		for _, kw := range s.keywords {
			if strings.Contains(text, kw) {
				score += s.boost
				break
			}
		}
		adjusted[c.Chunk.ID] = score
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := adjusted[candidates[i].Chunk.ID], adjusted[candidates[j].Chunk.ID]
		if si != sj {
			return si > sj
		}
		return candidates[i].Chunk.ID < candidates[j].Chunk.ID
	})
}

// stopWords are excluded from keyword extraction.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "any": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "but": {}, "by": {}, "can": {}, "do": {}, "does": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "how": {}, "i": {},
	"in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {}, "our": {},
	"the": {}, "their": {}, "there": {}, "this": {}, "to": {},
	"was": {}, "we": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"who": {}, "why": {}, "will": {}, "with": {}, "you": {}, "your": {},
}

// ExtractKeywords lowercases the text, splits on non-alphanumeric runes
// and drops stop words and fragments shorter than three characters.
func ExtractKeywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})

	seen := make(map[string]struct{}, len(fields))
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		keywords = append(keywords, f)
	}
	return keywords
}
