package service

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/askbase/internal/domain"
)

// DefaultMaxContextChars bounds the assembled context passed to generation.
const DefaultMaxContextChars = 6000

const (
	privateMarker = "[PRIVATE]"
	blockSep      = "\n\n"
)

// ContextBlock is one rendered block of the assembled prompt context.
// DisplayIndex is 1-based and assigned to citable blocks only; private
// blocks carry index 0 so the model can never reference them.
type ContextBlock struct {
	DisplayIndex int
	Privacy      domain.PrivacyFlag
	ChunkID      string
	Text         string
}

// PrivateBlock is the leak guard's view of a private context block.
type PrivateBlock struct {
	ChunkID string
	Text    string
}

// AssembledContext is the rendered, budget-bounded context for one query.
type AssembledContext struct {
	Text          string
	Blocks        []ContextBlock
	CitationIndex map[int]string
	PrivateBlocks []PrivateBlock
}

// Empty reports whether no block survived assembly.
func (a AssembledContext) Empty() bool {
	return len(a.Blocks) == 0
}

// ContextAssembler renders ranked candidates into a bounded prompt context.
type ContextAssembler struct {
	maxChars int
}

// NewContextAssembler creates an assembler with the given character budget.
// Non-positive budgets fall back to DefaultMaxContextChars.
func NewContextAssembler(maxChars int) *ContextAssembler {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}
	return &ContextAssembler{maxChars: maxChars}
}

// BuildContext renders candidates in rank order until the character budget
// would be exceeded; blocks are never truncated mid-text, the lowest-ranked
// candidates are dropped first. Citable blocks get stable [CITABLE-i]
// markers assigned in final block order; private blocks get an unindexed
// [PRIVATE] marker, or are omitted entirely when includePrivate is false.
func (a *ContextAssembler) BuildContext(candidates []domain.RetrievalCandidate, includePrivate bool) AssembledContext {
	out := AssembledContext{CitationIndex: map[int]string{}}

	// First pass: pick the blocks that fit the budget, in rank order.
	// Citable markers widen with the display index, so the reservation is
	// computed from the index the block would receive, not a fixed width.
	kept := make([]domain.RetrievalCandidate, 0, len(candidates))
	used := 0
	citable := 0
	for _, c := range candidates {
		if c.Chunk == nil {
			continue
		}
		if !includePrivate && !c.Citable() {
			continue
		}
		marker := privateMarker
		if c.Citable() {
			marker = fmt.Sprintf("[CITABLE-%d]", citable+1)
		}
		cost := len(marker) + 1 + len(c.Chunk.Text)
		if len(kept) > 0 {
			cost += len(blockSep)
		}
		if used+cost > a.maxChars {
			break
		}
		used += cost
		if c.Citable() {
			citable++
		}
		kept = append(kept, c)
	}

	// Second pass: assign display indices in final block order and render.
	var sb strings.Builder
	nextIndex := 1
	for i, c := range kept {
		block := ContextBlock{
			Privacy: c.Chunk.Privacy,
			ChunkID: c.Chunk.ID,
			Text:    c.Chunk.Text,
		}
		var marker string
		if c.Citable() {
			block.DisplayIndex = nextIndex
			out.CitationIndex[nextIndex] = c.Chunk.ID
			marker = fmt.Sprintf("[CITABLE-%d]", nextIndex)
			nextIndex++
		} else {
			marker = privateMarker
			out.PrivateBlocks = append(out.PrivateBlocks, PrivateBlock{
				ChunkID: c.Chunk.ID,
				Text:    c.Chunk.Text,
			})
		}
		if i > 0 {
			sb.WriteString(blockSep)
		}
		sb.WriteString(marker)
		sb.WriteString(" ")
		sb.WriteString(c.Chunk.Text)
		out.Blocks = append(out.Blocks, block)
	}

	out.Text = sb.String()
	return out
}
