package service

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMinFragmentLength is the shortest private fragment the guard
// treats as a leak. Shorter overlaps are too likely to be coincidental.
const DefaultMinFragmentLength = 20

// RedactionMarker replaces leaked spans in remediated output.
const RedactionMarker = "[redacted]"

// LeakDetection is one verbatim private fragment found in generated text.
type LeakDetection struct {
	ChunkID  string
	Fragment string
	Start    int
	End      int
}

// LeakGuard scans generated text for verbatim private-content fragments.
// It is the hard backstop behind the prompt directive: detection is a
// correctness defect, and text never leaves the pipeline unremediated.
type LeakGuard struct {
	minFragmentLength int
}

// NewLeakGuard creates a guard with the given minimum fragment length.
// Non-positive values fall back to DefaultMinFragmentLength.
func NewLeakGuard(minFragmentLength int) *LeakGuard {
	if minFragmentLength <= 0 {
		minFragmentLength = DefaultMinFragmentLength
	}
	return &LeakGuard{minFragmentLength: minFragmentLength}
}

// Check returns every private fragment of at least the minimum length that
// appears verbatim (case-insensitive) in the generated text. Overlapping
// matches from one block are merged into a single maximal span; a span
// fully contained in a longer detection from another block is reported
// once, under the block with the longer match.
func (g *LeakGuard) Check(generated string, privateBlocks []PrivateBlock) []LeakDetection {
	if generated == "" || len(privateBlocks) == 0 {
		return nil
	}
	folded := foldText(generated)

	var detections []LeakDetection
	for _, block := range privateBlocks {
		spans := g.matchSpans(folded.lower, strings.ToLower(block.Text))
		for _, s := range spans {
			start, end := folded.spanToSource(s[0], s[1])
			detections = append(detections, LeakDetection{
				ChunkID:  block.ChunkID,
				Fragment: generated[start:end],
				Start:    start,
				End:      end,
			})
		}
	}
	return dedupeDetections(detections)
}

// dedupeDetections sorts detections by position and drops any whose span is
// fully contained in a longer span already kept. Private blocks that share
// a long substring would otherwise each report the other's occurrence.
// Partially overlapping spans are both kept; Redact merges them.
func dedupeDetections(detections []LeakDetection) []LeakDetection {
	if len(detections) <= 1 {
		return detections
	}
	sort.Slice(detections, func(i, j int) bool {
		if detections[i].Start != detections[j].Start {
			return detections[i].Start < detections[j].Start
		}
		return detections[i].End > detections[j].End
	})
	kept := detections[:0]
	maxEnd := -1
	for _, d := range detections {
		if d.End <= maxEnd {
			continue
		}
		kept = append(kept, d)
		maxEnd = d.End
	}
	return kept
}

// foldedText pairs a lowercased copy of a string with a map from every
// lowered byte offset back to the offset of the originating rune in the
// source. Lowercasing can change a rune's byte length, so spans found in
// the lowered text cannot index the source directly.
type foldedText struct {
	src   string
	lower string
	back  []int
}

func foldText(s string) foldedText {
	var sb strings.Builder
	sb.Grow(len(s))
	back := make([]int, 0, len(s)+1)
	for i, r := range s {
		lr := unicode.ToLower(r)
		for n := utf8.RuneLen(lr); n > 0; n-- {
			back = append(back, i)
		}
		sb.WriteRune(lr)
	}
	back = append(back, len(s))
	return foldedText{src: s, lower: sb.String(), back: back}
}

// spanToSource converts a span over the lowered text into a span over the
// source, widened to rune boundaries so the slice is always valid UTF-8
// and never cuts the tail off a matched rune.
func (f foldedText) spanToSource(start, end int) (int, int) {
	srcStart := f.back[start]
	srcEnd := f.back[end]
	if end > 0 && f.back[end-1] == srcEnd {
		// The span ends inside a lowered rune; cover its whole source rune.
		_, size := utf8.DecodeRuneInString(f.src[srcEnd:])
		srcEnd += size
	}
	return srcStart, srcEnd
}

// Redact replaces each detected span with the redaction marker.
func (g *LeakGuard) Redact(generated string, detections []LeakDetection) string {
	if len(detections) == 0 {
		return generated
	}

	// Merge spans across blocks so overlapping detections redact cleanly.
	spans := make([][2]int, 0, len(detections))
	for _, d := range detections {
		spans = append(spans, [2]int{d.Start, d.End})
	}
	spans = mergeSpans(spans)

	var sb strings.Builder
	prev := 0
	for _, s := range spans {
		sb.WriteString(generated[prev:s[0]])
		sb.WriteString(RedactionMarker)
		prev = s[1]
	}
	sb.WriteString(generated[prev:])
	return sb.String()
}

// matchSpans slides a minimum-length window over the private block and
// collects maximal spans of the generated text matching any window.
func (g *LeakGuard) matchSpans(lowerGen, lowerBlock string) [][2]int {
	if len(lowerBlock) < g.minFragmentLength {
		// Block shorter than the window still leaks if present whole.
		if len(lowerBlock) == 0 {
			return nil
		}
		var spans [][2]int
		for from := 0; ; {
			idx := strings.Index(lowerGen[from:], lowerBlock)
			if idx < 0 {
				break
			}
			start := from + idx
			spans = append(spans, [2]int{start, start + len(lowerBlock)})
			from = start + len(lowerBlock)
		}
		return spans
	}

	var spans [][2]int
	for i := 0; i+g.minFragmentLength <= len(lowerBlock); i++ {
		window := lowerBlock[i : i+g.minFragmentLength]
		from := 0
		for {
			idx := strings.Index(lowerGen[from:], window)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + g.minFragmentLength
			// Extend the match as far as both texts agree.
			for end < len(lowerGen) && i+(end-start) < len(lowerBlock) &&
				lowerGen[end] == lowerBlock[i+(end-start)] {
				end++
			}
			spans = append(spans, [2]int{start, end})
			from = start + 1
		}
	}
	return mergeSpans(spans)
}

func mergeSpans(spans [][2]int) [][2]int {
	if len(spans) <= 1 {
		return spans
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i][0] != spans[j][0] {
			return spans[i][0] < spans[j][0]
		}
		return spans[i][1] > spans[j][1]
	})
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s[0] <= last[1] {
			if s[1] > last[1] {
				last[1] = s[1]
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}
