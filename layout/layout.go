// Package layout segments raw barcode reads against a declared read
// structure and scores the segmentation.
package layout

// A Segment is one expected structural piece of a barcode read.  A
// segment is either a fixed-length wildcard that consumes Length bases
// of any identity, or a literal with one or more candidate variants
// (e.g. frame-shifted spacer options).
type Segment struct {
	// Length is the number of bases consumed by a wildcard segment.
	// Zero for literal segments.
	Length int
	// Variants are the candidate subsequences for a literal segment,
	// tried in declared order.  Empty for wildcard segments.
	Variants []string
}

// Wildcard returns a segment that consumes n bases of any identity.
func Wildcard(n int) Segment {
	return Segment{Length: n}
}

// Literal returns a segment expected to match one of the given
// variants.
func Literal(variants ...string) Segment {
	return Segment{Variants: variants}
}

func (s Segment) wildcard() bool { return len(s.Variants) == 0 }

// A Layout is the declared ordered structure a raw read should
// decompose into.  Layouts are immutable after construction and may be
// shared across goroutines.
type Layout struct {
	segments []Segment
	// minLen is the total fixed length of the layout, assuming the
	// first variant of every literal.
	minLen int
}

// New constructs a layout from the given segments.
func New(segments ...Segment) *Layout {
	l := &Layout{segments: segments}
	for _, s := range segments {
		if s.wildcard() {
			l.minLen += s.Length
		} else {
			l.minLen += len(s.Variants[0])
		}
	}
	return l
}

// NumSegments returns the number of segments in the layout.
func (l *Layout) NumSegments() int { return len(l.segments) }

// MinLen returns the total fixed length of the layout using the first
// variant of every literal segment.
func (l *Layout) MinLen() int { return l.minLen }

// Result is the best-scoring segmentation of one read.
type Result struct {
	// Score is the count of matching literal bases divided by the
	// total number of literal bases, in [0, 1].
	Score float64
	// Pieces holds one extracted substring per segment, in layout
	// order.  len(Pieces) == NumSegments() always.
	Pieces []string
	// Chosen holds, per segment, the literal variant used by the
	// winning segmentation, or "" for wildcard segments.
	Chosen []string
	// End is the sequence offset immediately following the last
	// segment, clamped to len(seq).
	End int
}

// Align produces the best-scoring segmentation of seq.  Every
// combination of literal variants is tried with left-to-right greedy
// placement; mismatching literal bases are scored, not rejected.  Ties
// are broken in favor of the first combination tried, so the result is
// deterministic.  Sequences shorter than the layout are handled by
// clamping segments at the end of seq; the truncated literals score
// low and fall to the threshold filter downstream.
func (l *Layout) Align(seq string) Result {
	choice := make([]int, len(l.segments))
	var (
		best  Result
		first = true
	)
	for {
		r := l.alignWith(seq, choice)
		if first || r.Score > best.Score {
			best = r
			first = false
		}
		if !l.advance(choice) {
			break
		}
	}
	return best
}

// alignWith segments seq with the literal variants selected by choice.
func (l *Layout) alignWith(seq string, choice []int) Result {
	r := Result{
		Pieces: make([]string, len(l.segments)),
		Chosen: make([]string, len(l.segments)),
	}
	var off, matched, total int
	for i, s := range l.segments {
		if s.wildcard() {
			end := off + s.Length
			if end > len(seq) {
				end = len(seq)
			}
			r.Pieces[i] = seq[off:end]
			off = end
			continue
		}
		lit := s.Variants[choice[i]]
		r.Chosen[i] = lit
		end := off + len(lit)
		if end > len(seq) {
			end = len(seq)
		}
		piece := seq[off:end]
		for j := 0; j < len(piece); j++ {
			if piece[j] == lit[j] {
				matched++
			}
		}
		total += len(lit)
		r.Pieces[i] = piece
		off = end
	}
	if total > 0 {
		r.Score = float64(matched) / float64(total)
	}
	r.End = off
	return r
}

// advance steps choice to the next variant combination, odometer
// style.  It returns false once all combinations have been visited.
func (l *Layout) advance(choice []int) bool {
	for i := len(choice) - 1; i >= 0; i-- {
		if l.segments[i].wildcard() {
			continue
		}
		choice[i]++
		if choice[i] < len(l.segments[i].Variants) {
			return true
		}
		choice[i] = 0
	}
	return false
}
