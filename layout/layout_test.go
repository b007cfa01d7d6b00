package layout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignExact(t *testing.T) {
	l := New(Wildcard(4), Literal("ACGT"), Wildcard(3))
	r := l.Align("TTTTACGTGGG")
	assert.Equal(t, 1.0, r.Score)
	assert.Equal(t, []string{"TTTT", "ACGT", "GGG"}, r.Pieces)
	assert.Equal(t, []string{"", "ACGT", ""}, r.Chosen)
	assert.Equal(t, 11, r.End)
}

func TestAlignSoftMismatch(t *testing.T) {
	l := New(Wildcard(2), Literal("ACGT"))
	// One mismatching base in the literal.
	r := l.Align("TTACGG")
	assert.Equal(t, 0.75, r.Score)
	assert.Equal(t, []string{"TT", "ACGG"}, r.Pieces)
}

func TestAlignVariantSelection(t *testing.T) {
	spacer := "GTCAGTACGTACGAGTC"
	variants := make([]string, 4)
	for i := range variants {
		variants[i] = spacer[i:]
	}
	l := New(Wildcard(3), Literal(variants...), Wildcard(2))

	// A read built with the second frame shift must pick that variant.
	seq := "AAA" + spacer[1:] + "CC"
	r := l.Align(seq)
	assert.Equal(t, 1.0, r.Score)
	assert.Equal(t, spacer[1:], r.Chosen[1])
	assert.Equal(t, []string{"AAA", spacer[1:], "CC"}, r.Pieces)
	assert.Equal(t, len(seq), r.End)
}

func TestAlignTieBreaksFirstVariant(t *testing.T) {
	// Both variants score identically against this read; the first
	// declared variant must win.
	l := New(Literal("AA", "TT"))
	r := l.Align("GG")
	assert.Equal(t, 0.0, r.Score)
	assert.Equal(t, "AA", r.Chosen[0])
}

func TestAlignShortSequence(t *testing.T) {
	l := New(Wildcard(9), Literal("GTCAGTACGTACGAGTC"), Wildcard(9))
	full := strings.Repeat("A", 9) + "GTCAGTACGTACGAGTC" + strings.Repeat("C", 9)
	fullScore := l.Align(full).Score

	// Every truncation must segment without faulting and never beat
	// the well-formed read.
	for n := 0; n <= len(full); n++ {
		r := l.Align(full[:n])
		assert.LessOrEqual(t, r.Score, fullScore, "prefix length %d", n)
		assert.Len(t, r.Pieces, l.NumSegments())
		assert.LessOrEqual(t, r.End, n)
	}
}

func TestAlignEmptySequence(t *testing.T) {
	l := New(Wildcard(4), Literal("ACGT"))
	r := l.Align("")
	assert.Equal(t, 0.0, r.Score)
	assert.Equal(t, []string{"", ""}, r.Pieces)
	assert.Equal(t, 0, r.End)
}

func TestMinLen(t *testing.T) {
	l := New(Wildcard(9), Literal("GTCAGTACGTACGAGTC"), Wildcard(8))
	assert.Equal(t, 9+17+8, l.MinLen())
}
