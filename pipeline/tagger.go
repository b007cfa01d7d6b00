package pipeline

import (
	"strings"

	"github.com/grailbio/hts/sam"

	"github.com/sdrtools/sdrcount/barcode"
	"github.com/sdrtools/sdrcount/layout"
	"github.com/sdrtools/sdrcount/tags"
)

// Spacer sequences of the split-design barcode read.  The first
// spacer may be sequenced at any of four frame shifts.
const (
	spacer1 = "GTCAGTACGTACGAGTC"
	spacer2 = "GTACTCGCAGTAGTC"
)

const (
	pieceBC1 = iota
	pieceSpacer1
	pieceBC2
	pieceSpacer2
	pieceSBC
	pieceUMI
	numPieces
)

const umiLen = 8

// readLayout returns the expected barcode read structure:
// 9bp barcode, frame-shifted spacer, 9bp barcode, spacer, 8bp sample
// barcode, 8bp UMI.
func readLayout() *layout.Layout {
	variants := make([]string, 4)
	for i := range variants {
		variants[i] = spacer1[i:]
	}
	return layout.New(
		layout.Wildcard(9),
		layout.Literal(variants...),
		layout.Wildcard(9),
		layout.Literal(spacer2),
		layout.Wildcard(umiLen),
		layout.Wildcard(umiLen),
	)
}

// A Tagger scores one barcode read against the expected layout,
// decodes its barcodes, and annotates the aligned mate record.
// Taggers are stateless after construction; each pipeline worker
// builds its own from the shared Opts.
type Tagger struct {
	layout *layout.Layout
	bcd    *barcode.Decoder
	sbcd   *barcode.SampleDecoder
}

// NewTagger builds a tagger from opts.
func NewTagger(opts Opts) *Tagger {
	return &Tagger{
		layout: readLayout(),
		bcd:    barcode.NewDecoder(opts.BarcodeWhitelist, opts.MaxBarcodeErrors),
		sbcd:   barcode.NewSampleDecoder(opts.SampleWhitelist, opts.MaxSampleErrors, opts.SampleRejectDelta),
	}
}

// Score returns the normalized layout score of one barcode read.
func (t *Tagger) Score(bcSeq string) float64 {
	return t.layout.Align(bcSeq).Score
}

var nToA = strings.NewReplacer("N", "A")

// cleanPiece normalizes a raw piece before whitelist decode.
func cleanPiece(p string) string {
	return nToA.Replace(strings.ToUpper(p))
}

// Process extracts barcodes from bcSeq and, when every decode
// succeeds, sets the barcode tags on rec.  The layout score is
// returned in all cases so the caller can apply the acceptance
// threshold; ok reports whether rec was tagged.  A record is either
// tagged completely or left untouched, never partially annotated.
func (t *Tagger) Process(bcSeq string, rec *sam.Record) (score float64, ok bool) {
	r := t.layout.Align(bcSeq)
	score = r.Score

	// An indel inside a barcode shifts its fixed extraction window,
	// pushing spacer bases into the window or barcode bases out into
	// the next piece.  Passing the sequenced and expected tails lets
	// the decoder charge those shifted bases correctly.  The sample
	// barcode is followed by the random UMI, so it decodes without
	// tails.
	bc1, ok1 := t.bcd.Decode(cleanPiece(r.Pieces[pieceBC1]),
		cleanPiece(r.Pieces[pieceSpacer1]), r.Chosen[pieceSpacer1])
	bc2, ok2 := t.bcd.Decode(cleanPiece(r.Pieces[pieceBC2]),
		cleanPiece(r.Pieces[pieceSpacer2]), r.Chosen[pieceSpacer2])
	sbc, ok3 := t.sbcd.Decode(cleanPiece(r.Pieces[pieceSBC]))
	if !ok1 || !ok2 || !ok3 {
		return score, false
	}

	// Re-segment against the corrected pieces so the UMI is cut at the
	// corrected frame rather than the raw one.
	corrected := layout.New(
		layout.Literal(bc1),
		layout.Literal(r.Chosen[pieceSpacer1]),
		layout.Literal(bc2),
		layout.Literal(r.Chosen[pieceSpacer2]),
		layout.Literal(sbc),
		layout.Wildcard(umiLen),
	)
	cr := corrected.Align(bcSeq)

	tags.Set(rec, tags.CellBarcode, bc1+"."+bc2)
	tags.Set(rec, tags.RawCellBarcode, r.Pieces[pieceBC1]+"."+r.Pieces[pieceBC2])
	tags.Set(rec, tags.SampleBarcode, sbc)
	tags.Set(rec, tags.RawSampleBarcode, r.Pieces[pieceSBC])
	tags.Set(rec, tags.Filler, r.Chosen[pieceSpacer1]+"."+r.Chosen[pieceSpacer2])
	tags.Set(rec, tags.RawFiller, r.Pieces[pieceSpacer1]+"."+r.Pieces[pieceSpacer2])
	tags.Set(rec, tags.RawUMI, cr.Pieces[numPieces-1])
	return score, true
}
