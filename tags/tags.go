// Package tags defines the SAM aux tags carrying extracted barcode
// information and the complete-barcode key derived from them.
package tags

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
)

var (
	// CellBarcode holds the corrected cell barcode pair, "bc1.bc2".
	CellBarcode = sam.Tag{'C', 'B'}
	// RawCellBarcode holds the raw cell barcode pieces as sequenced.
	RawCellBarcode = sam.Tag{'C', 'R'}
	// SampleBarcode holds the corrected sample barcode.
	SampleBarcode = sam.Tag{'S', 'B'}
	// RawSampleBarcode holds the raw sample barcode piece.
	RawSampleBarcode = sam.Tag{'S', 'R'}
	// Filler holds the corrected filler sequences, "f1.f2".
	Filler = sam.Tag{'F', 'B'}
	// RawFiller holds the raw filler pieces.
	RawFiller = sam.Tag{'F', 'R'}
	// RawUMI holds the UMI as sequenced.
	RawUMI = sam.Tag{'U', 'R'}
	// UMI holds the canonical UMI after correction.
	UMI = sam.Tag{'U', 'B'}
)

// Get returns the string value of tag on r.
func Get(r *sam.Record, tag sam.Tag) (string, bool) {
	aux := r.AuxFields.Get(tag)
	if aux == nil {
		return "", false
	}
	return aux.Value().(string), true
}

// MustGet returns the string value of tag on r and fails the run if
// the tag is absent.  Records reaching correction and counting carry
// the full tag set or were dropped upstream.
func MustGet(r *sam.Record, tag sam.Tag) string {
	v, ok := Get(r, tag)
	if !ok {
		log.Fatalf("record %s is missing tag %v", r.Name, tag)
	}
	return v
}

// Set stores value under tag on r, replacing any existing value.
func Set(r *sam.Record, tag sam.Tag, value string) {
	aux, err := sam.NewAux(tag, value)
	if err != nil {
		log.Fatalf("tag %v=%q: %v", tag, value, err)
	}
	for i, a := range r.AuxFields {
		if a.Tag() == tag {
			r.AuxFields[i] = aux
			return
		}
	}
	r.AuxFields = append(r.AuxFields, aux)
}

// CompleteBarcode builds the composite row key grouping reads and
// UMIs in the count matrices: the corrected cell barcode pair, the
// first filler piece's length as a frame discriminator, and the
// sample barcode.
func CompleteBarcode(r *sam.Record) string {
	bc := MustGet(r, CellBarcode)
	filler := MustGet(r, Filler)
	fillerLen := len(filler)
	if i := strings.IndexByte(filler, '.'); i >= 0 {
		fillerLen = i
	}
	sbc := MustGet(r, SampleBarcode)
	return fmt.Sprintf("%s:%d:%s", bc, fillerLen, sbc)
}
