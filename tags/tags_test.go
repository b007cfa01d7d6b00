package tags

import (
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/assert"
)

func TestSetGet(t *testing.T) {
	r := &sam.Record{Name: "read1"}
	_, ok := Get(r, CellBarcode)
	assert.False(t, ok)

	Set(r, CellBarcode, "AAAA.CCCC")
	v, ok := Get(r, CellBarcode)
	assert.True(t, ok)
	assert.Equal(t, "AAAA.CCCC", v)

	// Overwrite replaces in place.
	Set(r, CellBarcode, "GGGG.TTTT")
	v, _ = Get(r, CellBarcode)
	assert.Equal(t, "GGGG.TTTT", v)
	assert.Len(t, r.AuxFields, 1)
}

func TestCompleteBarcode(t *testing.T) {
	r := &sam.Record{Name: "read1"}
	Set(r, CellBarcode, "AAAA.CCCC")
	Set(r, Filler, "GTCAGTACGTACGAGTC.GTACTCGCAGTAGTC")
	Set(r, SampleBarcode, "TTTTTTTT")
	assert.Equal(t, "AAAA.CCCC:17:TTTTTTTT", CompleteBarcode(r))
}
