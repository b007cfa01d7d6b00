package umi

import (
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/assert"

	"github.com/sdrtools/sdrcount/tags"
)

func TestClusterSnapsToFrequent(t *testing.T) {
	c := Cluster(map[string]map[string]int{
		"AAAA.CCCC": {
			"ACGTACGT": 10,
			"ACGTACGA": 2, // one edit from the dominant UMI
			"TTTTGGGG": 5,
		},
	})
	m := c["AAAA.CCCC"]
	assert.Equal(t, "ACGTACGT", m["ACGTACGT"])
	assert.Equal(t, "ACGTACGT", m["ACGTACGA"])
	assert.Equal(t, "TTTTGGGG", m["TTTTGGGG"])
}

func TestClusterTieBreaksLexicographic(t *testing.T) {
	c := Cluster(map[string]map[string]int{
		"bc": {"CCCC": 5, "CCCG": 5},
	})
	m := c["bc"]
	assert.Equal(t, "CCCC", m["CCCC"])
	assert.Equal(t, "CCCC", m["CCCG"])
}

func TestClusterGreedyNoChaining(t *testing.T) {
	// AATT is one edit from AAAT, but AAAT is not canonical; AATT is
	// two edits from AAAA, so it stays its own canonical UMI.
	c := Cluster(map[string]map[string]int{
		"bc": {"AAAA": 10, "AAAT": 3, "AATT": 1},
	})
	m := c["bc"]
	assert.Equal(t, "AAAA", m["AAAT"])
	assert.Equal(t, "AATT", m["AATT"])
}

func TestClusterPerBarcodeIsolation(t *testing.T) {
	c := Cluster(map[string]map[string]int{
		"bc1": {"ACGTACGT": 10, "ACGTACGA": 1},
		"bc2": {"ACGTACGA": 7},
	})
	assert.Equal(t, "ACGTACGT", c["bc1"]["ACGTACGA"])
	assert.Equal(t, "ACGTACGA", c["bc2"]["ACGTACGA"])
}

func TestCorrect(t *testing.T) {
	c := Cluster(map[string]map[string]int{
		"AAAA.CCCC": {"ACGTACGT": 10, "ACGTACGA": 1},
	})

	rec := &sam.Record{Name: "read1"}
	tags.Set(rec, tags.CellBarcode, "AAAA.CCCC")
	tags.Set(rec, tags.RawUMI, "ACGTACGA")
	c.Correct(rec)
	ub, ok := tags.Get(rec, tags.UMI)
	assert.True(t, ok)
	assert.Equal(t, "ACGTACGT", ub)

	// Unseen raw UMI keeps its own value.
	rec2 := &sam.Record{Name: "read2"}
	tags.Set(rec2, tags.CellBarcode, "AAAA.CCCC")
	tags.Set(rec2, tags.RawUMI, "GGGGGGGG")
	c.Correct(rec2)
	ub2, _ := tags.Get(rec2, tags.UMI)
	assert.Equal(t, "GGGGGGGG", ub2)
}
