package pipeline

import (
	"strings"
	"testing"

	"github.com/grailbio/bio/encoding/fastq"
	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastqText(names ...string) string {
	var b strings.Builder
	for _, n := range names {
		b.WriteString("@" + n + "\nACGTACGT\n+\nFFFFFFFF\n")
	}
	return b.String()
}

func newSync(txt string, maxScan int) *Synchronizer {
	return NewSynchronizer(fastq.NewScanner(strings.NewReader(txt), fastq.ID|fastq.Seq), maxScan)
}

func TestNamesPair(t *testing.T) {
	tests := []struct {
		fastqID string
		qname   string
		want    bool
	}{
		{"@read1", "read1", true},
		{"@read1 1:N:0:ACGT", "read1", true},
		{"@read1/1", "read1", true},
		{"@read1/1", "read1/2", true},
		{"@read1", "read2", false},
		{"@read10", "read1", false},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, NamesPair(test.fastqID, test.qname),
			"NamesPair(%q, %q)", test.fastqID, test.qname)
	}
}

func TestSynchronizerInOrder(t *testing.T) {
	s := newSync(fastqText("r1 desc", "r2 desc", "r3 desc"), 10)
	for _, name := range []string{"r1", "r2", "r3"} {
		read, err := s.Next(&sam.Record{Name: name})
		require.NoError(t, err)
		assert.True(t, NamesPair(read.ID, name))
	}
}

func TestSynchronizerSkipsDroppedReads(t *testing.T) {
	// r2 and r4 were dropped by the aligner; the synchronizer scans
	// past them.
	s := newSync(fastqText("r1", "r2", "r3", "r4", "r5"), 10)
	for _, name := range []string{"r1", "r3", "r5"} {
		read, err := s.Next(&sam.Record{Name: name})
		require.NoError(t, err)
		assert.Equal(t, "@"+name, read.ID)
	}
}

func TestSynchronizerNeverScansBackward(t *testing.T) {
	s := newSync(fastqText("r1", "r2"), 10)
	_, err := s.Next(&sam.Record{Name: "r2"})
	require.NoError(t, err)
	// r1 was already consumed by the forward scan.
	_, err = s.Next(&sam.Record{Name: "r1"})
	assert.Error(t, err)
}

func TestSynchronizerExhausted(t *testing.T) {
	s := newSync(fastqText("r1"), 10)
	_, err := s.Next(&sam.Record{Name: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted")
}

func TestSynchronizerMaxScan(t *testing.T) {
	s := newSync(fastqText("r1", "r2", "r3", "r4"), 2)
	_, err := s.Next(&sam.Record{Name: "r4"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatched")
}
