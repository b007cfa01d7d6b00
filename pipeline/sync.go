package pipeline

import (
	"io"
	"strings"

	"github.com/grailbio/bio/encoding/fastq"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// A Pair couples one barcode-bearing read with its independently
// aligned mate record.
type Pair struct {
	// BCSeq is the barcode read sequence.
	BCSeq string
	// Rec is the aligned mate.
	Rec *sam.Record
}

// readName extracts the bare read name from a FASTQ ID line: the "@"
// prefix is dropped and the name ends at the first whitespace.
func readName(id string) string {
	id = strings.TrimPrefix(id, "@")
	if i := strings.IndexAny(id, " \t"); i >= 0 {
		id = id[:i]
	}
	return stripMateSuffix(id)
}

// stripMateSuffix removes a trailing /1 or /2 paired-end marker.
func stripMateSuffix(name string) string {
	if len(name) >= 2 && name[len(name)-2] == '/' {
		if c := name[len(name)-1]; c == '1' || c == '2' {
			return name[:len(name)-2]
		}
	}
	return name
}

// NamesPair reports whether a FASTQ ID line and an alignment record
// name refer to the same read pair.
func NamesPair(fastqID, qname string) bool {
	return readName(fastqID) == stripMateSuffix(qname)
}

// A Synchronizer pairs aligned records with reads from a barcode
// FASTQ stream by name.  The aligner may have dropped reads present
// in the barcode stream (unmapped or filtered), so the synchronizer
// scans forward past unmatched barcode reads; it never scans
// backward.  maxScan bounds the forward scan so a structurally
// mismatched input pair fails fast instead of consuming the whole
// stream.
type Synchronizer struct {
	bc      *fastq.Scanner
	maxScan int
}

// NewSynchronizer returns a synchronizer reading barcode reads from
// bc.
func NewSynchronizer(bc *fastq.Scanner, maxScan int) *Synchronizer {
	return &Synchronizer{bc: bc, maxScan: maxScan}
}

// Next returns the barcode read pairing with rec.
func (s *Synchronizer) Next(rec *sam.Record) (fastq.Read, error) {
	var r fastq.Read
	for n := 0; n < s.maxScan; n++ {
		if !s.bc.Scan(&r) {
			if err := s.bc.Err(); err != nil {
				return r, errors.Wrap(err, "barcode fastq")
			}
			return r, errors.Errorf("barcode stream exhausted before a read pairing with %s was found", rec.Name)
		}
		if NamesPair(r.ID, rec.Name) {
			return r, nil
		}
	}
	return r, errors.Errorf("no barcode read pairing with %s within %d reads; input pair looks mismatched", rec.Name, s.maxScan)
}

// A PairIter produces synchronized record pairs.  Next returns io.EOF
// after the last pair.
type PairIter interface {
	Next() (Pair, error)
}

// A PairSource synchronizes a barcode FASTQ stream with an aligned
// BAM stream in file order.
type PairSource struct {
	br   *bam.Reader
	sync *Synchronizer
}

// NewPairSource returns a PairSource over the given barcode reader
// and alignment stream.
func NewPairSource(bc io.Reader, br *bam.Reader, maxScan int) *PairSource {
	return &PairSource{
		br:   br,
		sync: NewSynchronizer(fastq.NewScanner(bc, fastq.ID|fastq.Seq), maxScan),
	}
}

// Next returns the next synchronized pair in alignment-file order.
func (s *PairSource) Next() (Pair, error) {
	rec, err := s.br.Read()
	if err == io.EOF {
		return Pair{}, io.EOF
	}
	if err != nil {
		return Pair{}, errors.Wrap(err, "aligned bam")
	}
	bcRead, err := s.sync.Next(rec)
	if err != nil {
		return Pair{}, err
	}
	return Pair{BCSeq: bcRead.Seq, Rec: rec}, nil
}
