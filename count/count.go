// Package count corrects UMIs in a coordinate-sorted tagged BAM and
// assembles the sparse read and UMI count matrices.
package count

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"

	"github.com/sdrtools/sdrcount/matrix"
	"github.com/sdrtools/sdrcount/tags"
	"github.com/sdrtools/sdrcount/umi"
)

// Result holds the assembled matrices.  Rows are complete barcode
// keys in lexicographic order; columns are references in
// declaration order.
type Result struct {
	// Reads counts reads per (barcode, reference).
	Reads *matrix.COO
	// UMIs counts distinct corrected UMIs per (barcode, reference).
	UMIs *matrix.COO
	// Barcodes holds the row labels.
	Barcodes []string
	// References holds the column labels.
	References []string
}

// CorrectAndCount streams the coordinate-sorted tagged BAM at inPath,
// rewrites every record's UMI to its canonical value, writes the
// result to outPath, and accumulates the count matrices.
//
// The run makes two passes.  The first collects, per reference, the
// raw UMI multiset of every cell barcode plus the set of complete
// barcode keys; correction mappings are then built per reference in
// parallel (references are independent, so collection order does not
// matter).  The second pass rewrites and counts while streaming, so
// memory is bounded by one reference's UMI set at a time.
func CorrectAndCount(inPath, outPath string, threads int) (*Result, error) {
	header, perRef, completeSet, err := scanCounts(inPath)
	if err != nil {
		return nil, err
	}
	refs := header.Refs()

	corrections := make([]umi.Correction, len(refs))
	err = traverse.Each(len(refs), func(i int) error {
		corrections[i] = umi.Cluster(perRef[i])
		return nil
	})
	if err != nil {
		return nil, err
	}

	barcodes := make([]string, 0, len(completeSet))
	for bc := range completeSet {
		barcodes = append(barcodes, bc)
	}
	sort.Strings(barcodes)
	bcIdx := make(map[string]int, len(barcodes))
	for i, bc := range barcodes {
		bcIdx[bc] = i
	}
	refNames := make([]string, len(refs))
	for j, ref := range refs {
		refNames[j] = ref.Name()
	}

	// Accumulate in transpose (reference x barcode) since the input is
	// grouped by reference, then flip for export.
	readsT := matrix.New(len(refs), len(barcodes))
	umisT := matrix.New(len(refs), len(barcodes))
	if err := rewritePass(inPath, outPath, header, threads, corrections, bcIdx, readsT, umisT); err != nil {
		return nil, err
	}

	return &Result{
		Reads:      readsT.T(),
		UMIs:       umisT.T(),
		Barcodes:   barcodes,
		References: refNames,
	}, nil
}

// scanCounts is the first pass: per-reference raw UMI counts keyed by
// cell barcode, plus the set of complete barcode keys.
func scanCounts(path string) (*sam.Header, []map[string]map[string]int, map[string]bool, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "open %s", path)
	}
	defer in.Close() // nolint: errcheck
	br, err := bam.NewReader(in, 1)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "read %s", path)
	}
	defer br.Close() // nolint: errcheck

	header := br.Header()
	perRef := make([]map[string]map[string]int, len(header.Refs()))
	for i := range perRef {
		perRef[i] = map[string]map[string]int{}
	}
	completeSet := map[string]bool{}
	for {
		rec, err := br.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "read %s", path)
		}
		if rec.Ref == nil {
			continue
		}
		cb := tags.MustGet(rec, tags.CellBarcode)
		ur := tags.MustGet(rec, tags.RawUMI)
		umis := perRef[rec.Ref.ID()][cb]
		if umis == nil {
			umis = map[string]int{}
			perRef[rec.Ref.ID()][cb] = umis
		}
		umis[ur]++
		completeSet[tags.CompleteBarcode(rec)] = true
	}
	return header, perRef, completeSet, nil
}

// rewritePass is the second pass: stream records, set the canonical
// UMI, write the output BAM, and fold per-reference counts into the
// transposed matrices.
func rewritePass(inPath, outPath string, header *sam.Header, threads int,
	corrections []umi.Correction, bcIdx map[string]int, readsT, umisT *matrix.COO) error {
	in, err := os.Open(inPath)
	if err != nil {
		return errors.Wrapf(err, "open %s", inPath)
	}
	defer in.Close() // nolint: errcheck
	br, err := bam.NewReader(in, 1)
	if err != nil {
		return errors.Wrapf(err, "read %s", inPath)
	}
	defer br.Close() // nolint: errcheck

	out, err := os.Create(outPath)
	if err != nil {
		return errors.Wrapf(err, "create %s", outPath)
	}
	bw, err := bam.NewWriter(out, header, threads)
	if err != nil {
		out.Close() // nolint: errcheck
		return errors.Wrapf(err, "write %s", outPath)
	}

	// cur accumulates one reference's corrected UMI counts keyed by
	// complete barcode.  The input is reference-grouped, so cur is
	// flushed whenever the reference changes.
	cur := map[string]map[string]int{}
	curRef := -1
	flush := func() {
		for bc, umis := range cur {
			i := bcIdx[bc]
			total := 0
			for _, n := range umis {
				total += n
			}
			readsT.Add(curRef, i, total)
			umisT.Add(curRef, i, len(umis))
		}
		cur = map[string]map[string]int{}
	}

	for {
		rec, err := br.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", inPath)
		}
		if rec.Ref == nil {
			// No reference grouping to correct against; the raw UMI
			// stands as canonical and the record is not counted.
			tags.Set(rec, tags.UMI, tags.MustGet(rec, tags.RawUMI))
		} else {
			refID := rec.Ref.ID()
			if refID != curRef {
				if curRef >= 0 {
					flush()
				}
				curRef = refID
				log.Printf("  %s", rec.Ref.Name())
			}
			corrections[refID].Correct(rec)
			bc := tags.CompleteBarcode(rec)
			ub := tags.MustGet(rec, tags.UMI)
			umis := cur[bc]
			if umis == nil {
				umis = map[string]int{}
				cur[bc] = umis
			}
			umis[ub]++
		}
		if err := bw.Write(rec); err != nil {
			bw.Close() // nolint: errcheck
			out.Close() // nolint: errcheck
			return errors.Wrapf(err, "write %s", outPath)
		}
	}
	if curRef >= 0 {
		flush()
	}
	if err := bw.Close(); err != nil {
		out.Close() // nolint: errcheck
		return errors.Wrapf(err, "close %s", outPath)
	}
	return errors.Wrapf(out.Close(), "close %s", outPath)
}

// WriteMatrices exports the read and UMI matrices under outputDir.
// An existing matrix directory marks the stage as already completed
// and the export is skipped, keeping multi-stage runs resumable.
func (r *Result) WriteMatrices(outputDir string) error {
	readsDir := filepath.Join(outputDir, "raw_reads_bc_matrix")
	umisDir := filepath.Join(outputDir, "raw_umis_bc_matrix")
	for _, dir := range []string{readsDir, umisDir} {
		if _, err := os.Stat(dir); err == nil {
			log.Printf("matrix output %s exists, skipping count matrix build", dir)
			return nil
		}
	}
	if err := matrix.WriteDir(readsDir, r.Reads, r.Barcodes, r.References); err != nil {
		return err
	}
	return matrix.WriteDir(umisDir, r.UMIs, r.Barcodes, r.References)
}
