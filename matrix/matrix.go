// Package matrix accumulates sparse integer count matrices and
// exports them in MatrixMarket exchange format with companion label
// files.
package matrix

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// COO is a sparse integer matrix in coordinate form.
type COO struct {
	nRow, nCol int
	entries    map[coord]int
}

type coord struct{ i, j int }

// New returns an nRow x nCol all-zero matrix.
func New(nRow, nCol int) *COO {
	return &COO{nRow: nRow, nCol: nCol, entries: map[coord]int{}}
}

// Dims returns the matrix dimensions.
func (m *COO) Dims() (nRow, nCol int) { return m.nRow, m.nCol }

// NNZ returns the number of explicitly stored entries.
func (m *COO) NNZ() int { return len(m.entries) }

// Add adds v to the entry at (i, j).
func (m *COO) Add(i, j, v int) {
	if i < 0 || i >= m.nRow || j < 0 || j >= m.nCol {
		panic(fmt.Sprintf("entry (%d, %d) out of range for %dx%d matrix", i, j, m.nRow, m.nCol))
	}
	m.entries[coord{i, j}] += v
}

// At returns the entry at (i, j).
func (m *COO) At(i, j int) int {
	return m.entries[coord{i, j}]
}

// T returns the transpose of m.
func (m *COO) T() *COO {
	t := New(m.nCol, m.nRow)
	for c, v := range m.entries {
		t.entries[coord{c.j, c.i}] = v
	}
	return t
}

// WriteMatrixMarket writes m in MatrixMarket coordinate format with
// 1-based indices, entries ordered by row then column.
func (m *COO) WriteMatrixMarket(w io.Writer) error {
	coords := make([]coord, 0, len(m.entries))
	for c := range m.entries {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].i != coords[j].i {
			return coords[i].i < coords[j].i
		}
		return coords[i].j < coords[j].j
	})

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%%%%MatrixMarket matrix coordinate integer general\n%%\n%d %d %d\n",
		m.nRow, m.nCol, len(coords)); err != nil {
		return err
	}
	for _, c := range coords {
		if _, err := fmt.Fprintf(bw, "%d %d %d\n", c.i+1, c.j+1, m.entries[c]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteDir writes m as dir/matrix.mtx.gz with row labels in
// dir/barcodes.tsv.gz and column labels in dir/features.tsv.gz, all
// gzipped.  The directory is created if needed.
func WriteDir(dir string, m *COO, rowLabels, colLabels []string) error {
	if len(rowLabels) != m.nRow || len(colLabels) != m.nCol {
		return errors.Errorf("label counts (%d, %d) do not match matrix dims (%d, %d)",
			len(rowLabels), len(colLabels), m.nRow, m.nCol)
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return errors.Wrap(err, "create matrix dir")
	}
	if err := writeGz(filepath.Join(dir, "matrix.mtx.gz"), m.WriteMatrixMarket); err != nil {
		return err
	}
	for _, f := range []struct {
		name   string
		labels []string
	}{
		{"barcodes.tsv.gz", rowLabels},
		{"features.tsv.gz", colLabels},
	} {
		labels := f.labels
		err := writeGz(filepath.Join(dir, f.name), func(w io.Writer) error {
			bw := bufio.NewWriter(w)
			for _, l := range labels {
				if _, err := bw.WriteString(l + "\n"); err != nil {
					return err
				}
			}
			return bw.Flush()
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// writeGz writes one gzipped file via fn.
func writeGz(path string, fn func(io.Writer) error) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	gz := gzip.NewWriter(out)
	if err = fn(gz); err != nil {
		out.Close() // nolint: errcheck
		return errors.Wrapf(err, "write %s", path)
	}
	if err = gz.Close(); err != nil {
		out.Close() // nolint: errcheck
		return errors.Wrapf(err, "close %s", path)
	}
	return errors.Wrapf(out.Close(), "close %s", path)
}
