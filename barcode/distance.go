// Package barcode decodes extracted read fragments against barcode
// whitelists with bounded edit-distance tolerance.
package barcode

import (
	"fmt"
	"strconv"
	"strings"
)

// editMatrix is a 2 dimensional Levenshtein working matrix.
type editMatrix struct {
	nRow, nCol int
	data       []int // row-major nRow*nCol array.
}

func newEditMatrix(n, m int) editMatrix {
	return editMatrix{
		nRow: n,
		nCol: m,
		data: make([]int, n*m),
	}
}

// String returns a string representation of a matrix.
func (m editMatrix) String() (r string) {
	maxLength := 0
	for _, d := range m.data {
		if l := len(strconv.Itoa(d)); l > maxLength {
			maxLength = l
		}
	}

	lines := []string{"\n"}
	for i := 0; i < m.nRow; i++ {
		var parts []string
		for j := 0; j < m.nCol; j++ {
			parts = append(parts, fmt.Sprintf("%0*s", maxLength, strconv.Itoa(m.data[i*m.nCol+j])))
		}
		lines = append(lines, strings.Join(parts, " | "))
	}
	return strings.Join(lines, "\n")
}

// move describes one of the three possible traversals in a Levenshtein
// edit distance matrix.
//
//   ___|___
//    1 | 3
//    2 | 4
//
// (1) diagonal (1 -> 4)
// (2) right (2 -> 4)
// (3) down (3 -> 4)
type move uint8

const (
	diagonal move = iota
	right
	down
)

type moves []move

// contains checks whether the slice contains any move in the given
// slice.
func (o moves) contains(given moves) bool {
	for _, x := range given {
		for _, y := range o {
			if x == y {
				return true
			}
		}
	}
	return false
}

// fillRow computes cells of row i up to column col.
func (m editMatrix) fillRow(i, col int, r1, r2 []byte) {
	for j := 0; j <= col; j++ {
		m.fillCell(i, j, r1, r2)
	}
}

// fillCol computes cells of column j up to row 'row'.
func (m editMatrix) fillCol(j, row int, r1, r2 []byte) {
	for i := 0; i <= row; i++ {
		m.fillCell(i, j, r1, r2)
	}
}

// fillCell computes the cell (i, j) and reports the move(s) that
// produced its value.
func (m editMatrix) fillCell(i, j int, r1, r2 []byte) moves {
	if i == 0 {
		m.data[i*m.nCol+j] = j
		return moves{}
	}
	if j == 0 {
		m.data[i*m.nCol+j] = i
		return moves{}
	}
	if r1[i-1] == r2[j-1] {
		m.data[i*m.nCol+j] = m.data[(i-1)*m.nCol+(j-1)]
		return moves{diagonal}
	}

	downValue := m.data[(i-1)*m.nCol+j] + 1
	diagonalValue := m.data[(i-1)*m.nCol+(j-1)] + 1
	rightValue := m.data[i*m.nCol+(j-1)] + 1

	minValue := downValue
	if diagonalValue < minValue {
		minValue = diagonalValue
	}
	if rightValue < minValue {
		minValue = rightValue
	}

	m.data[i*m.nCol+j] = minValue

	r := moves{}
	if downValue == minValue {
		r = append(r, down)
	}
	if diagonalValue == minValue {
		r = append(r, diagonal)
	}
	if rightValue == minValue {
		r = append(r, right)
	}
	return r
}

// Distance computes the Levenshtein distance between two barcodes of
// equal length.  Because a fixed number of barcode bases are always
// sequenced, bases downstream of the barcode are read in the event of
// a deletion in the barcode sequence; d1 and d2 supply the sequence
// downstream of each barcode so that such deletions are charged
// correctly.  Pass empty downstream strings for a plain distance.
func Distance(b1, b2, d1, d2 string) (distance int) {
	if len(b1) != len(b2) {
		panic(fmt.Sprintf("b1 and b2 must have equal length: '%s', '%s'", b1, b2))
	}

	r1 := []byte(b1)
	r2 := []byte(b2)

	rows := len(r1)
	cols := len(r2)

	m := newEditMatrix(rows+len(d1)+1, cols+len(d2)+1)

	i := 1
	iEnd := rows
	j := 1
	jEnd := cols

	var cellMoves moves
	for {
		if i <= iEnd {
			m.fillRow(i, j-1, r1, r2)
		}

		if j <= jEnd {
			m.fillCol(j, i-1, r1, r2)
		}

		cellMoves = m.fillCell(i, j, r1, r2)

		if i < rows {
			i++
			j++
			continue
		}

		if i >= rows {
			done := true
			if cellMoves.contains(moves{down}) && len(d2) > 0 {
				r2 = append(r2, d2[0])
				d2 = d2[1:]
				done = false
				j++
				jEnd++
			}
			if cellMoves.contains(moves{right}) && len(d1) > 0 {
				r1 = append(r1, d1[0])
				d1 = d1[1:]
				done = false
				i++
				iEnd++
			}
			if done {
				if m.data[rows*m.nCol+cols] <= m.data[i*m.nCol+j] {
					return m.data[rows*m.nCol+cols]
				}
				return m.data[i*m.nCol+j]
			}
		}
	}
}
