// Package mmio reads a coefficient matrix from the Matrix Market coordinate
// format, the optional on-disk-format collaborator spec §6 allows alongside
// the in-memory csr.Build entry point.
//
// Grounded on gonum's own linsolve/internal/mmarket reader: the same
// bufio.Scanner-driven header/size/triples parse, adapted to build a
// csr.Matrix (via csr.Build, which already sums duplicate (row,col) entries
// the way a symmetric Matrix Market file's implied mirror entries need) in
// place of linsolve's own triplet.Matrix.
package mmio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sparsekit/mfsolve/csr"
)

var (
	errBadFormat   = errors.New("mmio: bad file format")
	errUnsupported = errors.New("mmio: matrix type not supported")
)

// Read parses a real-valued coordinate-format Matrix Market stream and
// returns the resulting square matrix. A "symmetric" header mirrors each
// off-diagonal entry, matching the format's convention of storing only one
// triangle.
func Read(r io.Reader) (*csr.Matrix, error) {
	s := bufio.NewScanner(r)

	if !s.Scan() {
		return nil, firstErr(s, errBadFormat)
	}
	header := strings.Fields(s.Text())
	if len(header) < 5 || header[0] != "%%MatrixMarket" {
		return nil, errBadFormat
	}
	if header[1] != "matrix" || header[2] != "coordinate" {
		return nil, errBadFormat
	}
	if header[3] != "real" && header[3] != "integer" {
		return nil, errUnsupported
	}
	symmetric := header[4] == "symmetric"

	var nr, nc, nnz int
	for s.Scan() {
		line := s.Text()
		if line == "" || line[0] == '%' {
			continue
		}
		n, err := fmt.Sscan(line, &nr, &nc, &nnz)
		if err != nil {
			return nil, err
		}
		if n != 3 {
			return nil, errBadFormat
		}
		break
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if nr != nc {
		return nil, errUnsupported
	}
	if symmetric && nr != nc {
		return nil, errBadFormat
	}

	entries := make([]csr.Entry, 0, nnz)
	for i := 0; i < nnz; i++ {
		if !s.Scan() {
			return nil, firstErr(s, errBadFormat)
		}
		var (
			row, col int
			val      float64
		)
		n, err := fmt.Sscan(s.Text(), &row, &col, &val)
		if err != nil {
			return nil, err
		}
		if n != 3 {
			return nil, errBadFormat
		}
		if row < 1 || nr < row || col < 1 || nc < col {
			return nil, errBadFormat
		}
		entries = append(entries, csr.Entry{Row: row - 1, Col: col - 1, Val: val})
		if symmetric && row != col {
			entries = append(entries, csr.Entry{Row: col - 1, Col: row - 1, Val: val})
		}
	}

	return csr.Build(nr, entries), nil
}

func firstErr(s *bufio.Scanner, fallback error) error {
	if err := s.Err(); err != nil {
		return err
	}
	return fallback
}
