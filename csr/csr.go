// Package csr implements the compressed-sparse-row matrix that backs the
// multifrontal solver (component C1): it stores the coefficient matrix A,
// applies the permutations and scalings produced by reordering and matching,
// computes A*x, and extracts the dense front blocks the frontal-matrix
// kernel builds from.
//
// The layout mirrors the row-pointer/column-index/value triple used
// throughout the Gonum sparse examples (see e.g. the CSR type in the
// james-bowman/sparse package), specialized to square matrices and to the
// extraction and permutation operations a multifrontal factorization needs.
package csr

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/sparsekit/mfsolve/matching"
	"github.com/sparsekit/mfsolve/mferr"
)

// Matrix is a square compressed-sparse-row matrix of order N. RowPtr has
// length N+1 and is monotone non-decreasing with RowPtr[0] == 0. Within row
// i, the entries ColInd[RowPtr[i]:RowPtr[i+1]] are sorted ascending and
// Val[RowPtr[i]:RowPtr[i+1]] holds the corresponding values.
type Matrix struct {
	n      int
	rowPtr []int
	colInd []int
	val    []float64
}

// Entry is a single (row, column, value) triple used to build a Matrix.
type Entry struct {
	Row, Col int
	Val      float64
}

// NewFromCSR wraps already-built row_ptr/col_ind/val arrays as a Matrix
// without copying. It panics if the arrays do not satisfy the CSR
// invariants: monotone row_ptr of length n+1 starting at 0, and col indices
// within [0,n).
func NewFromCSR(n int, rowPtr, colInd []int, val []float64) *Matrix {
	if n <= 0 {
		panic("csr: non-positive dimension")
	}
	if len(rowPtr) != n+1 {
		panic("csr: row_ptr has wrong length")
	}
	if rowPtr[0] != 0 {
		panic("csr: row_ptr[0] must be 0")
	}
	for i := 1; i <= n; i++ {
		if rowPtr[i] < rowPtr[i-1] {
			panic("csr: row_ptr is not monotone non-decreasing")
		}
	}
	nnz := rowPtr[n]
	if len(colInd) != nnz || len(val) != nnz {
		panic("csr: col_ind/val length does not match row_ptr[n]")
	}
	for _, j := range colInd {
		if j < 0 || n <= j {
			panic("csr: column index out of range")
		}
	}
	return &Matrix{n: n, rowPtr: rowPtr, colInd: colInd, val: val}
}

// Build constructs a Matrix of order n from an unordered, possibly
// duplicate-containing list of triples; duplicate (row,col) pairs have their
// values summed, matching how extend-add accumulates contributions.
func Build(n int, entries []Entry) *Matrix {
	if n <= 0 {
		panic("csr: non-positive dimension")
	}
	byRow := make([][]Entry, n)
	for _, e := range entries {
		if e.Row < 0 || n <= e.Row || e.Col < 0 || n <= e.Col {
			panic("csr: entry index out of range")
		}
		byRow[e.Row] = append(byRow[e.Row], e)
	}
	rowPtr := make([]int, n+1)
	var colInd []int
	var val []float64
	for i := 0; i < n; i++ {
		row := byRow[i]
		sort.Slice(row, func(a, b int) bool { return row[a].Col < row[b].Col })
		rowPtr[i] = len(colInd)
		var lastCol = -1
		for _, e := range row {
			if e.Col == lastCol {
				val[len(val)-1] += e.Val
				continue
			}
			colInd = append(colInd, e.Col)
			val = append(val, e.Val)
			lastCol = e.Col
		}
	}
	rowPtr[n] = len(colInd)
	return &Matrix{n: n, rowPtr: rowPtr, colInd: colInd, val: val}
}

// N returns the matrix order.
func (m *Matrix) N() int { return m.n }

// NNZ returns the number of stored (structurally non-zero) entries.
func (m *Matrix) NNZ() int { return len(m.val) }

// RowRange returns the half-open range of indices into ColInd/Val occupied
// by row i.
func (m *Matrix) RowRange(i int) (begin, end int) { return m.rowPtr[i], m.rowPtr[i+1] }

// ColInd returns the column index stored at position k.
func (m *Matrix) ColInd(k int) int { return m.colInd[k] }

// Val returns the value stored at position k.
func (m *Matrix) Val(k int) float64 { return m.val[k] }

// SetVal overwrites the value stored at position k, used by
// PermuteAndScale to apply the row/column scalings in place.
func (m *Matrix) SetVal(k int, v float64) { m.val[k] = v }

// At returns A[i,j], scanning row i; it returns 0 if (i,j) is not stored.
// At is intended for tests and small matrices, not hot paths.
func (m *Matrix) At(i, j int) float64 {
	for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
		if m.colInd[k] == j {
			return m.val[k]
		}
	}
	return 0
}

// SpMV computes y = A*x (or y = Aᵀ*x when trans is true).
func (m *Matrix) SpMV(y, x []float64, trans bool) {
	if len(x) != m.n || len(y) != m.n {
		panic("csr: dimension mismatch")
	}
	for i := range y {
		y[i] = 0
	}
	if !trans {
		for i := 0; i < m.n; i++ {
			var sum float64
			for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
				sum += m.val[k] * x[m.colInd[k]]
			}
			y[i] = sum
		}
		return
	}
	for i := 0; i < m.n; i++ {
		xi := x[i]
		if xi == 0 {
			continue
		}
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			y[m.colInd[k]] += m.val[k] * xi
		}
	}
}

// MulVecTo implements krylov.MulVecToer so a *Matrix can drive an
// un-preconditioned Krylov solve directly against the original matrix.
func (m *Matrix) MulVecTo(dst *mat.VecDense, trans bool, x mat.Vector) {
	if dst.Len() != m.n || x.Len() != m.n {
		panic("csr: dimension mismatch")
	}
	xs := make([]float64, m.n)
	for i := range xs {
		xs[i] = x.AtVec(i)
	}
	ys := make([]float64, m.n)
	m.SpMV(ys, xs, trans)
	for i, v := range ys {
		dst.SetVec(i, v)
	}
}

// PermuteAndScale invokes the matching collaborator m for the given job and
// applies its result to the matrix in place: entry (i,j) becomes
// Dr[i]*A[i,j]*Dc[j] at column position Qinv[j], where Qinv is the inverse
// of the returned column permutation Q. The matrix's row structure is
// unchanged; only column indices are remapped and values scaled. Q, Dr, Dc
// are returned so the façade can apply the matching transform to right-hand
// sides and solutions.
func (m *Matrix) PermuteAndScale(job matching.Job, matcher matching.Matcher) (q []int, dr, dc []float64, err error) {
	res, err := matcher.Match(m.n, m.rowPtr, m.colInd, m.val, job)
	if err != nil {
		return nil, nil, nil, &mferr.MatchingError{Err: err}
	}
	qInv := make([]int, m.n)
	for i, j := range res.Perm {
		qInv[j] = i
	}

	newRowPtr := make([]int, m.n+1)
	var newColInd []int
	var newVal []float64
	type colval struct {
		col int
		val float64
	}
	for i := 0; i < m.n; i++ {
		newRowPtr[i] = len(newColInd)
		row := make([]colval, 0, m.rowPtr[i+1]-m.rowPtr[i])
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			j := m.colInd[k]
			row = append(row, colval{qInv[j], res.Dr[i] * m.val[k] * res.Dc[j]})
		}
		sort.Slice(row, func(a, b int) bool { return row[a].col < row[b].col })
		for _, cv := range row {
			newColInd = append(newColInd, cv.col)
			newVal = append(newVal, cv.val)
		}
	}
	newRowPtr[m.n] = len(newColInd)
	m.rowPtr, m.colInd, m.val = newRowPtr, newColInd, newVal

	return res.Perm, res.Dr, res.Dc, nil
}

// SymmetrizeSparsity inserts structural zeros so that (i,j) being stored
// implies (j,i) is stored too. It is value-preserving for existing entries
// and idempotent.
func (m *Matrix) SymmetrizeSparsity() {
	extra := make([][]int, m.n)
	present := func(i, j int) bool {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			if m.colInd[k] == j {
				return true
			}
		}
		return false
	}
	for i := 0; i < m.n; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			j := m.colInd[k]
			if j == i {
				continue
			}
			if !present(j, i) {
				extra[j] = append(extra[j], i)
			}
		}
	}
	needed := false
	for _, e := range extra {
		if len(e) > 0 {
			needed = true
			break
		}
	}
	if !needed {
		return
	}

	newRowPtr := make([]int, m.n+1)
	var newColInd []int
	var newVal []float64
	for i := 0; i < m.n; i++ {
		newRowPtr[i] = len(newColInd)
		row := make([]int, 0, m.rowPtr[i+1]-m.rowPtr[i]+len(extra[i]))
		vals := make(map[int]float64, len(row))
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			row = append(row, m.colInd[k])
			vals[m.colInd[k]] = m.val[k]
		}
		for _, j := range extra[i] {
			if _, ok := vals[j]; !ok {
				row = append(row, j)
				vals[j] = 0
			}
		}
		sort.Ints(row)
		for _, j := range row {
			newColInd = append(newColInd, j)
			newVal = append(newVal, vals[j])
		}
	}
	newRowPtr[m.n] = len(newColInd)
	m.rowPtr, m.colInd, m.val = newRowPtr, newColInd, newVal
}

// Permute rewrites the stored matrix in place so that the receiver becomes
// A'[i,j] = A[iP[i], iP[j]], with rows emitted in destination order and
// columns within each row sorted ascending, as required by ExtractF11 and
// friends.
func (m *Matrix) Permute(p, iP []int) {
	if len(p) != m.n || len(iP) != m.n {
		panic("csr: permutation length mismatch")
	}
	newRowPtr := make([]int, m.n+1)
	var newColInd []int
	var newVal []float64
	type colval struct {
		col int
		val float64
	}
	for dst := 0; dst < m.n; dst++ {
		newRowPtr[dst] = len(newColInd)
		src := iP[dst]
		row := make([]colval, 0, m.rowPtr[src+1]-m.rowPtr[src])
		for k := m.rowPtr[src]; k < m.rowPtr[src+1]; k++ {
			row = append(row, colval{p[m.colInd[k]], m.val[k]})
		}
		sort.Slice(row, func(a, b int) bool { return row[a].col < row[b].col })
		for _, cv := range row {
			newColInd = append(newColInd, cv.col)
			newVal = append(newVal, cv.val)
		}
	}
	newRowPtr[m.n] = len(newColInd)
	m.rowPtr, m.colInd, m.val = newRowPtr, newColInd, newVal
}

// ExtractF11 copies the dim×dim submatrix with both row and column range
// [begin,end) into dest, which is resized to dim×dim. Entries not present in
// A are left as zero.
func (m *Matrix) ExtractF11(dest *mat.Dense, begin, end int) {
	dim := end - begin
	*dest = *mat.NewDense(dim, dim, nil)
	for i := begin; i < end; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			j := m.colInd[k]
			if begin <= j && j < end {
				dest.Set(i-begin, j-begin, m.val[k])
			}
		}
	}
}

// ExtractF12 copies the dim_sep×dim_upd submatrix with row range
// [begin,end) and column set upd (sorted ascending) into dest.
func (m *Matrix) ExtractF12(dest *mat.Dense, begin, end int, upd []int) {
	dimSep := end - begin
	dimUpd := len(upd)
	*dest = *mat.NewDense(dimSep, dimUpd, nil)
	for i := begin; i < end; i++ {
		k := m.rowPtr[i]
		kEnd := m.rowPtr[i+1]
		u := 0
		for k < kEnd && u < dimUpd {
			j := m.colInd[k]
			switch {
			case j < upd[u]:
				k++
			case j > upd[u]:
				u++
			default:
				dest.Set(i-begin, u, m.val[k])
				k++
				u++
			}
		}
	}
}

// ExtractF21 copies the dim_upd×dim_sep submatrix with row set upd and
// column range [begin,end) into dest (the transposed role of ExtractF12).
func (m *Matrix) ExtractF21(dest *mat.Dense, begin, end int, upd []int) {
	dimSep := end - begin
	dimUpd := len(upd)
	*dest = *mat.NewDense(dimUpd, dimSep, nil)
	for r, i := range upd {
		k := m.rowPtr[i]
		kEnd := m.rowPtr[i+1]
		for k < kEnd {
			j := m.colInd[k]
			if j >= end {
				break
			}
			if j >= begin {
				dest.Set(r, j-begin, m.val[k])
			}
			k++
		}
	}
}

func (m *Matrix) String() string {
	return fmt.Sprintf("csr.Matrix{N: %d, NNZ: %d}", m.n, len(m.val))
}
