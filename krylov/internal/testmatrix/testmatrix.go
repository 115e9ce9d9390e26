// Package testmatrix provides a minimal triplet-built operator used to
// exercise the krylov package's Method implementations without pulling in
// the multifrontal factorization machinery.
package testmatrix

import "gonum.org/v1/gonum/mat"

type entry struct {
	i, j int
	v    float64
}

// Matrix is a square operator built from (row, col, value) triples. It
// implements krylov.MulVecToer so the Krylov methods can be tested against
// small hand-built systems.
type Matrix struct {
	n    int
	data []entry
}

// New returns a new n×n zero matrix.
func New(n int) *Matrix {
	if n <= 0 {
		panic("testmatrix: invalid size")
	}
	return &Matrix{n: n}
}

// Set appends a non-zero entry without checking for duplicates; when
// duplicates are appended their contributions add, mirroring extend-add
// accumulation in the real solver.
func (m *Matrix) Set(i, j int, v float64) {
	if i < 0 || m.n <= i || j < 0 || m.n <= j {
		panic("testmatrix: index out of range")
	}
	if v == 0 {
		return
	}
	m.data = append(m.data, entry{i, j, v})
}

// Dims returns the matrix order.
func (m *Matrix) Dims() int { return m.n }

// MulVecTo computes dst = A*x, or dst = Aᵀ*x when trans is true.
func (m *Matrix) MulVecTo(dst *mat.VecDense, trans bool, x mat.Vector) {
	dst.Zero()
	for _, e := range m.data {
		if trans {
			dst.SetVec(e.j, dst.AtVec(e.j)+e.v*x.AtVec(e.i))
		} else {
			dst.SetVec(e.i, dst.AtVec(e.i)+e.v*x.AtVec(e.j))
		}
	}
}

// Dense returns a row-major dense copy of the matrix, used by tests to
// compute reference solutions.
func (m *Matrix) Dense() [][]float64 {
	d := make([][]float64, m.n)
	for i := range d {
		d[i] = make([]float64, m.n)
	}
	for _, e := range m.data {
		d[e.i][e.j] += e.v
	}
	return d
}
