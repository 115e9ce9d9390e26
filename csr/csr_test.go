package csr_test

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/sparsekit/mfsolve/csr"
	"github.com/sparsekit/mfsolve/matching"
)

// tridiagSPD builds the n×n 1-D discrete Laplacian.
func tridiagSPD(n int) *csr.Matrix {
	var entries []csr.Entry
	for i := 0; i < n; i++ {
		entries = append(entries, csr.Entry{Row: i, Col: i, Val: 2})
		if i > 0 {
			entries = append(entries, csr.Entry{Row: i, Col: i - 1, Val: -1})
			entries = append(entries, csr.Entry{Row: i - 1, Col: i, Val: -1})
		}
	}
	return csr.Build(n, entries)
}

func TestBuildDuplicatesAccumulate(t *testing.T) {
	m := csr.Build(2, []csr.Entry{
		{Row: 0, Col: 0, Val: 1},
		{Row: 0, Col: 0, Val: 2},
		{Row: 1, Col: 1, Val: 5},
	})
	if got := m.At(0, 0); got != 3 {
		t.Errorf("At(0,0) = %v, want 3", got)
	}
	if got := m.At(1, 1); got != 5 {
		t.Errorf("At(1,1) = %v, want 5", got)
	}
	if m.NNZ() != 2 {
		t.Errorf("NNZ() = %d, want 2", m.NNZ())
	}
}

func TestSpMV(t *testing.T) {
	const n = 5
	m := tridiagSPD(n)
	x := []float64{1, 2, 3, 4, 5}
	y := make([]float64, n)
	m.SpMV(y, x, false)

	want := make([]float64, n)
	for i := 0; i < n; i++ {
		want[i] = 2 * x[i]
		if i > 0 {
			want[i] -= x[i-1]
		}
		if i < n-1 {
			want[i] -= x[i+1]
		}
	}
	for i := range want {
		if math.Abs(y[i]-want[i]) > 1e-12 {
			t.Errorf("y[%d] = %v, want %v", i, y[i], want[i])
		}
	}
}

func TestMulVecToSatisfiesKrylovInterface(t *testing.T) {
	const n = 4
	m := tridiagSPD(n)
	x := mat.NewVecDense(n, []float64{1, 1, 1, 1})
	dst := mat.NewVecDense(n, nil)
	m.MulVecTo(dst, false, x)
	// For the all-ones vector, the Laplacian applies boundary effects only
	// at the two ends: interior rows sum to zero.
	for i := 1; i < n-1; i++ {
		if math.Abs(dst.AtVec(i)) > 1e-12 {
			t.Errorf("dst[%d] = %v, want 0", i, dst.AtVec(i))
		}
	}
}

// TestPermuteRoundTrip checks property 1 from the solver's test scenarios:
// permute(P) composed with permute(P⁻¹) is the identity on the matrix.
func TestPermuteRoundTrip(t *testing.T) {
	const n = 6
	m := tridiagSPD(n)
	p := []int{5, 0, 3, 1, 4, 2}
	iP := make([]int, n)
	for i, pi := range p {
		iP[pi] = i
	}

	orig := make([][]float64, n)
	for i := 0; i < n; i++ {
		orig[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			orig[i][j] = m.At(i, j)
		}
	}

	m.Permute(p, iP)
	m.Permute(iP, p)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if math.Abs(m.At(i, j)-orig[i][j]) > 1e-12 {
				t.Errorf("At(%d,%d) = %v, want %v after round trip", i, j, m.At(i, j), orig[i][j])
			}
		}
	}
}

func TestPermutePermutesEntries(t *testing.T) {
	const n = 3
	m := csr.Build(n, []csr.Entry{
		{Row: 0, Col: 0, Val: 10},
		{Row: 1, Col: 2, Val: 20},
		{Row: 2, Col: 1, Val: 30},
	})
	// swap rows/cols 0 and 1: p[0]=1, p[1]=0, p[2]=2
	p := []int{1, 0, 2}
	iP := []int{1, 0, 2}
	m.Permute(p, iP)
	// A'[i,j] = A[iP[i], iP[j]]
	if got := m.At(1, 1); got != 10 {
		t.Errorf("At(1,1) = %v, want 10", got)
	}
	if got := m.At(0, 2); got != 20 {
		t.Errorf("At(0,2) = %v, want 20", got)
	}
	if got := m.At(2, 0); got != 30 {
		t.Errorf("At(2,0) = %v, want 30", got)
	}
}

// TestSymmetrizeSparsityIdempotentAndValuePreserving checks property 2.
func TestSymmetrizeSparsityIdempotentAndValuePreserving(t *testing.T) {
	m := csr.Build(3, []csr.Entry{
		{Row: 0, Col: 1, Val: 7},
		{Row: 2, Col: 2, Val: 9},
	})
	m.SymmetrizeSparsity()
	if got := m.At(0, 1); got != 7 {
		t.Errorf("At(0,1) = %v, want 7 (unchanged)", got)
	}
	if got := m.At(1, 0); got != 0 {
		t.Errorf("At(1,0) = %v, want 0 (structural zero)", got)
	}
	nnzAfterFirst := m.NNZ()

	m.SymmetrizeSparsity()
	if m.NNZ() != nnzAfterFirst {
		t.Errorf("SymmetrizeSparsity is not idempotent: NNZ changed from %d to %d", nnzAfterFirst, m.NNZ())
	}
}

func TestExtractF11(t *testing.T) {
	m := tridiagSPD(5)
	var f11 mat.Dense
	m.ExtractF11(&f11, 1, 4)
	r, c := f11.Dims()
	if r != 3 || c != 3 {
		t.Fatalf("ExtractF11 dims = %d×%d, want 3×3", r, c)
	}
	for i := 1; i < 4; i++ {
		for j := 1; j < 4; j++ {
			if got, want := f11.At(i-1, j-1), m.At(i, j); got != want {
				t.Errorf("F11[%d,%d] = %v, want %v", i-1, j-1, got, want)
			}
		}
	}
}

// TestPermuteAndScaleNoScalingBranch checks the non-scaling branch (any job
// other than MAX_PROD_SCALING): values are unchanged, only the column
// permutation is applied.
func TestPermuteAndScaleNoScalingBranch(t *testing.T) {
	// A zero-diagonal permuted identity: S4, "needs matching".
	m := csr.Build(3, []csr.Entry{
		{Row: 0, Col: 1, Val: 7},
		{Row: 1, Col: 2, Val: 9},
		{Row: 2, Col: 0, Val: 11},
	})
	q, dr, dc, err := m.PermuteAndScale(matching.MaxCardinality, matching.Default{})
	if err != nil {
		t.Fatalf("PermuteAndScale failed: %v", err)
	}
	for i := range dr {
		if dr[i] != 1 || dc[i] != 1 {
			t.Errorf("non-scaling branch must return identity scalings, got Dr=%v Dc=%v", dr, dc)
		}
	}
	for i := 0; i < 3; i++ {
		if m.At(i, i) == 0 {
			t.Errorf("row %d has no diagonal entry after matching, Q=%v", i, q)
		}
	}
}

// TestPermuteAndScaleScalingBranch checks property 7 end-to-end through the
// csr package: MAX_PROD_SCALING leaves every diagonal entry unit magnitude.
func TestPermuteAndScaleScalingBranch(t *testing.T) {
	m := csr.Build(3, []csr.Entry{
		{Row: 0, Col: 1, Val: 7},
		{Row: 1, Col: 2, Val: 9},
		{Row: 2, Col: 0, Val: 11},
	})
	_, _, _, err := m.PermuteAndScale(matching.MaxProductScaling, matching.Default{})
	if err != nil {
		t.Fatalf("PermuteAndScale failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		d := math.Abs(m.At(i, i))
		if d == 0 || math.Abs(d-1) > 1e-9 {
			t.Errorf("diagonal(%d) = %v, want magnitude 1", i, d)
		}
	}
}

func TestExtractF12AndF21Agree(t *testing.T) {
	m := tridiagSPD(6)
	begin, end := 2, 4
	upd := []int{0, 1, 4, 5}

	var f12, f21 mat.Dense
	m.ExtractF12(&f12, begin, end, upd)
	m.ExtractF21(&f21, begin, end, upd)

	for i := begin; i < end; i++ {
		for u, j := range upd {
			got := f12.At(i-begin, u)
			want := m.At(i, j)
			if got != want {
				t.Errorf("F12[%d,%d] = %v, want %v", i-begin, u, got, want)
			}
			got2 := f21.At(u, i-begin)
			want2 := m.At(j, i)
			if got2 != want2 {
				t.Errorf("F21[%d,%d] = %v, want %v", u, i-begin, got2, want2)
			}
		}
	}
}
