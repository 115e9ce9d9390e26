package mfsolve_test

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/sparsekit/mfsolve/front"
	"github.com/sparsekit/mfsolve/krylov"
	"github.com/sparsekit/mfsolve/mferr"
	"github.com/sparsekit/mfsolve/mfsolve"
)

// laplacian1D returns the CSR triple of the n-point 1-D Laplacian
// (tridiagonal, 2 on the diagonal, -1 off it), the matrix spec §8's S1
// scenario names.
func laplacian1D(n int) (rowPtr, colInd []int, val []float64) {
	rowPtr = make([]int, n+1)
	for i := 0; i < n; i++ {
		rowPtr[i] = len(colInd)
		if i > 0 {
			colInd = append(colInd, i-1)
			val = append(val, -1)
		}
		colInd = append(colInd, i)
		val = append(val, 2)
		if i < n-1 {
			colInd = append(colInd, i+1)
			val = append(val, -1)
		}
	}
	rowPtr[n] = len(colInd)
	return rowPtr, colInd, val
}

// laplacian2D returns the CSR triple of an nx×ny 5-point Laplacian (spec
// §8's S2 scenario).
func laplacian2D(nx, ny int) (n int, rowPtr, colInd []int, val []float64) {
	n = nx * ny
	idx := func(x, y int) int { return y*nx + x }
	rowPtr = make([]int, n+1)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			i := idx(x, y)
			rowPtr[i] = len(colInd)
			type nb struct{ x, y int }
			var nbs []nb
			if y > 0 {
				nbs = append(nbs, nb{x, y - 1})
			}
			if x > 0 {
				nbs = append(nbs, nb{x - 1, y})
			}
			nbs = append(nbs, nb{x, y})
			if x < nx-1 {
				nbs = append(nbs, nb{x + 1, y})
			}
			if y < ny-1 {
				nbs = append(nbs, nb{x, y + 1})
			}
			for _, b := range nbs {
				j := idx(b.x, b.y)
				v := -1.0
				if j == i {
					v = 4.0
				}
				colInd = append(colInd, j)
				val = append(val, v)
			}
		}
	}
	rowPtr[n] = len(colInd)
	return n, rowPtr, colInd, val
}

func denseResidualNorm(n int, rowPtr, colInd []int, val []float64, x, b []float64) float64 {
	r := make([]float64, n)
	copy(r, b)
	for i := 0; i < n; i++ {
		for k := rowPtr[i]; k < rowPtr[i+1]; k++ {
			r[i] -= val[k] * x[colInd[k]]
		}
	}
	norm := 0.0
	for _, v := range r {
		norm += v * v
	}
	return math.Sqrt(norm)
}

func solveAndCheck(t *testing.T, n int, rowPtr, colInd []int, val []float64, opts mfsolve.Options, tol float64) *mfsolve.Solver {
	t.Helper()
	s := mfsolve.New()
	s.SetOptions(opts)
	if err := s.SetMatrix(n, rowPtr, colInd, val); err != nil {
		t.Fatalf("SetMatrix: %v", err)
	}

	b := mat.NewDense(n, 1, nil)
	want := make([]float64, n)
	for i := 0; i < n; i++ {
		want[i] = float64(i%7) + 1
	}
	bVals := make([]float64, n)
	for i := 0; i < n; i++ {
		var acc float64
		for k := rowPtr[i]; k < rowPtr[i+1]; k++ {
			acc += val[k] * want[colInd[k]]
		}
		bVals[i] = acc
		b.Set(i, 0, acc)
	}

	x := mat.NewDense(n, 1, nil)
	code, err := s.Solve(b, x, false)
	if err != nil {
		t.Fatalf("Solve: %v (code %v)", err, code)
	}
	if code != mferr.Success {
		t.Fatalf("Solve returned code %v, want Success", code)
	}

	got := make([]float64, n)
	for i := 0; i < n; i++ {
		got[i] = x.At(i, 0)
	}
	if rn := denseResidualNorm(n, rowPtr, colInd, val, got, bVals); rn > tol {
		t.Errorf("residual norm %g exceeds tolerance %g", rn, tol)
	}
	return s
}

// TestSolveDirect1DLaplacian exercises S1 from spec §8 with KrylovMode
// forced to Direct: a single factorization-apply, no Krylov iteration.
func TestSolveDirect1DLaplacian(t *testing.T) {
	const n = 50
	rowPtr, colInd, val := laplacian1D(n)
	opts := mfsolve.DefaultOptions()
	opts.KrylovMode = krylov.Direct
	s := solveAndCheck(t, n, rowPtr, colInd, val, opts, 1e-8)
	if its := s.KrylovIterations(); its != 0 {
		t.Errorf("Direct mode performed %d Krylov iterations, want 0", its)
	}
}

// TestSolveRefine1DLaplacian exercises the Refine mode.
func TestSolveRefine1DLaplacian(t *testing.T) {
	const n = 40
	rowPtr, colInd, val := laplacian1D(n)
	opts := mfsolve.DefaultOptions()
	opts.KrylovMode = krylov.Refine
	solveAndCheck(t, n, rowPtr, colInd, val, opts, 1e-7)
}

// TestSolve2DLaplacianAuto exercises S2: a 2-D 5-point Laplacian with
// KrylovMode left at Auto (resolves to Refine for an uncompressed, k=1
// solve per the documented heuristic — compression is off here).
func TestSolve2DLaplacianAuto(t *testing.T) {
	n, rowPtr, colInd, val := laplacian2D(8, 8)
	opts := mfsolve.DefaultOptions()
	solveAndCheck(t, n, rowPtr, colInd, val, opts, 1e-7)
}

// TestSolveCompressedPrecGMRES exercises compression (BLR) together with
// PrecGMRES, resolved automatically by Auto for a single right-hand side.
func TestSolveCompressedPrecGMRES(t *testing.T) {
	n, rowPtr, colInd, val := laplacian2D(10, 10)
	opts := mfsolve.DefaultOptions()
	opts.Compression = front.KindBLR
	opts.CompressionMinSepSize = 4
	opts.CompressionMinFrontSize = 8
	opts.RelTol = 1e-10
	s := solveAndCheck(t, n, rowPtr, colInd, val, opts, 1e-6)
	if s.MaximumRank() <= 0 {
		t.Errorf("compressed solve reported MaximumRank %d, want > 0", s.MaximumRank())
	}
}

// TestSolveUnpreconditionedGMRES exercises a mode forced to GMRESMode,
// which must run against the caller's original matrix without a
// factorization (spec's unpreconditioned branch).
func TestSolveUnpreconditionedGMRES(t *testing.T) {
	const n = 30
	rowPtr, colInd, val := laplacian1D(n)
	opts := mfsolve.DefaultOptions()
	opts.KrylovMode = krylov.GMRESMode
	opts.GMRESRestart = n
	opts.MaxIterations = 10 * n
	solveAndCheck(t, n, rowPtr, colInd, val, opts, 1e-6)
}

// TestInertiaCountsMatchSPD checks the supplemented diagonal-sign tracking
// feature: an SPD Laplacian must factor with every pivot positive.
func TestInertiaCountsMatchSPD(t *testing.T) {
	const n = 20
	rowPtr, colInd, val := laplacian1D(n)
	s := mfsolve.New()
	if err := s.SetMatrix(n, rowPtr, colInd, val); err != nil {
		t.Fatalf("SetMatrix: %v", err)
	}
	if _, err := s.Factor(); err != nil {
		t.Fatalf("Factor: %v", err)
	}
	inertia := s.Inertia()
	if inertia.Neg != 0 || inertia.Zero != 0 || inertia.Pos != n {
		t.Errorf("Inertia() = %+v, want all %d pivots positive", inertia, n)
	}
}

// TestFactorReportsSingularFront checks that a structurally singular
// matrix (an isolated zero row) is reported as ZeroInPivot rather than
// panicking or silently producing garbage.
func TestFactorReportsSingularFront(t *testing.T) {
	rowPtr := []int{0, 1, 2}
	colInd := []int{0, 1}
	val := []float64{0, 1}
	s := mfsolve.New()
	if err := s.SetMatrix(2, rowPtr, colInd, val); err != nil {
		t.Fatalf("SetMatrix: %v", err)
	}
	code, err := s.Factor()
	if err == nil {
		t.Fatal("expected a singular-front error")
	}
	if code != mferr.ZeroInPivot {
		t.Errorf("code = %v, want ZERO_IN_PIVOT", code)
	}
}

// TestSetMatrixRejectsMalformedCSR checks that an invalid row_ptr is
// reported as an error instead of panicking.
func TestSetMatrixRejectsMalformedCSR(t *testing.T) {
	s := mfsolve.New()
	err := s.SetMatrix(2, []int{0, 2, 1}, []int{0, 1}, []float64{1, 1})
	if err == nil {
		t.Fatal("expected an error for a non-monotone row_ptr")
	}
}

// TestFactorNonzerosPositive checks FactorNonzeros is populated after a
// successful Factor call.
func TestFactorNonzerosPositive(t *testing.T) {
	const n = 25
	rowPtr, colInd, val := laplacian1D(n)
	s := mfsolve.New()
	if err := s.SetMatrix(n, rowPtr, colInd, val); err != nil {
		t.Fatalf("SetMatrix: %v", err)
	}
	if _, err := s.Factor(); err != nil {
		t.Fatalf("Factor: %v", err)
	}
	if s.FactorNonzeros() <= 0 {
		t.Errorf("FactorNonzeros() = %d, want > 0", s.FactorNonzeros())
	}
}
