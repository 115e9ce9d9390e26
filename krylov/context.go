// Package krylov implements Krylov-subspace methods (GMRES, BiCGStab) and
// iterative refinement used to refine the approximate solution produced by a
// multifrontal LU factorization acting as a left preconditioner.
//
// A Method uses a reverse-communication interface between the iterative
// algorithm and the caller: Method commands an Operation through Context and
// the caller performs it, typically a matrix-vector product against the
// original sparse matrix or a triangular solve against the factorization.
// This keeps the Krylov algorithms independent of how the matrix and the
// preconditioner are represented, which is what lets the multifrontal solver
// reuse them unchanged for both the un-preconditioned case (matching A itself)
// and the preconditioned case (M⁻¹ from the factorization).
package krylov

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// BreakdownError signifies that a method-specific breakdown condition was hit
// and the iteration cannot continue (e.g. a near-zero inner product in BiCG
// methods).
type BreakdownError struct {
	Value     float64
	Tolerance float64
}

func (e *BreakdownError) Error() string {
	return fmt.Sprintf("krylov: breakdown, value=%v tolerance=%v", e.Value, e.Tolerance)
}

// Method is an iterative method that produces a sequence of vectors
// converging to the solution of
//
//	A * x = b
//
// where A is a non-singular n×n matrix.
type Method interface {
	// Init initializes the method for solving an n×n linear system given an
	// initial estimate x and its corresponding residual vector. Init does
	// not retain x or residual.
	Init(x, residual *mat.VecDense)

	// Iterate performs a step toward the solution. It reads and updates
	// ctx and returns the next Operation the caller must perform before
	// calling Iterate again.
	Iterate(ctx *Context) (Operation, error)
}

// Context mediates communication between a Method and the driver loop. The
// driver must not modify Context other than as instructed by the commanded
// Operation.
type Context struct {
	// X holds the current approximate solution when Method commands
	// ComputeResidual or MajorIteration.
	X *mat.VecDense

	// ResidualNorm is set by the driver in response to CheckResidualNorm
	// and read by Method afterwards.
	ResidualNorm float64

	// Converged is set by the driver after CheckResidualNorm to indicate
	// whether the stopping criterion is satisfied.
	Converged bool

	// Src and Dst are the source and destination vectors of MulVec,
	// PreconSolve and ComputeResidual operations.
	Src, Dst *mat.VecDense
}

// NewContext returns a new Context sized for an n-dimensional problem.
func NewContext(n int) *Context {
	if n <= 0 {
		panic("krylov: context size is not positive")
	}
	return &Context{
		X:   mat.NewVecDense(n, nil),
		Src: mat.NewVecDense(n, nil),
		Dst: mat.NewVecDense(n, nil),
	}
}

// Reset reinitializes the Context for an n-dimensional problem.
func (ctx *Context) Reset(n int) {
	if n <= 0 {
		panic("krylov: dimension not positive")
	}
	ctx.X.Reset()
	ctx.X.ReuseAsVec(n)
	ctx.Src.Reset()
	ctx.Src.ReuseAsVec(n)
	ctx.Dst.Reset()
	ctx.Dst.ReuseAsVec(n)
}

// Operation specifies an action commanded by Method.Iterate.
type Operation uint

// Operations commanded by Method.Iterate.
const (
	NoOperation Operation = 0

	// MulVec commands the caller to compute A*x, where x is in
	// Context.Src, and store the result in Context.Dst. For the
	// multifrontal solver, A is the original (permuted, scaled) sparse
	// matrix, applied with csr.Matrix.SpMV.
	MulVec Operation = 1 << (iota - 1)

	// PreconSolve commands the caller to solve M*z = r, r in Context.Src,
	// storing z in Context.Dst. For the multifrontal solver, M is the
	// factorization and the solve is the multifrontal forward/backward
	// sweep.
	PreconSolve

	// Trans indicates that MulVec or PreconSolve must use the transpose:
	// compute Aᵀ*x or solve Mᵀ*z = r. Trans is only ever OR'd with MulVec
	// or PreconSolve.
	Trans

	// ComputeResidual commands the caller to compute b-A*x, x in
	// Context.X, storing the result in Context.Dst.
	ComputeResidual

	// CheckResidualNorm commands the caller to test Context.ResidualNorm
	// against the stopping criterion and set Context.Converged.
	CheckResidualNorm

	// MajorIteration indicates that Method has completed one full
	// iteration and updated Context.X. If Context.Converged is true the
	// caller must stop; otherwise it calls Iterate again.
	MajorIteration
)

const (
	// eps is machine epsilon for float64.
	eps = 1.0 / (1 << 53)

	// breakdownTol is the breakdown tolerance used by BiCG-family methods.
	breakdownTol = eps * eps
)
