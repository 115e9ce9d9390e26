package krylov

import "gonum.org/v1/gonum/mat"

// Refine implements iterative refinement:
//
//	r = b - A*x
//	d = M⁻¹*r
//	x = x + d
//
// repeated until the residual norm meets the stopping criterion or the
// iteration limit is reached. It is intended for use with M set to the
// multifrontal factorization, in which case it recovers accuracy lost to
// roundoff in the partial factorization (or to a lossy/compressed front)
// without the extra bookkeeping of a full Krylov method.
type Refine struct {
	x mat.VecDense
	r mat.VecDense

	resume int
}

// Init initializes the data for a linear solve. See the Method interface.
func (m *Refine) Init(x, residual *mat.VecDense) {
	dim := x.Len()
	if residual.Len() != dim {
		panic("krylov: vector length mismatch")
	}
	m.x.CloneVec(x)
	m.r.CloneVec(residual)
	m.resume = 1
}

// Iterate performs an iteration of the linear solve. See the Method
// interface. Refine commands PreconSolve, ComputeResidual,
// CheckResidualNorm and MajorIteration.
func (m *Refine) Iterate(ctx *Context) (Operation, error) {
	switch m.resume {
	case 1:
		ctx.Src.CopyVec(&m.r)
		m.resume = 2
		return PreconSolve, nil
	case 2:
		m.x.AddScaledVec(&m.x, 1, ctx.Dst)
		ctx.X.CopyVec(&m.x)
		m.resume = 3
		return ComputeResidual, nil
	case 3:
		m.r.CopyVec(ctx.Dst)
		ctx.ResidualNorm = mat.Norm(&m.r, 2)
		m.resume = 4
		return CheckResidualNorm, nil
	case 4:
		m.resume = 1
		return MajorIteration, nil

	default:
		panic("krylov: Init not called")
	}
}
