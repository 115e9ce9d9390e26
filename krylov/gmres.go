package krylov

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// GramSchmidt selects the orthogonalization scheme used by GMRES to build
// the Krylov basis.
type GramSchmidt int

const (
	// Modified uses the modified Gram-Schmidt process (the default). It is
	// more numerically stable than Classical and is the right choice for
	// most fronts.
	Modified GramSchmidt = iota
	// Classical uses the classical Gram-Schmidt process, which is cheaper
	// per step (one pass over the basis instead of a sequential update)
	// but less robust in the presence of near-dependent basis vectors.
	Classical
)

// GMRES implements the restarted Generalized Minimum Residual method for
// solving
//
//	A * x = b
//
// where A is a nonsymmetric, nonsingular matrix, optionally preconditioned
// on the left by the multifrontal factorization. GMRES does not require
// multiplication by Aᵀ.
//
// References:
//   - Barrett, R. et al. (1994). Section 2.3.4 Generalized Minimal Residual
//     (GMRES). In Templates for the Solution of Linear Systems (2nd ed.).
//   - Saad, Y., and Schultz, M. (1986). GMRES: A generalized minimal
//     residual algorithm for solving nonsymmetric linear systems.
//     SIAM J. Sci. Stat. Comput., 7(3), 856.
type GMRES struct {
	// Restart limits computation and storage cost; 1 <= Restart <= n. If
	// zero, n is used, which guarantees convergence at the cost of full
	// Arnoldi storage.
	Restart int

	// Scheme selects Modified or Classical Gram-Schmidt orthogonalization.
	Scheme GramSchmidt

	m int
	// v is an n×(m+1) matrix whose columns form an orthonormal basis of
	// the Krylov subspace.
	v mat.Dense
	// h is an (m+1)×m upper Hessenberg matrix.
	h mat.Dense
	// givs holds the Givens rotations reducing H to upper triangular form.
	givs []givens

	x mat.VecDense
	y mat.VecDense
	s mat.VecDense

	// cgs holds scratch coefficients for the classical Gram-Schmidt pass.
	cgs mat.VecDense

	k      int
	resume int
}

// Init initializes GMRES for a linear solve. See the Method interface.
func (g *GMRES) Init(x, residual *mat.VecDense) {
	dim := x.Len()
	if residual.Len() != dim {
		panic("krylov: vector length mismatch")
	}

	g.m = g.Restart
	if g.m == 0 {
		g.m = dim
	}
	if g.m <= 0 || dim < g.m {
		panic("krylov: invalid value of Restart")
	}

	g.v.Reset()
	g.v.ReuseAs(dim, g.m+1)
	g.vcol(0).CopyVec(residual)

	g.h.Reset()
	g.h.ReuseAs(g.m+1, g.m)

	if cap(g.givs) < g.m {
		g.givs = make([]givens, g.m)
	} else {
		g.givs = g.givs[:g.m]
		for i := range g.givs {
			g.givs[i].c = 0
			g.givs[i].s = 0
		}
	}

	g.x.CloneVec(x)
	g.y.Reset()
	g.y.ReuseAsVec(g.m + 1)
	g.s.Reset()
	g.s.ReuseAsVec(g.m + 1)
	g.cgs.Reset()
	g.cgs.ReuseAsVec(g.m + 1)

	g.resume = 1
}

// Iterate performs an iteration of the linear solve. See the Method
// interface. GMRES commands MulVec, PreconSolve, ComputeResidual,
// CheckResidualNorm, MajorIteration and NoOperation.
func (g *GMRES) Iterate(ctx *Context) (Operation, error) {
	switch g.resume {
	case 1:
		ctx.Src.CopyVec(g.vcol(0))
		g.resume = 2
		return PreconSolve, nil
	case 2:
		v0 := g.vcol(0)
		v0.CopyVec(ctx.Dst)
		norm := mat.Norm(v0, 2)
		v0.ScaleVec(1/norm, v0)
		g.s.Zero()
		g.s.SetVec(0, norm)

		g.k = 0
		fallthrough
	case 3:
		ctx.Src.CopyVec(g.vcol(g.k))
		g.resume = 4
		return MulVec, nil
	case 4:
		ctx.Src.CopyVec(ctx.Dst)
		g.resume = 5
		return PreconSolve, nil
	case 5:
		vk1 := g.vcol(g.k + 1)
		vk1.CopyVec(ctx.Dst)
		switch g.Scheme {
		case Classical:
			g.classicalGS(g.k, &g.h, &g.v, vk1)
		default:
			g.modifiedGS(g.k, &g.h, &g.v, vk1)
		}
		g.qr(g.k, g.givs, &g.h, &g.s)
		ctx.ResidualNorm = math.Abs(g.s.AtVec(g.k + 1))
		g.resume = 6
		return CheckResidualNorm, nil
	case 6:
		g.k++
		if g.k < g.m && !ctx.Converged {
			g.resume = 3
			return NoOperation, nil
		}
		g.solveLeastSquares(g.k, &g.y, &g.h, &g.s)
		g.updateSolution(g.k, &g.x, &g.v, &g.y)
		ctx.X.CopyVec(&g.x)
		if ctx.Converged {
			g.resume = 0
			return MajorIteration, nil
		}
		g.resume = 7
		return ComputeResidual, nil
	case 7:
		g.vcol(0).CopyVec(ctx.Dst)
		g.resume = 1
		return MajorIteration, nil

	default:
		panic("krylov: Init not called")
	}
}

// modifiedGS orthonormalizes w against the first k+1 columns of v using the
// modified Gram-Schmidt algorithm, storing the coefficients in column k of h.
func (g *GMRES) modifiedGS(k int, h, v *mat.Dense, w *mat.VecDense) {
	hk := h.ColView(k).(*mat.VecDense)
	for j := 0; j <= k; j++ {
		vj := v.ColView(j).(*mat.VecDense)
		hkj := mat.Dot(vj, w)
		hk.SetVec(j, hkj)
		w.AddScaledVec(w, -hkj, vj)
	}
	norm := mat.Norm(w, 2)
	hk.SetVec(k+1, norm)
	w.ScaleVec(1/norm, w)
}

// classicalGS performs the same orthonormalization as modifiedGS but
// computes all k+1 projection coefficients against the un-updated w before
// subtracting them, trading numerical robustness for fewer sequential
// dependencies.
func (g *GMRES) classicalGS(k int, h, v *mat.Dense, w *mat.VecDense) {
	hk := h.ColView(k).(*mat.VecDense)
	for j := 0; j <= k; j++ {
		vj := v.ColView(j).(*mat.VecDense)
		g.cgs.SetVec(j, mat.Dot(vj, w))
	}
	for j := 0; j <= k; j++ {
		vj := v.ColView(j).(*mat.VecDense)
		hkj := g.cgs.AtVec(j)
		hk.SetVec(j, hkj)
		w.AddScaledVec(w, -hkj, vj)
	}
	norm := mat.Norm(w, 2)
	hk.SetVec(k+1, norm)
	w.ScaleVec(1/norm, w)
}

// qr applies the previous Givens rotations to column k of h, computes the
// next rotation zeroing h[k+1,k], and applies it to s as well.
func (g *GMRES) qr(k int, givs []givens, h *mat.Dense, s *mat.VecDense) {
	hk := h.ColView(k).(*mat.VecDense)
	for i, giv := range givs[:k] {
		hki, hki1 := giv.apply(hk.AtVec(i), hk.AtVec(i+1))
		hk.SetVec(i, hki)
		hk.SetVec(i+1, hki1)
	}

	givs[k].c, givs[k].s, _, _ = blas64.Rotg(hk.AtVec(k), hk.AtVec(k+1))

	hkk, _ := givs[k].apply(hk.AtVec(k), hk.AtVec(k+1))
	hk.SetVec(k, hkk)

	sk, sk1 := givs[k].apply(s.AtVec(k), s.AtVec(k+1))
	s.SetVec(k, sk)
	s.SetVec(k+1, sk1)
}

// solveLeastSquares solves the upper triangular system H*y = s.
func (g *GMRES) solveLeastSquares(k int, y *mat.VecDense, h *mat.Dense, s *mat.VecDense) {
	y.CopyVec(s.SliceVec(0, k))
	hraw := h.RawMatrix()
	htri := blas64.Triangular{
		Uplo:   blas.Upper,
		Diag:   blas.NonUnit,
		N:      k,
		Data:   hraw.Data,
		Stride: hraw.Stride,
	}
	blas64.Trsv(blas.NoTrans, htri, y.RawVector())
}

// updateSolution sets x = x + V*y = x + Σ y_j v_j for the first k columns.
func (g *GMRES) updateSolution(k int, x *mat.VecDense, v *mat.Dense, y *mat.VecDense) {
	for j := 0; j < k; j++ {
		vj := v.ColView(j)
		x.AddScaledVec(x, y.AtVec(j), vj)
	}
}

func (g *GMRES) vcol(j int) *mat.VecDense {
	return g.v.ColView(j).(*mat.VecDense)
}

// givens is a Givens rotation.
type givens struct {
	c, s float64
}

func (giv *givens) apply(x, y float64) (float64, float64) {
	return giv.c*x + giv.s*y, giv.c*y - giv.s*x
}
