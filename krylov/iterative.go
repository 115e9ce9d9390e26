package krylov

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

const (
	defaultRelTolerance = 1e-8
	defaultAbsTolerance = 0
)

// ErrIterationLimit is returned when MaxIterations were performed without
// satisfying the stopping criterion. The caller still receives the latest
// iterate.
var ErrIterationLimit = errors.New("krylov: iteration limit reached")

// MulVecToer represents the (possibly implicit) square matrix A by means of
// a matrix-vector multiplication. The multifrontal solver's façade adapts
// csr.Matrix to this interface using csr.Matrix.SpMV.
type MulVecToer interface {
	// MulVecTo computes A*x or Aᵀ*x and stores the result into dst.
	MulVecTo(dst *mat.VecDense, trans bool, x mat.Vector)
}

// Settings holds settings for solving a linear system iteratively.
type Settings struct {
	// InitX holds the initial guess. If nil or empty, the zero vector is
	// used; otherwise its length must equal the system dimension.
	InitX *mat.VecDense

	// Dst, if not nil, receives the approximate solution; otherwise a new
	// vector is allocated. If not empty, its length must equal the system
	// dimension.
	Dst *mat.VecDense

	// RelTolerance and AbsTolerance specify the stopping criterion
	//
	//	‖r_i‖ ≤ RelTolerance·‖b‖ + AbsTolerance
	//
	// where r_i is the (possibly preconditioned) residual at the i-th
	// iteration. If RelTolerance is zero, a default of 1e-8 is used; it
	// must otherwise be positive and less than 1. AbsTolerance defaults to
	// zero and must not be negative.
	RelTolerance float64
	AbsTolerance float64

	// MaxIterations is the iteration limit. If zero, a default of 4 times
	// the system dimension is used.
	MaxIterations int

	// PreconSolve solves M*dst = rhs or Mᵀ*dst = rhs, where M is the
	// preconditioning matrix. If nil, no preconditioning is used (M is the
	// identity). For the multifrontal solver this is the forward/backward
	// multifrontal solve against the factorization.
	PreconSolve func(dst *mat.VecDense, trans bool, rhs mat.Vector) error

	// Work, if provided, is reused across solves to reduce allocation. Its
	// fields must be either empty or sized to the system dimension.
	Work *Context
}

func defaultSettings(s *Settings, dim int) {
	if s.InitX != nil && s.InitX.Len() == 0 {
		s.InitX.ReuseAsVec(dim)
	}
	if s.Dst == nil {
		s.Dst = mat.NewVecDense(dim, nil)
	} else if s.Dst.Len() == 0 {
		s.Dst.ReuseAsVec(dim)
	}
	if s.RelTolerance == 0 {
		s.RelTolerance = defaultRelTolerance
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = 4 * dim
	}
	if s.PreconSolve == nil {
		s.PreconSolve = NoPreconditioner
	}
	if s.Work == nil {
		s.Work = NewContext(dim)
	} else {
		if s.Work.X.Len() == 0 {
			s.Work.X.ReuseAsVec(dim)
		}
		if s.Work.Src.Len() == 0 {
			s.Work.Src.ReuseAsVec(dim)
		}
		if s.Work.Dst.Len() == 0 {
			s.Work.Dst.ReuseAsVec(dim)
		}
	}
}

func checkSettings(s *Settings, dim int) {
	if s.InitX != nil && s.InitX.Len() != dim {
		panic("krylov: mismatched length of initial guess")
	}
	if s.Dst.Len() != dim {
		panic("krylov: mismatched destination length")
	}
	if s.RelTolerance <= 0 || 1 <= s.RelTolerance {
		panic("krylov: invalid relative tolerance")
	}
	if s.AbsTolerance < 0 {
		panic("krylov: invalid absolute tolerance")
	}
	if s.MaxIterations <= 0 {
		panic("krylov: negative iteration limit")
	}
	if s.Work.X.Len() != dim || s.Work.Src.Len() != dim || s.Work.Dst.Len() != dim {
		panic("krylov: mismatched work context length")
	}
}

// Result holds the result of an iterative solve.
type Result struct {
	// X is the approximate solution.
	X *mat.VecDense

	// ResidualNorm approximates the norm of the final residual.
	ResidualNorm float64

	// Stats holds statistics about the solve.
	Stats Stats
}

// Stats holds statistics about an iterative solve.
type Stats struct {
	// Iterations is the number of major iterations performed, reported to
	// the caller as Krylov_its.
	Iterations int

	// MulVec counts MulVec operations commanded.
	MulVec int

	// PreconSolve counts PreconSolve operations commanded.
	PreconSolve int
}

// Iterative finds an approximate solution of A*x = b, where A is a
// nonsingular n×n matrix, using the iterative method m. If m is nil, GMRES
// with default settings is used.
//
// If settings is nil, default settings are used; Iterative never modifies
// the fields of settings.
func Iterative(a MulVecToer, b *mat.VecDense, m Method, settings *Settings) (*Result, error) {
	n := b.Len()

	var s Settings
	if settings != nil {
		s = *settings
	}
	defaultSettings(&s, n)
	checkSettings(&s, n)

	var stats Stats
	ctx := s.Work
	rInit := mat.NewVecDense(n, nil)
	if s.InitX != nil {
		ctx.X.CloneVec(s.InitX)
		computeResidual(rInit, a, b, ctx.X, &stats)
	} else {
		ctx.X.Zero()
		rInit.CopyVec(b)
	}

	if m == nil {
		m = &GMRES{}
	}

	bNorm := mat.Norm(b, 2)
	if bNorm == 0 {
		bNorm = 1
	}
	threshold := s.RelTolerance*bNorm + s.AbsTolerance

	var err error
	ctx.ResidualNorm = mat.Norm(rInit, 2)
	if ctx.ResidualNorm <= threshold {
		s.Dst.CopyVec(ctx.X)
	} else {
		err = iterate(a, b, rInit, s, m, threshold, &stats)
	}

	return &Result{
		X:            s.Dst,
		ResidualNorm: ctx.ResidualNorm,
		Stats:        stats,
	}, err
}

func iterate(a MulVecToer, b, initRes *mat.VecDense, settings Settings, method Method, threshold float64, stats *Stats) error {
	ctx := settings.Work
	settings.Dst.CopyVec(ctx.X)

	method.Init(ctx.X, initRes)
	for {
		op, err := method.Iterate(ctx)
		if err != nil {
			return err
		}
		switch op {
		case NoOperation:
		case MulVec, MulVec | Trans:
			stats.MulVec++
			a.MulVecTo(ctx.Dst, op&Trans == Trans, ctx.Src)
		case PreconSolve, PreconSolve | Trans:
			stats.PreconSolve++
			err = settings.PreconSolve(ctx.Dst, op&Trans == Trans, ctx.Src)
			if err != nil {
				return err
			}
		case CheckResidualNorm:
			ctx.Converged = ctx.ResidualNorm <= threshold
		case ComputeResidual:
			computeResidual(ctx.Dst, a, b, ctx.X, stats)
		case MajorIteration:
			stats.Iterations++
			if ctx.Converged {
				settings.Dst.CopyVec(ctx.X)
				return nil
			}
			if stats.Iterations == settings.MaxIterations {
				settings.Dst.CopyVec(ctx.X)
				return ErrIterationLimit
			}
		default:
			panic("krylov: invalid operation")
		}
	}
}

// NoPreconditioner implements the identity preconditioner M = I.
func NoPreconditioner(dst *mat.VecDense, trans bool, rhs mat.Vector) error {
	if dst.Len() != rhs.Len() {
		panic("krylov: mismatched vector length")
	}
	dst.CloneVec(rhs)
	return nil
}

func computeResidual(dst *mat.VecDense, a MulVecToer, b, x *mat.VecDense, stats *Stats) {
	stats.MulVec++
	a.MulVecTo(dst, false, x)
	dst.AddScaledVec(b, -1, dst)
}
