package mfsolve

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/sparsekit/mfsolve/csgraph"
	"github.com/sparsekit/mfsolve/csr"
	"github.com/sparsekit/mfsolve/elimtree"
	"github.com/sparsekit/mfsolve/front"
	"github.com/sparsekit/mfsolve/krylov"
	"github.com/sparsekit/mfsolve/matching"
	"github.com/sparsekit/mfsolve/mferr"
	"github.com/sparsekit/mfsolve/reorder"
)

// krylovErr translates the raw error krylov.Iterative returns into the
// façade's own error taxonomy, so mferr.Classify never has to guess at a
// linsolve-shaped sentinel it doesn't own. ErrIterationLimit becomes a
// *mferr.NoConvergence carrying the iteration count and residual norm the
// Result already reports.
func krylovErr(res *krylov.Result, err error) error {
	if errors.Is(err, krylov.ErrIterationLimit) {
		return &mferr.NoConvergence{
			Iterations:   res.Stats.Iterations,
			ResidualNorm: res.ResidualNorm,
		}
	}
	return err
}

// Solver is the multifrontal LU solver façade (component C10): set a
// matrix, reorder it, factor it, and solve against it, with each stage
// cached so a later stage re-runs the ones before it only when needed.
//
// Mirrors the teacher's linsolve.Context pattern of a single struct that
// owns both the problem state and the scratch buffers a multi-stage
// algorithm accumulates, rather than threading that state through free
// functions.
type Solver struct {
	opts Options

	n        int
	original *csr.Matrix // caller's matrix, untouched, for unpreconditioned Krylov modes
	a        *csr.Matrix // working copy: matched, scaled, and nested-dissection permuted

	q      []int     // matching column permutation (identity if matching disabled)
	dr, dc []float64 // matching row/column scalings (all ones if matching disabled)
	p, iP  []int     // nested-dissection permutation; p[old]=new, iP[new]=old

	graph   *csgraph.Graph
	sepTree *reorder.SeparatorTree
	parts   []*reorder.PartitionTree
	tree    *elimtree.Tree
	fronts  []front.Front

	stats Stats

	reordered bool
	factored  bool

	krylovIts int
}

// New returns a Solver with DefaultOptions and no matrix set.
func New() *Solver {
	return &Solver{opts: DefaultOptions()}
}

// Options returns a pointer to the solver's configuration, for the caller
// to mutate in place before the next Reorder/Factor/Solve call.
func (s *Solver) Options() *Options { return &s.opts }

// SetOptions replaces the solver's configuration wholesale.
func (s *Solver) SetOptions(o Options) { s.opts = o }

// SetMatrix installs the coefficient matrix in CSR form. It invalidates any
// previous reordering and factorization.
func (s *Solver) SetMatrix(n int, rowPtr, colInd []int, val []float64) error {
	if err := checkCSR(n, rowPtr, colInd, val); err != nil {
		return err
	}
	s.n = n
	s.original = csr.NewFromCSR(n, append([]int(nil), rowPtr...), append([]int(nil), colInd...), append([]float64(nil), val...))
	s.reordered = false
	s.factored = false
	s.fronts = nil
	s.stats = Stats{}
	return nil
}

func cloneMatrix(a *csr.Matrix) *csr.Matrix {
	n := a.N()
	rowPtr := make([]int, n+1)
	var colInd []int
	var val []float64
	for i := 0; i < n; i++ {
		begin, end := a.RowRange(i)
		rowPtr[i] = len(colInd)
		for k := begin; k < end; k++ {
			colInd = append(colInd, a.ColInd(k))
			val = append(val, a.Val(k))
		}
	}
	rowPtr[n] = len(colInd)
	return csr.NewFromCSR(n, rowPtr, colInd, val)
}

func buildGraph(a *csr.Matrix) *csgraph.Graph {
	n := a.N()
	rowPtr := make([]int, n+1)
	var colInd []int
	for i := 0; i < n; i++ {
		begin, end := a.RowRange(i)
		rowPtr[i] = len(colInd)
		for k := begin; k < end; k++ {
			colInd = append(colInd, a.ColInd(k))
		}
	}
	rowPtr[n] = len(colInd)
	return csgraph.FromCSR(n, rowPtr, colInd)
}

// Reorder runs matching (C4, if enabled), nested dissection (C3), and
// elimination-tree construction (C5). Factor calls it automatically if it
// has not already been run against the current matrix.
func (s *Solver) Reorder() (mferr.ReturnCode, error) {
	if s.original == nil {
		return mferr.MatrixNotSet, &mferr.InvalidInput{Msg: "no matrix set"}
	}
	if err := s.opts.Validate(); err != nil {
		return mferr.ReorderingFailed, err
	}

	s.a = cloneMatrix(s.original)

	if s.opts.Matching == matching.None {
		s.q = identity(s.n)
		s.dr = ones(s.n)
		s.dc = ones(s.n)
	} else {
		q, dr, dc, err := s.a.PermuteAndScale(s.opts.Matching, matching.Default{})
		if err != nil {
			return mferr.ReorderingFailed, err
		}
		s.q, s.dr, s.dc = q, dr, dc
	}

	s.a.SymmetrizeSparsity()
	g := buildGraph(s.a)

	p, iP, sepTree, err := reorder.NestedDissection(g, s.opts.Geometry)
	if err != nil {
		return mferr.ReorderingFailed, err
	}
	s.p, s.iP, s.sepTree = p, iP, sepTree

	s.a.Permute(p, iP)
	s.graph = buildGraph(s.a)

	if s.opts.Compression != front.KindDense {
		s.parts = reorder.SeparatorReordering(s.graph, s.sepTree)
	} else {
		s.parts = nil
	}

	s.tree = elimtree.Build(s.sepTree, s.graph, s.opts.frontPolicy())
	s.reordered = true
	s.factored = false
	return mferr.Success, nil
}

func identity(n int) []int {
	id := make([]int, n)
	for i := range id {
		id[i] = i
	}
	return id
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

// Factor runs the multifrontal factorization driver (C7), reordering first
// if Reorder has not already been called against the current matrix.
func (s *Solver) Factor() (mferr.ReturnCode, error) {
	if s.original == nil {
		return mferr.MatrixNotSet, &mferr.InvalidInput{Msg: "no matrix set"}
	}
	if err := s.opts.Validate(); err != nil {
		return mferr.ReorderingFailed, err
	}
	if !s.reordered {
		if code, err := s.Reorder(); err != nil {
			return code, err
		}
	}

	fronts, stats, err := factorize(s.tree, s.a, s.opts.frontPolicy())
	s.fronts, s.stats = fronts, stats
	if err != nil {
		s.factored = false
		return mferr.Classify(err), err
	}
	s.factored = true
	return mferr.Success, nil
}

func (s *Solver) compressed() bool { return s.opts.Compression != front.KindDense }

// methodFor builds the krylov.Method for mode, or nil for Direct (handled
// as a single non-iterative apply rather than through krylov.Iterative).
func (s *Solver) methodFor(mode krylov.Mode) krylov.Method {
	switch mode {
	case krylov.GMRESMode, krylov.PrecGMRES:
		return &krylov.GMRES{Restart: s.opts.GMRESRestart, Scheme: s.opts.GramSchmidt}
	case krylov.BiCGStabMode, krylov.PrecBiCGStab:
		return &krylov.BiCGStab{}
	case krylov.Refine:
		return &krylov.Refine{}
	default:
		return nil
	}
}

// preconSolve adapts multifrontalSolve to krylov.Settings.PreconSolve.
// Neither GMRES nor BiCGStab ever command the transposed operation (both
// only ever request the plain PreconSolve), so trans=true is unreachable
// and is rejected rather than silently solving the wrong system.
func (s *Solver) preconSolve(dst *mat.VecDense, trans bool, rhs mat.Vector) error {
	if trans {
		panic("mfsolve: transposed preconditioner solve is not supported")
	}
	b := mat.NewDense(s.n, 1, nil)
	for i := 0; i < s.n; i++ {
		b.Set(i, 0, rhs.AtVec(i))
	}
	multifrontalSolve(s.tree, s.fronts, b)
	for i := 0; i < s.n; i++ {
		dst.SetVec(i, b.At(i, 0))
	}
	return nil
}

// Solve solves A*x = b for every column of b, writing the result into x (x
// and b must have the same, N×k, shape). When useInitialGuess is true, x's
// incoming contents seed the Krylov iteration (ignored for Direct mode,
// which has no iteration to seed). Factor is invoked automatically if
// needed, except when the resolved mode is GMRESMode or BiCGStabMode,
// which run unpreconditioned against the caller's original matrix.
func (s *Solver) Solve(b, x *mat.Dense, useInitialGuess bool) (mferr.ReturnCode, error) {
	if s.original == nil {
		return mferr.MatrixNotSet, &mferr.InvalidInput{Msg: "no matrix set"}
	}
	if err := s.opts.Validate(); err != nil {
		return mferr.ReorderingFailed, err
	}
	n, k := b.Dims()
	mode := krylov.ResolveAuto(s.opts.KrylovMode, s.compressed(), k)

	if mode == krylov.GMRESMode || mode == krylov.BiCGStabMode {
		return s.solveUnpreconditioned(mode, b, x, useInitialGuess)
	}

	if !s.factored {
		if code, err := s.Factor(); err != nil {
			return code, err
		}
	}

	bt := s.transformRHS(b)
	var xt *mat.Dense
	if useInitialGuess {
		xt = s.transformRHS(x)
	}

	xSolved := mat.NewDense(n, k, nil)
	s.krylovIts = 0

	for col := 0; col < k; col++ {
		if mode == krylov.Direct {
			bm := columnDense(bt, col)
			multifrontalSolve(s.tree, s.fronts, bm)
			setColumn(xSolved, col, columnVec(bm, 0))
			continue
		}

		settings := &krylov.Settings{
			RelTolerance:  s.opts.KrylovRelTol,
			AbsTolerance:  s.opts.KrylovAbsTol,
			MaxIterations: s.opts.MaxIterations,
			PreconSolve:   s.preconSolve,
		}
		if useInitialGuess {
			settings.InitX = columnVec(xt, col)
		}

		res, err := krylov.Iterative(s.a, columnVec(bt, col), s.methodFor(mode), settings)
		if res.Stats.Iterations > s.krylovIts {
			s.krylovIts = res.Stats.Iterations
		}
		setColumn(xSolved, col, res.X)
		if err != nil {
			// res.X still holds the latest iterate; transform what was
			// solved so far back before reporting the failure.
			s.transformSolution(xSolved, x)
			err = krylovErr(res, err)
			return mferr.Classify(err), err
		}
	}

	s.transformSolution(xSolved, x)
	return mferr.Success, nil
}

// solveUnpreconditioned runs GMRES/BiCGStab with M = I directly against
// the caller's original matrix: no reordering, scaling, or factorization
// is involved, so the vector transforms of transformRHS/transformSolution
// do not apply.
func (s *Solver) solveUnpreconditioned(mode krylov.Mode, b, x *mat.Dense, useInitialGuess bool) (mferr.ReturnCode, error) {
	_, k := b.Dims()
	s.krylovIts = 0
	for col := 0; col < k; col++ {
		settings := &krylov.Settings{
			RelTolerance:  s.opts.KrylovRelTol,
			AbsTolerance:  s.opts.KrylovAbsTol,
			MaxIterations: s.opts.MaxIterations,
		}
		if useInitialGuess {
			settings.InitX = columnVec(x, col)
		}
		res, err := krylov.Iterative(s.original, columnVec(b, col), s.methodFor(mode), settings)
		if res.Stats.Iterations > s.krylovIts {
			s.krylovIts = res.Stats.Iterations
		}
		setColumn(x, col, res.X)
		if err != nil {
			err = krylovErr(res, err)
			return mferr.Classify(err), err
		}
	}
	return mferr.Success, nil
}

// KrylovIterations reports the largest per-column iteration count of the
// most recent Solve call (0 for Direct mode).
func (s *Solver) KrylovIterations() int { return s.krylovIts }

// FactorNonzeros reports the most recent Factor call's total stored
// entries across all fronts.
func (s *Solver) FactorNonzeros() int { return s.stats.Nonzeros }

// MaximumRank reports the largest rank any compressed front truncated an
// off-diagonal or Schur block to during the most recent Factor call (0
// when compression is disabled).
func (s *Solver) MaximumRank() int { return s.stats.MaxRank }

// Inertia reports the running count of negative/zero/positive diagonal
// pivots across every front, accumulated during the most recent Factor
// call.
func (s *Solver) Inertia() Inertia { return s.stats.Inertia }
