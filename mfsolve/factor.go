package mfsolve

import (
	"github.com/sparsekit/mfsolve/csr"
	"github.com/sparsekit/mfsolve/elimtree"
	"github.com/sparsekit/mfsolve/front"
)

// rankReporter is satisfied by Compressed fronts; Dense fronts have no
// MaximumRank method, so MaxRank tracking is skipped for them rather than
// forcing every Front implementation to carry an unused method.
type rankReporter interface {
	MaximumRank() int
}

// inertiaReporter is satisfied by any front that tracks diagonal pivot
// signs (currently Dense and Compressed, both via front.Dense).
type inertiaReporter interface {
	Inertia() (neg, zero, pos int)
}

func newFront(policy front.Policy, kind front.Kind) front.Front {
	if kind == front.KindDense {
		return front.NewDense(policy.PivotThreshold)
	}
	return front.NewCompressed(kind, policy.RelTol, policy.AbsTol, policy.PivotThreshold)
}

// factorize runs the factorization driver (C7): post-order traversal of
// tree, building each front from a (already reordered and scaled), folding
// in extend-add contributions from children, and partial-factoring. It
// stops at the first SingularFront, per spec §4.5 ("the driver returns
// ZERO_IN_PIVOT"), leaving fronts up to and including the failing node
// allocated so the caller can inspect Stats so far if useful, but the
// Solver treats any error here as leaving factored == false.
//
// tree.Nodes is post-order (every child has a strictly smaller index than
// its parent), so a single forward pass both factors children before their
// parent and lets each node reach its already-factored children by index.
func factorize(tree *elimtree.Tree, a *csr.Matrix, policy front.Policy) ([]front.Front, Stats, error) {
	n := len(tree.Nodes)
	fronts := make([]front.Front, n)
	var stats Stats

	for s := 0; s < n; s++ {
		node := &tree.Nodes[s]
		f := newFront(policy, node.Kind)
		f.Build(a, node.SepBegin, node.SepEnd, node.Upd)
		for _, c := range node.Children {
			f.ExtendAdd(fronts[c].Upd(), fronts[c].F22())
			fronts[c].Release(false)
		}
		if err := f.PartialFactor(); err != nil {
			fronts[s] = f
			return fronts, stats, err
		}
		stats.add(f.Nonzeros())
		if rr, ok := f.(rankReporter); ok {
			stats.addRank(rr.MaximumRank())
		}
		if ir, ok := f.(inertiaReporter); ok {
			stats.addInertia(ir.Inertia())
		}
		fronts[s] = f
	}
	return fronts, stats, nil
}
