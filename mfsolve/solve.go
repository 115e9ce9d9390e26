package mfsolve

import (
	"gonum.org/v1/gonum/mat"

	"github.com/sparsekit/mfsolve/elimtree"
	"github.com/sparsekit/mfsolve/front"
)

// multifrontalSolve runs the multifrontal triangular solve (C8) against b
// (N×k, already permuted into factor order and row-scaled if matching is
// active), overwriting b in place with the solution of L·U·x = b in the
// permuted/scaled space. fronts must be the output of factorize over tree.
func multifrontalSolve(tree *elimtree.Tree, fronts []front.Front, b *mat.Dense) {
	forwardSweep(tree, fronts, b)
	backwardSweep(tree, fronts, b)
}

// sepView returns the rows [begin,end) of b as a *mat.Dense sharing b's
// backing array, so writes during fwd/bwd solve land directly in b.
func sepView(b *mat.Dense, begin, end int) *mat.Dense {
	_, k := b.Dims()
	return b.Slice(begin, end, 0, k).(*mat.Dense)
}

// scatterAddRows adds src's rows into dst's rows at the positions given by
// mapping each entry of srcIdx (sorted, global indices belonging to dst's
// own separator ∪ upd) through front.MapIndex, routing into sepPart or
// updPart depending on whether the mapped index falls below dimSep. This
// is the same index map front.Dense.ExtendAdd uses for F22,
// applied here to the per-node RHS update vectors spec §4.6 describes.
func scatterAddRows(dimSep int, sepPart, updPart *mat.Dense, sepBegin, sepEnd int, upd []int, srcIdx []int, src mat.Matrix) {
	r, k := src.Dims()
	for i := 0; i < r; i++ {
		d := front.MapIndex(srcIdx[i], sepBegin, sepEnd, upd)
		for j := 0; j < k; j++ {
			v := src.At(i, j)
			if d < dimSep {
				sepPart.Set(d, j, sepPart.At(d, j)+v)
			} else {
				updPart.Set(d-dimSep, j, updPart.At(d-dimSep, j)+v)
			}
		}
	}
}

// gatherRows is scatterAddRows's inverse: it reads the rows of
// sepPart/updPart at the positions dstIdx maps to (via the same index map)
// and writes them into dst, used by the backward sweep to extract a
// child's y_upd from its parent's already-solved (y_sep,y_upd).
func gatherRows(dimSep int, sepPart, updPart *mat.Dense, sepBegin, sepEnd int, upd []int, dstIdx []int, dst *mat.Dense) {
	_, k := dst.Dims()
	for i, idx := range dstIdx {
		d := front.MapIndex(idx, sepBegin, sepEnd, upd)
		for j := 0; j < k; j++ {
			var v float64
			if d < dimSep {
				v = sepPart.At(d, j)
			} else {
				v = updPart.At(d-dimSep, j)
			}
			dst.Set(i, j, v)
		}
	}
}

// forwardSweep implements spec §4.6's post-order forward sweep: recurse
// into children, extend-add their post-solve b_upd into this node's
// (b_sep,b_upd), then fwd_solve.
func forwardSweep(tree *elimtree.Tree, fronts []front.Front, b *mat.Dense) {
	n := len(tree.Nodes)
	bUpd := make([]*mat.Dense, n)
	_, k := b.Dims()

	for s := 0; s < n; s++ {
		node := &tree.Nodes[s]
		f := fronts[s]
		dimSep, dimUpd := f.DimSep(), f.DimUpd()

		bSep := sepView(b, node.SepBegin, node.SepEnd)
		thisUpd := mat.NewDense(dimUpd, k, nil)

		for _, c := range node.Children {
			childFront := fronts[c]
			scatterAddRows(dimSep, bSep, thisUpd, node.SepBegin, node.SepEnd, node.Upd,
				childFront.Upd(), bUpd[c])
			bUpd[c] = nil
		}

		f.FwdSolve(bSep, thisUpd)
		bUpd[s] = thisUpd
	}
}

// backwardSweep implements spec §4.6's pre-order backward sweep: extract
// each child's y_upd from this node's solved (y_sep,y_upd) before
// descending. Processing tree.Nodes in reverse (parent index larger than
// every child's) is a valid pre-order since every node's parent has
// already been visited by the time the node itself is.
func backwardSweep(tree *elimtree.Tree, fronts []front.Front, b *mat.Dense) {
	n := len(tree.Nodes)
	_, k := b.Dims()
	yUpd := make([]*mat.Dense, n)
	yUpd[tree.Root] = mat.NewDense(0, k, nil)

	for s := n - 1; s >= 0; s-- {
		node := &tree.Nodes[s]
		f := fronts[s]
		dimSep := f.DimSep()

		ySep := sepView(b, node.SepBegin, node.SepEnd)
		thisUpd := yUpd[s]
		f.BwdSolve(ySep, thisUpd)

		for _, c := range node.Children {
			childUpd := fronts[c].Upd()
			childY := mat.NewDense(len(childUpd), k, nil)
			gatherRows(dimSep, ySep, thisUpd, node.SepBegin, node.SepEnd, node.Upd, childUpd, childY)
			yUpd[c] = childY
		}
	}
}
