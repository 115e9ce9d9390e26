// Package reorder implements the reordering adapter (component C3): it
// calls into a fill-reducing (nested dissection) ordering — the real
// algorithm is an opaque external collaborator per the design this package
// implements, so two concrete strategies are provided here, selected the
// same way the collaborator is selected in
// _examples/original_source/src/StrumpackSparseSolver.hpp: a geometric
// recursive bisection when the caller describes a regular low-width
// stencil, and a generic BFS-based vertex-separator bisection otherwise.
package reorder

import (
	"fmt"
	"sort"

	"github.com/sparsekit/mfsolve/csgraph"
	"github.com/sparsekit/mfsolve/mferr"
)

// Geometry describes a regular stencil grid, the hint accepted by
// nested_dissection per spec §4.2's (nx,ny,nz,components,width) signature.
type Geometry struct {
	Nx, Ny, Nz int
	Components int
	Width      int
}

// valid reports whether g describes a usable regular grid: positive
// dimensions and a stencil width the geometric bisection can route a
// separator plane through.
func (g Geometry) valid(n int) bool {
	if g.Nx <= 0 || g.Ny <= 0 || g.Nz <= 0 || g.Components <= 0 || g.Width <= 0 {
		return false
	}
	return g.Nx*g.Ny*g.Nz*g.Components == n
}

// SeparatorTree is the post-order array of separators described by spec
// §3: SepBegin[s] < SepEnd[s] <= N, Parent[s] is a larger index or -1 for
// the (unique) root.
type SeparatorTree struct {
	SepBegin []int
	SepEnd   []int
	Parent   []int
}

// Root returns the index of the root separator (the one with no parent).
func (t *SeparatorTree) Root() int {
	for s := range t.Parent {
		if t.Parent[s] == -1 {
			return s
		}
	}
	return -1
}

type builder struct {
	counter int
	p, iP   []int
	begin   []int
	end     []int
	parent  []int
}

func (b *builder) newSeparator(oldIndices []int, parent int) int {
	begin := b.counter
	for _, old := range oldIndices {
		b.p[old] = b.counter
		b.iP[b.counter] = old
		b.counter++
	}
	id := len(b.begin)
	b.begin = append(b.begin, begin)
	b.end = append(b.end, b.counter)
	b.parent = append(b.parent, parent)
	if parent >= 0 {
		// placeholder; parent id fixed up by caller once parent node exists
	}
	return id
}

func (b *builder) setParent(child, parent int) { b.parent[child] = parent }

func (b *builder) tree() *SeparatorTree {
	return &SeparatorTree{SepBegin: b.begin, SepEnd: b.end, Parent: b.parent}
}

// NestedDissection computes a fill-reducing permutation and separator tree
// for the symmetrized graph g (N = g.N()). geom, when it describes a valid
// regular grid, selects the geometric strategy; otherwise the generic
// graph-bisection strategy is used. Returns ReorderingError if neither
// strategy can produce a separator tree (e.g. geom invalid and g empty).
func NestedDissection(g *csgraph.Graph, geom Geometry) (p, iP []int, tree *SeparatorTree, err error) {
	n := g.N()
	if n == 0 {
		return nil, nil, nil, &mferr.ReorderingError{Err: fmt.Errorf("reorder: empty graph")}
	}
	b := &builder{p: make([]int, n), iP: make([]int, n)}
	if geom.valid(n) {
		geometricBisection(b, geom)
	} else {
		graphBisection(b, g, allVertices(n))
	}
	return b.p, b.iP, b.tree(), nil
}

func allVertices(n int) []int {
	v := make([]int, n)
	for i := range v {
		v[i] = i
	}
	return v
}

// --- geometric recursive bisection -----------------------------------

type box struct{ x0, x1, y0, y1, z0, z1 int }

func geometricBisection(b *builder, geom Geometry) {
	orderBox(b, box{0, geom.Nx, 0, geom.Ny, 0, geom.Nz}, geom, -1)
}

func vertexIndices(bx box, geom Geometry) []int {
	var idx []int
	for z := bx.z0; z < bx.z1; z++ {
		for y := bx.y0; y < bx.y1; y++ {
			for x := bx.x0; x < bx.x1; x++ {
				v := (z*geom.Ny+y)*geom.Nx + x
				for c := 0; c < geom.Components; c++ {
					idx = append(idx, v*geom.Components+c)
				}
			}
		}
	}
	return idx
}

// orderBox recursively assigns new indices to the grid box bx, returning
// the id of the separator representing this subtree's top node, with
// parent pre-registered so the caller can fix up the parent
// link once the enclosing separator is created.
func orderBox(b *builder, bx box, geom Geometry, parent int) int {
	lenX, lenY, lenZ := bx.x1-bx.x0, bx.y1-bx.y0, bx.z1-bx.z0
	w := geom.Width
	longest := lenX
	axis := 0
	if lenY > longest {
		longest, axis = lenY, 1
	}
	if lenZ > longest {
		longest, axis = lenZ, 2
	}
	if longest < 2*w+1 {
		return b.newSeparator(vertexIndices(bx, geom), parent)
	}

	var left, right, sepBox box
	switch axis {
	case 0:
		mid := bx.x0 + lenX/2
		left = box{bx.x0, mid, bx.y0, bx.y1, bx.z0, bx.z1}
		sepBox = box{mid, mid + w, bx.y0, bx.y1, bx.z0, bx.z1}
		right = box{mid + w, bx.x1, bx.y0, bx.y1, bx.z0, bx.z1}
	case 1:
		mid := bx.y0 + lenY/2
		left = box{bx.x0, bx.x1, bx.y0, mid, bx.z0, bx.z1}
		sepBox = box{bx.x0, bx.x1, mid, mid + w, bx.z0, bx.z1}
		right = box{bx.x0, bx.x1, mid + w, bx.y1, bx.z0, bx.z1}
	default:
		mid := bx.z0 + lenZ/2
		left = box{bx.x0, bx.x1, bx.y0, bx.y1, bx.z0, mid}
		sepBox = box{bx.x0, bx.x1, bx.y0, bx.y1, mid, mid + w}
		right = box{bx.x0, bx.x1, bx.y0, bx.y1, mid + w, bx.z1}
	}

	// placeholder id for "this" separator isn't known until after
	// children are ordered (post-order), so children are told to point
	// at a parent id fixed up immediately after creation.
	leftID := orderBox(b, left, geom, -2)
	rightID := orderBox(b, right, geom, -2)
	thisID := b.newSeparator(vertexIndices(sepBox, geom), parent)
	b.setParent(leftID, thisID)
	b.setParent(rightID, thisID)
	return thisID
}

// --- generic BFS-based vertex-separator bisection ---------------------

const leafSize = 8

// graphBisection recursively splits the induced subgraph on vertex set
// vs via a BFS level structure: the middle level becomes the separator,
// the levels before and after become the two recursive halves. This is a
// direct, from-scratch stand-in for the external graph partitioner spec §1
// places out of scope; it is not competitive with METIS-class partitioners
// but produces a valid post-order separator tree for any connected graph.
func graphBisection(b *builder, g *csgraph.Graph, vs []int) int {
	return orderVertexSet(b, g, vs, -1)
}

func orderVertexSet(b *builder, g *csgraph.Graph, vs []int, parent int) int {
	if len(vs) <= leafSize {
		return b.newSeparator(vs, parent)
	}

	levels := bfsLevels(g, vs)
	if len(levels) < 3 {
		// No useful separator structure (e.g. a clique or a
		// disconnected remainder): treat as one leaf.
		return b.newSeparator(vs, parent)
	}
	mid := len(levels) / 2

	var left, sep, right []int
	for i, lvl := range levels {
		switch {
		case i < mid:
			left = append(left, lvl...)
		case i == mid:
			sep = append(sep, lvl...)
		default:
			right = append(right, lvl...)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return b.newSeparator(vs, parent)
	}

	leftID := orderVertexSet(b, g, left, -2)
	rightID := orderVertexSet(b, g, right, -2)
	thisID := b.newSeparator(sep, parent)
	b.setParent(leftID, thisID)
	b.setParent(rightID, thisID)
	return thisID
}

// bfsLevels runs a breadth-first search restricted to the vertex set vs
// (treated as an induced subgraph of g), starting from vs[0], and returns
// the levels in visitation order. Vertices of vs unreachable from vs[0]
// are appended as one final level.
func bfsLevels(g *csgraph.Graph, vs []int) [][]int {
	inSet := make(map[int]bool, len(vs))
	for _, v := range vs {
		inSet[v] = true
	}
	visited := make(map[int]bool, len(vs))
	var levels [][]int
	queue := []int{vs[0]}
	visited[vs[0]] = true
	for len(queue) > 0 {
		levels = append(levels, append([]int(nil), queue...))
		var next []int
		for _, v := range queue {
			for _, u := range g.Neighbors(v) {
				if inSet[u] && !visited[u] {
					visited[u] = true
					next = append(next, u)
				}
			}
		}
		queue = next
	}
	var remainder []int
	for _, v := range vs {
		if !visited[v] {
			remainder = append(remainder, v)
		}
	}
	if len(remainder) > 0 {
		levels = append(levels, remainder)
	}
	return levels
}

// --- separator refinement (second pass, compression tile boundaries) --

// PartitionTree is a recursive binary split of a separator's local index
// range [Begin,End), used to guide HSS/BLR tile boundaries. A leaf has
// Left == Right == nil.
type PartitionTree struct {
	Begin, End  int
	Left, Right *PartitionTree
}

const partitionLeafSize = 16

// SeparatorReordering computes one PartitionTree per separator of tree, by
// recursively bisecting each separator's induced subgraph (augmented with
// length-2 edges through neighbors outside the separator, per spec §4.2),
// using the same BFS-level bisection as the generic nested-dissection
// fallback. g and tree must already reflect the permuted matrix (g's
// vertex numbering is the post-nested-dissection order).
func SeparatorReordering(g *csgraph.Graph, tree *SeparatorTree) []*PartitionTree {
	out := make([]*PartitionTree, len(tree.SepBegin))
	for s := range tree.SepBegin {
		begin, end := tree.SepBegin[s], tree.SepEnd[s]
		l2 := g.Length2Edges(begin, end)
		sub := g.InducedSubgraph(begin, end, l2)
		out[s] = partitionSubtree(sub, 0, end-begin, begin)
	}
	return out
}

// partitionSubtree recursively splits the local range [lo,hi) (relative to
// the separator's own indexing 0..dim) using a BFS bisection of sub, and
// records ranges in the separator's global coordinates via offset.
func partitionSubtree(sub *csgraph.Graph, lo, hi, offset int) *PartitionTree {
	if hi-lo <= partitionLeafSize {
		return &PartitionTree{Begin: offset + lo, End: offset + hi}
	}
	vs := make([]int, hi-lo)
	for i := range vs {
		vs[i] = lo + i
	}
	levels := bfsLevels(sub, vs)
	if len(levels) < 3 {
		return &PartitionTree{Begin: offset + lo, End: offset + hi}
	}
	mid := len(levels) / 2
	var leftSet []int
	for i := 0; i < mid; i++ {
		leftSet = append(leftSet, levels[i]...)
	}
	splitPoint := lo + len(leftSet)
	if splitPoint <= lo || splitPoint >= hi {
		sort.Ints(vs)
		splitPoint = lo + (hi-lo)/2
	}
	return &PartitionTree{
		Begin: offset + lo,
		End:   offset + hi,
		Left:  partitionSubtree(sub, lo, splitPoint, offset),
		Right: partitionSubtree(sub, splitPoint, hi, offset),
	}
}
