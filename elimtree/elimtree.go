// Package elimtree builds the elimination (assembly) tree from a separator
// tree (component C5): for each separator, the symbolic factorization
// bottom-up pass described in spec §4.3 computes its update set `upd`,
// and a top-down pass classifies each node's frontal-block variant
// (Dense/HSS/BLR/HODLR/Lossy) per the compression policy.
package elimtree

import (
	"sort"

	"github.com/sparsekit/mfsolve/csgraph"
	"github.com/sparsekit/mfsolve/front"
	"github.com/sparsekit/mfsolve/reorder"
)

// Node is a single frontal node of the elimination tree.
type Node struct {
	SepBegin, SepEnd int
	Upd              []int
	Parent           int
	Children         []int
	Kind             front.Kind
}

func (n *Node) DimSep() int { return n.SepEnd - n.SepBegin }
func (n *Node) DimUpd() int { return len(n.Upd) }

// Tree is the elimination forest — in practice always a single tree rooted
// at Root, since SeparatorTree guarantees a unique node with Parent == -1.
type Tree struct {
	Nodes []Node
	Root  int
}

// Build runs the bottom-up upd computation and top-down variant
// classification over sepTree, using graph (the symmetrized structure of
// the already-permuted matrix) to find each separator's off-diagonal
// column touches.
//
// sepTree's array is already post-order (every descendant of a node has a
// strictly smaller index than the node itself, checked by
// reorder.NestedDissection's own tests), so a single forward pass (index
// 0..n-1) computes upd bottom-up, and a single reverse pass (index n-1..0)
// propagates the parentCompressed flag top-down, each visiting a node only
// after the pass has already visited every node it depends on.
func Build(sepTree *reorder.SeparatorTree, graph *csgraph.Graph, policy front.Policy) *Tree {
	n := len(sepTree.SepBegin)
	nodes := make([]Node, n)
	children := make([][]int, n)
	for s, parent := range sepTree.Parent {
		nodes[s] = Node{
			SepBegin: sepTree.SepBegin[s],
			SepEnd:   sepTree.SepEnd[s],
			Parent:   parent,
		}
		if parent != -1 {
			children[parent] = append(children[parent], s)
		}
	}
	for s := range nodes {
		nodes[s].Children = children[s]
	}

	for s := 0; s < n; s++ {
		nodes[s].Upd = computeUpd(&nodes[s], nodes, graph)
	}

	for s := n - 1; s >= 0; s-- {
		parentCompressed := true
		if nodes[s].Parent != -1 {
			parentCompressed = nodes[nodes[s].Parent].Kind != front.KindDense
		}
		nodes[s].Kind = front.Classify(policy, nodes[s].DimSep(), nodes[s].DimUpd(), parentCompressed)
	}

	root := -1
	for s, parent := range sepTree.Parent {
		if parent == -1 {
			root = s
		}
	}
	return &Tree{Nodes: nodes, Root: root}
}

// computeUpd implements spec §4.3's three-step bottom-up rule: union the
// children's upd, union in off-diagonal column touches of this
// separator's own rows, then remove everything inside [sep_begin,sep_end).
func computeUpd(node *Node, nodes []Node, graph *csgraph.Graph) []int {
	set := make(map[int]bool)
	for _, c := range node.Children {
		for _, u := range nodes[c].Upd {
			set[u] = true
		}
	}
	for v := node.SepBegin; v < node.SepEnd; v++ {
		for _, u := range graph.Neighbors(v) {
			if u >= node.SepEnd {
				set[u] = true
			}
		}
	}
	for v := node.SepBegin; v < node.SepEnd; v++ {
		delete(set, v)
	}
	upd := make([]int, 0, len(set))
	for u := range set {
		upd = append(upd, u)
	}
	sort.Ints(upd)
	return upd
}
