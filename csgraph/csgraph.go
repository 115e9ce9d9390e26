// Package csgraph implements the structure-only, symmetrized graph of a
// sparse matrix (component C2): adjacency without values, plus the
// length-2-edge query used during separator refinement.
//
// Grounded on _examples/original_source/src/sparse/CSRGraph.hpp: the same
// ptr_/ind_ adjacency-list layout, and the same length_2_edges idea (for
// every vertex outside the local range reached by an edge, record which
// local vertices reach it, so a separator's induced subgraph can be
// augmented with edges that pass through an external neighbor).
package csgraph

import "sort"

// Graph is an undirected adjacency-list graph over vertices [0,N), stored
// in CSR-like form: Ptr has length N+1, Ind[Ptr[v]:Ptr[v+1]] lists v's
// neighbors sorted ascending with no self-loops.
type Graph struct {
	Ptr []int
	Ind []int
}

// FromCSR builds the symmetrized structure-only graph of a square matrix
// given in row_ptr/col_ind form: (i,j) and (j,i) both become edges,
// self-loops are dropped, and duplicates are removed.
func FromCSR(n int, rowPtr, colInd []int) *Graph {
	adj := make([][]int, n)
	add := func(i, j int) {
		if i == j {
			return
		}
		adj[i] = append(adj[i], j)
	}
	for i := 0; i < n; i++ {
		for k := rowPtr[i]; k < rowPtr[i+1]; k++ {
			j := colInd[k]
			add(i, j)
			add(j, i)
		}
	}
	ptr := make([]int, n+1)
	var ind []int
	for i := 0; i < n; i++ {
		row := dedupeSorted(adj[i])
		ptr[i] = len(ind)
		ind = append(ind, row...)
	}
	ptr[n] = len(ind)
	return &Graph{Ptr: ptr, Ind: ind}
}

func dedupeSorted(xs []int) []int {
	sort.Ints(xs)
	out := xs[:0]
	var last = -1
	for _, x := range xs {
		if x != last {
			out = append(out, x)
			last = x
		}
	}
	return out
}

// N returns the number of vertices.
func (g *Graph) N() int { return len(g.Ptr) - 1 }

// Neighbors returns the sorted neighbor list of vertex v.
func (g *Graph) Neighbors(v int) []int { return g.Ind[g.Ptr[v]:g.Ptr[v+1]] }

// Length2Edges maps each vertex outside [lo,hi) that is reached by an edge
// from a vertex in [lo,hi) to the sorted list of local vertices (relative
// to lo) that reach it. This is the same construction as
// CSRGraph::length_2_edges: it lets separator-refinement bisection treat
// two local vertices sharing an external neighbor as connected, without
// materializing the external vertex itself.
func (g *Graph) Length2Edges(lo, hi int) map[int][]int {
	l2 := make(map[int][]int)
	for v := lo; v < hi; v++ {
		for _, u := range g.Neighbors(v) {
			if u < lo || u >= hi {
				l2[u] = append(l2[u], v-lo)
			}
		}
	}
	return l2
}

// InducedSubgraph returns the subgraph induced by the vertex set
// [begin,end), relabeled to [0,end-begin). When l2 is non-nil, two local
// vertices that both appear as endpoints of the same length-2 edge (i.e.
// share an external neighbor) are connected by an extra edge, mirroring
// extract_subgraph's order_level==1 augmentation.
func (g *Graph) InducedSubgraph(begin, end int, l2 map[int][]int) *Graph {
	dim := end - begin
	adj := make([][]int, dim)
	for v := begin; v < end; v++ {
		for _, u := range g.Neighbors(v) {
			if u >= begin && u < end {
				adj[v-begin] = append(adj[v-begin], u-begin)
			}
		}
	}
	for _, locals := range l2 {
		for _, a := range locals {
			for _, b := range locals {
				if a != b {
					adj[a] = append(adj[a], b)
				}
			}
		}
	}
	ptr := make([]int, dim+1)
	var ind []int
	for v := 0; v < dim; v++ {
		row := dedupeSorted(adj[v])
		ptr[v] = len(ind)
		ind = append(ind, row...)
	}
	ptr[dim] = len(ind)
	return &Graph{Ptr: ptr, Ind: ind}
}
