package csgraph_test

import (
	"testing"

	"github.com/sparsekit/mfsolve/csgraph"
)

func path(n int) (rowPtr, colInd []int) {
	rowPtr = make([]int, n+1)
	for i := 0; i < n; i++ {
		rowPtr[i] = len(colInd)
		if i > 0 {
			colInd = append(colInd, i-1)
		}
		if i < n-1 {
			colInd = append(colInd, i+1)
		}
	}
	rowPtr[n] = len(colInd)
	return
}

func TestFromCSRIsSymmetric(t *testing.T) {
	rowPtr, colInd := []int{0, 1, 1}, []int{1}
	g := csgraph.FromCSR(2, rowPtr, colInd)
	found := false
	for _, u := range g.Neighbors(1) {
		if u == 0 {
			found = true
		}
	}
	if !found {
		t.Error("FromCSR did not symmetrize a one-directional edge")
	}
}

func TestInducedSubgraph(t *testing.T) {
	rowPtr, colInd := path(6)
	g := csgraph.FromCSR(6, rowPtr, colInd)
	sub := g.InducedSubgraph(2, 5, nil)
	if sub.N() != 3 {
		t.Fatalf("N() = %d, want 3", sub.N())
	}
	// relabeled path 0-1-2 (original 2-3-4)
	if len(sub.Neighbors(1)) != 2 {
		t.Errorf("middle vertex should have 2 neighbors, got %v", sub.Neighbors(1))
	}
}

func TestLength2EdgesConnectsSharedExternalNeighbor(t *testing.T) {
	// star: vertex 0 connects to 1,2,3; induce on {1,2,3} with l2 from
	// vertex 0 outside the range.
	rowPtr := []int{0, 3, 4, 5, 6}
	colInd := []int{1, 2, 3, 0, 0, 0}
	g := csgraph.FromCSR(4, rowPtr, colInd)
	l2 := g.Length2Edges(1, 4)
	if len(l2[0]) != 3 {
		t.Fatalf("expected vertex 0 to be reached by all 3 local vertices, got %v", l2[0])
	}
	sub := g.InducedSubgraph(1, 4, l2)
	for v := 0; v < 3; v++ {
		if len(sub.Neighbors(v)) != 2 {
			t.Errorf("vertex %d: neighbors = %v, want 2 (connected via shared external neighbor)", v, sub.Neighbors(v))
		}
	}
}
