package matching_test

import (
	"math"
	"testing"

	"github.com/sparsekit/mfsolve/matching"
)

// permutedIdentity builds the CSR pattern of a permutation matrix with
// magnitudes mag[i] at (i, perm[i]), used as the S4 "needs matching"
// scenario: zero diagonal but full rank.
func permutedIdentity(perm []int, mag []float64) (rowPtr, colInd []int, val []float64) {
	n := len(perm)
	rowPtr = make([]int, n+1)
	for i := 0; i < n; i++ {
		rowPtr[i] = i
		colInd = append(colInd, perm[i])
		val = append(val, mag[i])
	}
	rowPtr[n] = n
	return
}

func TestMaxCardinalityRecoversPermutation(t *testing.T) {
	perm := []int{2, 0, 3, 1}
	mag := []float64{1, 1, 1, 1}
	rowPtr, colInd, val := permutedIdentity(perm, mag)

	res, err := matching.Default{}.Match(4, rowPtr, colInd, val, matching.MaxCardinality)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	for i, want := range perm {
		if res.Perm[i] != want {
			t.Errorf("Perm[%d] = %d, want %d", i, res.Perm[i], want)
		}
	}
}

func TestMaxCardinalityFailsWithoutPerfectMatching(t *testing.T) {
	// Row 1 has no entries at all: no perfect matching can exist.
	rowPtr := []int{0, 1, 1, 2}
	colInd := []int{0, 1}
	val := []float64{1, 1}
	_, err := matching.Default{}.Match(3, rowPtr, colInd, val, matching.MaxCardinality)
	if err == nil {
		t.Fatal("expected an error for a pattern with no perfect matching")
	}
}

// TestMaxProductScalingDiagonalIsUnitMagnitude checks property 7 from the
// solver's test scenarios: after MAX_PROD_SCALING matching, every diagonal
// entry of D_r·A·Q·D_c has magnitude 1.
func TestMaxProductScalingDiagonalIsUnitMagnitude(t *testing.T) {
	n := 4
	rowPtr := []int{0, 2, 4, 6, 8}
	colInd := []int{0, 1, 0, 1, 2, 3, 2, 3}
	val := []float64{5, 1, 1, 3, 8, 2, 1, 6}

	res, err := matching.Default{}.Match(n, rowPtr, colInd, val, matching.MaxProductScaling)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	for i := 0; i < n; i++ {
		j := res.Perm[i]
		var a float64
		for k := rowPtr[i]; k < rowPtr[i+1]; k++ {
			if colInd[k] == j {
				a = val[k]
			}
		}
		scaled := math.Abs(res.Dr[i] * a * res.Dc[j])
		if math.Abs(scaled-1) > 1e-9 {
			t.Errorf("row %d: scaled diagonal magnitude = %v, want 1", i, scaled)
		}
	}
}

func TestMaxProductMaximizesDiagonalProduct(t *testing.T) {
	n := 3
	rowPtr := []int{0, 2, 4, 6}
	colInd := []int{0, 1, 0, 1, 1, 2}
	val := []float64{1, 10, 10, 1, 1, 1}

	res, err := matching.Default{}.Match(n, rowPtr, colInd, val, matching.MaxProduct)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	// The maximum-product assignment must use both 10-valued entries:
	// row 0 -> col 1, row 1 -> col 0, row 2 -> col 2.
	want := []int{1, 0, 2}
	for i, w := range want {
		if res.Perm[i] != w {
			t.Errorf("Perm[%d] = %d, want %d", i, res.Perm[i], w)
		}
	}
}

func TestNoneReturnsIdentity(t *testing.T) {
	res, err := matching.Default{}.Match(3, []int{0, 1, 2, 3}, []int{0, 1, 2}, []float64{1, 1, 1}, matching.None)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	for i, p := range res.Perm {
		if p != i {
			t.Errorf("Perm[%d] = %d, want %d (identity)", i, p, i)
		}
		if res.Dr[i] != 1 || res.Dc[i] != 1 {
			t.Errorf("scaling for NONE job must be identity, got Dr=%v Dc=%v", res.Dr[i], res.Dc[i])
		}
	}
}

func TestMaxSmallDiagonalAvoidsSmallEntries(t *testing.T) {
	// Two possible perfect matchings: {0->0, 1->1} with min 0.01, or
	// {0->1, 1->0} with min 5. The bottleneck matcher must pick the
	// second.
	n := 2
	rowPtr := []int{0, 2, 4}
	colInd := []int{0, 1, 0, 1}
	val := []float64{0.01, 5, 5, 0.01}

	res, err := matching.Default{}.Match(n, rowPtr, colInd, val, matching.MaxSmallDiagonal)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if res.Perm[0] != 1 || res.Perm[1] != 0 {
		t.Errorf("Perm = %v, want [1 0]", res.Perm)
	}
}
