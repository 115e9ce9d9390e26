package mfsolve

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestScatterAddRowsRoutesByMappedIndex checks scatterAddRows places each
// source row into sepPart or updPart according to front.MapIndex, adding
// into whatever was already there rather than overwriting it.
func TestScatterAddRowsRoutesByMappedIndex(t *testing.T) {
	// Node owns separator [10,12) and upd = {20, 30}. A child contributes
	// rows indexed globally by {11, 20, 30}: 11 lands in the separator
	// (local 1), 20 and 30 land in upd (local 0 and 1).
	sepBegin, sepEnd := 10, 12
	upd := []int{20, 30}
	dimSep := sepEnd - sepBegin

	sepPart := mat.NewDense(dimSep, 1, []float64{5, 7})
	updPart := mat.NewDense(len(upd), 1, []float64{1, 2})

	srcIdx := []int{11, 20, 30}
	src := mat.NewDense(3, 1, []float64{100, 200, 300})

	scatterAddRows(dimSep, sepPart, updPart, sepBegin, sepEnd, upd, srcIdx, src)

	if got, want := sepPart.At(0, 0), 5.0; got != want {
		t.Errorf("sepPart[0] = %v, want %v (untouched)", got, want)
	}
	if got, want := sepPart.At(1, 0), 7.0+100.0; got != want {
		t.Errorf("sepPart[1] = %v, want %v", got, want)
	}
	if got, want := updPart.At(0, 0), 1.0+200.0; got != want {
		t.Errorf("updPart[0] = %v, want %v", got, want)
	}
	if got, want := updPart.At(1, 0), 2.0+300.0; got != want {
		t.Errorf("updPart[1] = %v, want %v", got, want)
	}
}

// TestGatherRowsIsScatterAddRowsInverse checks gatherRows reads back
// exactly the rows scatterAddRows would have routed to, for a child whose
// upd is a subset of the parent's (sep ∪ upd).
func TestGatherRowsIsScatterAddRowsInverse(t *testing.T) {
	sepBegin, sepEnd := 10, 12
	upd := []int{20, 30}
	dimSep := sepEnd - sepBegin

	sepPart := mat.NewDense(dimSep, 1, []float64{1, 2})
	updPart := mat.NewDense(len(upd), 1, []float64{3, 4})

	childUpd := []int{11, 30}
	dst := mat.NewDense(len(childUpd), 1, nil)
	gatherRows(dimSep, sepPart, updPart, sepBegin, sepEnd, upd, childUpd, dst)

	if got, want := dst.At(0, 0), 2.0; got != want {
		t.Errorf("dst[0] (from sep) = %v, want %v", got, want)
	}
	if got, want := dst.At(1, 0), 4.0; got != want {
		t.Errorf("dst[1] (from upd) = %v, want %v", got, want)
	}
}

// TestSepViewSharesBackingArray checks sepView's slice shares storage with
// the original buffer, which forwardSweep/backwardSweep rely on to write
// solved values directly into the caller's b/x buffer.
func TestSepViewSharesBackingArray(t *testing.T) {
	b := mat.NewDense(4, 2, nil)
	view := sepView(b, 1, 3)
	view.Set(0, 0, 42)
	if got := b.At(1, 0); got != 42 {
		t.Errorf("b.At(1,0) = %v, want 42 (sepView should alias b)", got)
	}
}
