package mfsolve

import (
	"fmt"

	"github.com/sparsekit/mfsolve/mferr"
)

// checkCSR mirrors the invariants csr.NewFromCSR panics on, so SetMatrix can
// report a malformed caller-supplied matrix as an *mferr.InvalidInput error
// instead of crashing.
func checkCSR(n int, rowPtr, colInd []int, val []float64) error {
	if n <= 0 {
		return &mferr.InvalidInput{Msg: "non-positive dimension"}
	}
	if len(rowPtr) != n+1 {
		return &mferr.InvalidInput{Msg: fmt.Sprintf("row_ptr has length %d, want %d", len(rowPtr), n+1)}
	}
	if rowPtr[0] != 0 {
		return &mferr.InvalidInput{Msg: "row_ptr[0] must be 0"}
	}
	for i := 1; i <= n; i++ {
		if rowPtr[i] < rowPtr[i-1] {
			return &mferr.InvalidInput{Msg: fmt.Sprintf("row_ptr is not monotone non-decreasing at row %d", i)}
		}
	}
	nnz := rowPtr[n]
	if len(colInd) != nnz || len(val) != nnz {
		return &mferr.InvalidInput{Msg: "col_ind/val length does not match row_ptr[n]"}
	}
	for _, j := range colInd {
		if j < 0 || n <= j {
			return &mferr.InvalidInput{Msg: fmt.Sprintf("column index %d out of range [0,%d)", j, n)}
		}
	}
	return nil
}
