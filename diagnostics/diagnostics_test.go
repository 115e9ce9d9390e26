package diagnostics_test

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/plot/vg"

	"github.com/sparsekit/mfsolve/csr"
	"github.com/sparsekit/mfsolve/diagnostics"
)

func TestSparsityPlotWritesFile(t *testing.T) {
	a := csr.Build(3, []csr.Entry{
		{Row: 0, Col: 0, Val: 1},
		{Row: 1, Col: 1, Val: 1},
		{Row: 2, Col: 2, Val: 1},
		{Row: 0, Col: 2, Val: 1},
	})

	path := filepath.Join(t.TempDir(), "sparsity.png")
	if err := diagnostics.SparsityPlot(a, path, 10*vg.Centimeter, 10*vg.Centimeter); err != nil {
		t.Fatalf("SparsityPlot: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("output file not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("output file is empty")
	}
}
