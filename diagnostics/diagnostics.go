// Package diagnostics renders a sparsity spy-plot of a permuted CSR matrix,
// the plotting collaborator spec §6 leaves room for ("on-disk / wire
// formats: none required") without excluding diagnostic output by a
// Non-goal.
//
// Grounded on linsolve/pde_example_test.go's combined use of
// gonum.org/v1/plot and a PDE-shaped linear system: the same
// plot.New/plotter.NewScatter/p.Save sequence, pointed at a matrix's
// nonzero pattern instead of a solution curve.
package diagnostics

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/sparsekit/mfsolve/csr"
)

// SparsityPlot renders a's nonzero pattern as a scatter plot (column on the
// X axis, row on the Y axis, Y inverted so the plot reads top-to-bottom
// like a conventional spy(A)) and saves it to path in the image format
// path's extension names (e.g. .png). width and
// height are in points; a square plot a few hundred points wide is a
// reasonable default for matrices up to a few thousand rows.
func SparsityPlot(a *csr.Matrix, path string, width, height vg.Length) error {
	n := a.N()
	pts := make(plotter.XYs, 0, a.NNZ())
	for i := 0; i < n; i++ {
		begin, end := a.RowRange(i)
		for k := begin; k < end; k++ {
			pts = append(pts, plotter.XY{X: float64(a.ColInd(k)), Y: float64(n - 1 - i)})
		}
	}

	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = "sparsity pattern"
	p.X.Label.Text = "column"
	p.Y.Label.Text = "row"
	p.X.Min, p.X.Max = 0, float64(n-1)
	p.Y.Min, p.Y.Max = 0, float64(n-1)

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.Color = color.Black
	scatter.Shape = draw.CircleGlyph{}
	scatter.Radius = vg.Length(0.5)
	p.Add(scatter)

	return p.Save(width, height, path)
}
