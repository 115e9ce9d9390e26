package mfsolve

import "gonum.org/v1/gonum/mat"

// transformRHS implements spec §4.7's pre-loop transform: b ← P·(D_r⊙b).
// Row r of the result is s.dr[s.iP[r]] * b[s.iP[r]], i.e. scale in the
// original row index, then place at its nested-dissection position. When
// matching is disabled s.dr is all ones, so this reduces to a pure
// permutation, and transformRHS is always safe to call unconditionally.
func (s *Solver) transformRHS(b *mat.Dense) *mat.Dense {
	n, k := b.Dims()
	out := mat.NewDense(n, k, nil)
	for r := 0; r < n; r++ {
		orig := s.iP[r]
		scale := s.dr[orig]
		for j := 0; j < k; j++ {
			out.Set(r, j, scale*b.At(orig, j))
		}
	}
	return out
}

// transformSolution implements spec §4.7's post-loop transform:
// x ← Q·P⁻¹·x, with D_c folded in. Row r of xSolved (in factor order)
// belongs to renamed-variable index s.iP[r] (undoing P), which corresponds
// to original variable s.q[s.iP[r]] (undoing Q); D_c is read off in that
// original variable's index, matching how D_r was read off in transformRHS.
func (s *Solver) transformSolution(xSolved, xOut *mat.Dense) {
	n, k := xSolved.Dims()
	for r := 0; r < n; r++ {
		origVar := s.q[s.iP[r]]
		scale := s.dc[origVar]
		for j := 0; j < k; j++ {
			xOut.Set(origVar, j, scale*xSolved.At(r, j))
		}
	}
}

func columnVec(m *mat.Dense, col int) *mat.VecDense {
	n, _ := m.Dims()
	v := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, m.At(i, col))
	}
	return v
}

func columnDense(m *mat.Dense, col int) *mat.Dense {
	n, _ := m.Dims()
	d := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		d.Set(i, 0, m.At(i, col))
	}
	return d
}

func setColumn(dst *mat.Dense, col int, src mat.Vector) {
	n := src.Len()
	for i := 0; i < n; i++ {
		dst.Set(i, col, src.AtVec(i))
	}
}
