// Package front implements the frontal-matrix kernel (component C6): given
// a separator's row/column range and update set, build the dense front
// [F11 F12; F21 F22], receive extend-add contributions from children,
// perform the partial factorization, and expose the forward/backward
// triangular-solve operations the multifrontal sweep needs.
//
// The Dense variant is grounded on
// _examples/gonum-gonum/mat64/lu.go's use of lapack64.Getrf for the dense
// LU with partial pivoting, generalized from a whole-matrix factorization
// to the partial (F11-only) factorization with triangular updates to
// F12/F21/F22 that spec §4.4 describes. The Compressed variant stands in
// for the HSS/BLR/HODLR/lossy hierarchical algorithms, which spec §1
// explicitly places out of scope, by truncating F12/F21/F22 to a rank
// fixed by rel_tol/abs_tol via Gonum's SVD — satisfying the documented
// externally observable contract (factored F11, low-rank off-diagonal
// factors, approximate Schur complement) without reimplementing four
// distinct hierarchical formats.
package front

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack/lapack64"
	"gonum.org/v1/gonum/mat"

	"github.com/sparsekit/mfsolve/csr"
	"github.com/sparsekit/mfsolve/mferr"
)

// Kind identifies which frontal-block variant a node uses.
type Kind int

const (
	KindDense Kind = iota
	KindHSS
	KindBLR
	KindHODLR
	KindLossy
)

func (k Kind) String() string {
	switch k {
	case KindDense:
		return "DENSE"
	case KindHSS:
		return "HSS"
	case KindBLR:
		return "BLR"
	case KindHODLR:
		return "HODLR"
	case KindLossy:
		return "LOSSY"
	default:
		return "UNKNOWN"
	}
}

// Policy configures the compression-variant classification per spec §4.3.
type Policy struct {
	Compression             Kind
	CompressionMinSepSize   int
	CompressionMinFrontSize int
	RelTol, AbsTol          float64
	PivotThreshold          float64
}

// Classify chooses the variant for a front with the given separator and
// update-set sizes. parentCompressed is the top-down-propagated flag: it
// is true at the root (nothing above the root can forbid compression) and
// for any node whose parent itself compresses.
func Classify(policy Policy, dimSep, dimUpd int, parentCompressed bool) Kind {
	if policy.Compression == KindDense {
		return KindDense
	}
	qualifies := dimSep >= policy.CompressionMinSepSize || dimSep+dimUpd >= policy.CompressionMinFrontSize
	if !qualifies {
		return KindDense
	}
	if policy.Compression == KindHSS && !parentCompressed {
		return KindDense
	}
	return policy.Compression
}

// Front is the operation set every frontal-block variant exposes.
type Front interface {
	// Build allocates F11/F12/F21 from a (already permuted and scaled)
	// and zeroes F22.
	Build(a *csr.Matrix, sepBegin, sepEnd int, upd []int)
	// ExtendAdd scatters childF22 (dim(childUpd) square) into this
	// front's F11/F12/F21/F22, mapping each childUpd entry into this
	// front's (sep ∪ upd) indexing with MapIndex.
	ExtendAdd(childUpd []int, childF22 *mat.Dense)
	// PartialFactor performs the dense/low-rank partial factorization.
	PartialFactor() error
	// FwdSolve applies pivots and L⁻¹ to bSep in place, then subtracts
	// F21·bSep from bUpd.
	FwdSolve(bSep, bUpd *mat.Dense)
	// BwdSolve subtracts F12·yUpd from ySep, then applies U⁻¹.
	BwdSolve(ySep, yUpd *mat.Dense)
	// Release frees F22 (call once the parent has consumed it via
	// ExtendAdd) or, when final is true, all remaining blocks.
	Release(final bool)

	DimSep() int
	DimUpd() int
	Upd() []int
	F22() *mat.Dense
	Kind() Kind
	// Nonzeros reports the stored entries counted toward factor_nonzeros.
	Nonzeros() int
}

// MapIndex returns, for a global column/row index idx belonging to either
// the front's own separator [sepBegin,sepEnd) or its sorted upd list, the
// local position in the assembled [0, dimSep+dimUpd) indexing.
func MapIndex(idx, sepBegin, sepEnd int, upd []int) int {
	if idx >= sepBegin && idx < sepEnd {
		return idx - sepBegin
	}
	pos := sort.SearchInts(upd, idx)
	if pos >= len(upd) || upd[pos] != idx {
		panic("front: index not present in separator or update set")
	}
	return (sepEnd - sepBegin) + pos
}

// scatterAdd adds src[i][j] into the block (f11/f12/f21/f22) identified by
// where the mapped destination indices (di,dj) fall relative to dimSep.
func scatterAdd(dimSep int, f11, f12, f21, f22 *mat.Dense, destRows, destCols []int, src mat.Matrix) {
	r, c := src.Dims()
	for i := 0; i < r; i++ {
		di := destRows[i]
		for j := 0; j < c; j++ {
			dj := destCols[j]
			v := src.At(i, j)
			if v == 0 {
				continue
			}
			switch {
			case di < dimSep && dj < dimSep:
				f11.Set(di, dj, f11.At(di, dj)+v)
			case di < dimSep:
				f12.Set(di, dj-dimSep, f12.At(di, dj-dimSep)+v)
			case dj < dimSep:
				f21.Set(di-dimSep, dj, f21.At(di-dimSep, dj)+v)
			default:
				f22.Set(di-dimSep, dj-dimSep, f22.At(di-dimSep, dj-dimSep)+v)
			}
		}
	}
}

// Dense is the plain dense frontal-matrix variant: LU with partial
// pivoting on F11, triangular updates to F12/F21, and an exact Schur
// complement update to F22.
type Dense struct {
	sepBegin, sepEnd int
	upd              []int
	f11, f12, f21    mat.Dense
	f22              mat.Dense
	ipiv             []int
	pivotThreshold   float64

	f22Released bool

	neg, zero, pos int
}

// NewDense returns a Dense front configured with the given pivot
// threshold (fraction of the running diagonal magnitude below which a
// pivot is reported as SingularFront).
func NewDense(pivotThreshold float64) *Dense {
	return &Dense{pivotThreshold: pivotThreshold}
}

func (d *Dense) Build(a *csr.Matrix, sepBegin, sepEnd int, upd []int) {
	d.sepBegin, d.sepEnd, d.upd = sepBegin, sepEnd, upd
	a.ExtractF11(&d.f11, sepBegin, sepEnd)
	a.ExtractF12(&d.f12, sepBegin, sepEnd, upd)
	a.ExtractF21(&d.f21, sepBegin, sepEnd, upd)
	d.f22 = *mat.NewDense(len(upd), len(upd), nil)
	d.f22Released = false
}

func (d *Dense) DimSep() int    { return d.sepEnd - d.sepBegin }
func (d *Dense) DimUpd() int    { return len(d.upd) }
func (d *Dense) Upd() []int     { return d.upd }
func (d *Dense) F22() *mat.Dense { return &d.f22 }
func (d *Dense) Kind() Kind     { return KindDense }

func (d *Dense) Nonzeros() int {
	ds, du := d.DimSep(), d.DimUpd()
	return ds*ds + 2*ds*du
}

// Inertia reports the count of negative, zero, and positive diagonal pivots
// of F11 found by the most recent PartialFactor. A below-threshold pivot is
// reported as SingularFront instead of accumulating here, so Zero stays 0:
// an exactly zero pivot fails the piv <= threshold test even when
// PivotThreshold is 0.
func (d *Dense) Inertia() (neg, zero, pos int) { return d.neg, d.zero, d.pos }

func (d *Dense) ExtendAdd(childUpd []int, childF22 *mat.Dense) {
	dest := make([]int, len(childUpd))
	for i, idx := range childUpd {
		dest[i] = MapIndex(idx, d.sepBegin, d.sepEnd, d.upd)
	}
	scatterAdd(d.DimSep(), &d.f11, &d.f12, &d.f21, &d.f22, dest, dest, childF22)
}

func (d *Dense) PartialFactor() error {
	dimSep := d.DimSep()
	if dimSep == 0 {
		return nil
	}
	d.ipiv = make([]int, dimSep)
	raw := d.f11.RawMatrix()
	// Getrf's bool result only flags that some diagonal factor came out
	// exactly zero (LAPACK's info != 0 convention); it names no column. The
	// per-column scan below always finds that exact column itself, since an
	// exact-zero pivot clears no non-negative threshold.
	lapack64.Getrf(raw, d.ipiv)

	for k := 0; k < dimSep; k++ {
		piv := math.Abs(d.f11.At(k, k))
		threshold := d.pivotThreshold * diagMagnitude(&d.f11, k)
		if piv <= threshold {
			return &mferr.SingularFront{
				SepBegin:  d.sepBegin,
				Column:    k,
				Pivot:     piv,
				Threshold: threshold,
			}
		}
	}

	d.neg, d.zero, d.pos = 0, 0, 0
	for k := 0; k < dimSep; k++ {
		switch v := d.f11.At(k, k); {
		case v < 0:
			d.neg++
		case v > 0:
			d.pos++
		default:
			d.zero++
		}
	}

	if d.f12.RawMatrix().Cols > 0 {
		applyRowSwaps(&d.f12, d.ipiv)
		b := d.f12.RawMatrix()
		blas64.Trsm(blas.Left, blas.Lower, blas.NoTrans, blas.Unit, 1, raw, b)
	}
	if d.f21.RawMatrix().Rows > 0 {
		b := d.f21.RawMatrix()
		blas64.Trsm(blas.Right, blas.Upper, blas.NoTrans, blas.NonUnit, 1, raw, b)
	}
	if d.DimUpd() > 0 && dimSep > 0 {
		blas64.Gemm(blas.NoTrans, blas.NoTrans, -1, d.f21.RawMatrix(), d.f12.RawMatrix(), 1, d.f22.RawMatrix())
	}
	return nil
}

func diagMagnitude(m *mat.Dense, k int) float64 {
	r, _ := m.Dims()
	maxv := 0.0
	for i := 0; i < r; i++ {
		if v := math.Abs(m.At(i, k)); v > maxv {
			maxv = v
		}
	}
	if maxv == 0 {
		return 1
	}
	return maxv
}

// applyRowSwaps applies the sequential row interchanges recorded by
// lapack64.Getrf (row i exchanged with row ipiv[i], in forward order) to
// m, so that a matrix computed alongside F11 stays consistent with F11's
// row permutation.
func applyRowSwaps(m *mat.Dense, ipiv []int) {
	for i, piv := range ipiv {
		if piv == i {
			continue
		}
		_, c := m.Dims()
		for j := 0; j < c; j++ {
			vi, vp := m.At(i, j), m.At(piv, j)
			m.Set(i, j, vp)
			m.Set(piv, j, vi)
		}
	}
}

func (d *Dense) FwdSolve(bSep, bUpd *mat.Dense) {
	if d.DimSep() == 0 {
		return
	}
	applyRowSwaps(bSep, d.ipiv)
	raw := d.f11.RawMatrix()
	blas64.Trsm(blas.Left, blas.Lower, blas.NoTrans, blas.Unit, 1, raw, bSep.RawMatrix())
	if d.DimUpd() > 0 {
		blas64.Gemm(blas.NoTrans, blas.NoTrans, -1, d.f21.RawMatrix(), bSep.RawMatrix(), 1, bUpd.RawMatrix())
	}
}

func (d *Dense) BwdSolve(ySep, yUpd *mat.Dense) {
	if d.DimSep() == 0 {
		return
	}
	if d.DimUpd() > 0 {
		blas64.Gemm(blas.NoTrans, blas.NoTrans, -1, d.f12.RawMatrix(), yUpd.RawMatrix(), 1, ySep.RawMatrix())
	}
	raw := d.f11.RawMatrix()
	blas64.Trsm(blas.Left, blas.Upper, blas.NoTrans, blas.NonUnit, 1, raw, ySep.RawMatrix())
}

func (d *Dense) Release(final bool) {
	if !d.f22Released {
		d.f22 = mat.Dense{}
		d.f22Released = true
	}
	if final {
		d.f11, d.f12, d.f21 = mat.Dense{}, mat.Dense{}, mat.Dense{}
	}
}

// Compressed stands in for the HSS/BLR/HODLR/Lossy hierarchical variants.
// It delegates the exact dense computation to an embedded Dense front, then
// truncates F12/F21/F22 to the rank implied by RelTol/AbsTol via Gonum's
// SVD, so that the externally observable contract (factored F11, low-rank
// off-diagonal factors, approximate Schur complement) holds without
// reimplementing the four distinct hierarchical formats, which spec §1
// explicitly places out of scope.
type Compressed struct {
	kind           Kind
	relTol, absTol float64
	dense          *Dense
	maxRank        int
}

// NewCompressed returns a Compressed front of the given kind.
func NewCompressed(kind Kind, relTol, absTol, pivotThreshold float64) *Compressed {
	return &Compressed{kind: kind, relTol: relTol, absTol: absTol, dense: NewDense(pivotThreshold)}
}

func (c *Compressed) Build(a *csr.Matrix, sepBegin, sepEnd int, upd []int) {
	c.dense.Build(a, sepBegin, sepEnd, upd)
}

func (c *Compressed) ExtendAdd(childUpd []int, childF22 *mat.Dense) {
	c.dense.ExtendAdd(childUpd, childF22)
}

func (c *Compressed) PartialFactor() error {
	if err := c.dense.PartialFactor(); err != nil {
		return err
	}
	for _, m := range []*mat.Dense{&c.dense.f12, &c.dense.f21, &c.dense.f22} {
		if rank := truncateLowRank(m, c.relTol, c.absTol); rank > c.maxRank {
			c.maxRank = rank
		}
	}
	return nil
}

// truncateLowRank replaces m (r×c) with a rank-k approximation, k being
// the smallest number of singular values whose tail satisfies the
// rel_tol/abs_tol cutoff spec §4.4 requires of every compressed variant,
// and returns k. An empty (zero-row or zero-column) matrix truncates to
// rank 0 without invoking SVD.
func truncateLowRank(m *mat.Dense, relTol, absTol float64) int {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return 0
	}
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDThin) {
		return min(r, c)
	}
	values := svd.Values(nil)
	if len(values) == 0 {
		return 0
	}
	threshold := relTol*values[0] + absTol
	rank := len(values)
	for rank > 0 && values[rank-1] <= threshold {
		rank--
	}
	if rank == 0 {
		m.Zero()
		return 0
	}
	if rank == len(values) {
		return rank
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	uk := u.Slice(0, r, 0, rank).(*mat.Dense)
	vk := v.Slice(0, c, 0, rank).(*mat.Dense)
	sk := mat.NewDiagDense(rank, values[:rank])

	var us mat.Dense
	us.Mul(uk, sk)
	m.Mul(&us, vk.T())
	return rank
}

func (c *Compressed) FwdSolve(bSep, bUpd *mat.Dense) { c.dense.FwdSolve(bSep, bUpd) }
func (c *Compressed) BwdSolve(ySep, yUpd *mat.Dense) { c.dense.BwdSolve(ySep, yUpd) }
func (c *Compressed) Release(final bool)             { c.dense.Release(final) }
func (c *Compressed) DimSep() int                    { return c.dense.DimSep() }
func (c *Compressed) DimUpd() int                    { return c.dense.DimUpd() }
func (c *Compressed) Upd() []int                     { return c.dense.Upd() }
func (c *Compressed) F22() *mat.Dense                { return c.dense.F22() }
func (c *Compressed) Kind() Kind                     { return c.kind }

// Inertia delegates to the embedded exact factorization: compression only
// truncates the off-diagonal/Schur blocks, so F11's diagonal sign pattern
// (computed before truncation) is unaffected.
func (c *Compressed) Inertia() (neg, zero, pos int) { return c.dense.Inertia() }

// MaximumRank reports the largest rank any off-diagonal or Schur block was
// truncated to during PartialFactor, the maximum_rank query from spec §6.
func (c *Compressed) MaximumRank() int { return c.maxRank }

func (c *Compressed) Nonzeros() int {
	ds, du := c.dense.DimSep(), c.dense.DimUpd()
	if c.maxRank == 0 {
		return ds * ds
	}
	return ds*ds + 2*ds*c.maxRank
}
