package krylov

// Mode selects which solve strategy the façade uses to turn a factorization
// into an approximate solution of A*x = b.
type Mode int

const (
	// Auto selects PrecGMRES when compression is enabled and there is a
	// single right-hand side, and Refine otherwise. The condition mirrors
	// the heuristic used by the solver this package's host was distilled
	// from: GMRES recovers accuracy lost to a compressed (approximate)
	// factorization better than refinement alone, but is only applied to
	// single right-hand sides because restarted GMRES operates on one
	// vector at a time. This heuristic is preserved exactly and is not an
	// invitation to "improve" the selection.
	Auto Mode = iota
	// Direct applies the factorization once: x = M⁻¹b. No Krylov
	// iteration is performed.
	Direct
	// Refine performs iterative refinement using the factorization as an
	// approximate inverse.
	Refine
	// GMRESMode runs restarted GMRES without preconditioning (M = I).
	GMRESMode
	// PrecGMRES runs restarted GMRES preconditioned by the factorization.
	PrecGMRES
	// BiCGStabMode runs BiCGStab without preconditioning.
	BiCGStabMode
	// PrecBiCGStab runs BiCGStab preconditioned by the factorization.
	PrecBiCGStab
)

// ResolveAuto turns Auto into a concrete mode given whether compression is
// enabled and the number of right-hand sides being solved.
func ResolveAuto(m Mode, compressed bool, nrhs int) Mode {
	if m != Auto {
		return m
	}
	if compressed && nrhs == 1 {
		return PrecGMRES
	}
	return Refine
}
