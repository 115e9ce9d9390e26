// Package mfsolve ties together the leaf packages (csr, csgraph, reorder,
// matching, elimtree, front, krylov) into the solver façade (component C10):
// set the matrix, reorder, factor, and solve, with the post-order
// factorization driver (C7) and the multifrontal triangular solve (C8)
// living here since both need every other package at once.
package mfsolve

import (
	"fmt"

	"github.com/sparsekit/mfsolve/front"
	"github.com/sparsekit/mfsolve/krylov"
	"github.com/sparsekit/mfsolve/matching"
	"github.com/sparsekit/mfsolve/reorder"
)

// Options holds every configuration field spec §6 names. It is a plain
// struct, not a functional-options builder, mirroring the teacher's own
// krylov.Settings: a struct the caller mutates directly, paired with a
// defaults function and a validator.
type Options struct {
	// Matching selects the weighted-bipartite-matching job run during
	// Reorder to improve diagonal dominance before factorization.
	Matching matching.Job

	// Compression selects the frontal-block variant policy; KindDense
	// disables compression entirely.
	Compression             front.Kind
	CompressionMinSepSize   int
	CompressionMinFrontSize int
	// RelTol and AbsTol bound the low-rank truncation error of compressed
	// fronts (front.Policy.RelTol/AbsTol).
	RelTol, AbsTol float64

	// PivotThreshold is the fraction of the running diagonal magnitude
	// below which a pivot is reported as SingularFront.
	PivotThreshold float64

	// Geometry gives nested-dissection the regular-stencil hint
	// (nx,ny,nz,components,width); a zero value falls back to the generic
	// graph-bisection strategy.
	Geometry reorder.Geometry

	// KrylovMode selects the outer solve strategy (§4.7); krylov.Auto
	// resolves per krylov.ResolveAuto.
	KrylovMode krylov.Mode
	// KrylovRelTol and KrylovAbsTol are the Krylov/refinement stopping
	// tolerances; RelTol/AbsTol above are the compression tolerances, kept
	// separate since they govern unrelated approximations.
	KrylovRelTol, KrylovAbsTol float64
	MaxIterations              int
	GMRESRestart               int
	GramSchmidt                krylov.GramSchmidt
}

// DefaultOptions returns the configuration used when a Solver is
// constructed: no matching, no compression, AUTO Krylov selection,
// tolerances matching krylov's own defaults.
func DefaultOptions() Options {
	return Options{
		Matching:                matching.None,
		Compression:             front.KindDense,
		CompressionMinSepSize:   256,
		CompressionMinFrontSize: 512,
		RelTol:                  1e-8,
		AbsTol:                  0,
		PivotThreshold:          1e-14,
		KrylovMode:              krylov.Auto,
		KrylovRelTol:            1e-8,
		KrylovAbsTol:            0,
		MaxIterations:           0, // krylov defaults to 4*N
		GMRESRestart:            30,
		GramSchmidt:             krylov.Modified,
	}
}

// Validate reports an error if o holds a combination the solver cannot act
// on, mirroring the teacher's checkSettings pattern.
func (o *Options) Validate() error {
	if o.PivotThreshold < 0 {
		return fmt.Errorf("mfsolve: negative pivot threshold")
	}
	if o.RelTol < 0 || o.AbsTol < 0 {
		return fmt.Errorf("mfsolve: negative compression tolerance")
	}
	if o.KrylovRelTol < 0 || o.KrylovAbsTol < 0 {
		return fmt.Errorf("mfsolve: negative Krylov tolerance")
	}
	if o.MaxIterations < 0 {
		return fmt.Errorf("mfsolve: negative max iterations")
	}
	if o.GMRESRestart < 0 {
		return fmt.Errorf("mfsolve: negative GMRES restart")
	}
	return nil
}

func (o *Options) frontPolicy() front.Policy {
	return front.Policy{
		Compression:             o.Compression,
		CompressionMinSepSize:   o.CompressionMinSepSize,
		CompressionMinFrontSize: o.CompressionMinFrontSize,
		RelTol:                  o.RelTol,
		AbsTol:                  o.AbsTol,
		PivotThreshold:          o.PivotThreshold,
	}
}
