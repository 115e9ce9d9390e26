// Package matching implements the weighted bipartite matching collaborator
// (component C4): given the structural pattern and values of a square
// matrix, it computes a column permutation and, optionally, row/column
// scalings that bring the largest-magnitude entries onto the diagonal.
//
// The solver treats this the same way it treats reordering (component C3):
// as a pluggable external collaborator behind an interface, so that a
// caller can substitute a different matching library (e.g. a wrapper around
// MC64) without touching the rest of the solver. Default provides a
// self-contained reference implementation, since none of the linear-algebra
// packages this solver draws on (Gonum included) ships a bipartite matching
// routine.
package matching

import (
	"fmt"
	"math"
	"sort"
)

// Job selects which matching problem to solve, mirroring the job codes
// recognized by the solver's options().matching setting.
type Job int

const (
	// None performs no matching: the identity permutation and unit
	// scalings are returned.
	None Job = iota
	// MaxCardinality finds a maximum-cardinality matching using only the
	// sparsity pattern, ignoring values.
	MaxCardinality
	// MaxSmallDiagonal (bottleneck matching) maximizes the smallest
	// magnitude entry placed on the diagonal.
	MaxSmallDiagonal
	// MaxProduct maximizes the product of the magnitudes of the
	// diagonal entries, without scaling.
	MaxProduct
	// MaxProductScaling solves the same problem as MaxProduct and in
	// addition derives row/column scalings that make every diagonal
	// entry of the permuted, scaled matrix unit magnitude.
	MaxProductScaling
)

func (j Job) String() string {
	switch j {
	case None:
		return "NONE"
	case MaxCardinality:
		return "MAX_CARD"
	case MaxSmallDiagonal:
		return "MAX_SMALL_DIAGONAL"
	case MaxProduct:
		return "MAX_PROD"
	case MaxProductScaling:
		return "MAX_PROD_SCALING"
	default:
		return "UNKNOWN"
	}
}

// Result holds the output of a matching computation.
type Result struct {
	// Perm is the column permutation: Perm[i] is the column matched to
	// row i, so that the permuted matrix has the matched entry on the
	// diagonal of row i.
	Perm []int
	// Dr, Dc are row and column scalings. They are all 1 unless Job was
	// MaxProductScaling.
	Dr, Dc []float64
}

// Matcher computes a matching for a square sparse matrix given in
// row-pointer/column-index/value form. It does not modify its arguments.
type Matcher interface {
	Match(n int, rowPtr, colInd []int, val []float64, job Job) (Result, error)
}

// Default is the solver's built-in Matcher.
type Default struct{}

// Match dispatches to the algorithm appropriate for job. It returns an
// error if job requires a perfect matching (every job except None) and the
// structural pattern does not admit one.
func (Default) Match(n int, rowPtr, colInd []int, val []float64, job Job) (Result, error) {
	if job == None {
		return identityResult(n), nil
	}

	adj := buildAdjacency(n, rowPtr, colInd)

	switch job {
	case MaxCardinality:
		perm, ok := maxCardinalityMatching(n, adj)
		if !ok {
			return Result{}, fmt.Errorf("matching: no perfect matching exists for the given pattern")
		}
		return Result{Perm: perm, Dr: ones(n), Dc: ones(n)}, nil

	case MaxSmallDiagonal:
		perm, ok := bottleneckMatching(n, adj, rowPtr, colInd, val)
		if !ok {
			return Result{}, fmt.Errorf("matching: no perfect matching exists for the given pattern")
		}
		return Result{Perm: perm, Dr: ones(n), Dc: ones(n)}, nil

	case MaxProduct:
		perm, _, _, ok := hungarian(n, buildCost(n, rowPtr, colInd, val))
		if !ok {
			return Result{}, fmt.Errorf("matching: no perfect matching exists for the given pattern")
		}
		return Result{Perm: perm, Dr: ones(n), Dc: ones(n)}, nil

	case MaxProductScaling:
		perm, u, v, ok := hungarian(n, buildCost(n, rowPtr, colInd, val))
		if !ok {
			return Result{}, fmt.Errorf("matching: no perfect matching exists for the given pattern")
		}
		dr := make([]float64, n)
		dc := make([]float64, n)
		for i := 0; i < n; i++ {
			dr[i] = math.Exp(u[i])
			dc[i] = math.Exp(v[i])
		}
		return Result{Perm: perm, Dr: dr, Dc: dc}, nil

	default:
		return Result{}, fmt.Errorf("matching: unknown job %v", job)
	}
}

func identityResult(n int) Result {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	return Result{Perm: perm, Dr: ones(n), Dc: ones(n)}
}

func ones(n int) []float64 {
	d := make([]float64, n)
	for i := range d {
		d[i] = 1
	}
	return d
}

func buildAdjacency(n int, rowPtr, colInd []int) [][]int {
	adj := make([][]int, n)
	for i := 0; i < n; i++ {
		adj[i] = append(adj[i], colInd[rowPtr[i]:rowPtr[i+1]]...)
	}
	return adj
}

// maxCardinalityMatching runs Kuhn's augmenting-path algorithm and reports
// whether the resulting matching is perfect (covers every row).
func maxCardinalityMatching(n int, adj [][]int) ([]int, bool) {
	matchCol := make([]int, n)
	for i := range matchCol {
		matchCol[i] = -1
	}
	matchRow := make([]int, n)
	for i := range matchRow {
		matchRow[i] = -1
	}

	var tryAugment func(row int, visited []bool) bool
	tryAugment = func(row int, visited []bool) bool {
		for _, col := range adj[row] {
			if visited[col] {
				continue
			}
			visited[col] = true
			if matchRow[col] == -1 || tryAugment(matchRow[col], visited) {
				matchRow[col] = row
				matchCol[row] = col
				return true
			}
		}
		return false
	}

	for i := 0; i < n; i++ {
		visited := make([]bool, n)
		if !tryAugment(i, visited) {
			return nil, false
		}
	}
	return matchCol, true
}

// bottleneckMatching finds the column permutation maximizing the minimum
// magnitude among matched entries, by binary search over the distinct
// magnitudes present in the matrix combined with Kuhn's algorithm restricted
// to edges at or above the candidate threshold.
func bottleneckMatching(n int, adj [][]int, rowPtr, colInd []int, val []float64) ([]int, bool) {
	mags := make([]float64, len(val))
	for i, v := range val {
		mags[i] = math.Abs(v)
	}
	thresholds := append([]float64(nil), mags...)
	sort.Float64s(thresholds)

	feasible := func(thresh float64) ([]int, bool) {
		filtered := make([][]int, n)
		for i := 0; i < n; i++ {
			for k := rowPtr[i]; k < rowPtr[i+1]; k++ {
				if math.Abs(val[k]) >= thresh {
					filtered[i] = append(filtered[i], colInd[k])
				}
			}
		}
		return maxCardinalityMatching(n, filtered)
	}

	lo, hi := 0, len(thresholds)-1
	var best []int
	bestOK := false
	if perm, ok := feasible(0); ok {
		best, bestOK = perm, true
	} else {
		return nil, false
	}
	for lo <= hi {
		mid := (lo + hi) / 2
		if perm, ok := feasible(thresholds[mid]); ok {
			best, bestOK = perm, true
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best, bestOK
}

const missingEdgeCost = 1e18

// buildCost constructs a dense n×n cost matrix c[i][j] = -log|a_ij| for
// stored entries, and a large constant for structural zeros, so that a
// minimum-cost perfect assignment corresponds to a maximum-product
// diagonal matching.
func buildCost(n int, rowPtr, colInd []int, val []float64) [][]float64 {
	c := make([][]float64, n)
	for i := range c {
		c[i] = make([]float64, n)
		for j := range c[i] {
			c[i][j] = missingEdgeCost
		}
	}
	for i := 0; i < n; i++ {
		for k := rowPtr[i]; k < rowPtr[i+1]; k++ {
			v := math.Abs(val[k])
			if v == 0 {
				continue
			}
			c[i][colInd[k]] = -math.Log(v)
		}
	}
	return c
}

// hungarian solves the square assignment problem min sum_i c[i][perm[i]]
// using the Kuhn-Munkres primal-dual algorithm (the Jonker-Volgenant
// shortest-augmenting-path formulation). It returns the assignment together
// with row and column potentials u, v satisfying u[i]+v[j] <= c[i][j], with
// equality on matched pairs; these potentials are the scaling factors used
// by MaxProductScaling. ok is false if any entry could not be matched to a
// finite-cost edge (the pattern does not admit a perfect matching of
// nonzeros).
func hungarian(n int, cost [][]float64) (perm []int, u, v []float64, ok bool) {
	const inf = math.MaxFloat64 / 4
	u = make([]float64, n+1)
	v = make([]float64, n+1)
	p := make([]int, n+1) // p[j] = row matched to column j (1-indexed columns, 0 = unmatched)
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = inf
		}
		for {
			used[j0] = true
			i0, delta, j1 := p[j0], inf, -1
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta, j1 = minv[j], j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	perm = make([]int, n)
	for j := 1; j <= n; j++ {
		if p[j] == 0 {
			return nil, nil, nil, false
		}
		row := p[j] - 1
		col := j - 1
		perm[row] = col
		if cost[row][col] >= missingEdgeCost/2 {
			return nil, nil, nil, false
		}
	}
	return perm, u[1:], v[1:], true
}
