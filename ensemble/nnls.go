package ensemble

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/cran/ddml/core/linalg"
	"github.com/cran/ddml/pkg/errors"
)

// nnls solves min ||b - Ax||₂ subject to x ≥ 0 with the Lawson-Hanson
// active-set algorithm. Termination is finite: each outer iteration moves at
// least one column into the passive set or stops on a non-positive gradient.
func nnls(A *mat.Dense, b *mat.VecDense) (*mat.VecDense, error) {
	n, L := A.Dims()

	x := make([]float64, L)
	passive := make([]bool, L)

	gradTol := 10 * eps * mat.Norm(A, 2) * mat.Norm(b, 2)
	maxOuter := 3 * L
	if maxOuter < 30 {
		maxOuter = 30
	}

	resid := mat.NewVecDense(n, nil)
	for outer := 0; outer < maxOuter; outer++ {
		// w = Aᵀ(b − Ax), the negative gradient
		computeResidual(resid, A, b, x)
		j, wmax := -1, gradTol
		for l := 0; l < L; l++ {
			if passive[l] {
				continue
			}
			var w float64
			for i := 0; i < n; i++ {
				w += A.At(i, l) * resid.AtVec(i)
			}
			if w > wmax {
				wmax = w
				j = l
			}
		}
		if j < 0 {
			break
		}
		passive[j] = true

		for {
			s, err := solvePassive(A, b, passive)
			if err != nil {
				return nil, err
			}

			feasible := true
			for l := 0; l < L; l++ {
				if passive[l] && s[l] <= 0 {
					feasible = false
					break
				}
			}
			if feasible {
				for l := 0; l < L; l++ {
					if passive[l] {
						x[l] = s[l]
					} else {
						x[l] = 0
					}
				}
				break
			}

			// Step toward s only as far as feasibility allows, then drop the
			// binding columns from the passive set.
			alpha := math.Inf(1)
			for l := 0; l < L; l++ {
				if passive[l] && s[l] <= 0 {
					if a := x[l] / (x[l] - s[l]); a < alpha {
						alpha = a
					}
				}
			}
			for l := 0; l < L; l++ {
				if passive[l] {
					x[l] += alpha * (s[l] - x[l])
					if x[l] <= 1e-14 {
						x[l] = 0
						passive[l] = false
					}
				}
			}
		}
	}

	return mat.NewVecDense(L, x), nil
}

// solvePassive solves the unconstrained least-squares subproblem restricted
// to the passive columns and scatters the solution back to full length.
func solvePassive(A *mat.Dense, b *mat.VecDense, passive []bool) ([]float64, error) {
	n, L := A.Dims()

	cols := make([]int, 0, L)
	for l := 0; l < L; l++ {
		if passive[l] {
			cols = append(cols, l)
		}
	}
	if len(cols) == 0 {
		return make([]float64, L), nil
	}

	sub := mat.NewDense(n, len(cols), nil)
	for i := 0; i < n; i++ {
		for c, l := range cols {
			sub.Set(i, c, A.At(i, l))
		}
	}

	sol, err := linalg.LeastSquares(sub, b)
	if err != nil {
		return nil, errors.Wrap(err, "nnls passive subproblem")
	}

	s := make([]float64, L)
	for c, l := range cols {
		s[l] = sol.AtVec(c)
	}
	return s, nil
}

func computeResidual(dst *mat.VecDense, A *mat.Dense, b *mat.VecDense, x []float64) {
	n, L := A.Dims()
	for i := 0; i < n; i++ {
		v := b.AtVec(i)
		for l := 0; l < L; l++ {
			if x[l] != 0 {
				v -= A.At(i, l) * x[l]
			}
		}
		dst.SetVec(i, v)
	}
}

// nnlsSimplex solves min ||t - Pw||₂ subject to w ≥ 0 and Σw = 1 by
// projected gradient descent on the probability simplex. The iteration
// starts from the uniform weights, so symmetric inputs (e.g. identical
// learner columns) keep a symmetric solution instead of an arbitrary
// vertex.
func nnlsSimplex(P *mat.Dense, t *mat.VecDense) (*mat.VecDense, error) {
	n, L := P.Dims()

	// Normal-equation pieces: G = PᵀP/n, c = Pᵀt/n.
	G := mat.NewDense(L, L, nil)
	c := make([]float64, L)
	for a := 0; a < L; a++ {
		for bcol := a; bcol < L; bcol++ {
			var sum float64
			for i := 0; i < n; i++ {
				sum += P.At(i, a) * P.At(i, bcol)
			}
			sum /= float64(n)
			G.Set(a, bcol, sum)
			G.Set(bcol, a, sum)
		}
		var sum float64
		for i := 0; i < n; i++ {
			sum += P.At(i, a) * t.AtVec(i)
		}
		c[a] = sum / float64(n)
	}

	// Frobenius norm bounds the spectral radius of G, which gives a safe
	// step size for the gradient 2(Gw - c).
	lip := 2 * mat.Norm(G, 2)
	w := make([]float64, L)
	for l := range w {
		w[l] = 1 / float64(L)
	}
	// An all-zero prediction matrix has no gradient information; the uniform
	// start is already the projection of any solution.
	step := errors.SafeDivide(1, lip)
	if step == 0 {
		return mat.NewVecDense(L, w), nil
	}

	grad := make([]float64, L)
	next := make([]float64, L)
	const maxIter = 50000
	for iter := 0; iter < maxIter; iter++ {
		for a := 0; a < L; a++ {
			var gw float64
			for bcol := 0; bcol < L; bcol++ {
				gw += G.At(a, bcol) * w[bcol]
			}
			grad[a] = 2 * (gw - c[a])
		}
		for a := 0; a < L; a++ {
			next[a] = w[a] - step*grad[a]
		}
		projectSimplex(next)

		var delta float64
		for a := 0; a < L; a++ {
			if d := math.Abs(next[a] - w[a]); d > delta {
				delta = d
			}
			w[a] = next[a]
		}
		if delta < 1e-13 {
			break
		}
	}

	return mat.NewVecDense(L, w), nil
}

// projectSimplex replaces v with its Euclidean projection onto the
// probability simplex {w : w ≥ 0, Σw = 1}.
func projectSimplex(v []float64) {
	n := len(v)
	sorted := append([]float64(nil), v...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	var cumsum, theta float64
	for i := 0; i < n; i++ {
		cumsum += sorted[i]
		t := (cumsum - 1) / float64(i+1)
		if sorted[i]-t > 0 {
			theta = t
		}
	}

	for i := range v {
		v[i] = math.Max(v[i]-theta, 0)
	}
}

const eps = 2.220446049250313e-16
