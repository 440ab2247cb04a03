// Package linalg provides the shared least-squares plumbing: a
// rank-truncated SVD solver that degrades to the minimum-norm solution on
// rank-deficient systems.
package linalg

import (
	"gonum.org/v1/gonum/mat"

	"github.com/cran/ddml/pkg/errors"
)

// LeastSquares solves min ||b - Ax||₂ via a rank-truncated SVD. On a
// full-rank system this is the ordinary least-squares solution; on a
// singular or near-singular one, directions whose singular value falls
// below the machine-precision cutoff are dropped and the minimum-norm
// solution is returned. Rank deficiency is therefore never fatal, matching
// how a generalized inverse behaves.
//
// Rank handling is done on the singular values directly rather than by
// attempting a QR solve and inspecting its error: the dense QR solve can
// return a vertex solution with a nil error on exactly collinear columns,
// which would make the minimum-norm behavior data-dependent.
func LeastSquares(A mat.Matrix, b mat.Vector) (*mat.VecDense, error) {
	rows, cols := A.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewModelError("LeastSquares", "empty matrix", errors.ErrEmptyData)
	}
	if b.Len() != rows {
		return nil, errors.NewDimensionError("LeastSquares", rows, b.Len(), 0)
	}

	return svdSolve(A, b)
}

// svdSolve computes the minimum-norm least-squares solution via the thin
// SVD, zeroing directions whose singular value falls below the usual
// machine-precision cutoff.
func svdSolve(A mat.Matrix, b mat.Vector) (*mat.VecDense, error) {
	rows, cols := A.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDThin); !ok {
		return nil, errors.NewModelError("LeastSquares", "SVD factorization failed", errors.ErrSingularMatrix)
	}

	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	maxDim := rows
	if cols > maxDim {
		maxDim = cols
	}
	tol := float64(maxDim) * eps * values[0]

	x := mat.NewVecDense(cols, nil)
	for i, s := range values {
		if s <= tol {
			continue
		}
		// x += v_i * (u_i · b) / s
		var dot float64
		for r := 0; r < rows; r++ {
			dot += u.At(r, i) * b.AtVec(r)
		}
		scale := dot / s
		for c := 0; c < cols; c++ {
			x.SetVec(c, x.AtVec(c)+v.At(c, i)*scale)
		}
	}

	return x, nil
}

// PseudoInverse computes the Moore-Penrose pseudo-inverse of A.
func PseudoInverse(A mat.Matrix) (*mat.Dense, error) {
	rows, cols := A.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewModelError("PseudoInverse", "empty matrix", errors.ErrEmptyData)
	}

	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDThin); !ok {
		return nil, errors.NewModelError("PseudoInverse", "SVD factorization failed", errors.ErrSingularMatrix)
	}

	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	maxDim := rows
	if cols > maxDim {
		maxDim = cols
	}
	tol := float64(maxDim) * eps * values[0]

	// pinv(A) = V Σ⁺ Uᵀ
	k := len(values)
	sigmaInv := mat.NewDense(k, k, nil)
	for i, s := range values {
		if s > tol {
			sigmaInv.Set(i, i, 1/s)
		}
	}

	out := mat.NewDense(cols, rows, nil)
	var tmp mat.Dense
	tmp.Mul(&v, sigmaInv)
	out.Mul(&tmp, u.T())

	return out, nil
}

// InverseSPD inverts a symmetric positive-definite matrix, falling back to
// the pseudo-inverse when the LU-backed inverse fails.
func InverseSPD(A mat.Matrix) (*mat.Dense, error) {
	rows, cols := A.Dims()
	if rows != cols {
		return nil, errors.NewDimensionError("InverseSPD", rows, cols, 1)
	}

	var inv mat.Dense
	if err := inv.Inverse(A); err == nil {
		return &inv, nil
	}

	return PseudoInverse(A)
}

const eps = 2.220446049250313e-16
