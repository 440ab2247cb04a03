package ensemble

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cran/ddml/core/linalg"
	"github.com/cran/ddml/metrics"
	"github.com/cran/ddml/pkg/errors"
)

// degenerateTol is the weight-mass threshold below which a fitted weight
// vector is reported as degenerate.
const degenerateTol = 1e-10

// FitWeights computes one weight column per requested ensemble type from the
// out-of-sample prediction matrix P (observations × learners) and the
// realized target t. The returned matrix is (learners × types), columns in
// request order. custom supplies the fixed weights for the Custom type and
// is ignored otherwise.
//
// All schemes are deterministic given P and t; randomness lives upstream in
// the fold partition.
func FitWeights(P *mat.Dense, t *mat.VecDense, types []Type, custom *mat.VecDense) (*mat.Dense, error) {
	if err := validateTypes(types); err != nil {
		return nil, err
	}
	n, L := P.Dims()
	if n == 0 || L == 0 {
		return nil, errors.NewModelError("ensemble.FitWeights", "empty prediction matrix", errors.ErrEmptyData)
	}
	if t.Len() != n {
		return nil, errors.NewDimensionError("ensemble.FitWeights", n, t.Len(), 0)
	}

	W := mat.NewDense(L, len(types), nil)
	for j, typ := range types {
		w, err := fitOne(P, t, typ, custom)
		if err != nil {
			return nil, err
		}
		W.SetCol(j, vecData(w))

		if typ == OLS || typ == NNLS || typ == NNLS1 {
			var sum float64
			for l := 0; l < L; l++ {
				sum += math.Abs(w.AtVec(l))
			}
			if sum < degenerateTol {
				errors.Warn(errors.NewDegenerateWeightsWarning(string(typ), sum))
			}
		}
	}

	return W, nil
}

func fitOne(P *mat.Dense, t *mat.VecDense, typ Type, custom *mat.VecDense) (*mat.VecDense, error) {
	_, L := P.Dims()

	switch typ {
	case OLS:
		return linalg.LeastSquares(P, t)

	case NNLS:
		return nnls(P, t)

	case NNLS1:
		return nnlsSimplex(P, t)

	case SingleBest:
		best, err := bestColumn(P, t)
		if err != nil {
			return nil, err
		}
		w := mat.NewVecDense(L, nil)
		w.SetVec(best, 1)
		return w, nil

	case Average:
		w := mat.NewVecDense(L, nil)
		for l := 0; l < L; l++ {
			w.SetVec(l, 1/float64(L))
		}
		return w, nil

	case Custom:
		if custom == nil {
			return nil, errors.NewValueError("ensemble.FitWeights", "custom ensemble type requires a weight vector")
		}
		if custom.Len() != L {
			return nil, errors.NewDimensionError("ensemble.FitWeights", L, custom.Len(), 1)
		}
		w := mat.NewVecDense(L, nil)
		w.CopyVec(custom)
		return w, nil
	}

	return nil, errors.NewValidationError("ensemble type", "unknown scheme", typ)
}

// bestColumn returns the index of the column of P with the strictly smallest
// mean squared error against t. Ties keep the earliest learner.
func bestColumn(P *mat.Dense, t *mat.VecDense) (int, error) {
	n, L := P.Dims()

	best := 0
	bestMSE := math.Inf(1)
	col := mat.NewVecDense(n, nil)
	for l := 0; l < L; l++ {
		for i := 0; i < n; i++ {
			col.SetVec(i, P.At(i, l))
		}
		mse, err := metrics.MSE(t, col)
		if err != nil {
			return 0, err
		}
		if mse < bestMSE {
			bestMSE = mse
			best = l
		}
	}

	return best, nil
}

// Combine applies the fitted weight columns to the prediction matrix:
// combined = P · W, one combined column per ensemble type.
func Combine(P *mat.Dense, W *mat.Dense) (*mat.Dense, error) {
	n, L := P.Dims()
	wRows, nTypes := W.Dims()
	if wRows != L {
		return nil, errors.NewDimensionError("ensemble.Combine", L, wRows, 0)
	}

	out := mat.NewDense(n, nTypes, nil)
	out.Mul(P, W)
	return out, nil
}

func vecData(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
