// Package metrics provides the regression metrics used by ensemble
// selection and model diagnostics.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cran/ddml/pkg/errors"
)

// MSE computes the mean squared error between two vectors.
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("MSE", "empty vector")
	}

	if yPred.Len() != n {
		return 0, errors.NewDimensionError("MSE", n, yPred.Len(), 0)
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}

	return sum / float64(n), nil
}

// RMSE computes the root mean squared error between two vectors.
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// RSquared computes the coefficient of determination R².
// Returns 0 when the target has zero variance.
func RSquared(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("RSquared", "empty vector")
	}

	if yPred.Len() != n {
		return 0, errors.NewDimensionError("RSquared", n, yPred.Len(), 0)
	}

	var meanY float64
	for i := 0; i < n; i++ {
		meanY += yTrue.AtVec(i)
	}
	meanY /= float64(n)

	var ssRes, ssTot float64
	for i := 0; i < n; i++ {
		res := yTrue.AtVec(i) - yPred.AtVec(i)
		tot := yTrue.AtVec(i) - meanY
		ssRes += res * res
		ssTot += tot * tot
	}

	if ssTot == 0 {
		return 0, nil
	}

	return 1 - ssRes/ssTot, nil
}
