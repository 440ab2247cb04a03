// Package learner provides simple built-in learners conforming to the
// fit/predict capability contract of the cross-fitting engine: ordinary
// least squares and ridge regression. Anything implementing
// core/model.Learner can be used in their place.
package learner

import (
	"gonum.org/v1/gonum/mat"

	"github.com/cran/ddml/core/linalg"
	"github.com/cran/ddml/core/model"
	"github.com/cran/ddml/core/parallel"
	"github.com/cran/ddml/pkg/errors"
)

// OLS is an ordinary least squares learner. Collinear features are handled
// by the minimum-norm fallback of the solver rather than an error.
type OLS struct {
	fitIntercept bool
}

// NewOLS creates an OLS learner. The intercept is fitted by default.
func NewOLS(opts ...Option) *OLS {
	o := &OLS{fitIntercept: true}
	cfg := config{fitIntercept: &o.fitIntercept}
	for _, opt := range opts {
		opt(&cfg)
	}
	return o
}

// Fit implements model.Learner.
func (o *OLS) Fit(X mat.Matrix, y *mat.VecDense) (model.Model, error) {
	design, err := buildDesign(X, y, o.fitIntercept)
	if err != nil {
		return nil, errors.Wrap(err, "OLS.Fit")
	}

	coef, err := linalg.LeastSquares(design, y)
	if err != nil {
		return nil, errors.Wrap(err, "OLS.Fit")
	}

	_, p := X.Dims()
	return newLinearModel(coef, p, o.fitIntercept), nil
}

// Ridge is an L2-penalized linear learner. The intercept, when fitted, is
// not penalized.
type Ridge struct {
	lambda       float64
	fitIntercept bool
}

// NewRidge creates a ridge learner with penalty lambda.
func NewRidge(lambda float64, opts ...Option) (*Ridge, error) {
	if lambda < 0 {
		return nil, errors.NewValidationError("lambda", "must be non-negative", lambda)
	}
	r := &Ridge{lambda: lambda, fitIntercept: true}
	cfg := config{fitIntercept: &r.fitIntercept}
	for _, opt := range opts {
		opt(&cfg)
	}
	return r, nil
}

// Fit implements model.Learner. Solves (X'X + λI)β = X'y with a zero
// penalty on the intercept coordinate.
func (r *Ridge) Fit(X mat.Matrix, y *mat.VecDense) (model.Model, error) {
	design, err := buildDesign(X, y, r.fitIntercept)
	if err != nil {
		return nil, errors.Wrap(err, "Ridge.Fit")
	}

	_, cols := design.Dims()
	var gram mat.Dense
	gram.Mul(design.T(), design)
	for j := 0; j < cols; j++ {
		if r.fitIntercept && j == 0 {
			continue
		}
		gram.Set(j, j, gram.At(j, j)+r.lambda)
	}

	rhs := mat.NewVecDense(cols, nil)
	rhs.MulVec(design.T(), y)

	coef, err := linalg.LeastSquares(&gram, rhs)
	if err != nil {
		return nil, errors.Wrap(err, "Ridge.Fit")
	}

	_, p := X.Dims()
	return newLinearModel(coef, p, r.fitIntercept), nil
}

// linearModel is the fitted model returned by both linear learners.
type linearModel struct {
	intercept float64
	weights   *mat.VecDense
	nFeatures int
}

func newLinearModel(coef *mat.VecDense, nFeatures int, fitIntercept bool) *linearModel {
	m := &linearModel{nFeatures: nFeatures}
	if fitIntercept {
		m.intercept = coef.AtVec(0)
		m.weights = mat.NewVecDense(nFeatures, nil)
		for j := 0; j < nFeatures; j++ {
			m.weights.SetVec(j, coef.AtVec(j+1))
		}
	} else {
		m.weights = mat.NewVecDense(nFeatures, nil)
		m.weights.CopyVec(coef)
	}
	return m
}

// predictParallelThreshold is the row count above which Predict fans the
// dot-product loop out across CPU cores.
const predictParallelThreshold = 1000

// Predict implements model.Model. Rows are independent, so large query
// matrices are processed in parallel row ranges.
func (m *linearModel) Predict(X mat.Matrix) (*mat.VecDense, error) {
	n, p := X.Dims()
	if p != m.nFeatures {
		return nil, errors.NewDimensionError("linearModel.Predict", m.nFeatures, p, 1)
	}

	out := mat.NewVecDense(n, nil)
	parallel.ParallelizeWithThreshold(n, predictParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			v := m.intercept
			for j := 0; j < p; j++ {
				v += X.At(i, j) * m.weights.AtVec(j)
			}
			out.SetVec(i, v)
		}
	})
	return out, nil
}

// Intercept returns the fitted intercept (zero when not fitted).
func (m *linearModel) Intercept() float64 {
	return m.intercept
}

// Weights returns the fitted feature coefficients.
func (m *linearModel) Weights() []float64 {
	out := make([]float64, m.weights.Len())
	for i := range out {
		out[i] = m.weights.AtVec(i)
	}
	return out
}

// buildDesign validates (X, y) and prepends the intercept column when
// requested.
func buildDesign(X mat.Matrix, y *mat.VecDense, fitIntercept bool) (*mat.Dense, error) {
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return nil, errors.NewModelError("buildDesign", "empty feature matrix", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return nil, errors.NewDimensionError("buildDesign", n, y.Len(), 0)
	}

	if !fitIntercept {
		out := mat.NewDense(n, p, nil)
		out.Copy(X)
		return out, nil
	}

	out := mat.NewDense(n, p+1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			out.Set(i, j+1, X.At(i, j))
		}
	}
	return out, nil
}
