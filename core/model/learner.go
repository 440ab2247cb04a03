// Package model defines the capability interfaces the cross-fitting engine
// requires from learning procedures, and shared estimator state management.
package model

import "gonum.org/v1/gonum/mat"

// Model is an opaque fitted model. The engine never inspects its internals;
// it only asks for predictions on query rows.
type Model interface {
	// Predict returns one prediction per row of X.
	Predict(X mat.Matrix) (*mat.VecDense, error)
}

// Learner is the fit/predict capability contract. Any learning procedure
// conforming to it can be plugged into the cross-fitting engine: gradient
// boosting, penalized regression, forests, or a plain linear model.
type Learner interface {
	// Fit trains on (X, y) and returns an opaque fitted model.
	Fit(X mat.Matrix, y *mat.VecDense) (Model, error)
}

// LearnerFunc adapts a plain function to the Learner interface.
type LearnerFunc func(X mat.Matrix, y *mat.VecDense) (Model, error)

// Fit implements Learner.
func (f LearnerFunc) Fit(X mat.Matrix, y *mat.VecDense) (Model, error) {
	return f(X, y)
}
