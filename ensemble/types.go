// Package ensemble combines the out-of-sample predictions of several
// learners into a single nuisance estimate. Weight fitting supports
// unconstrained least squares, non-negative least squares with and without a
// sum-to-one constraint, best-single-learner selection, simple averaging and
// user-supplied fixed weights, plus the stacking and short-stacking
// orchestration built on those schemes.
package ensemble

import (
	"github.com/cran/ddml/pkg/errors"
)

// Type identifies a weight-fitting scheme.
type Type string

const (
	// OLS fits unconstrained least-squares weights, falling back to a
	// pseudo-inverse when the learner predictions are collinear.
	OLS Type = "ols"
	// NNLS fits least-squares weights constrained to be non-negative.
	NNLS Type = "nnls"
	// NNLS1 fits non-negative weights that sum to one (a convex combination).
	NNLS1 Type = "nnls1"
	// SingleBest puts all weight on the learner with the smallest
	// out-of-sample mean squared error.
	SingleBest Type = "singlebest"
	// Average weights every learner equally; no fitting.
	Average Type = "average"
	// Custom uses a caller-supplied fixed weight vector.
	Custom Type = "custom"
)

// ParseType converts a string label to a Type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case OLS, NNLS, NNLS1, SingleBest, Average, Custom:
		return Type(s), nil
	}
	return "", errors.NewValidationError("ensemble type", "unknown scheme", s)
}

// Labels returns the string labels of an ordered type list.
func Labels(types []Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func validateTypes(types []Type) error {
	if len(types) == 0 {
		return errors.NewValueError("ensemble", "at least one ensemble type is required")
	}
	for _, t := range types {
		if _, err := ParseType(string(t)); err != nil {
			return err
		}
	}
	return nil
}
