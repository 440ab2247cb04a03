package errors

import (
	"math"
)

// CheckNumericalStability checks values for NaN or Inf and returns an error
// when numerical instability is detected. Used to guard the score components
// entering moment-mode inference.
func CheckNumericalStability(operation string, values []float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewValueError(operation, "numerical instability detected (NaN or Inf)")
		}
	}
	return nil
}

// CheckMatrix checks all values of a matrix for numerical instability. Used
// to guard the out-of-sample prediction matrix after cross-fitting.
func CheckMatrix(operation string, matrix interface{ At(int, int) float64 }, rows, cols int) error {
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return NewValueError(operation, "numerical instability detected (NaN or Inf)")
			}
		}
	}
	return nil
}

// ClipValue clips a value to the range [min, max].
func ClipValue(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// SafeDivide performs division with protection against division by zero.
// Returns 0 when the denominator is zero or close to zero.
func SafeDivide(numerator, denominator float64) float64 {
	if math.Abs(denominator) < 1e-10 {
		return 0
	}
	return numerator / denominator
}
