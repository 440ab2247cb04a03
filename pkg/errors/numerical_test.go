package errors

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("test", []float64{1, -2.5, 0}); err != nil {
		t.Errorf("finite values flagged: %v", err)
	}
	if err := CheckNumericalStability("test", []float64{1, math.NaN()}); err == nil {
		t.Error("NaN not detected")
	}
	if err := CheckNumericalStability("test", []float64{math.Inf(1)}); err == nil {
		t.Error("Inf not detected")
	}
}

func TestCheckMatrix(t *testing.T) {
	good := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	if err := CheckMatrix("test", good, 2, 2); err != nil {
		t.Errorf("finite matrix flagged: %v", err)
	}
	bad := mat.NewDense(2, 2, []float64{1, 2, math.Inf(-1), 4})
	if err := CheckMatrix("test", bad, 2, 2); err == nil {
		t.Error("Inf entry not detected")
	}
}

func TestClipValue(t *testing.T) {
	cases := []struct {
		value, min, max, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-0.1, 0, 1, 0},
		{1.2, 0, 1, 1},
		{0, 0, 1, 0},
	}
	for _, tc := range cases {
		if got := ClipValue(tc.value, tc.min, tc.max); got != tc.want {
			t.Errorf("ClipValue(%v, %v, %v) = %v, want %v", tc.value, tc.min, tc.max, got, tc.want)
		}
	}
}

func TestSafeDivide(t *testing.T) {
	if got := SafeDivide(1, 2); got != 0.5 {
		t.Errorf("SafeDivide(1, 2) = %v, want 0.5", got)
	}
	if got := SafeDivide(1, 0); got != 0 {
		t.Errorf("SafeDivide(1, 0) = %v, want 0", got)
	}
	if got := SafeDivide(1, 1e-15); got != 0 {
		t.Errorf("SafeDivide near zero = %v, want 0", got)
	}
}
