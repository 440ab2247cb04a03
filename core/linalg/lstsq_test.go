package linalg

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestLeastSquares_FullRank(t *testing.T) {
	A := mat.NewDense(4, 2, []float64{
		1, 1,
		1, 2,
		1, 3,
		1, 4,
	})
	// b = 2 + 0.5·x exactly.
	b := mat.NewVecDense(4, []float64{2.5, 3, 3.5, 4})

	x, err := LeastSquares(A, b)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(x.AtVec(0)-2) > 1e-10 || math.Abs(x.AtVec(1)-0.5) > 1e-10 {
		t.Errorf("solution = (%v, %v), want (2, 0.5)", x.AtVec(0), x.AtVec(1))
	}
}

func TestLeastSquares_RankDeficientMinNorm(t *testing.T) {
	// Two identical columns: infinitely many least-squares solutions; the
	// minimum-norm one splits the coefficient evenly. Exactly collinear
	// columns must hit the truncated-rank path every time, not only when a
	// direct solve happens to notice the deficiency.
	A := mat.NewDense(3, 2, []float64{
		1, 1,
		2, 2,
		3, 3,
	})
	b := mat.NewVecDense(3, []float64{1, 2, 3})

	x, err := LeastSquares(A, b)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(x.AtVec(0)-0.5) > 1e-10 || math.Abs(x.AtVec(1)-0.5) > 1e-10 {
		t.Errorf("minimum-norm solution = (%v, %v), want (0.5, 0.5)", x.AtVec(0), x.AtVec(1))
	}
}

func TestLeastSquares_ProportionalColumnsMinNorm(t *testing.T) {
	// Column 1 = 2 × column 0, b = column 0. All solutions satisfy
	// x0 + 2·x1 = 1; the minimum-norm one is (1/5, 2/5).
	A := mat.NewDense(4, 2, []float64{
		1, 2,
		-1, -2,
		2, 4,
		0.5, 1,
	})
	b := mat.NewVecDense(4, []float64{1, -1, 2, 0.5})

	x, err := LeastSquares(A, b)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(x.AtVec(0)-0.2) > 1e-10 || math.Abs(x.AtVec(1)-0.4) > 1e-10 {
		t.Errorf("minimum-norm solution = (%v, %v), want (0.2, 0.4)", x.AtVec(0), x.AtVec(1))
	}
}

func TestPseudoInverse(t *testing.T) {
	A := mat.NewDense(2, 2, []float64{4, 0, 0, 2})
	P, err := PseudoInverse(A)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(P.At(0, 0)-0.25) > 1e-12 || math.Abs(P.At(1, 1)-0.5) > 1e-12 {
		t.Errorf("pseudo-inverse diagonal = (%v, %v), want (0.25, 0.5)", P.At(0, 0), P.At(1, 1))
	}

	// Singular matrix: A⁺A A⁺ = A⁺ still holds.
	S := mat.NewDense(2, 2, []float64{1, 1, 1, 1})
	Pinv, err := PseudoInverse(S)
	if err != nil {
		t.Fatal(err)
	}
	var check mat.Dense
	check.Mul(Pinv, S)
	check.Mul(&check, Pinv)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if math.Abs(check.At(i, j)-Pinv.At(i, j)) > 1e-10 {
				t.Fatalf("A⁺AA⁺ ≠ A⁺ at (%d,%d): %v vs %v", i, j, check.At(i, j), Pinv.At(i, j))
			}
		}
	}
}

func TestInverseSPD(t *testing.T) {
	A := mat.NewDense(2, 2, []float64{2, 1, 1, 2})
	Inv, err := InverseSPD(A)
	if err != nil {
		t.Fatal(err)
	}
	var prod mat.Dense
	prod.Mul(A, Inv)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(prod.At(i, j)-want) > 1e-10 {
				t.Errorf("A·A⁻¹ at (%d,%d) = %v, want %v", i, j, prod.At(i, j), want)
			}
		}
	}

	// A singular input falls back to the pseudo-inverse instead of failing.
	S := mat.NewDense(2, 2, []float64{1, 1, 1, 1})
	if _, err := InverseSPD(S); err != nil {
		t.Errorf("singular input should use the pseudo-inverse fallback, got %v", err)
	}
}
