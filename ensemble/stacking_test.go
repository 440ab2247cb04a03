package ensemble

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/cran/ddml/core/model"
	"github.com/cran/ddml/crossfit"
	"github.com/cran/ddml/learner"
)

// meanLearner predicts the mean of its training targets everywhere.
type meanLearner struct{}

type meanModel struct{ mean float64 }

func (meanLearner) Fit(X mat.Matrix, y *mat.VecDense) (model.Model, error) {
	var sum float64
	for i := 0; i < y.Len(); i++ {
		sum += y.AtVec(i)
	}
	return &meanModel{mean: sum / float64(y.Len())}, nil
}

func (m *meanModel) Predict(X mat.Matrix) (*mat.VecDense, error) {
	rows, _ := X.Dims()
	out := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		out.SetVec(i, m.mean)
	}
	return out, nil
}

func TestStack_ShapesAndAverageWeights(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 21))
	n, k := 90, 3
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, rng.NormFloat64())
		X.Set(i, 1, rng.NormFloat64())
		y.SetVec(i, X.At(i, 0)+rng.NormFloat64())
	}
	folds, err := crossfit.GenerateFolds(rng, n, k)
	if err != nil {
		t.Fatal(err)
	}
	learners := []crossfit.Spec{
		{Name: "ols", Learner: learner.NewOLS()},
		{Name: "mean", Learner: meanLearner{}},
	}

	res, err := Stack(rng, X, y, folds, learners, []Type{Average, NNLS1}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.FoldWeights) != k {
		t.Fatalf("got %d fold weight matrices, want %d", len(res.FoldWeights), k)
	}
	rows, cols := res.Combined.Dims()
	if rows != n || cols != 2 {
		t.Fatalf("combined dims = %d×%d, want %d×2", rows, cols, n)
	}

	// The average scheme assigns 1/L in every fold, so the averaged weights
	// are exactly 1/L too.
	for _, W := range res.FoldWeights {
		if W.At(0, 0) != 0.5 || W.At(1, 0) != 0.5 {
			t.Errorf("per-fold average weights = (%v, %v), want (0.5, 0.5)", W.At(0, 0), W.At(1, 0))
		}
	}
	if res.AvgWeights.At(0, 0) != 0.5 || res.AvgWeights.At(1, 0) != 0.5 {
		t.Errorf("averaged weights = (%v, %v), want (0.5, 0.5)",
			res.AvgWeights.At(0, 0), res.AvgWeights.At(1, 0))
	}
}

func TestStack_NoiselessLinearTarget(t *testing.T) {
	rng := rand.New(rand.NewPCG(22, 22))
	n, k := 120, 4
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		a, b := rng.NormFloat64(), rng.NormFloat64()
		X.Set(i, 0, a)
		X.Set(i, 1, b)
		y.SetVec(i, 2*a-b+0.5)
	}
	folds, err := crossfit.GenerateFolds(rng, n, k)
	if err != nil {
		t.Fatal(err)
	}
	learners := []crossfit.Spec{{Name: "ols", Learner: learner.NewOLS()}}

	res, err := Stack(rng, X, y, folds, learners, []Type{NNLS1}, nil)
	if err != nil {
		t.Fatal(err)
	}

	// A single learner gets weight 1, and full-training OLS reproduces the
	// noiseless target exactly on the held-out folds.
	for i := 0; i < n; i++ {
		if math.Abs(res.Combined.At(i, 0)-y.AtVec(i)) > 1e-8 {
			t.Fatalf("combined prediction at row %d = %v, want %v",
				i, res.Combined.At(i, 0), y.AtVec(i))
		}
	}
}

func TestStackConditional_RestrictsTraining(t *testing.T) {
	rng := rand.New(rand.NewPCG(23, 23))
	n, k := 60, 3
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	include := make([]bool, n)
	for i := 0; i < n; i++ {
		X.Set(i, 0, rng.NormFloat64())
		// Included rows carry target 1, excluded rows target 0. If the mean
		// learner ever sees an excluded row its prediction drops below 1.
		if i%2 == 0 {
			include[i] = true
			y.SetVec(i, 1)
		}
	}
	folds, err := crossfit.GenerateFolds(rng, n, k)
	if err != nil {
		t.Fatal(err)
	}
	learners := []crossfit.Spec{{Name: "mean", Learner: meanLearner{}}}

	res, err := StackConditional(rng, X, y, folds, learners, []Type{Average}, nil, include)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		if res.Combined.At(i, 0) != 1 {
			t.Fatalf("prediction at row %d = %v, want 1 (training leaked excluded rows)",
				i, res.Combined.At(i, 0))
		}
	}
}
