package learner

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestOLS_RecoversCoefficients(t *testing.T) {
	rng := rand.New(rand.NewPCG(41, 41))
	n := 300
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		a, b := rng.NormFloat64(), rng.NormFloat64()
		X.Set(i, 0, a)
		X.Set(i, 1, b)
		y.SetVec(i, 2+1.5*a-0.5*b)
	}

	m, err := NewOLS().Fit(X, y)
	if err != nil {
		t.Fatal(err)
	}
	lm := m.(*linearModel)
	if math.Abs(lm.Intercept()-2) > 1e-8 {
		t.Errorf("intercept = %v, want 2", lm.Intercept())
	}
	w := lm.Weights()
	if math.Abs(w[0]-1.5) > 1e-8 || math.Abs(w[1]+0.5) > 1e-8 {
		t.Errorf("weights = %v, want [1.5 -0.5]", w)
	}

	preds, err := m.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		if math.Abs(preds.AtVec(i)-y.AtVec(i)) > 1e-8 {
			t.Fatalf("prediction %d = %v, want %v", i, preds.AtVec(i), y.AtVec(i))
		}
	}
}

func TestOLS_WithoutIntercept(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewVecDense(4, []float64{3, 6, 9, 12})

	m, err := NewOLS(WithIntercept(false)).Fit(X, y)
	if err != nil {
		t.Fatal(err)
	}
	lm := m.(*linearModel)
	if lm.Intercept() != 0 {
		t.Errorf("intercept = %v, want 0", lm.Intercept())
	}
	if math.Abs(lm.Weights()[0]-3) > 1e-10 {
		t.Errorf("weight = %v, want 3", lm.Weights()[0])
	}
}

func TestRidge_ShrinksTowardZero(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	n := 200
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x := rng.NormFloat64()
		X.Set(i, 0, x)
		y.SetVec(i, 2*x+0.1*rng.NormFloat64())
	}

	small, err := NewRidge(1e-8)
	if err != nil {
		t.Fatal(err)
	}
	large, err := NewRidge(1e4)
	if err != nil {
		t.Fatal(err)
	}

	mSmall, err := small.Fit(X, y)
	if err != nil {
		t.Fatal(err)
	}
	mLarge, err := large.Fit(X, y)
	if err != nil {
		t.Fatal(err)
	}

	wSmall := mSmall.(*linearModel).Weights()[0]
	wLarge := mLarge.(*linearModel).Weights()[0]
	if math.Abs(wSmall-2) > 0.05 {
		t.Errorf("near-zero penalty weight = %v, want about 2", wSmall)
	}
	if math.Abs(wLarge) >= math.Abs(wSmall)/2 {
		t.Errorf("heavy penalty weight = %v, expected strong shrinkage below %v", wLarge, wSmall)
	}
}

func TestRidge_InterceptUnpenalized(t *testing.T) {
	// A constant target: the intercept should absorb it fully no matter how
	// heavy the penalty, since only the slope coefficients are penalized.
	rng := rand.New(rand.NewPCG(43, 43))
	n := 100
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, rng.NormFloat64())
		y.SetVec(i, 5)
	}

	r, err := NewRidge(1e6)
	if err != nil {
		t.Fatal(err)
	}
	m, err := r.Fit(X, y)
	if err != nil {
		t.Fatal(err)
	}
	lm := m.(*linearModel)
	if math.Abs(lm.Intercept()-5) > 1e-6 {
		t.Errorf("intercept = %v, want 5", lm.Intercept())
	}
}

func TestRidge_ValidatesLambda(t *testing.T) {
	if _, err := NewRidge(-1); err == nil {
		t.Error("expected an error for a negative penalty")
	}
}

func TestPredict_ParallelMatchesRowFormula(t *testing.T) {
	// Enough rows to cross the parallel threshold; every prediction must
	// still equal the per-row dot product exactly.
	rng := rand.New(rand.NewPCG(44, 44))
	nTrain, nQuery, p := 50, 5000, 3
	X := mat.NewDense(nTrain, p, nil)
	y := mat.NewVecDense(nTrain, nil)
	for i := 0; i < nTrain; i++ {
		var v float64
		for j := 0; j < p; j++ {
			x := rng.NormFloat64()
			X.Set(i, j, x)
			v += float64(j+1) * x
		}
		y.SetVec(i, 1+v)
	}
	m, err := NewOLS().Fit(X, y)
	if err != nil {
		t.Fatal(err)
	}
	lm := m.(*linearModel)

	query := mat.NewDense(nQuery, p, nil)
	for i := 0; i < nQuery; i++ {
		for j := 0; j < p; j++ {
			query.Set(i, j, rng.NormFloat64())
		}
	}
	preds, err := m.Predict(query)
	if err != nil {
		t.Fatal(err)
	}

	w := lm.Weights()
	for i := 0; i < nQuery; i++ {
		want := lm.Intercept()
		for j := 0; j < p; j++ {
			want += query.At(i, j) * w[j]
		}
		if preds.AtVec(i) != want {
			t.Fatalf("prediction %d = %v, want %v", i, preds.AtVec(i), want)
		}
	}
}

func TestPredict_DimensionMismatch(t *testing.T) {
	X := mat.NewDense(10, 2, nil)
	y := mat.NewVecDense(10, nil)
	m, err := NewOLS().Fit(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Predict(mat.NewDense(5, 3, nil)); err == nil {
		t.Error("expected a dimension error for a wrong feature count")
	}
}
