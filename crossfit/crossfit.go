package crossfit

import (
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/cran/ddml/core/model"
	"github.com/cran/ddml/core/parallel"
	"github.com/cran/ddml/pkg/errors"
	"github.com/cran/ddml/pkg/log"
)

// Spec names a learner for cross-fitting. SampleFolds is the inner fold
// count used when stacking weights are estimated with a nested cross-fit.
// The inner cross-fit is joint across all learners (one shared prediction
// matrix), so a single count applies to the whole learner set: the first
// spec with SampleFolds > 1 wins, and zero everywhere means inherit the
// outer fold count.
type Spec struct {
	Name        string
	Learner     model.Learner
	SampleFolds int
}

// CrossPredict produces the out-of-sample prediction matrix for a set of
// learners: for each fold f and learner l, the learner is fitted on all
// observations not in fold f and predicts the observations in fold f, which
// fills the fold's rows of column l. Every cell of the returned (n × L)
// matrix therefore comes from a model that never saw that cell's row.
//
// The (fold, learner) tasks are mutually independent and run on their own
// goroutines, each writing a disjoint block of the shared output matrix. Any
// learner failure aborts the whole cross-fit: a silently missing column
// would bias every estimate built on the matrix.
func CrossPredict(X mat.Matrix, y *mat.VecDense, folds []int, learners []Spec) (*mat.Dense, error) {
	return CrossPredictWhere(X, y, folds, learners, nil)
}

// CrossPredictWhere is CrossPredict with the training sets restricted to
// observations whose include entry is true; predictions still cover every
// held-out row. Conditional-expectation nuisances (e.g. E[Y|X,D=1]) train on
// the matching subsample but must be evaluated on all observations. A nil
// include means no restriction.
func CrossPredictWhere(X mat.Matrix, y *mat.VecDense, folds []int, learners []Spec, include []bool) (*mat.Dense, error) {
	n, _ := X.Dims()
	if err := validateInputs(X, y, folds, learners); err != nil {
		return nil, err
	}
	if include != nil && len(include) != n {
		return nil, errors.NewDimensionError("CrossPredict", n, len(include), 0)
	}

	k := NumFolds(folds)
	heldOut := FoldIndices(folds, k)
	for f, idx := range heldOut {
		if len(idx) == 0 {
			return nil, errors.NewValueError("CrossPredict", fmt.Sprintf("fold %d is empty", f+1))
		}
	}

	L := len(learners)
	preds := mat.NewDense(n, L, nil)
	start := time.Now()

	// One task per (fold, learner) pair; task t owns the cells
	// (heldOut[t/L], t%L) and nothing else.
	err := parallel.ForEachTask(k*L, func(task int) error {
		f := task / L
		l := task % L

		trainIdx := filterIncluded(complementIndices(n, heldOut[f]), include)
		if len(trainIdx) == 0 {
			return errors.NewValueError("CrossPredict", fmt.Sprintf("fold %d has an empty training subsample", f+1))
		}
		trainX := ExtractRows(X, trainIdx)
		trainY := ExtractVec(y, trainIdx)

		fitted, err := learners[l].Learner.Fit(trainX, trainY)
		if err != nil {
			return errors.NewLearnerError(learners[l].Name, f+1, "fit", err)
		}

		testX := ExtractRows(X, heldOut[f])
		p, err := fitted.Predict(testX)
		if err != nil {
			return errors.NewLearnerError(learners[l].Name, f+1, "predict", err)
		}
		if p.Len() != len(heldOut[f]) {
			return errors.NewDimensionError("CrossPredict", len(heldOut[f]), p.Len(), 0)
		}

		for i, row := range heldOut[f] {
			preds.Set(row, l, p.AtVec(i))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// A learner emitting NaN or Inf would silently poison every ensemble
	// weight fitted on the matrix.
	if err := errors.CheckMatrix("CrossPredict", preds, n, L); err != nil {
		return nil, err
	}

	slog.Debug("cross-fit complete",
		slog.Int(log.SamplesKey, n),
		slog.Int(log.FoldsKey, k),
		slog.Int("learners", L),
		slog.Int64(log.DurationMsKey, time.Since(start).Milliseconds()),
	)

	return preds, nil
}

// FitFullTraining fits every learner on the full training rows trainIdx and
// predicts the rows testIdx, returning a (len(testIdx) × L) matrix. This is
// the per-fold final-prediction step of standard (non-short) stacking, where
// the combination weights were already fitted on an inner cross-fit.
func FitFullTraining(X mat.Matrix, y *mat.VecDense, trainIdx, testIdx []int, learners []Spec) (*mat.Dense, error) {
	trainX := ExtractRows(X, trainIdx)
	trainY := ExtractVec(y, trainIdx)
	testX := ExtractRows(X, testIdx)

	L := len(learners)
	out := mat.NewDense(len(testIdx), L, nil)

	err := parallel.ForEachTask(L, func(l int) error {
		fitted, err := learners[l].Learner.Fit(trainX, trainY)
		if err != nil {
			return errors.NewLearnerError(learners[l].Name, 0, "fit", err)
		}
		p, err := fitted.Predict(testX)
		if err != nil {
			return errors.NewLearnerError(learners[l].Name, 0, "predict", err)
		}
		if p.Len() != len(testIdx) {
			return errors.NewDimensionError("FitFullTraining", len(testIdx), p.Len(), 0)
		}
		for i := 0; i < p.Len(); i++ {
			out.Set(i, l, p.AtVec(i))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func validateInputs(X mat.Matrix, y *mat.VecDense, folds []int, learners []Spec) error {
	n, cols := X.Dims()
	if n == 0 || cols == 0 {
		return errors.NewModelError("CrossPredict", "empty feature matrix", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return errors.NewDimensionError("CrossPredict", n, y.Len(), 0)
	}
	if len(folds) != n {
		return errors.NewDimensionError("CrossPredict", n, len(folds), 0)
	}
	if len(learners) == 0 {
		return errors.NewValueError("CrossPredict", "no learners supplied")
	}
	if NumFolds(folds) < 2 {
		return errors.NewValidationError("folds", "assignment must contain at least 2 folds", NumFolds(folds))
	}
	return nil
}

// ExtractRows copies the given rows of X into a new dense matrix, preserving
// the order of idx.
func ExtractRows(X mat.Matrix, idx []int) *mat.Dense {
	_, cols := X.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	for i, r := range idx {
		for j := 0; j < cols; j++ {
			out.Set(i, j, X.At(r, j))
		}
	}
	return out
}

// ExtractVec copies the given entries of v into a new vector.
func ExtractVec(v *mat.VecDense, idx []int) *mat.VecDense {
	out := mat.NewVecDense(len(idx), nil)
	for i, r := range idx {
		out.SetVec(i, v.AtVec(r))
	}
	return out
}

func filterIncluded(idx []int, include []bool) []int {
	if include == nil {
		return idx
	}
	out := make([]int, 0, len(idx))
	for _, i := range idx {
		if include[i] {
			out = append(out, i)
		}
	}
	return out
}

func complementIndices(n int, excluded []int) []int {
	inExcluded := make(map[int]struct{}, len(excluded))
	for _, i := range excluded {
		inExcluded[i] = struct{}{}
	}
	out := make([]int, 0, n-len(excluded))
	for i := 0; i < n; i++ {
		if _, ok := inExcluded[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}
