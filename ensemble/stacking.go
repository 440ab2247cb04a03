package ensemble

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/cran/ddml/crossfit"
	"github.com/cran/ddml/pkg/errors"
)

// ShortStackResult holds the output of short-stacking: the single weight
// matrix (learners × types), the combined out-of-sample nuisance predictions
// (observations × types) and the raw out-of-sample learner predictions.
type ShortStackResult struct {
	Types    []Type
	Weights  *mat.Dense
	Combined *mat.Dense
	OOS      *mat.Dense
}

// ShortStack fits ensemble weights directly on an already cross-fitted
// out-of-sample prediction matrix. Because every entry of the matrix was
// produced out of fold, the weights can be fitted on the full sample without
// information leakage. This is the computational shortcut that avoids the
// nested cross-fitting layer of standard stacking.
func ShortStack(P *mat.Dense, t *mat.VecDense, types []Type, custom *mat.VecDense) (*ShortStackResult, error) {
	W, err := FitWeights(P, t, types, custom)
	if err != nil {
		return nil, err
	}
	combined, err := Combine(P, W)
	if err != nil {
		return nil, err
	}
	return &ShortStackResult{Types: types, Weights: W, Combined: combined, OOS: P}, nil
}

// StackResult holds the output of standard (nested) stacking: per-outer-fold
// weight matrices, their average, and the combined out-of-sample nuisance
// predictions.
type StackResult struct {
	Types       []Type
	FoldWeights []*mat.Dense // one (learners × types) matrix per outer fold
	AvgWeights  *mat.Dense   // element-wise average over outer folds
	Combined    *mat.Dense   // observations × types
}

// Stack performs standard stacking: for each outer fold, an inner cross-fit
// on the fold's training sample produces leakage-free predictions used to
// fit that fold's combination weights; the learners are then refitted on the
// whole training sample and their held-out-fold predictions are combined
// with the fold's weights. The inner cross-fit is joint across the learner
// set, so one inner fold count is shared by all learners: the first spec
// with SampleFolds > 1 supplies it, defaulting to the outer fold count.
//
// rng drives the inner fold partitions and must be seeded by the caller for
// reproducibility.
func Stack(rng *rand.Rand, X mat.Matrix, y *mat.VecDense, folds []int, learners []crossfit.Spec, types []Type, custom *mat.VecDense) (*StackResult, error) {
	return StackConditional(rng, X, y, folds, learners, types, custom, nil)
}

// StackConditional is Stack with the learner training sets restricted to
// observations whose include entry is true, as needed by
// conditional-expectation nuisances. Combination weights are fitted only on
// included observations (the others carry no target information for the
// conditional regression), while the combined predictions cover every row.
// A nil include means no restriction.
func StackConditional(rng *rand.Rand, X mat.Matrix, y *mat.VecDense, folds []int, learners []crossfit.Spec, types []Type, custom *mat.VecDense, include []bool) (*StackResult, error) {
	if err := validateTypes(types); err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	if y.Len() != n || len(folds) != n {
		return nil, errors.NewDimensionError("ensemble.Stack", n, y.Len(), 0)
	}
	if include != nil && len(include) != n {
		return nil, errors.NewDimensionError("ensemble.Stack", n, len(include), 0)
	}

	k := crossfit.NumFolds(folds)
	heldOut := crossfit.FoldIndices(folds, k)
	L := len(learners)

	innerK := k
	for _, spec := range learners {
		if spec.SampleFolds > 1 {
			innerK = spec.SampleFolds
			break
		}
	}

	combined := mat.NewDense(n, len(types), nil)
	foldWeights := make([]*mat.Dense, k)

	// The outer folds run sequentially: each one already fans out its inner
	// cross-fit and final learner fits across goroutines.
	for f := 0; f < k; f++ {
		trainIdx := complement(n, heldOut[f])
		trainX := crossfit.ExtractRows(X, trainIdx)
		trainY := crossfit.ExtractVec(y, trainIdx)

		// Re-index the inclusion mask to the training subset.
		var trainInclude []bool
		if include != nil {
			trainInclude = make([]bool, len(trainIdx))
			for i, row := range trainIdx {
				trainInclude[i] = include[row]
			}
		}

		innerFolds, err := crossfit.GenerateFolds(rng, len(trainIdx), innerK)
		if err != nil {
			return nil, errors.Wrap(err, "inner fold assignment")
		}

		Z, err := crossfit.CrossPredictWhere(trainX, trainY, innerFolds, learners, trainInclude)
		if err != nil {
			return nil, err
		}

		weightZ, weightY := Z, trainY
		if trainInclude != nil {
			rows := make([]int, 0, len(trainIdx))
			for i, ok := range trainInclude {
				if ok {
					rows = append(rows, i)
				}
			}
			weightZ = crossfit.ExtractRows(Z, rows)
			weightY = crossfit.ExtractVec(trainY, rows)
		}

		W, err := FitWeights(weightZ, weightY, types, custom)
		if err != nil {
			return nil, err
		}
		foldWeights[f] = W

		fitIdx := trainIdx
		if include != nil {
			fitIdx = make([]int, 0, len(trainIdx))
			for _, row := range trainIdx {
				if include[row] {
					fitIdx = append(fitIdx, row)
				}
			}
			if len(fitIdx) == 0 {
				return nil, errors.NewValueError("ensemble.Stack", "a fold's training subsample is empty")
			}
		}

		P, err := crossfit.FitFullTraining(X, y, fitIdx, heldOut[f], learners)
		if err != nil {
			return nil, err
		}

		var block mat.Dense
		block.Mul(P, W)
		for i, row := range heldOut[f] {
			for j := range types {
				combined.Set(row, j, block.At(i, j))
			}
		}
	}

	avg := mat.NewDense(L, len(types), nil)
	for _, W := range foldWeights {
		avg.Add(avg, W)
	}
	avg.Scale(1/float64(k), avg)

	return &StackResult{Types: types, FoldWeights: foldWeights, AvgWeights: avg, Combined: combined}, nil
}

func complement(n int, excluded []int) []int {
	in := make(map[int]struct{}, len(excluded))
	for _, i := range excluded {
		in[i] = struct{}{}
	}
	out := make([]int, 0, n-len(excluded))
	for i := 0; i < n; i++ {
		if _, ok := in[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}
