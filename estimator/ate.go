package estimator

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/cran/ddml/core/model"
	"github.com/cran/ddml/crossfit"
	"github.com/cran/ddml/ensemble"
	"github.com/cran/ddml/inference"
	"github.com/cran/ddml/pkg/errors"
	"github.com/cran/ddml/pkg/log"
)

// ATE estimates the average treatment effect in the interactive model
//
//	Y = g(D, X) + e,  D ∈ {0, 1}
//
// with the augmented-inverse-probability-weighting score. Three nuisances
// are cross-fitted: E[Y|X,D=0] and E[Y|X,D=1], each trained on the matching
// subsample, and the propensity score E[D|X], which is trimmed before it
// enters the score denominators. Inference runs in moment mode off the
// Neyman-orthogonal score components.
type ATE struct {
	state    *model.StateManager
	opts     options
	learners []crossfit.Spec

	results    *inference.Coef2D
	trimCounts []int
}

// NewATE creates an ATE estimator over the given learner set. The same
// learners fit all three nuisances unless WithTreatmentLearners overrides
// the propensity learners.
func NewATE(learners []crossfit.Spec, opts ...Option) (*ATE, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	if len(learners) == 0 {
		return nil, errors.NewValueError("NewATE", "no learners supplied")
	}
	return &ATE{
		state:    model.NewStateManager(),
		opts:     o,
		learners: learners,
	}, nil
}

// Fit runs the full estimation. D must be binary 0/1.
func (a *ATE) Fit(Y, D *mat.VecDense, X mat.Matrix) error {
	n, _ := X.Dims()
	if Y.Len() != n {
		return errors.NewDimensionError("ATE.Fit", n, Y.Len(), 0)
	}
	if D.Len() != n {
		return errors.NewDimensionError("ATE.Fit", n, D.Len(), 0)
	}
	if a.opts.cluster != nil && len(a.opts.cluster) != n {
		return errors.NewDimensionError("ATE.Fit", n, len(a.opts.cluster), 0)
	}

	treated := make([]bool, n)
	untreated := make([]bool, n)
	for i := 0; i < n; i++ {
		switch D.AtVec(i) {
		case 0:
			untreated[i] = true
		case 1:
			treated[i] = true
		default:
			return errors.NewValueError("ATE.Fit", "treatment must be binary 0/1")
		}
	}

	start := time.Now()
	rng := rand.New(rand.NewPCG(a.opts.seed, a.opts.seed))

	folds, err := assignFolds(rng, n, a.opts)
	if err != nil {
		return err
	}

	mLearners := a.learners
	if a.opts.learnersD != nil {
		mLearners = a.opts.learnersD
	}

	g0, err := a.fitConditional(rng, X, Y, folds, a.learners, untreated)
	if err != nil {
		return errors.Wrap(err, "nuisance E[Y|X,D=0]")
	}
	g1, err := a.fitConditional(rng, X, Y, folds, a.learners, treated)
	if err != nil {
		return errors.Wrap(err, "nuisance E[Y|X,D=1]")
	}
	m, err := a.fitConditional(rng, X, D, folds, mLearners, nil)
	if err != nil {
		return errors.Wrap(err, "propensity E[D|X]")
	}

	labels := ensemble.Labels(a.opts.ensembleTypes)
	trimCounts, err := ensemble.TrimPropensity(m, labels, a.opts.trim)
	if err != nil {
		return err
	}

	results := inference.NewCoef2D("ATE", labels)
	psiA := mat.NewVecDense(n, nil)
	psiB := mat.NewVecDense(n, nil)
	for t := range a.opts.ensembleTypes {
		for i := 0; i < n; i++ {
			g0i := g0.At(i, t)
			g1i := g1.At(i, t)
			mi := m.At(i, t)
			di := D.AtVec(i)
			yi := Y.AtVec(i)

			psiA.SetVec(i, -1)
			psiB.SetVec(i, g1i-g0i+di*(yi-g1i)/mi-(1-di)*(yi-g0i)/(1-mi))
		}
		if err := errors.CheckNumericalStability("ATE score", psiB.RawVector().Data); err != nil {
			return errors.Wrapf(err, "ensemble %s", labels[t])
		}

		theta, err := inference.SolveScore(psiA, psiB)
		if err != nil {
			return err
		}
		stats, err := inference.ScoreStats(psiA, psiB, theta)
		if err != nil {
			return err
		}
		results.SetRow(t, stats)
	}

	a.results = results
	a.trimCounts = trimCounts
	a.state.SetFitted()
	_, cols := X.Dims()
	a.state.SetDimensions(cols, n)

	slog.Debug("ATE estimation complete",
		slog.String(log.EstimatorKey, "ATE"),
		slog.Int(log.SamplesKey, n),
		slog.Int(log.FoldsKey, a.opts.folds),
		slog.Int64(log.DurationMsKey, time.Since(start).Milliseconds()),
	)
	return nil
}

// fitConditional cross-fits one nuisance with training restricted to the
// included subsample (nil means all observations) and combines the learner
// columns per ensemble type.
func (a *ATE) fitConditional(rng *rand.Rand, X mat.Matrix, target *mat.VecDense, folds []int, learners []crossfit.Spec, include []bool) (*mat.Dense, error) {
	if a.opts.shortStacking {
		P, err := crossfit.CrossPredictWhere(X, target, folds, learners, include)
		if err != nil {
			return nil, err
		}

		weightP, weightT := P, target
		if include != nil {
			rows := make([]int, 0, target.Len())
			for i, ok := range include {
				if ok {
					rows = append(rows, i)
				}
			}
			weightP = crossfit.ExtractRows(P, rows)
			weightT = crossfit.ExtractVec(target, rows)
		}

		W, err := ensemble.FitWeights(weightP, weightT, a.opts.ensembleTypes, a.opts.customWeights)
		if err != nil {
			return nil, err
		}
		return ensemble.Combine(P, W)
	}

	res, err := ensemble.StackConditional(rng, X, target, folds, learners, a.opts.ensembleTypes, a.opts.customWeights, include)
	if err != nil {
		return nil, err
	}
	return res.Combined, nil
}

// Results returns the organized (ensemble type × statistic) inference array.
func (a *ATE) Results() (*inference.Coef2D, error) {
	if !a.state.IsFitted() {
		return nil, errors.NewNotFittedError("ATE", "Results")
	}
	return a.results, nil
}

// TrimCounts returns the number of propensity scores clipped per ensemble
// type during the last Fit.
func (a *ATE) TrimCounts() ([]int, error) {
	if !a.state.IsFitted() {
		return nil, errors.NewNotFittedError("ATE", "TrimCounts")
	}
	return a.trimCounts, nil
}
