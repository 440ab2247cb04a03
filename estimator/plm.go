// Package estimator provides double/debiased machine-learning estimators of
// causal parameters built on the cross-fitting and ensemble engine: the
// partially linear model (PLM) coefficient and the interactive-model average
// treatment effect (ATE).
package estimator

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/cran/ddml/core/linalg"
	"github.com/cran/ddml/core/model"
	"github.com/cran/ddml/crossfit"
	"github.com/cran/ddml/ensemble"
	"github.com/cran/ddml/inference"
	"github.com/cran/ddml/pkg/errors"
	"github.com/cran/ddml/pkg/log"
)

// PLM estimates the coefficient θ of the partially linear model
//
//	Y = θ·D + g(X) + e,  E[e|X,D] = 0
//
// by cross-fitting the conditional expectations E[Y|X] and E[D|X], combining
// the learners per ensemble type, and regressing the outcome residual on the
// treatment residual with sandwich inference.
type PLM struct {
	state    *model.StateManager
	opts     options
	learners []crossfit.Spec

	results  *inference.Coef3D
	weightsY *mat.Dense // learners × ensemble types
	weightsD *mat.Dense
}

// NewPLM creates a PLM estimator over the given learner set. The same
// learners fit both nuisances unless WithTreatmentLearners overrides.
func NewPLM(learners []crossfit.Spec, opts ...Option) (*PLM, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	if len(learners) == 0 {
		return nil, errors.NewValueError("NewPLM", "no learners supplied")
	}
	return &PLM{
		state:    model.NewStateManager(),
		opts:     o,
		learners: learners,
	}, nil
}

// Fit runs the full estimation: fold partitioning, cross-fitted nuisance
// prediction, ensemble combination per requested type, and
// residual-on-residual inference. All working state is owned by this call
// and discarded when it returns; only the organized results survive.
func (p *PLM) Fit(Y, D *mat.VecDense, X mat.Matrix) error {
	n, _ := X.Dims()
	if Y.Len() != n {
		return errors.NewDimensionError("PLM.Fit", n, Y.Len(), 0)
	}
	if D.Len() != n {
		return errors.NewDimensionError("PLM.Fit", n, D.Len(), 0)
	}
	if p.opts.cluster != nil && len(p.opts.cluster) != n {
		return errors.NewDimensionError("PLM.Fit", n, len(p.opts.cluster), 0)
	}

	start := time.Now()
	rng := rand.New(rand.NewPCG(p.opts.seed, p.opts.seed))

	folds, err := assignFolds(rng, n, p.opts)
	if err != nil {
		return err
	}

	learnersD := p.learners
	if p.opts.learnersD != nil {
		learnersD = p.opts.learnersD
	}

	yHat, wY, err := p.fitNuisance(rng, X, Y, folds, p.learners)
	if err != nil {
		return errors.Wrap(err, "nuisance E[Y|X]")
	}
	dHat, wD, err := p.fitNuisance(rng, X, D, folds, learnersD)
	if err != nil {
		return errors.Wrap(err, "nuisance E[D|X]")
	}

	types := ensemble.Labels(p.opts.ensembleTypes)
	results := inference.NewCoef3D([]string{"(Intercept)", p.opts.coefName}, types)

	for t := range p.opts.ensembleTypes {
		stats, err := p.residualRegression(Y, D, yHat, dHat, t)
		if err != nil {
			return err
		}
		if err := results.SetSlice(t, stats); err != nil {
			return err
		}
	}

	p.results = results
	p.weightsY = wY
	p.weightsD = wD
	p.state.SetFitted()
	_, cols := X.Dims()
	p.state.SetDimensions(cols, n)

	slog.Debug("PLM estimation complete",
		slog.String(log.EstimatorKey, "PLM"),
		slog.Int(log.SamplesKey, n),
		slog.Int(log.FoldsKey, p.opts.folds),
		slog.Int64(log.DurationMsKey, time.Since(start).Milliseconds()),
	)
	return nil
}

// fitNuisance cross-fits one conditional expectation and combines the
// learner columns per ensemble type, via short-stacking or the nested
// stacking variant.
func (p *PLM) fitNuisance(rng *rand.Rand, X mat.Matrix, target *mat.VecDense, folds []int, learners []crossfit.Spec) (*mat.Dense, *mat.Dense, error) {
	if p.opts.shortStacking {
		P, err := crossfit.CrossPredict(X, target, folds, learners)
		if err != nil {
			return nil, nil, err
		}
		res, err := ensemble.ShortStack(P, target, p.opts.ensembleTypes, p.opts.customWeights)
		if err != nil {
			return nil, nil, err
		}
		return res.Combined, res.Weights, nil
	}

	res, err := ensemble.Stack(rng, X, target, folds, learners, p.opts.ensembleTypes, p.opts.customWeights)
	if err != nil {
		return nil, nil, err
	}
	return res.Combined, res.AvgWeights, nil
}

// residualRegression runs the final OLS of the outcome residual on the
// treatment residual for one ensemble type and returns the (2 × 4)
// statistics matrix.
func (p *PLM) residualRegression(Y, D *mat.VecDense, yHat, dHat *mat.Dense, t int) (*mat.Dense, error) {
	n := Y.Len()

	design := mat.NewDense(n, 2, nil)
	resid := mat.NewVecDense(n, nil)
	eY := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		design.Set(i, 0, 1)
		design.Set(i, 1, D.AtVec(i)-dHat.At(i, t))
		eY.SetVec(i, Y.AtVec(i)-yHat.At(i, t))
	}

	coef, err := linalg.LeastSquares(design, eY)
	if err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		fitted := coef.AtVec(0) + coef.AtVec(1)*design.At(i, 1)
		resid.SetVec(i, eY.AtVec(i)-fitted)
	}

	if p.opts.cluster != nil {
		return inference.ClusterSandwich(coef, design, resid, p.opts.cluster)
	}
	return inference.LinearSandwich(coef, design, resid)
}

// Results returns the organized (coefficient × statistic × ensemble type)
// inference array.
func (p *PLM) Results() (*inference.Coef3D, error) {
	if !p.state.IsFitted() {
		return nil, errors.NewNotFittedError("PLM", "Results")
	}
	return p.results, nil
}

// Weights returns the fitted ensemble weights (learners × ensemble types)
// for the outcome and treatment nuisances.
func (p *PLM) Weights() (outcome, treatment *mat.Dense, err error) {
	if !p.state.IsFitted() {
		return nil, nil, errors.NewNotFittedError("PLM", "Weights")
	}
	return p.weightsY, p.weightsD, nil
}

func assignFolds(rng *rand.Rand, n int, o options) ([]int, error) {
	if o.cluster != nil {
		return crossfit.GenerateClusterFolds(rng, o.cluster, o.folds)
	}
	return crossfit.GenerateFolds(rng, n, o.folds)
}
