package estimator

import (
	"gonum.org/v1/gonum/mat"

	"github.com/cran/ddml/crossfit"
	"github.com/cran/ddml/ensemble"
	"github.com/cran/ddml/pkg/errors"
)

type options struct {
	seed          uint64
	folds         int
	ensembleTypes []ensemble.Type
	customWeights *mat.VecDense
	shortStacking bool
	trim          float64
	cluster       []int
	coefName      string
	learnersD     []crossfit.Spec
}

func defaultOptions() options {
	return options{
		seed:          42,
		folds:         10,
		ensembleTypes: []ensemble.Type{ensemble.NNLS1},
		shortStacking: false,
		trim:          0.01,
		coefName:      "D",
	}
}

func (o *options) validate() error {
	if o.folds < 2 {
		return errors.NewValidationError("folds", "must be at least 2", o.folds)
	}
	if err := hasTypes(o.ensembleTypes); err != nil {
		return err
	}
	if o.trim <= 0 || o.trim >= 0.5 {
		return errors.NewValidationError("trim", "must be in the open interval (0, 0.5)", o.trim)
	}
	return nil
}

func hasTypes(types []ensemble.Type) error {
	if len(types) == 0 {
		return errors.NewValueError("estimator", "at least one ensemble type is required")
	}
	return nil
}

// Option configures an estimator.
type Option func(*options)

// WithSeed seeds the fold partitions. Identical seeds reproduce identical
// estimation runs; everything downstream of the partition is deterministic.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithFolds sets the number of cross-fitting folds K.
func WithFolds(k int) Option {
	return func(o *options) { o.folds = k }
}

// WithEnsembleTypes sets the ordered list of ensemble schemes to estimate.
// A single type is simply the length-1 list.
func WithEnsembleTypes(types ...ensemble.Type) Option {
	return func(o *options) { o.ensembleTypes = types }
}

// WithCustomWeights supplies the fixed weight vector used by the Custom
// ensemble type.
func WithCustomWeights(w *mat.VecDense) Option {
	return func(o *options) { o.customWeights = w }
}

// WithShortStacking toggles short-stacking: ensemble weights fitted directly
// on the cross-fitted out-of-sample predictions instead of a nested inner
// cross-fit per outer fold.
func WithShortStacking(short bool) Option {
	return func(o *options) { o.shortStacking = short }
}

// WithTrim sets the propensity trimming threshold.
func WithTrim(trim float64) Option {
	return func(o *options) { o.trim = trim }
}

// WithCluster supplies cluster identifiers. Folds are then assigned per
// cluster and regression-residual inference is cluster-robust.
func WithCluster(clusterIDs []int) Option {
	return func(o *options) { o.cluster = clusterIDs }
}

// WithCoefName names the treatment coefficient in result tables.
func WithCoefName(name string) Option {
	return func(o *options) { o.coefName = name }
}

// WithTreatmentLearners overrides the learner set used for the treatment
// nuisance E[D|X]; by default the outcome learners are reused.
func WithTreatmentLearners(specs ...crossfit.Spec) Option {
	return func(o *options) { o.learnersD = specs }
}
