// Package errors provides error handling and the warning system used across
// the ddml estimation engine. Warnings are non-fatal diagnostics (propensity
// trimming, degenerate ensemble weights); errors carry structured context and
// stack traces via cockroachdb/errors.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================

var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("ddml-Warning: %v\n", w)
	}
	// zerolog sink, set lazily to avoid an import cycle with pkg/log.
	zerologWarnFunc func(warning error)
)

// SetWarningHandler sets the warning handler for the whole library.
// Estimation warnings (trimmed propensity scores, degenerate ensemble
// weights) are routed through it.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // silence warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs a zerolog-backed warning sink.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning. A configured zerolog sink takes precedence over the
// plain handler.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Estimation warning types
//
// ===========================================================================

// PropensityTrimWarning is emitted when combined propensity-score predictions
// fall outside (trim, 1-trim) and are clipped to the boundary. Scores near 0
// or 1 make the inverse-probability weights of the treatment-effect
// estimators explode, so the count is worth surfacing.
type PropensityTrimWarning struct {
	Ensemble string // ensemble-type label, empty when only one type was requested
	Count    int    // number of clipped entries
	Trim     float64
}

func (w *PropensityTrimWarning) Error() string {
	if w.Ensemble != "" {
		return fmt.Sprintf("ensemble '%s': %d propensity scores violated the trimming threshold %g and were set to the threshold", w.Ensemble, w.Count, w.Trim)
	}
	return fmt.Sprintf("%d propensity scores violated the trimming threshold %g and were set to the threshold", w.Count, w.Trim)
}

// MarshalZerologObject adds the structured warning fields to a zerolog event.
func (w *PropensityTrimWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("ensemble", w.Ensemble).
		Int("count", w.Count).
		Float64("trim", w.Trim).
		Str("type", "PropensityTrimWarning")
}

// NewPropensityTrimWarning creates a new PropensityTrimWarning.
func NewPropensityTrimWarning(ensemble string, count int, trim float64) *PropensityTrimWarning {
	return &PropensityTrimWarning{Ensemble: ensemble, Count: count, Trim: trim}
}

// DegenerateWeightsWarning is emitted when an ensemble weight fit produces a
// near-zero weight vector (e.g. an all-zero NNLS solution). The combined
// prediction is then essentially constant and downstream estimates should be
// treated as a data-quality signal rather than a result.
type DegenerateWeightsWarning struct {
	Ensemble  string
	WeightSum float64
}

func (w *DegenerateWeightsWarning) Error() string {
	return fmt.Sprintf("ensemble '%s': fitted weights sum to %g; combined predictions are degenerate", w.Ensemble, w.WeightSum)
}

// MarshalZerologObject adds the structured warning fields to a zerolog event.
func (w *DegenerateWeightsWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("ensemble", w.Ensemble).
		Float64("weight_sum", w.WeightSum).
		Str("type", "DegenerateWeightsWarning")
}

// NewDegenerateWeightsWarning creates a new DegenerateWeightsWarning.
func NewDegenerateWeightsWarning(ensemble string, weightSum float64) *DegenerateWeightsWarning {
	return &DegenerateWeightsWarning{Ensemble: ensemble, WeightSum: weightSum}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// NotFittedError is returned when Predict or Coef is called on an estimator
// before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("ddml: %s: this estimator is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace attached.
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError is returned when an input's dimension does not match the
// expected one.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("ddml: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace attached.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError is returned when a parameter fails validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ddml: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace attached.
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError is returned when an argument's value is unusable for the
// requested operation.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("ddml: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace attached.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// LearnerError wraps a failure of a user-supplied learner during cross
// fitting. A failed learner is fatal to the whole estimation: a missing
// column would corrupt the out-of-sample prediction matrix, so the engine
// never skips a learner or a fold.
type LearnerError struct {
	Learner string
	Fold    int // 1-based fold label, 0 when not fold-specific
	Phase   string
	Err     error
}

func (e *LearnerError) Error() string {
	if e.Fold > 0 {
		return fmt.Sprintf("ddml: learner '%s' failed during %s on fold %d: %v", e.Learner, e.Phase, e.Fold, e.Err)
	}
	return fmt.Sprintf("ddml: learner '%s' failed during %s: %v", e.Learner, e.Phase, e.Err)
}

func (e *LearnerError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *LearnerError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("learner", e.Learner).
		Int("fold", e.Fold).
		Str("phase", e.Phase).
		Str("type", "LearnerError")
}

// NewLearnerError creates a LearnerError with a stack trace attached.
func NewLearnerError(learner string, fold int, phase string, err error) error {
	lerr := &LearnerError{Learner: learner, Fold: fold, Phase: phase, Err: err}
	return errors.WithStack(lerr)
}

// ModelError is a general estimation error.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ddml: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("ddml: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a ModelError with a stack trace attached.
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// ===========================================================================
//
//	cockroachdb/errors passthroughs
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As reports whether err can be assigned to target's type.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack attaches a stack trace to an error.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Common sentinel errors
//
// ===========================================================================

var (
	// ErrEmptyData is returned when empty data is passed.
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix signals a singular normal-equations matrix. Ensemble
	// weight fitting recovers from it with a pseudo-inverse; learners
	// propagate it.
	ErrSingularMatrix = New("singular matrix")
)
