package log

// Estimation context keys. Using these constants keeps cross-fitting logs
// filterable by fold, learner and ensemble type.
const (
	// EstimatorKey identifies the target-parameter estimator.
	// Examples: "PLM", "ATE"
	EstimatorKey = "estimator"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "crosspredict", "stack", "inference"
	OperationKey = "ddml.operation"

	// LearnerKey names the learner involved in the operation.
	LearnerKey = "learner.name"

	// NuisanceKey names the nuisance function being cross-fitted.
	// Examples: "E[Y|X]", "E[D|X]", "m(X)"
	NuisanceKey = "nuisance"

	// EnsembleKey names the ensemble type ("ols", "nnls1", ...).
	EnsembleKey = "ensemble.type"
)

// Data shape keys.
const (
	// SamplesKey is the number of observations.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// FoldsKey is the number of cross-fitting folds.
	FoldsKey = "fold.count"

	// FoldKey is the 1-based label of the fold being processed.
	FoldKey = "fold.label"

	// ClustersKey is the number of distinct clusters.
	ClustersKey = "data.clusters"
)

// Performance keys.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)
