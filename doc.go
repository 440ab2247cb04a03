// Package ddml implements double/debiased machine learning (DML) estimation
// of causal parameters for Go, combining cross-fitted machine-learning
// nuisance estimates with Neyman-orthogonal corrections.
//
// The engine is organized in small composable packages:
//
//   - crossfit: fold partitioning (simple and cluster-aware) and K-fold
//     cross-fitted out-of-sample prediction for arbitrary learners
//   - ensemble: stacking and short-stacking combination of learner
//     predictions (ols, nnls, nnls1, singlebest, average, custom weights)
//     and propensity-score trimming
//   - inference: heteroskedasticity- and cluster-robust sandwich inference
//     for regression-residual parameters, and Z-estimator inference for
//     moment parameters, with labeled result arrays
//   - learner: built-in OLS and ridge learners; any type implementing the
//     fit/predict contract in core/model can be used instead
//   - estimator: ready-made partially-linear-model (PLM) and average
//     treatment effect (ATE) estimators wiring the pipeline end to end
//
// # Quick start
//
//	learners := []crossfit.Spec{
//	    {Name: "ols", Learner: learner.NewOLS()},
//	    {Name: "ridge", Learner: ridge},
//	}
//	plm, err := estimator.NewPLM(learners,
//	    estimator.WithFolds(5),
//	    estimator.WithSeed(123),
//	    estimator.WithEnsembleTypes(ensemble.NNLS1, ensemble.Average),
//	)
//	if err != nil { ... }
//	if err := plm.Fit(Y, D, X); err != nil { ... }
//	results, _ := plm.Results()
//	fmt.Println(results.Table())
//
// Randomness enters only through the fold partition and is controlled by an
// explicit seed; everything downstream is deterministic.
package ddml
