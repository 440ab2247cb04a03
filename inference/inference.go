// Package inference computes robust standard errors, t-statistics and
// p-values for double/debiased machine-learning estimates, in two modes:
// sandwich-type covariance for regression-residual parameters (PLM-style
// coefficients) and Neyman-orthogonal score inference for moment parameters
// (ATE-style scalars). p-values use the standard normal tail; the DML
// asymptotics justify the normal reference regardless of sample size.
package inference

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/cran/ddml/core/linalg"
	"github.com/cran/ddml/pkg/errors"
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// NormalPValue returns the two-sided p-value of a t-statistic under the
// standard normal reference distribution.
func NormalPValue(t float64) float64 {
	return 2 * stdNormal.Survival(math.Abs(t))
}

// LinearSandwich computes the four inference statistics for every
// coefficient of a fitted linear model using the heteroskedasticity-robust
// sandwich covariance (X'X)⁻¹ X'diag(e²)X (X'X)⁻¹. The returned matrix is
// (coefficients × 4) in the fixed statistic order {estimate, std. error,
// t value, p value}.
func LinearSandwich(coef *mat.VecDense, X mat.Matrix, resid *mat.VecDense) (*mat.Dense, error) {
	n, p := X.Dims()
	if coef.Len() != p {
		return nil, errors.NewDimensionError("LinearSandwich", p, coef.Len(), 1)
	}
	if resid.Len() != n {
		return nil, errors.NewDimensionError("LinearSandwich", n, resid.Len(), 0)
	}

	cov, err := sandwichCovariance(X, resid)
	if err != nil {
		return nil, err
	}

	out := mat.NewDense(p, NumStatistics, nil)
	for i := 0; i < p; i++ {
		est := coef.AtVec(i)
		se := math.Sqrt(cov.At(i, i))
		t := est / se
		out.Set(i, EstimateCol, est)
		out.Set(i, StdErrCol, se)
		out.Set(i, TValueCol, t)
		out.Set(i, PValueCol, NormalPValue(t))
	}

	return out, nil
}

// sandwichCovariance builds bread · meat · bread with the squared residuals
// as the weighting of the meat.
func sandwichCovariance(X mat.Matrix, resid *mat.VecDense) (*mat.Dense, error) {
	n, p := X.Dims()

	var xtx mat.Dense
	xtx.Mul(X.T(), X)

	bread, err := linalg.InverseSPD(&xtx)
	if err != nil {
		return nil, errors.Wrap(err, "sandwich bread")
	}

	// meat = X' diag(e²) X
	meat := mat.NewDense(p, p, nil)
	for i := 0; i < n; i++ {
		e2 := resid.AtVec(i) * resid.AtVec(i)
		for a := 0; a < p; a++ {
			xa := X.At(i, a) * e2
			for b := 0; b < p; b++ {
				meat.Set(a, b, meat.At(a, b)+xa*X.At(i, b))
			}
		}
	}

	var tmp, cov mat.Dense
	tmp.Mul(bread, meat)
	cov.Mul(&tmp, bread)
	return &cov, nil
}

// ClusterSandwich is the cluster-robust variant of LinearSandwich: the meat
// aggregates score contributions within each cluster before squaring, so
// arbitrary within-cluster error correlation is allowed.
func ClusterSandwich(coef *mat.VecDense, X mat.Matrix, resid *mat.VecDense, clusterIDs []int) (*mat.Dense, error) {
	n, p := X.Dims()
	if coef.Len() != p {
		return nil, errors.NewDimensionError("ClusterSandwich", p, coef.Len(), 1)
	}
	if resid.Len() != n || len(clusterIDs) != n {
		return nil, errors.NewDimensionError("ClusterSandwich", n, resid.Len(), 0)
	}

	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	bread, err := linalg.InverseSPD(&xtx)
	if err != nil {
		return nil, errors.Wrap(err, "sandwich bread")
	}

	// Per-cluster score sums s_g = Σ_{i∈g} x_i e_i, meat = Σ_g s_g s_g'.
	scores := make(map[int][]float64)
	for i := 0; i < n; i++ {
		s, ok := scores[clusterIDs[i]]
		if !ok {
			s = make([]float64, p)
			scores[clusterIDs[i]] = s
		}
		e := resid.AtVec(i)
		for a := 0; a < p; a++ {
			s[a] += X.At(i, a) * e
		}
	}

	meat := mat.NewDense(p, p, nil)
	for _, s := range scores {
		for a := 0; a < p; a++ {
			for b := 0; b < p; b++ {
				meat.Set(a, b, meat.At(a, b)+s[a]*s[b])
			}
		}
	}

	var tmp, cov mat.Dense
	tmp.Mul(bread, meat)
	cov.Mul(&tmp, bread)

	out := mat.NewDense(p, NumStatistics, nil)
	for i := 0; i < p; i++ {
		est := coef.AtVec(i)
		se := math.Sqrt(cov.At(i, i))
		t := est / se
		out.Set(i, EstimateCol, est)
		out.Set(i, StdErrCol, se)
		out.Set(i, TValueCol, t)
		out.Set(i, PValueCol, NormalPValue(t))
	}
	return out, nil
}

// SolveScore solves the sample moment condition mean(ψa·θ + ψb) = 0 for θ.
func SolveScore(psiA, psiB *mat.VecDense) (float64, error) {
	n := psiA.Len()
	if n == 0 {
		return 0, errors.NewModelError("SolveScore", "empty score components", errors.ErrEmptyData)
	}
	if psiB.Len() != n {
		return 0, errors.NewDimensionError("SolveScore", n, psiB.Len(), 0)
	}

	var meanA, meanB float64
	for i := 0; i < n; i++ {
		meanA += psiA.AtVec(i)
		meanB += psiB.AtVec(i)
	}
	meanA /= float64(n)
	meanB /= float64(n)

	if meanA == 0 {
		return 0, errors.NewValueError("SolveScore", "mean of psi_a is zero; the moment condition has no unique root")
	}

	return -meanB / meanA, nil
}

// ScoreStats computes the four inference statistics for a moment parameter θ
// solving mean(ψa·θ + ψb) = 0. The standard error is the Neyman-orthogonal
// Z-estimator formula sqrt(mean((ψa·θ + ψb)²)/n) / |mean(ψa)|, robust to
// first-step nuisance estimation error under the orthogonality condition.
func ScoreStats(psiA, psiB *mat.VecDense, theta float64) ([NumStatistics]float64, error) {
	var out [NumStatistics]float64

	n := psiA.Len()
	if n == 0 {
		return out, errors.NewModelError("ScoreStats", "empty score components", errors.ErrEmptyData)
	}
	if psiB.Len() != n {
		return out, errors.NewDimensionError("ScoreStats", n, psiB.Len(), 0)
	}

	var meanA, meanSq float64
	for i := 0; i < n; i++ {
		meanA += psiA.AtVec(i)
		psi := psiA.AtVec(i)*theta + psiB.AtVec(i)
		meanSq += psi * psi
	}
	meanA /= float64(n)
	meanSq /= float64(n)

	if meanA == 0 {
		return out, errors.NewValueError("ScoreStats", "mean of psi_a is zero")
	}

	se := math.Sqrt(meanSq/float64(n)) / math.Abs(meanA)
	t := theta / se

	out[EstimateCol] = theta
	out[StdErrCol] = se
	out[TValueCol] = t
	out[PValueCol] = NormalPValue(t)
	return out, nil
}
