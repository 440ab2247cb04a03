// Package crossfit implements fold partitioning and K-fold cross-fitted
// out-of-sample prediction, the first stage of double/debiased machine
// learning. Every prediction it produces for an observation comes from a
// model trained on data excluding that observation (and, under clustering,
// its whole cluster).
package crossfit

import (
	"math/rand/v2"
	"sort"

	"github.com/cran/ddml/pkg/errors"
)

// GenerateFolds assigns each of n observations to one of k folds, labels
// 1..k. The assignment repeats the label cycle 1..k up to length n and takes
// a uniform random permutation, so fold sizes differ by at most one and the
// ordering of the input carries no information about fold membership.
//
// The caller supplies the random source; seed it explicitly for
// reproducible estimation runs.
func GenerateFolds(rng *rand.Rand, n, k int) ([]int, error) {
	if k < 2 {
		return nil, errors.NewValidationError("folds", "must be at least 2", k)
	}
	if n < k {
		return nil, errors.NewValidationError("observations", "must be at least the number of folds", n)
	}

	assignment := make([]int, n)
	for i := range assignment {
		assignment[i] = i%k + 1
	}
	rng.Shuffle(n, func(i, j int) {
		assignment[i], assignment[j] = assignment[j], assignment[i]
	})

	return assignment, nil
}

// GenerateClusterFolds assigns whole clusters to folds and lets every
// observation inherit its cluster's label, so no cluster is ever split
// across a training set and the fold held out from it. Cluster counts per
// fold differ by at most one.
func GenerateClusterFolds(rng *rand.Rand, clusterIDs []int, k int) ([]int, error) {
	if len(clusterIDs) == 0 {
		return nil, errors.NewValueError("GenerateClusterFolds", "empty cluster id slice")
	}

	// Distinct cluster ids in a deterministic order, then partitioned like
	// observations.
	seen := make(map[int]struct{}, len(clusterIDs))
	distinct := make([]int, 0, len(clusterIDs))
	for _, id := range clusterIDs {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			distinct = append(distinct, id)
		}
	}
	sort.Ints(distinct)

	clusterFolds, err := GenerateFolds(rng, len(distinct), k)
	if err != nil {
		return nil, err
	}

	foldOf := make(map[int]int, len(distinct))
	for i, id := range distinct {
		foldOf[id] = clusterFolds[i]
	}

	assignment := make([]int, len(clusterIDs))
	for i, id := range clusterIDs {
		assignment[i] = foldOf[id]
	}

	return assignment, nil
}

// FoldIndices splits a fold assignment into per-fold held-out index lists.
// Entry f-1 holds the observation indices assigned to fold f.
func FoldIndices(folds []int, k int) [][]int {
	out := make([][]int, k)
	for i, f := range folds {
		out[f-1] = append(out[f-1], i)
	}
	return out
}

// NumFolds returns the largest fold label in an assignment.
func NumFolds(folds []int) int {
	k := 0
	for _, f := range folds {
		if f > k {
			k = f
		}
	}
	return k
}
