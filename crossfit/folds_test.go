package crossfit

import (
	"math/rand/v2"
	"testing"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestGenerateFolds_Balanced(t *testing.T) {
	cases := []struct{ n, k int }{
		{10, 2},
		{11, 3},
		{200, 3},
		{7, 7},
		{103, 10},
	}

	for _, tc := range cases {
		folds, err := GenerateFolds(newRand(1), tc.n, tc.k)
		if err != nil {
			t.Fatalf("GenerateFolds(%d, %d) failed: %v", tc.n, tc.k, err)
		}
		if len(folds) != tc.n {
			t.Fatalf("expected %d assignments, got %d", tc.n, len(folds))
		}

		counts := make(map[int]int)
		for _, f := range folds {
			if f < 1 || f > tc.k {
				t.Fatalf("fold label %d out of range 1..%d", f, tc.k)
			}
			counts[f]++
		}
		if len(counts) != tc.k {
			t.Fatalf("expected %d distinct labels, got %d", tc.k, len(counts))
		}

		lo, hi := tc.n/tc.k, (tc.n+tc.k-1)/tc.k
		for f, c := range counts {
			if c != lo && c != hi {
				t.Errorf("n=%d k=%d: fold %d has %d members, want %d or %d", tc.n, tc.k, f, c, lo, hi)
			}
		}
	}
}

func TestGenerateFolds_SeedChangesAssignment(t *testing.T) {
	a, err := GenerateFolds(newRand(1), 100, 5)
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenerateFolds(newRand(2), 100, 5)
	if err != nil {
		t.Fatal(err)
	}

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced an identical assignment")
	}

	// Same seed must reproduce exactly.
	c, err := GenerateFolds(newRand(1), 100, 5)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != c[i] {
			t.Fatal("identical seeds produced different assignments")
		}
	}
}

func TestGenerateFolds_Validation(t *testing.T) {
	if _, err := GenerateFolds(newRand(1), 10, 1); err == nil {
		t.Error("expected an error for k < 2")
	}
	if _, err := GenerateFolds(newRand(1), 3, 5); err == nil {
		t.Error("expected an error for n < k")
	}
}

func TestGenerateClusterFolds_KeepsClustersTogether(t *testing.T) {
	// 30 observations in 10 clusters of 3.
	clusterIDs := make([]int, 30)
	for i := range clusterIDs {
		clusterIDs[i] = i / 3
	}

	folds, err := GenerateClusterFolds(newRand(3), clusterIDs, 5)
	if err != nil {
		t.Fatal(err)
	}

	foldOfCluster := make(map[int]int)
	for i, f := range folds {
		c := clusterIDs[i]
		if prev, ok := foldOfCluster[c]; ok && prev != f {
			t.Fatalf("cluster %d split across folds %d and %d", c, prev, f)
		}
		foldOfCluster[c] = f
	}

	// Cluster counts per fold balanced within one.
	perFold := make(map[int]int)
	for _, f := range foldOfCluster {
		perFold[f]++
	}
	for f, c := range perFold {
		if c != 2 {
			t.Errorf("fold %d holds %d clusters, want 2", f, c)
		}
	}
}

func TestFoldIndices_Partition(t *testing.T) {
	folds := []int{1, 2, 3, 1, 2, 3, 1}
	idx := FoldIndices(folds, 3)

	total := 0
	for f, members := range idx {
		for _, i := range members {
			if folds[i] != f+1 {
				t.Errorf("observation %d listed under fold %d but assigned %d", i, f+1, folds[i])
			}
		}
		total += len(members)
	}
	if total != len(folds) {
		t.Errorf("fold index lists cover %d observations, want %d", total, len(folds))
	}
}
