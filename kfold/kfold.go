package kfold

import (
	"fmt"
	"math/rand"
	"slices"

	"github.com/seehuhn/mt19937"
)

// Fold holds the row indices of one cross-validation fold. Valid is
// the fold's held-out chunk, Train is its complement.
type Fold struct {
	Train []int
	Valid []int
}

// Split shuffles [0, n) with a seeded Mersenne Twister and cuts it
// into k contiguous near-equal chunks. Chunk i becomes the validation
// set of fold i, so across the k folds every index appears in exactly
// one validation set. Chunk sizes differ by at most one when k does
// not divide n. The same (n, k, seed) always yields the same partition.
func Split(n, k int, seed int64) ([]Fold, error) {
	if n <= 0 {
		return nil, fmt.Errorf("kfold: row count must be positive, got %d", n)
	}
	if k < 2 || k > n {
		return nil, fmt.Errorf("kfold: fold count must be in [2, %d], got %d", n, k)
	}

	rng := rand.New(mt19937.New())
	rng.Seed(seed)
	idxs := rng.Perm(n)

	folds := make([]Fold, k)
	chunk := n / k
	rem := n % k
	start := 0
	for i := 0; i < k; i++ {
		end := start + chunk
		if i < rem {
			end++
		}

		valid := slices.Clone(idxs[start:end])
		train := make([]int, 0, n-len(valid))
		train = append(train, idxs[:start]...)
		train = append(train, idxs[end:]...)

		folds[i] = Fold{Train: train, Valid: valid}
		start = end
	}
	return folds, nil
}
