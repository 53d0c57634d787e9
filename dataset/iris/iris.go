package iris

import (
	"fmt"
	"math/rand"
	"slices"

	"github.com/seehuhn/mt19937"
	oslices "github.com/sw965/omw/slices"
	"gonum.org/v1/gonum/blas/blas32"
)

const (
	NumRows     = 150
	NumFeatures = 4
	NumClasses  = 3
)

// Dataset is an index-aligned pair of feature vectors and one-hot
// label vectors. Read-only after Load.
type Dataset struct {
	Features []blas32.Vector
	Labels   []blas32.Vector
}

func (d Dataset) Len() int {
	return len(d.Features)
}

// Load builds the full 150-row dataset. Rows 0-49 are setosa,
// 50-99 versicolor, 100-149 virginica.
func Load() Dataset {
	features := make([]blas32.Vector, NumRows)
	labels := make([]blas32.Vector, NumRows)
	for i := range rows {
		features[i] = blas32.Vector{
			N:    NumFeatures,
			Inc:  1,
			Data: slices.Clone(rows[i][:]),
		}

		oneHot := make([]float32, NumClasses)
		oneHot[i/50] = 1.0
		labels[i] = blas32.Vector{
			N:    NumClasses,
			Inc:  1,
			Data: oneHot,
		}
	}
	return Dataset{Features: features, Labels: labels}
}

// Split shuffles the rows with a seeded Mersenne Twister and cuts
// them into a training set of ratio*len rows and a test set of the
// remainder. Deterministic for a fixed seed.
func (d Dataset) Split(ratio float64, seed int64) (Dataset, Dataset, error) {
	n := d.Len()
	if n != len(d.Labels) {
		return Dataset{}, Dataset{}, fmt.Errorf("iris: length mismatch: features %d != labels %d", n, len(d.Labels))
	}
	if ratio <= 0.0 || ratio >= 1.0 {
		return Dataset{}, Dataset{}, fmt.Errorf("iris: split ratio must be in (0, 1), got %f", ratio)
	}

	rng := rand.New(mt19937.New())
	rng.Seed(seed)
	idxs := rng.Perm(n)
	trainN := int(float64(n) * ratio)

	train := Dataset{
		Features: oslices.ElementsByIndices(d.Features, idxs[:trainN]...),
		Labels:   oslices.ElementsByIndices(d.Labels, idxs[:trainN]...),
	}
	test := Dataset{
		Features: oslices.ElementsByIndices(d.Features, idxs[trainN:]...),
		Labels:   oslices.ElementsByIndices(d.Labels, idxs[trainN:]...),
	}
	return train, test, nil
}

// The classic iris measurements, min-max normalized per feature.
var rows = [NumRows][NumFeatures]float32{
	{0.222, 0.625, 0.068, 0.042},
	{0.167, 0.417, 0.068, 0.042},
	{0.111, 0.500, 0.051, 0.042},
	{0.083, 0.458, 0.085, 0.042},
	{0.194, 0.667, 0.068, 0.042},
	{0.306, 0.792, 0.119, 0.125},
	{0.083, 0.583, 0.068, 0.083},
	{0.194, 0.583, 0.085, 0.042},
	{0.028, 0.375, 0.068, 0.042},
	{0.167, 0.458, 0.085, 0.000},
	{0.306, 0.708, 0.085, 0.042},
	{0.139, 0.583, 0.102, 0.042},
	{0.139, 0.417, 0.068, 0.000},
	{0.000, 0.417, 0.017, 0.000},
	{0.417, 0.833, 0.034, 0.042},
	{0.389, 1.000, 0.085, 0.125},
	{0.306, 0.792, 0.051, 0.125},
	{0.222, 0.625, 0.068, 0.083},
	{0.389, 0.750, 0.119, 0.083},
	{0.222, 0.750, 0.085, 0.083},
	{0.306, 0.583, 0.119, 0.042},
	{0.222, 0.708, 0.085, 0.125},
	{0.083, 0.667, 0.000, 0.042},
	{0.222, 0.542, 0.119, 0.167},
	{0.139, 0.583, 0.153, 0.042},
	{0.194, 0.417, 0.102, 0.042},
	{0.194, 0.583, 0.102, 0.125},
	{0.250, 0.625, 0.085, 0.042},
	{0.250, 0.583, 0.068, 0.042},
	{0.111, 0.500, 0.102, 0.042},
	{0.139, 0.458, 0.102, 0.042},
	{0.306, 0.583, 0.085, 0.125},
	{0.250, 0.875, 0.085, 0.000},
	{0.333, 0.917, 0.068, 0.042},
	{0.167, 0.458, 0.085, 0.000},
	{0.194, 0.500, 0.034, 0.042},
	{0.333, 0.625, 0.051, 0.042},
	{0.167, 0.458, 0.085, 0.000},
	{0.028, 0.417, 0.051, 0.042},
	{0.222, 0.583, 0.085, 0.042},
	{0.194, 0.625, 0.051, 0.083},
	{0.056, 0.125, 0.051, 0.083},
	{0.028, 0.500, 0.051, 0.042},
	{0.194, 0.625, 0.102, 0.208},
	{0.222, 0.750, 0.153, 0.125},
	{0.139, 0.417, 0.068, 0.083},
	{0.222, 0.750, 0.102, 0.042},
	{0.083, 0.500, 0.068, 0.042},
	{0.278, 0.708, 0.085, 0.042},
	{0.194, 0.542, 0.068, 0.042},
	{0.528, 0.375, 0.593, 0.583},
	{0.444, 0.417, 0.576, 0.583},
	{0.500, 0.417, 0.627, 0.583},
	{0.194, 0.208, 0.390, 0.375},
	{0.472, 0.375, 0.593, 0.542},
	{0.278, 0.292, 0.458, 0.417},
	{0.417, 0.417, 0.559, 0.583},
	{0.139, 0.167, 0.322, 0.375},
	{0.444, 0.333, 0.559, 0.500},
	{0.194, 0.333, 0.424, 0.417},
	{0.167, 0.125, 0.288, 0.333},
	{0.333, 0.375, 0.508, 0.500},
	{0.333, 0.167, 0.458, 0.375},
	{0.389, 0.375, 0.542, 0.500},
	{0.222, 0.333, 0.424, 0.375},
	{0.472, 0.417, 0.525, 0.625},
	{0.333, 0.292, 0.508, 0.417},
	{0.306, 0.292, 0.458, 0.375},
	{0.361, 0.125, 0.492, 0.417},
	{0.250, 0.292, 0.390, 0.375},
	{0.361, 0.375, 0.542, 0.542},
	{0.306, 0.333, 0.492, 0.417},
	{0.444, 0.208, 0.576, 0.417},
	{0.389, 0.333, 0.576, 0.500},
	{0.389, 0.292, 0.525, 0.458},
	{0.417, 0.333, 0.559, 0.458},
	{0.472, 0.333, 0.627, 0.583},
	{0.500, 0.375, 0.610, 0.625},
	{0.361, 0.333, 0.508, 0.500},
	{0.222, 0.250, 0.390, 0.417},
	{0.222, 0.167, 0.356, 0.375},
	{0.222, 0.167, 0.356, 0.333},
	{0.278, 0.292, 0.424, 0.375},
	{0.389, 0.250, 0.593, 0.458},
	{0.278, 0.250, 0.458, 0.417},
	{0.389, 0.417, 0.542, 0.583},
	{0.472, 0.417, 0.593, 0.542},
	{0.333, 0.167, 0.458, 0.417},
	{0.306, 0.333, 0.458, 0.417},
	{0.194, 0.208, 0.373, 0.375},
	{0.222, 0.292, 0.441, 0.375},
	{0.333, 0.250, 0.508, 0.458},
	{0.278, 0.250, 0.458, 0.417},
	{0.167, 0.167, 0.305, 0.375},
	{0.250, 0.292, 0.441, 0.417},
	{0.250, 0.333, 0.424, 0.333},
	{0.306, 0.333, 0.475, 0.417},
	{0.361, 0.333, 0.441, 0.375},
	{0.139, 0.208, 0.271, 0.333},
	{0.278, 0.292, 0.492, 0.417},
	{0.472, 0.292, 0.695, 0.625},
	{0.389, 0.250, 0.576, 0.542},
	{0.639, 0.333, 0.729, 0.708},
	{0.389, 0.167, 0.610, 0.583},
	{0.500, 0.292, 0.678, 0.708},
	{0.722, 0.333, 0.864, 0.833},
	{0.167, 0.125, 0.441, 0.417},
	{0.611, 0.292, 0.797, 0.750},
	{0.472, 0.083, 0.627, 0.500},
	{0.583, 0.417, 0.729, 0.708},
	{0.444, 0.333, 0.661, 0.625},
	{0.444, 0.208, 0.593, 0.583},
	{0.528, 0.250, 0.678, 0.625},
	{0.333, 0.125, 0.508, 0.417},
	{0.333, 0.167, 0.559, 0.500},
	{0.444, 0.292, 0.644, 0.708},
	{0.472, 0.333, 0.661, 0.583},
	{0.806, 0.417, 0.831, 0.625},
	{0.861, 0.125, 0.864, 0.625},
	{0.306, 0.042, 0.492, 0.375},
	{0.556, 0.333, 0.729, 0.708},
	{0.333, 0.208, 0.542, 0.500},
	{0.750, 0.250, 0.797, 0.542},
	{0.389, 0.167, 0.593, 0.583},
	{0.500, 0.333, 0.678, 0.625},
	{0.583, 0.333, 0.729, 0.750},
	{0.361, 0.167, 0.576, 0.500},
	{0.333, 0.250, 0.559, 0.500},
	{0.444, 0.208, 0.661, 0.583},
	{0.528, 0.125, 0.678, 0.458},
	{0.639, 0.167, 0.678, 0.542},
	{0.806, 0.292, 0.762, 0.708},
	{0.444, 0.292, 0.661, 0.667},
	{0.389, 0.208, 0.542, 0.542},
	{0.389, 0.208, 0.576, 0.583},
	{0.750, 0.333, 0.831, 0.833},
	{0.556, 0.417, 0.763, 0.875},
	{0.472, 0.375, 0.593, 0.542},
	{0.306, 0.208, 0.508, 0.500},
	{0.444, 0.333, 0.644, 0.583},
	{0.500, 0.333, 0.712, 0.625},
	{0.417, 0.333, 0.678, 0.625},
	{0.389, 0.250, 0.576, 0.542},
	{0.528, 0.333, 0.678, 0.667},
	{0.556, 0.375, 0.780, 0.833},
	{0.472, 0.292, 0.695, 0.667},
	{0.389, 0.208, 0.610, 0.583},
	{0.417, 0.250, 0.559, 0.583},
	{0.444, 0.333, 0.644, 0.583},
	{0.333, 0.208, 0.559, 0.542},
}
