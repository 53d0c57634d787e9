// Package crossval drives k-fold cross-validation training of an mlp
// model.
//
// Two behaviours are deliberate and worth knowing about:
//
//   - The model is shared across folds. Parameters are never reset, so
//     fold i+1 starts from the state fold i left behind.
//   - Per-fold evaluation runs against the fixed external test set
//     passed to Run, not against the fold's own validation chunk. The
//     validation chunks only define the partition.
package crossval

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/sw965/lark/kfold"
	"github.com/sw965/lark/mlp"
	"github.com/sw965/lark/optimizer"
	oslices "github.com/sw965/omw/slices"
	"gonum.org/v1/gonum/blas/blas32"
)

type Config struct {
	K            int
	Epochs       int
	EvalEvery    int
	LearningRate float32
	Seed         int64
	Parallel     int
	Verbose      bool
}

func (c *Config) Validate(n int) error {
	if c.K < 2 || c.K > n {
		return fmt.Errorf("crossval: fold count must be in [2, %d], got %d", n, c.K)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("crossval: epochs must be positive, got %d", c.Epochs)
	}
	if c.EvalEvery <= 0 {
		return fmt.Errorf("crossval: eval interval must be positive, got %d", c.EvalEvery)
	}
	if c.EvalEvery > c.Epochs {
		return fmt.Errorf("crossval: eval interval %d exceeds epochs %d, no evaluation would ever be recorded", c.EvalEvery, c.Epochs)
	}
	return nil
}

func validateFinite(name string, xs []blas32.Vector) error {
	for i, x := range xs {
		for _, e := range x.Data {
			if math32.IsNaN(e) || math32.IsInf(e, 0) {
				return fmt.Errorf("crossval: non-finite value %f in %s row %d", e, name, i)
			}
		}
	}
	return nil
}

// FoldResult is the summary of one fold: the loss and held-out
// accuracy observed at the fold's last recorded evaluation point.
type FoldResult struct {
	Fold     int
	Loss     float32
	Accuracy float32
}

// Step performs one full-batch gradient-descent update and returns the
// mean loss observed before the update.
func Step(model *mlp.Model, adam *optimizer.Adam, xs, ts []blas32.Vector) (float32, error) {
	grads, loss, err := model.ComputeGrad(xs, ts)
	if err != nil {
		return 0.0, err
	}
	if err := adam.Optimize(model.Parameters, grads); err != nil {
		return 0.0, err
	}
	return loss, nil
}

// Evaluate computes held-out accuracy without touching parameters.
func Evaluate(model *mlp.Model, xs, ts []blas32.Vector, p int) (float32, error) {
	return model.Accuracy(xs, ts, p)
}

// Run trains the model on each fold's training slice for cfg.Epochs
// full-batch steps, evaluating on (testXs, testTs) every cfg.EvalEvery
// epochs, and returns one FoldResult per fold. Any error aborts the
// whole run.
func Run(model *mlp.Model, trainXs, trainTs, testXs, testTs []blas32.Vector, cfg *Config) ([]FoldResult, error) {
	n := len(trainXs)
	if n != len(trainTs) {
		return nil, fmt.Errorf("crossval: length mismatch: xs %d != ts %d", n, len(trainTs))
	}
	if err := cfg.Validate(n); err != nil {
		return nil, err
	}

	// 訓練中の発散は守らないが、入力そのものは有限でなければならない
	inputs := []struct {
		name string
		xs   []blas32.Vector
	}{
		{name: "train features", xs: trainXs},
		{name: "train labels", xs: trainTs},
		{name: "test features", xs: testXs},
		{name: "test labels", xs: testTs},
	}
	for _, in := range inputs {
		if err := validateFinite(in.name, in.xs); err != nil {
			return nil, err
		}
	}

	p := cfg.Parallel
	if p <= 0 {
		p = 1
	}

	folds, err := kfold.Split(n, cfg.K, cfg.Seed)
	if err != nil {
		return nil, err
	}

	results := make([]FoldResult, 0, cfg.K)
	for i, fold := range folds {
		xs := oslices.ElementsByIndices(trainXs, fold.Train...)
		ts := oslices.ElementsByIndices(trainTs, fold.Train...)

		adam := optimizer.NewAdam(model.Parameters)
		adam.LearningRate = cfg.LearningRate

		var lastLoss, lastAcc float32
		for epoch := 1; epoch <= cfg.Epochs; epoch++ {
			loss, err := Step(model, adam, xs, ts)
			if err != nil {
				return nil, err
			}

			if epoch%cfg.EvalEvery == 0 {
				acc, err := Evaluate(model, testXs, testTs, p)
				if err != nil {
					return nil, err
				}
				lastLoss = loss
				lastAcc = acc
				if cfg.Verbose {
					fmt.Printf("fold %d epoch %d loss %.4f accuracy %.4f\n", i, epoch, loss, acc)
				}
			}
		}

		results = append(results, FoldResult{Fold: i, Loss: lastLoss, Accuracy: lastAcc})
	}
	return results, nil
}
