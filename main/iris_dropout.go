package main

import (
	"fmt"
	"math/rand"

	"github.com/seehuhn/mt19937"
	"github.com/sw965/lark/crossval"
	"github.com/sw965/lark/dataset/iris"
	"github.com/sw965/lark/mlp"
	omath "github.com/sw965/omw/math"
)

const (
	splitRatio = 0.7
	seed       = 42

	hiddenN  = 28
	dropoutP = 0.5

	foldK        = 5
	epochs       = 50
	evalEvery    = 10
	learningRate = 0.001
)

func newModel(withDropout bool, rng *rand.Rand) *mlp.Model {
	model := &mlp.Model{}
	model.AppendAffine(iris.NumFeatures, hiddenN, rng)
	model.AppendSigmoid()
	if withDropout {
		model.AppendDropout(dropoutP, rng)
	}
	model.AppendAffine(hiddenN, iris.NumClasses, rng)
	model.AppendOutputSoftmaxAndSetCrossEntropyLoss()
	return model
}

func main() {
	train, test, err := iris.Load().Split(splitRatio, seed)
	if err != nil {
		panic(err)
	}

	cfg := &crossval.Config{
		K:            foldK,
		Epochs:       epochs,
		EvalEvery:    evalEvery,
		LearningRate: learningRate,
		Seed:         seed,
		Verbose:      true,
	}

	conditions := []struct {
		name        string
		withDropout bool
	}{
		{name: "without dropout", withDropout: false},
		{name: "with dropout", withDropout: true},
	}

	for _, cond := range conditions {
		fmt.Printf("=== %s ===\n", cond.name)

		rng := rand.New(mt19937.New())
		rng.Seed(seed)
		model := newModel(cond.withDropout, rng)

		results, err := crossval.Run(model, train.Features, train.Labels, test.Features, test.Labels, cfg)
		if err != nil {
			panic(err)
		}

		accs := make([]float32, len(results))
		for i, r := range results {
			fmt.Printf("fold %d: loss %.4f accuracy %.4f\n", r.Fold, r.Loss, r.Accuracy)
			accs[i] = r.Accuracy
		}
		fmt.Printf("mean accuracy %.4f\n", omath.Mean(accs...))
	}
}
