package mlp_test

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/seehuhn/mt19937"
	"github.com/sw965/lark/mlp"
	"gonum.org/v1/gonum/blas/blas32"
)

func newSeededRng(seed int64) *rand.Rand {
	rng := rand.New(mt19937.New())
	rng.Seed(seed)
	return rng
}

func newTestModel(rng *rand.Rand) *mlp.Model {
	model := &mlp.Model{}
	model.AppendAffine(4, 8, rng)
	model.AppendSigmoid()
	model.AppendAffine(8, 3, rng)
	model.AppendOutputSoftmaxAndSetCrossEntropyLoss()
	return model
}

func TestPredictIsDeterministic(t *testing.T) {
	rng := newSeededRng(42)
	model := newTestModel(rng)

	x := blas32.Vector{N: 4, Inc: 1, Data: []float32{0.1, 0.2, 0.3, 0.4}}
	y1, err := model.Predict(x)
	if err != nil {
		t.Fatal(err)
	}
	y2, err := model.Predict(x)
	if err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(y1.Data, y2.Data) {
		t.Errorf("evaluation-mode forward is not deterministic: %v != %v", y1.Data, y2.Data)
	}
}

func TestDropoutTrainMode(t *testing.T) {
	rng := newSeededRng(42)
	p := float32(0.5)
	forward := mlp.NewDropoutForward(p, rng)

	n := 100
	xData := make([]float32, n)
	for i := range xData {
		xData[i] = 1.0
	}
	x := blas32.Vector{N: n, Inc: 1, Data: xData}

	iterations := 100
	survived := 0
	varies := false
	var prev []float32
	for i := 0; i < iterations; i++ {
		y, _, err := forward(x, &mlp.Parameter{}, true)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range y.Data {
			if e == 0.0 {
				continue
			}
			survived += 1
			if e != 1.0/(1.0-p) {
				t.Fatalf("survivor scaled to %f, want %f", e, 1.0/(1.0-p))
			}
		}
		if prev != nil && !slices.Equal(prev, y.Data) {
			varies = true
		}
		prev = y.Data
	}

	if !varies {
		t.Errorf("training-mode dropout produced identical outputs across invocations")
	}

	fraction := float32(survived) / float32(n*iterations)
	if fraction < 0.45 || fraction > 0.55 {
		t.Errorf("survivor fraction %f, want about %f", fraction, 1.0-p)
	}
}

func TestDropoutEvalModeIsIdentity(t *testing.T) {
	rng := newSeededRng(42)
	forward := mlp.NewDropoutForward(0.5, rng)

	x := blas32.Vector{N: 4, Inc: 1, Data: []float32{0.5, -1.0, 2.0, 0.0}}
	y, _, err := forward(x, &mlp.Parameter{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(y.Data, x.Data) {
		t.Errorf("evaluation-mode dropout is not the identity: %v != %v", y.Data, x.Data)
	}
}

func TestAccuracyBounds(t *testing.T) {
	rng := newSeededRng(42)
	model := &mlp.Model{}
	model.AppendAffine(2, 2, rng)
	model.AppendOutputSoftmaxAndSetCrossEntropyLoss()

	// 単位行列なので arg-max は入力の arg-max と一致する
	copy(model.Parameters[0].Weight.Data, []float32{1.0, 0.0, 0.0, 1.0})

	xs := []blas32.Vector{
		{N: 2, Inc: 1, Data: []float32{1.0, 0.0}},
		{N: 2, Inc: 1, Data: []float32{0.0, 1.0}},
	}
	match := []blas32.Vector{
		{N: 2, Inc: 1, Data: []float32{1.0, 0.0}},
		{N: 2, Inc: 1, Data: []float32{0.0, 1.0}},
	}
	mismatch := []blas32.Vector{
		{N: 2, Inc: 1, Data: []float32{0.0, 1.0}},
		{N: 2, Inc: 1, Data: []float32{1.0, 0.0}},
	}

	acc, err := model.Accuracy(xs, match, 2)
	if err != nil {
		t.Fatal(err)
	}
	if acc != 1.0 {
		t.Errorf("all predictions match, accuracy = %f, want 1.0", acc)
	}

	acc, err = model.Accuracy(xs, mismatch, 2)
	if err != nil {
		t.Fatal(err)
	}
	if acc != 0.0 {
		t.Errorf("no prediction matches, accuracy = %f, want 0.0", acc)
	}
}

func TestAffineWidthMismatch(t *testing.T) {
	rng := newSeededRng(42)
	model := newTestModel(rng)

	x := blas32.Vector{N: 3, Inc: 1, Data: []float32{0.1, 0.2, 0.3}}
	if _, err := model.Predict(x); err == nil {
		t.Errorf("input width 3 into a width-4 model should fail")
	}
}

func TestComputeGradAgainstNumericalGrad(t *testing.T) {
	rng := newSeededRng(42)
	model := &mlp.Model{}
	model.AppendAffine(2, 3, rng)
	model.AppendOutputSoftmaxAndSetCrossEntropyLoss()

	xs := []blas32.Vector{
		{N: 2, Inc: 1, Data: []float32{0.3, -0.6}},
		{N: 2, Inc: 1, Data: []float32{-0.1, 0.8}},
	}
	ts := []blas32.Vector{
		{N: 3, Inc: 1, Data: []float32{1.0, 0.0, 0.0}},
		{N: 3, Inc: 1, Data: []float32{0.0, 0.0, 1.0}},
	}

	grads, _, err := model.ComputeGrad(xs, ts)
	if err != nil {
		t.Fatal(err)
	}

	// ドロップアウトが無いモデルなので、訓練時と評価時の forward は一致する
	h := float32(1e-3)
	wData := model.Parameters[0].Weight.Data
	for j := range wData {
		orig := wData[j]

		wData[j] = orig + h
		plus, err := model.MeanLoss(xs, ts)
		if err != nil {
			t.Fatal(err)
		}

		wData[j] = orig - h
		minus, err := model.MeanLoss(xs, ts)
		if err != nil {
			t.Fatal(err)
		}

		wData[j] = orig
		numerical := (plus - minus) / (2.0 * h)
		diff := grads[0].Weight.Data[j] - numerical
		if diff < -0.01 || diff > 0.01 {
			t.Errorf("weight %d: backprop grad %f, numerical grad %f", j, grads[0].Weight.Data[j], numerical)
		}
	}
}
