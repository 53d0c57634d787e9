package mlp

import (
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/chewxy/math32"
	tensor2d "github.com/sw965/lark/blas32/tensor/2d"
	"github.com/sw965/lark/blas32/vector"
	omath "github.com/sw965/omw/math"
	"github.com/sw965/omw/parallel"
	oslices "github.com/sw965/omw/slices"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

type GradBuffer struct {
	Weight blas32.General
	Bias   blas32.Vector
}

func (g *GradBuffer) NewZerosLike() GradBuffer {
	return GradBuffer{
		Weight: tensor2d.NewZerosLike(g.Weight),
		Bias:   vector.NewZerosLike(g.Bias),
	}
}

func (g *GradBuffer) Axpy(alpha float32, x *GradBuffer) {
	if x.Weight.Rows != 0 {
		tensor2d.Axpy(alpha, x.Weight, g.Weight)
	}

	if x.Bias.N != 0 {
		blas32.Axpy(alpha, x.Bias, g.Bias)
	}
}

func (g *GradBuffer) Scal(alpha float32) {
	if g.Weight.Rows != 0 {
		tensor2d.Scal(alpha, g.Weight)
	}

	if g.Bias.N != 0 {
		blas32.Scal(alpha, g.Bias)
	}
}

type GradBuffers []GradBuffer

func (gs GradBuffers) NewZerosLike() GradBuffers {
	zeros := make(GradBuffers, len(gs))
	for i, g := range gs {
		zeros[i] = g.NewZerosLike()
	}
	return zeros
}

func (gs GradBuffers) Axpy(alpha float32, xs GradBuffers) {
	for i, g := range gs {
		g.Axpy(alpha, &xs[i])
	}
}

func (gs GradBuffers) Scal(alpha float32) {
	for _, g := range gs {
		g.Scal(alpha)
	}
}

type Parameter struct {
	Weight blas32.General
	Bias   blas32.Vector
}

func (p *Parameter) NewGradZerosLike() GradBuffer {
	return GradBuffer{
		Weight: tensor2d.NewZerosLike(p.Weight),
		Bias:   vector.NewZerosLike(p.Bias),
	}
}

func (p *Parameter) Clone() Parameter {
	return Parameter{
		Weight: tensor2d.Clone(p.Weight),
		Bias:   vector.Clone(p.Bias),
	}
}

type Parameters []Parameter

func (ps Parameters) NewGradsZerosLike() GradBuffers {
	grads := make(GradBuffers, len(ps))
	for i, p := range ps {
		grads[i] = p.NewGradZerosLike()
	}
	return grads
}

func (ps Parameters) Clone() Parameters {
	clone := make(Parameters, len(ps))
	for i, p := range ps {
		clone[i] = p.Clone()
	}
	return clone
}

// Forward propagates one layer. isTrain is passed explicitly so that
// training-only behaviour (dropout) can never leak into evaluation
// through a stale mode flag.
type Forward func(x blas32.Vector, param *Parameter, isTrain bool) (blas32.Vector, Backward, error)
type Forwards []Forward

func (fs Forwards) Propagate(x blas32.Vector, params Parameters, isTrain bool) (blas32.Vector, Backwards, error) {
	var err error
	var backward Backward
	backwards := make(Backwards, len(fs))
	for i, f := range fs {
		x, backward, err = f(x, &params[i], isTrain)
		if err != nil {
			return blas32.Vector{}, nil, err
		}
		backwards[i] = backward
	}
	y := x
	slices.Reverse(backwards)
	return y, backwards, nil
}

type Backward func(blas32.Vector) (blas32.Vector, GradBuffer, error)
type Backwards []Backward

func (bs Backwards) Propagate(chain blas32.Vector) (blas32.Vector, GradBuffers, error) {
	grads := make(GradBuffers, len(bs))
	var grad GradBuffer
	var err error
	for i, b := range bs {
		chain, grad, err = b(chain)
		if err != nil {
			return blas32.Vector{}, nil, err
		}
		grads[i] = grad
	}
	dx := chain
	slices.Reverse(grads)
	return dx, grads, nil
}

func AffineForward(x blas32.Vector, param *Parameter, _ bool) (blas32.Vector, Backward, error) {
	if x.N != param.Weight.Rows {
		return blas32.Vector{}, nil, fmt.Errorf("affine: input width %d != weight rows %d", x.N, param.Weight.Rows)
	}

	y := vector.Affine(x, param.Weight, param.Bias)

	var backward Backward
	backward = func(chain blas32.Vector) (blas32.Vector, GradBuffer, error) {
		wRows := param.Weight.Rows
		wCols := param.Weight.Cols

		dx := blas32.Vector{
			N:    wRows,
			Inc:  1,
			Data: make([]float32, wRows),
		}
		blas32.Gemv(blas.NoTrans, 1.0, param.Weight, chain, 1.0, dx)

		dw := blas32.General{
			Rows:   wRows,
			Cols:   wCols,
			Stride: wCols,
			Data:   make([]float32, wRows*wCols),
		}
		blas32.Ger(1.0, x, chain, dw)

		db := blas32.Vector{
			N:    chain.N,
			Inc:  1,
			Data: make([]float32, chain.N),
		}
		blas32.Copy(chain, db)

		grad := GradBuffer{
			Weight: dw,
			Bias:   db,
		}
		return dx, grad, nil
	}
	return y, backward, nil
}

func SigmoidForward(x blas32.Vector, _ *Parameter, _ bool) (blas32.Vector, Backward, error) {
	yData := make([]float32, x.N)
	for i, e := range x.Data {
		yData[i] = 1.0 / (1.0 + math32.Exp(-e))
	}

	y := blas32.Vector{
		N:    x.N,
		Inc:  x.Inc,
		Data: yData,
	}

	var backward Backward
	backward = func(chain blas32.Vector) (blas32.Vector, GradBuffer, error) {
		chainData := chain.Data
		dxData := make([]float32, chain.N)
		for i, e := range yData {
			dxData[i] = e * (1.0 - e) * chainData[i]
		}
		dx := blas32.Vector{
			N:    chain.N,
			Inc:  chain.Inc,
			Data: dxData,
		}
		return dx, GradBuffer{}, nil
	}

	return y, backward, nil
}

// NewDropoutForward is the inverted form: each unit is zeroed with
// probability p during training and survivors are scaled by 1/(1-p),
// so evaluation is the identity.
func NewDropoutForward(p float32, rng *rand.Rand) Forward {
	q := 1.0 - p
	return func(x blas32.Vector, _ *Parameter, isTrain bool) (blas32.Vector, Backward, error) {
		yData := make([]float32, x.N)
		mask := make([]float32, x.N)
		if isTrain {
			for i, e := range x.Data {
				if p > float32(rng.Float64()) {
					continue
				}
				mask[i] = 1.0 / q
				yData[i] = e / q
			}
		} else {
			for i, e := range x.Data {
				mask[i] = 1.0
				yData[i] = e
			}
		}

		y := blas32.Vector{
			N:    x.N,
			Inc:  x.Inc,
			Data: yData,
		}

		var backward Backward
		backward = func(chain blas32.Vector) (blas32.Vector, GradBuffer, error) {
			chainData := chain.Data
			dxData := make([]float32, chain.N)
			for i, m := range mask {
				dxData[i] = m * chainData[i]
			}
			dx := blas32.Vector{
				N:    chain.N,
				Inc:  chain.Inc,
				Data: dxData,
			}
			return dx, GradBuffer{}, nil
		}

		return y, backward, nil
	}
}

func SoftmaxForOutputForward(x blas32.Vector, _ *Parameter, _ bool) (blas32.Vector, Backward, error) {
	xData := x.Data
	maxX := omath.Max(xData...) // オーバーフロー対策
	expX := make([]float32, x.N)
	sumExpX := float32(0.0)
	for i, e := range xData {
		expX[i] = math32.Exp(e - maxX)
		sumExpX += expX[i]
	}

	yData := make([]float32, x.N)
	for i := range expX {
		yData[i] = expX[i] / sumExpX
	}

	y := blas32.Vector{
		N:    x.N,
		Inc:  x.Inc,
		Data: yData,
	}

	var backward Backward
	backward = func(chain blas32.Vector) (blas32.Vector, GradBuffer, error) {
		//クロスエントロピーが損失関数である事を前提
		dx := chain
		return dx, GradBuffer{}, nil
	}
	return y, backward, nil
}

type PredictLoss struct {
	Func       func(blas32.Vector, blas32.Vector) (float32, error)
	Derivative func(blas32.Vector, blas32.Vector) (blas32.Vector, error)
}

func NewCrossEntropyLossForSoftmax() PredictLoss {
	f := func(y, t blas32.Vector) (float32, error) {
		if y.N != t.N {
			return 0.0, fmt.Errorf("length mismatch: y %d != t %d", y.N, t.N)
		}
		loss := float32(0.0)
		e := float32(0.0001)
		for i := range y.Data {
			ye := float64(omath.Max(y.Data[i], e))
			te := t.Data[i]
			loss += -te * float32(math.Log(ye))
		}
		return loss, nil
	}

	d := func(y, t blas32.Vector) (blas32.Vector, error) {
		if y.N != t.N {
			return blas32.Vector{}, fmt.Errorf("length mismatch: y %d != t %d", y.N, t.N)
		}
		dx := blas32.Vector{
			N:    y.N,
			Inc:  y.Inc,
			Data: make([]float32, y.N),
		}
		blas32.Copy(y, dx)
		blas32.Axpy(-1.0, t, dx)
		return dx, nil
	}

	return PredictLoss{
		Func:       f,
		Derivative: d,
	}
}

type Model struct {
	Parameters  Parameters
	Forwards    Forwards
	PredictLoss PredictLoss
}

func (m *Model) AppendAffine(xn, yn int, rng *rand.Rand) {
	param := Parameter{
		Weight: tensor2d.NewHe(xn, yn, rng),
		Bias:   vector.NewZeros(yn),
	}
	m.Parameters = append(m.Parameters, param)
	m.Forwards = append(m.Forwards, AffineForward)
}

func (m *Model) AppendSigmoid() {
	param := Parameter{
		Weight: blas32.General{Rows: 0, Cols: 0, Stride: 0, Data: []float32{}},
		Bias:   blas32.Vector{N: 0, Inc: 0, Data: []float32{}},
	}
	m.Parameters = append(m.Parameters, param)
	m.Forwards = append(m.Forwards, SigmoidForward)
}

func (m *Model) AppendDropout(p float32, rng *rand.Rand) {
	param := Parameter{
		Weight: blas32.General{Rows: 0, Cols: 0, Stride: 0, Data: []float32{}},
		Bias:   blas32.Vector{N: 0, Inc: 0, Data: []float32{}},
	}
	m.Parameters = append(m.Parameters, param)
	m.Forwards = append(m.Forwards, NewDropoutForward(p, rng))
}

func (m *Model) AppendOutputSoftmaxAndSetCrossEntropyLoss() {
	param := Parameter{
		Weight: blas32.General{Rows: 0, Cols: 0, Stride: 0, Data: []float32{}},
		Bias:   blas32.Vector{N: 0, Inc: 0, Data: []float32{}},
	}
	m.Parameters = append(m.Parameters, param)
	m.Forwards = append(m.Forwards, SoftmaxForOutputForward)
	m.PredictLoss = NewCrossEntropyLossForSoftmax()
}

func (m Model) Clone() Model {
	return Model{
		Parameters:  m.Parameters.Clone(),
		Forwards:    m.Forwards,
		PredictLoss: m.PredictLoss,
	}
}

// Predict runs the forward chain in evaluation mode.
func (m *Model) Predict(x blas32.Vector) (blas32.Vector, error) {
	y, _, err := m.Forwards.Propagate(x, m.Parameters, false)
	return y, err
}

func (m *Model) MeanLoss(xs, ts []blas32.Vector) (float32, error) {
	n := len(xs)
	if n != len(ts) {
		return 0.0, fmt.Errorf("length mismatch: xs %d != ts %d", n, len(ts))
	}

	sum := float32(0.0)
	for i := range xs {
		y, err := m.Predict(xs[i])
		if err != nil {
			return 0.0, err
		}
		loss, err := m.PredictLoss.Func(y, ts[i])
		if err != nil {
			return 0.0, err
		}
		sum += loss
	}
	return sum / float32(n), nil
}

// Accuracy is the fraction of rows whose arg-max score equals the
// arg-max of the one-hot label. Evaluation mode only, so the forward
// pass is read-only and rows can be fanned out across p workers.
func (m *Model) Accuracy(xs, ts []blas32.Vector, p int) (float32, error) {
	n := len(xs)
	if n != len(ts) {
		return 0.0, fmt.Errorf("length mismatch: xs %d != ts %d", n, len(ts))
	}

	correctCounts := make([]int, p)
	err := parallel.For(n, p, func(workerId, idx int) error {
		y, err := m.Predict(xs[idx])
		if err != nil {
			return err
		}
		if oslices.MaxIndices(y.Data)[0] == oslices.MaxIndices(ts[idx].Data)[0] {
			correctCounts[workerId] += 1
		}
		return nil
	})
	if err != nil {
		return 0.0, err
	}

	correct := 0
	for _, c := range correctCounts {
		correct += c
	}
	return float32(correct) / float32(n), nil
}

// BackPropagate runs one training-mode forward/backward pass and
// returns the sample loss observed before any update.
func (m *Model) BackPropagate(x, t blas32.Vector) (float32, GradBuffers, error) {
	y, backwards, err := m.Forwards.Propagate(x, m.Parameters, true)
	if err != nil {
		return 0.0, nil, err
	}
	loss, err := m.PredictLoss.Func(y, t)
	if err != nil {
		return 0.0, nil, err
	}
	firstChain, err := m.PredictLoss.Derivative(y, t)
	if err != nil {
		return 0.0, nil, err
	}
	_, grads, err := backwards.Propagate(firstChain)
	return loss, grads, err
}

// ComputeGrad accumulates gradients over the whole batch and returns
// the mean gradients together with the mean loss. Rows are processed
// sequentially: training-mode forwards draw from the dropout rng, which
// must not be shared across goroutines.
func (m *Model) ComputeGrad(xs, ts []blas32.Vector) (GradBuffers, float32, error) {
	n := len(xs)
	if n != len(ts) {
		return nil, 0.0, fmt.Errorf("length mismatch: xs %d != ts %d", n, len(ts))
	}
	if n == 0 {
		return nil, 0.0, fmt.Errorf("empty batch")
	}

	lossSum, total, err := m.BackPropagate(xs[0], ts[0])
	if err != nil {
		return nil, 0.0, err
	}

	for i := 1; i < n; i++ {
		loss, grads, err := m.BackPropagate(xs[i], ts[i])
		if err != nil {
			return nil, 0.0, err
		}
		total.Axpy(1.0, grads)
		lossSum += loss
	}

	total.Scal(1.0 / float32(n))
	return total, lossSum / float32(n), nil
}
