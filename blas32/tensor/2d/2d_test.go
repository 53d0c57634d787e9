package tensor2d_test

import (
	"slices"
	"testing"

	tensor2d "github.com/sw965/lark/blas32/tensor/2d"
	orand "github.com/sw965/omw/math/rand"
)

func TestNewZeros(t *testing.T) {
	result := tensor2d.NewZeros(3, 4)
	if result.Rows != 3 || result.Cols != 4 || result.Stride != 4 {
		t.Errorf("shape (%d, %d, stride %d), want (3, 4, stride 4)", result.Rows, result.Cols, result.Stride)
	}
	if len(result.Data) != 12 {
		t.Errorf("len(Data) = %d, want 12", len(result.Data))
	}
}

func TestNewHe(t *testing.T) {
	rng := orand.NewMt19937()
	result := tensor2d.NewHe(100, 10, rng)
	if len(result.Data) != 1000 {
		t.Fatalf("len(Data) = %d, want 1000", len(result.Data))
	}

	allZero := true
	for _, e := range result.Data {
		if e != 0.0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Errorf("He initialization produced all zeros")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	gen := tensor2d.NewZeros(2, 2)
	gen.Data[0] = 1.0

	clone := tensor2d.Clone(gen)
	clone.Data[0] = -1.0
	if gen.Data[0] != 1.0 {
		t.Errorf("clone shares backing array with the original")
	}
}

func TestAxpyScal(t *testing.T) {
	x := tensor2d.NewZeros(2, 2)
	copy(x.Data, []float32{1.0, 2.0, 3.0, 4.0})
	y := tensor2d.NewZeros(2, 2)

	tensor2d.Axpy(2.0, x, y)
	want := []float32{2.0, 4.0, 6.0, 8.0}
	if !slices.Equal(y.Data, want) {
		t.Errorf("after Axpy got %v, want %v", y.Data, want)
	}

	tensor2d.Scal(0.5, y)
	want = []float32{1.0, 2.0, 3.0, 4.0}
	if !slices.Equal(y.Data, want) {
		t.Errorf("after Scal got %v, want %v", y.Data, want)
	}
}
