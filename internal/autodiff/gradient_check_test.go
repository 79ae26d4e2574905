package autodiff_test

import (
	"math"
	"testing"

	"github.com/lucid-ml/lucid/internal/autodiff"
	"github.com/lucid-ml/lucid/internal/backend/cpu"
	"github.com/lucid-ml/lucid/internal/tensor"
)

// numericGradient approximates d f(x)/dx[i] with central differences.
func numericGradient(f func([]float32) float32, x []float32, i int) float32 {
	const eps = 1e-3

	xp := make([]float32, len(x))
	copy(xp, x)
	xp[i] += eps
	fp := f(xp)

	xm := make([]float32, len(x))
	copy(xm, x)
	xm[i] -= eps
	fm := f(xm)

	return (fp - fm) / (2 * eps)
}

// TestGradientCheck_Softmax compares the analytic softmax gradient against
// finite differences of the first output element.
func TestGradientCheck_Softmax(t *testing.T) {
	x := []float32{0.5, -1, 2}

	softmax0 := func(values []float32) float32 {
		backend := cpu.New()
		raw, _ := tensor.NewRaw(tensor.Shape{1, 3}, tensor.Float32, tensor.CPU)
		copy(raw.AsFloat32(), values)
		return backend.Softmax(raw, 1).AsFloat32()[0]
	}

	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	raw, _ := tensor.NewRaw(tensor.Shape{1, 3}, tensor.Float32, tensor.CPU)
	copy(raw.AsFloat32(), x)
	_ = backend.Softmax(raw, 1)

	tape.StopRecording()

	// Seed selects output element 0.
	seed, _ := tensor.NewRaw(tensor.Shape{1, 3}, tensor.Float32, tensor.CPU)
	seed.AsFloat32()[0] = 1

	grads := tape.Backward(seed, backend)
	analytic := grads[raw].AsFloat32()

	for i := range x {
		numeric := numericGradient(softmax0, x, i)
		if math.Abs(float64(analytic[i]-numeric)) > 1e-2 {
			t.Errorf("softmax grad[%d] = %v, numeric %v", i, analytic[i], numeric)
		}
	}
}

// TestGradientCheck_Composite checks a small composite expression
// f = sum(relu(x) * y) against finite differences.
func TestGradientCheck_Composite(t *testing.T) {
	xVals := []float32{-0.5, 0.8, 1.2}
	yVals := []float32{2, -1, 0.5}

	f := func(values []float32) float32 {
		var total float32
		for i, v := range values {
			if v > 0 {
				total += v * yVals[i]
			}
		}
		return total
	}

	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	x, _ := tensor.FromSlice(xVals, tensor.Shape{3}, backend)
	y, _ := tensor.FromSlice(yVals, tensor.Shape{3}, backend)

	activated := tensor.New[float32](backend.ReLU(x.Raw()), backend)
	_ = activated.Mul(y)

	tape.StopRecording()

	// Seeding ones makes the backward pass compute the gradient of the
	// elementwise sum.
	seed, _ := tensor.NewRaw(tensor.Shape{3}, tensor.Float32, tensor.CPU)
	for i := range seed.AsFloat32() {
		seed.AsFloat32()[i] = 1
	}

	grads := tape.Backward(seed, backend)
	analytic := grads[x.Raw()].AsFloat32()

	for i := range xVals {
		numeric := numericGradient(f, xVals, i)
		if math.Abs(float64(analytic[i]-numeric)) > 1e-2 {
			t.Errorf("composite grad[%d] = %v, numeric %v", i, analytic[i], numeric)
		}
	}
}
