package autodiff_test

import (
	"math"
	"testing"

	"github.com/lucid-ml/lucid/internal/autodiff"
	"github.com/lucid-ml/lucid/internal/backend/cpu"
	"github.com/lucid-ml/lucid/internal/tensor"
)

// TestAutodiffBackend_Name tests the Name method.
func TestAutodiffBackend_Name(t *testing.T) {
	backend := autodiff.New(cpu.New())
	expected := "Autodiff(CPU)"
	if backend.Name() != expected {
		t.Errorf("Name() = %s, want %s", backend.Name(), expected)
	}
}

// TestTape_Recording tests tape recording on/off.
func TestTape_Recording(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	if tape.IsRecording() {
		t.Error("Tape should not be recording initially")
	}

	tape.StartRecording()
	if !tape.IsRecording() {
		t.Error("Tape should be recording after StartRecording()")
	}

	tape.StopRecording()
	if tape.IsRecording() {
		t.Error("Tape should not be recording after StopRecording()")
	}
}

// TestTape_Clear tests tape clearing.
func TestTape_Clear(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	tape.StartRecording()
	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}, backend)
	_ = a.Add(b)

	if tape.NumOps() == 0 {
		t.Fatal("operations should be recorded")
	}

	tape.Clear()
	if tape.NumOps() != 0 {
		t.Errorf("NumOps() = %d after Clear, want 0", tape.NumOps())
	}
}

// TestTape_NotRecordingSkipsOps verifies nothing is recorded while the tape
// is stopped.
func TestTape_NotRecordingSkipsOps(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}, backend)
	_ = a.Mul(b)

	if tape.NumOps() != 0 {
		t.Errorf("NumOps() = %d without recording, want 0", tape.NumOps())
	}
}

func seedOnes(shape tensor.Shape) *tensor.RawTensor {
	seed, _ := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	data := seed.AsFloat32()
	for i := range data {
		data[i] = 1
	}
	return seed
}

// TestBackward_Mul checks d(a*b)/da = b and d(a*b)/db = a.
func TestBackward_Mul(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()
	defer tape.StopRecording()

	a, _ := tensor.FromSlice([]float32{2, 3}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{5, 7}, tensor.Shape{2}, backend)
	_ = a.Mul(b)

	grads := tape.Backward(seedOnes(tensor.Shape{2}), backend)

	gradA := grads[a.Raw()].AsFloat32()
	gradB := grads[b.Raw()].AsFloat32()
	if gradA[0] != 5 || gradA[1] != 7 {
		t.Errorf("grad a = %v, want [5 7]", gradA)
	}
	if gradB[0] != 2 || gradB[1] != 3 {
		t.Errorf("grad b = %v, want [2 3]", gradB)
	}
}

// TestBackward_Div checks the division gradients.
func TestBackward_Div(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()
	defer tape.StopRecording()

	a, _ := tensor.FromSlice([]float32{6}, tensor.Shape{1}, backend)
	b, _ := tensor.FromSlice([]float32{2}, tensor.Shape{1}, backend)
	_ = a.Div(b)

	grads := tape.Backward(seedOnes(tensor.Shape{1}), backend)

	// d(a/b)/da = 1/b, d(a/b)/db = -a/b^2
	if got := grads[a.Raw()].AsFloat32()[0]; math.Abs(float64(got-0.5)) > 1e-6 {
		t.Errorf("grad a = %v, want 0.5", got)
	}
	if got := grads[b.Raw()].AsFloat32()[0]; math.Abs(float64(got+1.5)) > 1e-6 {
		t.Errorf("grad b = %v, want -1.5", got)
	}
}

// TestBackward_MatMul checks matmul gradients against hand-computed values.
func TestBackward_MatMul(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()
	defer tape.StopRecording()

	a, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	b, _ := tensor.FromSlice([]float32{5, 6, 7, 8}, tensor.Shape{2, 2}, backend)
	_ = a.MatMul(b)

	grads := tape.Backward(seedOnes(tensor.Shape{2, 2}), backend)

	// grad a = ones @ b^T, grad b = a^T @ ones
	wantA := []float32{11, 15, 11, 15}
	wantB := []float32{4, 4, 6, 6}
	gradA := grads[a.Raw()].AsFloat32()
	gradB := grads[b.Raw()].AsFloat32()
	for i := range wantA {
		if math.Abs(float64(gradA[i]-wantA[i])) > 1e-5 {
			t.Errorf("grad a[%d] = %v, want %v", i, gradA[i], wantA[i])
		}
		if math.Abs(float64(gradB[i]-wantB[i])) > 1e-5 {
			t.Errorf("grad b[%d] = %v, want %v", i, gradB[i], wantB[i])
		}
	}
}

// TestBackward_Chain checks gradients flow through a chain of operations.
func TestBackward_Chain(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()
	defer tape.StopRecording()

	x, _ := tensor.FromSlice([]float32{2}, tensor.Shape{1}, backend)
	y, _ := tensor.FromSlice([]float32{3}, tensor.Shape{1}, backend)
	z, _ := tensor.FromSlice([]float32{4}, tensor.Shape{1}, backend)

	// w = (x + y) * z, dw/dx = z, dw/dz = x + y
	sum := x.Add(y)
	_ = sum.Mul(z)

	grads := tape.Backward(seedOnes(tensor.Shape{1}), backend)

	if got := grads[x.Raw()].AsFloat32()[0]; got != 4 {
		t.Errorf("dw/dx = %v, want 4", got)
	}
	if got := grads[z.Raw()].AsFloat32()[0]; got != 5 {
		t.Errorf("dw/dz = %v, want 5", got)
	}
}

// TestBackward_BroadcastAdd checks the broadcast gradient is summed back to
// the smaller shape.
func TestBackward_BroadcastAdd(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()
	defer tape.StopRecording()

	a, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	b, _ := tensor.FromSlice([]float32{10, 20, 30}, tensor.Shape{3}, backend)
	_ = a.Add(b)

	grads := tape.Backward(seedOnes(tensor.Shape{2, 3}), backend)

	gradB := grads[b.Raw()]
	if !gradB.Shape().Equal(tensor.Shape{3}) {
		t.Fatalf("grad b shape = %v, want [3]", gradB.Shape())
	}
	for i, v := range gradB.AsFloat32() {
		if v != 2 {
			t.Errorf("grad b[%d] = %v, want 2", i, v)
		}
	}
}

// TestBackward_Reshape checks the gradient is reshaped back to the input
// shape.
func TestBackward_Reshape(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()
	defer tape.StopRecording()

	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{6}, backend)
	reshaped := x.Reshape(2, 3)
	y, _ := tensor.FromSlice([]float32{1, 1, 1, 1, 1, 1}, tensor.Shape{2, 3}, backend)
	_ = reshaped.Mul(y)

	grads := tape.Backward(seedOnes(tensor.Shape{2, 3}), backend)

	gradX := grads[x.Raw()]
	if !gradX.Shape().Equal(tensor.Shape{6}) {
		t.Fatalf("grad x shape = %v, want [6]", gradX.Shape())
	}
}

// TestBackward_ReLU checks the ReLU gradient mask.
func TestBackward_ReLU(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()
	defer tape.StopRecording()

	x, _ := tensor.FromSlice([]float32{-1, 0, 2}, tensor.Shape{3}, backend)
	_ = backend.ReLU(x.Raw())

	grads := tape.Backward(seedOnes(tensor.Shape{3}), backend)

	want := []float32{0, 0, 1}
	got := grads[x.Raw()].AsFloat32()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("grad[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestBackward_GuidedReLU checks that guided mode also masks negative
// output gradients.
func TestBackward_GuidedReLU(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.SetGuidedReLU(true)
	defer backend.SetGuidedReLU(false)

	tape := backend.Tape()
	tape.StartRecording()
	defer tape.StopRecording()

	x, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	_ = backend.ReLU(x.Raw())

	seed, _ := tensor.NewRaw(tensor.Shape{2}, tensor.Float32, tensor.CPU)
	copy(seed.AsFloat32(), []float32{-3, 3})

	grads := tape.Backward(seed, backend)

	want := []float32{0, 3}
	got := grads[x.Raw()].AsFloat32()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("guided grad[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestBackwardFunction checks the ones-seeded convenience entry point.
func TestBackwardFunction(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()
	defer backend.Tape().StopRecording()

	x, _ := tensor.FromSlice([]float32{3}, tensor.Shape{1}, backend)
	y := x.Mul(x)

	grads := autodiff.Backward(y, backend)

	// d(x^2)/dx = 2x = 6
	if got := grads[x.Raw()].AsFloat32()[0]; got != 6 {
		t.Errorf("d(x^2)/dx = %v, want 6", got)
	}
}

// TestBackward_Sigmoid checks the sigmoid gradient s*(1-s).
func TestBackward_Sigmoid(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()
	defer tape.StopRecording()

	x, _ := tensor.FromSlice([]float32{0}, tensor.Shape{1}, backend)
	_ = backend.Sigmoid(x.Raw())

	grads := tape.Backward(seedOnes(tensor.Shape{1}), backend)

	// sigmoid(0) = 0.5, gradient = 0.5 * 0.5 = 0.25
	if got := grads[x.Raw()].AsFloat32()[0]; math.Abs(float64(got-0.25)) > 1e-6 {
		t.Errorf("sigmoid grad = %v, want 0.25", got)
	}
}
