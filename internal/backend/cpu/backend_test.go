package cpu

import (
	"math"
	"testing"

	"github.com/lucid-ml/lucid/internal/tensor"
)

func rawF32(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

func assertF32(t *testing.T, got *tensor.RawTensor, want []float32, msg string) {
	t.Helper()
	data := got.AsFloat32()
	if len(data) != len(want) {
		t.Fatalf("%s: length %d, want %d", msg, len(data), len(want))
	}
	for i := range want {
		if math.Abs(float64(data[i]-want[i])) > 1e-5 {
			t.Errorf("%s: element %d = %v, want %v", msg, i, data[i], want[i])
		}
	}
}

func TestBackendName(t *testing.T) {
	b := New()
	if b.Name() != "CPU" {
		t.Errorf("Name() = %s, want CPU", b.Name())
	}
	if b.Device() != tensor.CPU {
		t.Errorf("Device() = %v, want CPU", b.Device())
	}
}

func TestAdd(t *testing.T) {
	b := New()
	a := rawF32(t, []float32{1, 2, 3}, tensor.Shape{3})
	c := rawF32(t, []float32{10, 20, 30}, tensor.Shape{3})
	assertF32(t, b.Add(a, c), []float32{11, 22, 33}, "Add")
}

func TestSubMulDiv(t *testing.T) {
	b := New()
	a := rawF32(t, []float32{4, 9, 16}, tensor.Shape{3})
	c := rawF32(t, []float32{2, 3, 4}, tensor.Shape{3})

	assertF32(t, b.Sub(a, c), []float32{2, 6, 12}, "Sub")
	assertF32(t, b.Mul(a, c), []float32{8, 27, 64}, "Mul")
	assertF32(t, b.Div(a, c), []float32{2, 3, 4}, "Div")
}

func TestAddBroadcast(t *testing.T) {
	b := New()
	a := rawF32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	c := rawF32(t, []float32{10, 20, 30}, tensor.Shape{3})

	got := b.Add(a, c)
	if !got.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("broadcast Add shape = %v", got.Shape())
	}
	assertF32(t, got, []float32{11, 22, 33, 14, 25, 36}, "broadcast Add")
}

func TestMulBroadcastColumn(t *testing.T) {
	b := New()
	a := rawF32(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	c := rawF32(t, []float32{10, 100}, tensor.Shape{2, 1})

	assertF32(t, b.Mul(a, c), []float32{10, 20, 300, 400}, "broadcast Mul")
}

func TestMatMul(t *testing.T) {
	b := New()
	a := rawF32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	c := rawF32(t, []float32{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2})

	got := b.MatMul(a, c)
	if !got.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("MatMul shape = %v", got.Shape())
	}
	assertF32(t, got, []float32{58, 64, 139, 154}, "MatMul")
}

func TestTranspose2D(t *testing.T) {
	b := New()
	a := rawF32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	got := b.Transpose(a)
	if !got.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("Transpose shape = %v", got.Shape())
	}
	assertF32(t, got, []float32{1, 4, 2, 5, 3, 6}, "Transpose")
}

func TestReshape(t *testing.T) {
	b := New()
	a := rawF32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	got := b.Reshape(a, tensor.Shape{3, 2})
	if !got.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("Reshape shape = %v", got.Shape())
	}
	assertF32(t, got, []float32{1, 2, 3, 4, 5, 6}, "Reshape")

	// Reshape copies; mutating the result must not touch the source.
	got.AsFloat32()[0] = 99
	if a.AsFloat32()[0] != 1 {
		t.Error("Reshape should not alias the source buffer")
	}
}

func TestScalarOps(t *testing.T) {
	b := New()
	a := rawF32(t, []float32{1, 2, 3}, tensor.Shape{3})

	assertF32(t, b.AddScalar(a, float32(10)), []float32{11, 12, 13}, "AddScalar")
	assertF32(t, b.MulScalar(a, float32(-2)), []float32{-2, -4, -6}, "MulScalar")
}

func TestUnaryOps(t *testing.T) {
	b := New()

	exp := b.Exp(rawF32(t, []float32{0, 1}, tensor.Shape{2}))
	assertF32(t, exp, []float32{1, float32(math.E)}, "Exp")

	sqrt := b.Sqrt(rawF32(t, []float32{4, 9}, tensor.Shape{2}))
	assertF32(t, sqrt, []float32{2, 3}, "Sqrt")

	abs := b.Abs(rawF32(t, []float32{-3, 5}, tensor.Shape{2}))
	assertF32(t, abs, []float32{3, 5}, "Abs")
}

func TestSum(t *testing.T) {
	b := New()
	a := rawF32(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})

	got := b.Sum(a)
	if !got.Shape().Equal(tensor.Shape{}) {
		t.Fatalf("Sum shape = %v, want scalar", got.Shape())
	}
	assertF32(t, got, []float32{10}, "Sum")
}

func TestSumDim(t *testing.T) {
	b := New()
	a := rawF32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	rows := b.SumDim(a, 1, false)
	if !rows.Shape().Equal(tensor.Shape{2}) {
		t.Fatalf("SumDim(1) shape = %v", rows.Shape())
	}
	assertF32(t, rows, []float32{6, 15}, "SumDim dim=1")

	cols := b.SumDim(a, 0, true)
	if !cols.Shape().Equal(tensor.Shape{1, 3}) {
		t.Fatalf("SumDim(0, keep) shape = %v", cols.Shape())
	}
	assertF32(t, cols, []float32{5, 7, 9}, "SumDim dim=0")
}

func TestMeanDim(t *testing.T) {
	b := New()
	a := rawF32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	got := b.MeanDim(a, 1, false)
	assertF32(t, got, []float32{2, 5}, "MeanDim dim=1")
}

func TestSoftmax(t *testing.T) {
	b := New()
	a := rawF32(t, []float32{1, 2, 3, 1, 2, 3}, tensor.Shape{2, 3})

	got := b.Softmax(a, 1)
	data := got.AsFloat32()

	// Rows sum to one.
	for r := 0; r < 2; r++ {
		var sum float32
		for c := 0; c < 3; c++ {
			sum += data[r*3+c]
		}
		if math.Abs(float64(sum-1)) > 1e-5 {
			t.Errorf("row %d sums to %v", r, sum)
		}
	}

	// Softmax is shift-invariant and monotone.
	if !(data[0] < data[1] && data[1] < data[2]) {
		t.Errorf("softmax not monotone: %v", data[:3])
	}
}

func TestSoftmaxLargeValuesStable(t *testing.T) {
	b := New()
	a := rawF32(t, []float32{1000, 1001, 1002}, tensor.Shape{1, 3})

	data := b.Softmax(a, 1).AsFloat32()
	for i, v := range data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("element %d = %v, softmax overflowed", i, v)
		}
	}
}
