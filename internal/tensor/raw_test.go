package tensor

import (
	"testing"
)

func TestDataTypeSize(t *testing.T) {
	tests := []struct {
		dtype DataType
		size  int
	}{
		{Float32, 4},
		{Float64, 8},
	}
	for _, tt := range tests {
		if got := tt.dtype.Size(); got != tt.size {
			t.Errorf("%s.Size() = %d, want %d", tt.dtype, got, tt.size)
		}
	}
}

func TestDataTypeString(t *testing.T) {
	if Float32.String() != "float32" {
		t.Errorf("Float32.String() = %s", Float32.String())
	}
	if Float64.String() != "float64" {
		t.Errorf("Float64.String() = %s", Float64.String())
	}
}

func TestNewRaw(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	if !raw.Shape().Equal(Shape{2, 3}) {
		t.Errorf("Shape = %v, want [2 3]", raw.Shape())
	}
	if raw.DType() != Float32 {
		t.Errorf("DType = %v, want Float32", raw.DType())
	}
	if raw.NumElements() != 6 {
		t.Errorf("NumElements = %d, want 6", raw.NumElements())
	}
	if raw.ByteSize() != 24 {
		t.Errorf("ByteSize = %d, want 24", raw.ByteSize())
	}

	// Fresh tensors are zeroed.
	for i, v := range raw.AsFloat32() {
		if v != 0 {
			t.Errorf("element %d = %v, want 0", i, v)
		}
	}
}

func TestNewRawInvalidShape(t *testing.T) {
	if _, err := NewRaw(Shape{2, 0}, Float32, CPU); err == nil {
		t.Error("NewRaw should reject zero dimensions")
	}
}

func TestRawAsFloat32RoundTrip(t *testing.T) {
	raw, err := NewRaw(Shape{4}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	data := raw.AsFloat32()
	for i := range data {
		data[i] = float32(i) * 1.5
	}

	again := raw.AsFloat32()
	for i := range again {
		if again[i] != float32(i)*1.5 {
			t.Errorf("element %d = %v, want %v", i, again[i], float32(i)*1.5)
		}
	}
}

func TestRawAsFloat64(t *testing.T) {
	raw, err := NewRaw(Shape{2}, Float64, CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	data := raw.AsFloat64()
	data[0] = 1.25
	data[1] = -2.5
	if raw.AsFloat64()[1] != -2.5 {
		t.Error("AsFloat64 should view the underlying buffer")
	}
}

func TestRawCloneIsDeep(t *testing.T) {
	raw, err := NewRaw(Shape{3}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	raw.AsFloat32()[0] = 7

	clone := raw.Clone()
	clone.AsFloat32()[0] = 99

	if raw.AsFloat32()[0] != 7 {
		t.Error("Clone should not share storage with the original")
	}
	if !clone.Shape().Equal(raw.Shape()) {
		t.Error("Clone should preserve the shape")
	}
}
