package ops

import (
	"fmt"

	"github.com/lucid-ml/lucid/internal/tensor"
)

// SigmoidOp represents a sigmoid activation: output = 1 / (1 + exp(-x)).
//
// Backward pass:
//   - d(σ(x))/dx = σ(x) * (1 - σ(x))
//
// The cached forward output is reused, so no exponential is recomputed.
type SigmoidOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor // Cached σ(x) for backward pass
}

// NewSigmoidOp creates a new SigmoidOp.
func NewSigmoidOp(input, output *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{
		input:  input,
		output: output,
	}
}

// Backward computes the input gradient for sigmoid.
func (op *SigmoidOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradInput, err := tensor.NewRaw(op.input.Shape(), op.input.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("sigmoid: failed to create gradient: %v", err))
	}

	switch op.input.DType() {
	case tensor.Float32:
		s := op.output.AsFloat32()
		og := outputGrad.AsFloat32()
		gi := gradInput.AsFloat32()
		for i := range s {
			gi[i] = og[i] * s[i] * (1 - s[i])
		}
	case tensor.Float64:
		s := op.output.AsFloat64()
		og := outputGrad.AsFloat64()
		gi := gradInput.AsFloat64()
		for i := range s {
			gi[i] = og[i] * s[i] * (1 - s[i])
		}
	default:
		panic(fmt.Sprintf("sigmoid: unsupported dtype %s", op.input.DType()))
	}

	return []*tensor.RawTensor{gradInput}
}

// Inputs returns the input tensor [x].
func (op *SigmoidOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor σ(x).
func (op *SigmoidOp) Output() *tensor.RawTensor {
	return op.output
}
