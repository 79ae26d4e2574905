package ops

import (
	"fmt"

	"github.com/lucid-ml/lucid/internal/tensor"
)

// ReLUOp represents a ReLU (Rectified Linear Unit) activation: output = max(0, x).
//
// Backward pass:
//   - d(ReLU(x))/dx = 1 if x > 0, else 0
type ReLUOp struct {
	input  *tensor.RawTensor // x
	output *tensor.RawTensor // max(0, x)
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{
		input:  input,
		output: output,
	}
}

// Backward computes the input gradient for ReLU.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{reluGrad(op.input, outputGrad, backend, false)}
}

// Inputs returns the input tensor [x].
func (op *ReLUOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor max(0, x).
func (op *ReLUOp) Output() *tensor.RawTensor {
	return op.output
}

// GuidedReLUOp is a ReLU whose backward pass uses the guided-backpropagation
// rule: the gradient passes only where the activation is positive AND the
// incoming gradient is positive.
//
// Ref. Striving for Simplicity: The All Convolutional Net (2014).
// https://arxiv.org/abs/1412.6806
type GuidedReLUOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewGuidedReLUOp creates a new GuidedReLUOp.
func NewGuidedReLUOp(input, output *tensor.RawTensor) *GuidedReLUOp {
	return &GuidedReLUOp{
		input:  input,
		output: output,
	}
}

// Backward computes the guided input gradient.
func (op *GuidedReLUOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{reluGrad(op.input, outputGrad, backend, true)}
}

// Inputs returns the input tensor [x].
func (op *GuidedReLUOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor max(0, x).
func (op *GuidedReLUOp) Output() *tensor.RawTensor {
	return op.output
}

// reluGrad masks outputGrad by input > 0; in guided mode it additionally
// masks by outputGrad > 0.
func reluGrad(input, outputGrad *tensor.RawTensor, backend tensor.Backend, guided bool) *tensor.RawTensor {
	gradInput, err := tensor.NewRaw(input.Shape(), input.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("relu: failed to create gradient: %v", err))
	}

	switch input.DType() {
	case tensor.Float32:
		in := input.AsFloat32()
		og := outputGrad.AsFloat32()
		gi := gradInput.AsFloat32()
		for i, v := range in {
			if v > 0 && (!guided || og[i] > 0) {
				gi[i] = og[i]
			}
		}
	case tensor.Float64:
		in := input.AsFloat64()
		og := outputGrad.AsFloat64()
		gi := gradInput.AsFloat64()
		for i, v := range in {
			if v > 0 && (!guided || og[i] > 0) {
				gi[i] = og[i]
			}
		}
	default:
		panic(fmt.Sprintf("relu: unsupported dtype %s (only float32/float64 supported)", input.DType()))
	}

	return gradInput
}
