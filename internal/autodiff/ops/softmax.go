package ops

import (
	"fmt"

	"github.com/lucid-ml/lucid/internal/tensor"
)

// SoftmaxOp represents the softmax operation along the last dimension.
//
// Forward (for each row):
//
//	softmax(x)_i = exp(x_i - max(x)) / Σ_j exp(x_j - max(x))
//
// Backward:
//
//	The Jacobian of softmax is:
//	∂softmax_i/∂x_j = softmax_i * (δ_ij - softmax_j)
//
//	Chain rule gives:
//	∂L/∂x_j = softmax_j * (∂L/∂softmax_j - Σ_i (∂L/∂softmax_i * softmax_i))
//
// Assumptions:
//   - Input shape: [batch_size, num_classes] (2D)
//   - Softmax applied along the last dimension
type SoftmaxOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor // Cached softmax output for backward pass
}

// NewSoftmaxOp creates a new softmax operation.
func NewSoftmaxOp(input, output *tensor.RawTensor) *SoftmaxOp {
	return &SoftmaxOp{
		input:  input,
		output: output,
	}
}

// Inputs returns the input tensors.
func (op *SoftmaxOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *SoftmaxOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes the gradient with respect to the input.
func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.input.Shape()
	if len(shape) != 2 {
		panic("SoftmaxOp: backward only supports 2D tensors [batch_size, num_classes]")
	}

	batchSize := shape[0]
	numClasses := shape[1]

	inputGrad, err := tensor.NewRaw(shape, op.input.DType(), op.input.Device())
	if err != nil {
		panic(err)
	}

	switch op.input.DType() {
	case tensor.Float32:
		softmaxData := op.output.AsFloat32()
		outGradData := outputGrad.AsFloat32()
		inGradData := inputGrad.AsFloat32()

		for b := 0; b < batchSize; b++ {
			// dot = Σ_i (grad_output[i] * softmax[i])
			var dot float32
			for j := 0; j < numClasses; j++ {
				idx := b*numClasses + j
				dot += outGradData[idx] * softmaxData[idx]
			}
			for j := 0; j < numClasses; j++ {
				idx := b*numClasses + j
				inGradData[idx] = softmaxData[idx] * (outGradData[idx] - dot)
			}
		}

	case tensor.Float64:
		softmaxData := op.output.AsFloat64()
		outGradData := outputGrad.AsFloat64()
		inGradData := inputGrad.AsFloat64()

		for b := 0; b < batchSize; b++ {
			var dot float64
			for j := 0; j < numClasses; j++ {
				idx := b*numClasses + j
				dot += outGradData[idx] * softmaxData[idx]
			}
			for j := 0; j < numClasses; j++ {
				idx := b*numClasses + j
				inGradData[idx] = softmaxData[idx] * (outGradData[idx] - dot)
			}
		}

	default:
		panic(fmt.Sprintf("softmax: unsupported dtype %s", op.input.DType()))
	}

	return []*tensor.RawTensor{inputGrad}
}
