package nn

import (
	"fmt"

	"github.com/lucid-ml/lucid/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//   - y is the output tensor with shape [batch_size, out_features]
//
// Weights are initialized using Xavier/Glorot initialization.
// Biases are initialized to zeros.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	layer := nn.NewLinear(784, 128, backend)
//
//	input := tensor.Zeros[float32](tensor.Shape{32, 784}, backend)
//	output := layer.Forward(input) // shape: [32, 128]
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B] // [out_features, in_features]
	bias        *Parameter[B] // [out_features]
	backend     B
}

// NewLinear creates a new Linear layer with Xavier-initialized weights and
// zero biases.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	weightShape := tensor.Shape{outFeatures, inFeatures}
	weight := NewParameter("weight", Xavier(inFeatures, outFeatures, weightShape, backend))

	biasShape := tensor.Shape{outFeatures}
	bias := NewParameter("bias", tensor.Zeros[float32](biasShape, backend))

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
		backend:     backend,
	}
}

// NewLinearFromWeights creates a Linear layer with the given weights and bias.
//
// weights is row-major [out_features][in_features]; bias has length
// out_features and may be nil for a bias-free layer. This is the entry point
// for explaining externally trained linear models.
func NewLinearFromWeights[B tensor.Backend](weights [][]float32, bias []float32, backend B) (*Linear[B], error) {
	if len(weights) == 0 || len(weights[0]) == 0 {
		return nil, fmt.Errorf("linear: empty weight matrix")
	}

	outFeatures := len(weights)
	inFeatures := len(weights[0])

	flat := make([]float32, 0, outFeatures*inFeatures)
	for i, row := range weights {
		if len(row) != inFeatures {
			return nil, fmt.Errorf("linear: ragged weight matrix: row %d has %d columns, want %d", i, len(row), inFeatures)
		}
		flat = append(flat, row...)
	}

	weightTensor, err := tensor.FromSlice(flat, tensor.Shape{outFeatures, inFeatures}, backend)
	if err != nil {
		return nil, fmt.Errorf("linear: %w", err)
	}

	l := &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", weightTensor),
		backend:     backend,
	}

	if bias != nil {
		if len(bias) != outFeatures {
			return nil, fmt.Errorf("linear: bias length %d does not match %d output features", len(bias), outFeatures)
		}
		biasTensor, err := tensor.FromSlice(bias, tensor.Shape{outFeatures}, backend)
		if err != nil {
			return nil, fmt.Errorf("linear: %w", err)
		}
		l.bias = NewParameter("bias", biasTensor)
	}

	return l, nil
}

// Forward computes the output of the linear layer.
//
// Performs: y = x @ W.T + b
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, out_features]
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 2 {
		panic(fmt.Sprintf("Linear.Forward: expected 2D input [batch, features], got shape %v", inputShape))
	}
	if inputShape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with %d features, got %d", l.inFeatures, inputShape[1]))
	}

	w := l.weight.Tensor() // [out_features, in_features]
	wT := w.Transpose()    // [in_features, out_features]

	// [batch_size, in_features] @ [in_features, out_features] = [batch_size, out_features]
	output := input.MatMul(wT)

	if l.bias != nil {
		b := l.bias.Tensor()
		// Reshape bias to [1, out_features] for broadcasting over the batch
		bReshaped := b.Reshape(1, l.outFeatures)
		output = output.Add(bReshaped)
	}

	return output
}

// Parameters returns the trainable parameters of this layer.
func (l *Linear[B]) Parameters() []*Parameter[B] {
	if l.bias != nil {
		return []*Parameter[B]{l.weight, l.bias}
	}
	return []*Parameter[B]{l.weight}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter (nil for bias-free layers).
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear[B]) OutFeatures() int {
	return l.outFeatures
}
