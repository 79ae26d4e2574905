package attribution

import (
	"github.com/lucid-ml/lucid/internal/tensor"
)

// GradientInput multiplies the gradient at the unperturbed input by the
// input itself:
//
//	phi(x) = x * (d f_c(x) / dx)
//
// For a linear model without bias this recovers each feature's exact
// contribution w_j * x_j to the score.
type GradientInput struct {
	oracle Oracle
}

// NewGradientInput returns a GradientInput method backed by the given
// gradient oracle.
func NewGradientInput(oracle Oracle) *GradientInput {
	return &GradientInput{oracle: oracle}
}

// Explain computes one gradient-times-input attribution map per input.
func (m *GradientInput) Explain(inputs []*tensor.RawTensor, labels []int) ([]*tensor.RawTensor, error) {
	if err := validateBatch(inputs, labels); err != nil {
		return nil, err
	}

	out := make([]*tensor.RawTensor, len(inputs))
	for i, input := range inputs {
		grad, err := m.oracle.Gradient(input, labels[i])
		if err != nil {
			return nil, err
		}
		if err := checkGradient(grad, input, i); err != nil {
			return nil, err
		}

		attr := grad.Clone()
		data := attr.AsFloat32()
		for j, x := range input.AsFloat32() {
			data[j] *= x
		}
		out[i] = attr
	}
	return out, nil
}
