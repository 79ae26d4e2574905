package attribution

import (
	"github.com/lucid-ml/lucid/internal/tensor"
)

// GuidedBackprop attributes importance with guided gradients: during
// backpropagation, ReLU units pass a gradient through only when both the
// activation and the incoming gradient are positive. The result keeps its
// sign, highlighting features that positively drive the class score.
//
// The oracle must compute guided gradients; use NewGuidedModuleOracle.
type GuidedBackprop struct {
	oracle Oracle
}

// NewGuidedBackprop returns a GuidedBackprop method backed by a guided
// gradient oracle.
func NewGuidedBackprop(oracle Oracle) *GuidedBackprop {
	return &GuidedBackprop{oracle: oracle}
}

// Explain computes one guided-gradient attribution map per input.
func (m *GuidedBackprop) Explain(inputs []*tensor.RawTensor, labels []int) ([]*tensor.RawTensor, error) {
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
		out[i] = grad.Clone()
	}
	return out, nil
}
