package attribution

import (
	"math"

	"github.com/lucid-ml/lucid/internal/tensor"
)

// Saliency attributes importance as the absolute gradient of the class
// score at the unperturbed input:
//
//	phi(x) = | d f_c(x) / dx |
//
// It is the cheapest gradient method: one oracle call per input.
type Saliency struct {
	oracle Oracle
}

// NewSaliency returns a Saliency method backed by the given gradient oracle.
func NewSaliency(oracle Oracle) *Saliency {
	return &Saliency{oracle: oracle}
}

// Explain computes one absolute-gradient attribution map per input.
func (m *Saliency) Explain(inputs []*tensor.RawTensor, labels []int) ([]*tensor.RawTensor, error) {
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
		for j, g := range data {
			data[j] = float32(math.Abs(float64(g)))
		}
		out[i] = attr
	}
	return out, nil
}
