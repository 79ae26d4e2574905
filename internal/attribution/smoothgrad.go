package attribution

import (
	"math/rand"

	"github.com/lucid-ml/lucid/internal/tensor"
)

// SmoothGrad averages raw gradients over Gaussian perturbations of the
// input:
//
//	phi(x) = E[ d f_c(x + delta) / dx ],  delta ~ N(0, sigma^2)
//
// Unlike SquareGrad, the sign of each gradient survives averaging, so
// attributions can be negative and oscillating gradients cancel out.
type SmoothGrad struct {
	oracle Oracle
	cfg    Config
}

// NewSmoothGrad validates cfg and returns a SmoothGrad method backed by the
// given gradient oracle.
func NewSmoothGrad(oracle Oracle, cfg Config) (*SmoothGrad, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &SmoothGrad{oracle: oracle, cfg: cfg}, nil
}

// Explain computes one smoothed-gradient attribution map per input.
func (m *SmoothGrad) Explain(inputs []*tensor.RawTensor, labels []int) ([]*tensor.RawTensor, error) {
	if err := validateBatch(inputs, labels); err != nil {
		return nil, err
	}

	out := make([]*tensor.RawTensor, len(inputs))
	err := forEachInput(m.cfg.workers(), len(inputs), func(i int) error {
		rng := rand.New(rand.NewSource(m.cfg.Seed + int64(i))) //nolint:gosec // reproducible sampling, not crypto

		acc, err := tensor.NewRaw(inputs[i].Shape(), tensor.Float32, inputs[i].Device())
		if err != nil {
			return err
		}
		accData := acc.AsFloat32()

		for s := 0; s < m.cfg.NbSamples; s++ {
			perturbed := gaussianPerturb(inputs[i], m.cfg.Noise, rng)
			grad, err := m.oracle.Gradient(perturbed, labels[i])
			if err != nil {
				return err
			}
			if err := checkGradient(grad, inputs[i], i); err != nil {
				return err
			}
			for j, g := range grad.AsFloat32() {
				accData[j] += g
			}
		}

		inv := 1 / float32(m.cfg.NbSamples)
		for j := range accData {
			accData[j] *= inv
		}
		out[i] = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
