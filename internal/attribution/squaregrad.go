package attribution

import (
	"math/rand"

	"github.com/lucid-ml/lucid/internal/tensor"
)

// SquareGrad estimates the expected squared gradient of the class score
// under Gaussian perturbation of the input:
//
//	phi(x) = E[ (d f_c(x + delta) / dx)^2 ],  delta ~ N(0, sigma^2)
//
// The expectation is a Monte Carlo mean over Config.NbSamples draws.
// Squaring happens per sample, so attributions are always non-negative and
// features whose gradient oscillates in sign still register as important.
type SquareGrad struct {
	oracle Oracle
	cfg    Config
}

// NewSquareGrad validates cfg and returns a SquareGrad method backed by the
// given gradient oracle.
func NewSquareGrad(oracle Oracle, cfg Config) (*SquareGrad, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &SquareGrad{oracle: oracle, cfg: cfg}, nil
}

// Explain computes one squared-gradient attribution map per input. The
// oracle is invoked NbSamples times for each input.
func (m *SquareGrad) Explain(inputs []*tensor.RawTensor, labels []int) ([]*tensor.RawTensor, error) {
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
				accData[j] += g * g
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
