package attribution

import (
	"math/rand"

	"github.com/lucid-ml/lucid/internal/tensor"
)

// VarGrad measures the variance of the gradient under Gaussian perturbation
// of the input:
//
//	phi(x) = V[ d f_c(x + delta) / dx ],  delta ~ N(0, sigma^2)
//
// High variance marks features whose influence is unstable around x. For a
// linear model the gradient is constant, so VarGrad is identically zero.
type VarGrad struct {
	oracle Oracle
	cfg    Config
}

// NewVarGrad validates cfg and returns a VarGrad method backed by the given
// gradient oracle.
func NewVarGrad(oracle Oracle, cfg Config) (*VarGrad, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &VarGrad{oracle: oracle, cfg: cfg}, nil
}

// Explain computes one gradient-variance attribution map per input, using
// the one-pass identity V[g] = E[g^2] - E[g]^2.
func (m *VarGrad) Explain(inputs []*tensor.RawTensor, labels []int) ([]*tensor.RawTensor, error) {
	if err := validateBatch(inputs, labels); err != nil {
		return nil, err
	}

	out := make([]*tensor.RawTensor, len(inputs))
	err := forEachInput(m.cfg.workers(), len(inputs), func(i int) error {
		rng := rand.New(rand.NewSource(m.cfg.Seed + int64(i))) //nolint:gosec // reproducible sampling, not crypto

		result, err := tensor.NewRaw(inputs[i].Shape(), tensor.Float32, inputs[i].Device())
		if err != nil {
			return err
		}
		sum := make([]float64, inputs[i].NumElements())
		sumSq := make([]float64, inputs[i].NumElements())

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
				sum[j] += float64(g)
				sumSq[j] += float64(g) * float64(g)
			}
		}

		n := float64(m.cfg.NbSamples)
		data := result.AsFloat32()
		for j := range data {
			mean := sum[j] / n
			v := sumSq[j]/n - mean*mean
			// Cancellation can leave a tiny negative residue.
			if v < 0 {
				v = 0
			}
			data[j] = float32(v)
		}
		out[i] = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
