package attribution

import (
	"fmt"

	"github.com/lucid-ml/lucid/internal/tensor"
)

// OcclusionConfig holds the parameters of Occlusion.
type OcclusionConfig struct {
	// PatchSize is the number of consecutive features masked together.
	// Must be at least 1.
	PatchSize int

	// PatchStride is the distance between the starts of consecutive
	// patches. Must be at least 1. A stride smaller than PatchSize makes
	// patches overlap; overlapping score drops accumulate per feature.
	PatchStride int

	// BaselineValue replaces masked features. Zero by convention.
	BaselineValue float32

	// Workers bounds how many inputs are processed concurrently.
	Workers int
}

// DefaultOcclusionConfig returns single-feature occlusion with a zero
// baseline, processed sequentially.
func DefaultOcclusionConfig() OcclusionConfig {
	return OcclusionConfig{PatchSize: 1, PatchStride: 1}
}

func (c OcclusionConfig) validate() error {
	if c.PatchSize < 1 {
		return fmt.Errorf("%w: patch_size must be >= 1, got %d", ErrInvalidConfig, c.PatchSize)
	}
	if c.PatchStride < 1 {
		return fmt.Errorf("%w: patch_stride must be >= 1, got %d", ErrInvalidConfig, c.PatchStride)
	}
	return nil
}

func (c OcclusionConfig) workers() int {
	if c.Workers < 1 {
		return 1
	}
	return c.Workers
}

// Occlusion attributes importance by masking patches of the input with a
// baseline value and measuring how much the class score drops. It treats
// the model as a black box: only a Scorer is required, no gradients.
//
// Patches slide over the flattened input. Each feature in a masked patch is
// credited with the full score drop of that patch.
type Occlusion struct {
	scorer Scorer
	cfg    OcclusionConfig
}

// NewOcclusion validates cfg and returns an Occlusion method backed by the
// given scorer.
func NewOcclusion(scorer Scorer, cfg OcclusionConfig) (*Occlusion, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Occlusion{scorer: scorer, cfg: cfg}, nil
}

// Explain computes one occlusion sensitivity map per input. The scorer is
// invoked once for the unmasked input plus once per patch.
func (m *Occlusion) Explain(inputs []*tensor.RawTensor, labels []int) ([]*tensor.RawTensor, error) {
	if err := validateBatch(inputs, labels); err != nil {
		return nil, err
	}

	out := make([]*tensor.RawTensor, len(inputs))
	err := forEachInput(m.cfg.workers(), len(inputs), func(i int) error {
		input := inputs[i]
		n := input.NumElements()

		baseScore, err := m.scorer.Score(input, labels[i])
		if err != nil {
			return err
		}

		attr, err := tensor.NewRaw(input.Shape(), tensor.Float32, input.Device())
		if err != nil {
			return err
		}
		attrData := attr.AsFloat32()

		masked := input.Clone()
		maskedData := masked.AsFloat32()
		original := input.AsFloat32()

		for start := 0; start < n; start += m.cfg.PatchStride {
			end := start + m.cfg.PatchSize
			if end > n {
				end = n
			}

			for j := start; j < end; j++ {
				maskedData[j] = m.cfg.BaselineValue
			}

			score, err := m.scorer.Score(masked, labels[i])
			if err != nil {
				return err
			}
			drop := baseScore - score
			for j := start; j < end; j++ {
				attrData[j] += drop
			}

			for j := start; j < end; j++ {
				maskedData[j] = original[j]
			}
		}

		out[i] = attr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
