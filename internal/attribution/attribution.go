// Package attribution implements gradient-based and perturbation-based
// attribution methods for explaining model predictions.
//
// Every method answers the same question: how much did each input feature
// contribute to the score of a given class? Gradient-based methods
// (SquareGrad, SmoothGrad, VarGrad, Saliency, GradientInput,
// IntegratedGradients, GuidedBackprop) query an Oracle for the gradient of
// the class score with respect to the input. Perturbation-based methods
// (Occlusion, TokenOcclusion) only need a Scorer and treat the model as a
// black box.
//
// All tensor-based methods share the Explain contract: a batch of inputs
// and one class label per input, returning one attribution map per input
// with the same shape as that input.
package attribution

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/lucid-ml/lucid/internal/tensor"
)

var (
	// ErrInvalidConfig indicates a method configuration that fails
	// validation, such as a non-positive noise level or sample count.
	ErrInvalidConfig = errors.New("attribution: invalid configuration")

	// ErrShapeMismatch indicates inputs and labels of different lengths,
	// or a gradient whose shape does not match its input.
	ErrShapeMismatch = errors.New("attribution: shape mismatch")
)

// Oracle computes the gradient of a class score with respect to an input.
//
// Gradient must return a tensor with the same shape and dtype as the input.
// Implementations that are not safe for concurrent use (such as
// ModuleOracle) serialize internally, so methods may call Gradient from
// multiple goroutines.
type Oracle interface {
	Gradient(input *tensor.RawTensor, class int) (*tensor.RawTensor, error)
}

// OracleFunc adapts a plain function to the Oracle interface.
type OracleFunc func(input *tensor.RawTensor, class int) (*tensor.RawTensor, error)

// Gradient calls f.
func (f OracleFunc) Gradient(input *tensor.RawTensor, class int) (*tensor.RawTensor, error) {
	return f(input, class)
}

// Scorer evaluates the class score of an input without gradients.
// Black-box methods like Occlusion depend only on this surface.
type Scorer interface {
	Score(input *tensor.RawTensor, class int) (float32, error)
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(input *tensor.RawTensor, class int) (float32, error)

// Score calls f.
func (f ScorerFunc) Score(input *tensor.RawTensor, class int) (float32, error) {
	return f(input, class)
}

// Method is the common interface of all tensor-based attribution methods.
//
// Explain receives one label per input and returns one attribution map per
// input, shaped like that input. On any failure it returns a nil slice;
// there are no partial results.
type Method interface {
	Explain(inputs []*tensor.RawTensor, labels []int) ([]*tensor.RawTensor, error)
}

// Config holds the sampling parameters shared by the noise-based methods
// (SquareGrad, SmoothGrad, VarGrad).
type Config struct {
	// Noise is the standard deviation of the Gaussian perturbation.
	// Must be a positive finite number.
	Noise float32

	// NbSamples is the number of Monte Carlo samples per input. Must be
	// at least 1.
	NbSamples int

	// Workers bounds how many inputs are processed concurrently.
	// Values below 1 mean sequential processing. The result is
	// independent of Workers: each input draws from its own
	// deterministic random stream.
	Workers int

	// Seed selects the random streams. Input i uses Seed + i, so two
	// runs with the same seed produce identical attributions.
	Seed int64
}

// DefaultConfig returns the standard sampling parameters: noise 0.2 and
// 50 samples, processed sequentially with seed 0.
func DefaultConfig() Config {
	return Config{Noise: 0.2, NbSamples: 50, Workers: 1}
}

func (c Config) validate() error {
	if !(c.Noise > 0) || math.IsInf(float64(c.Noise), 0) {
		return fmt.Errorf("%w: noise must be a positive finite number, got %v", ErrInvalidConfig, c.Noise)
	}
	if c.NbSamples < 1 {
		return fmt.Errorf("%w: nb_samples must be >= 1, got %d", ErrInvalidConfig, c.NbSamples)
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers < 1 {
		return 1
	}
	return c.Workers
}

// validateBatch checks the batch-level Explain preconditions shared by all
// tensor-based methods.
func validateBatch(inputs []*tensor.RawTensor, labels []int) error {
	if len(inputs) != len(labels) {
		return fmt.Errorf("%w: %d inputs but %d labels", ErrShapeMismatch, len(inputs), len(labels))
	}
	for i, input := range inputs {
		if input == nil {
			return fmt.Errorf("%w: input %d is nil", ErrShapeMismatch, i)
		}
		if input.DType() != tensor.Float32 {
			return fmt.Errorf("%w: input %d has dtype %s, attribution requires float32",
				ErrShapeMismatch, i, input.DType())
		}
	}
	return nil
}

// checkGradient verifies an oracle gradient against the input it was
// computed for.
func checkGradient(grad, input *tensor.RawTensor, index int) error {
	if grad == nil {
		return fmt.Errorf("%w: oracle returned nil gradient for input %d", ErrShapeMismatch, index)
	}
	if grad.DType() != input.DType() {
		return fmt.Errorf("%w: gradient for input %d has dtype %s, want %s",
			ErrShapeMismatch, index, grad.DType(), input.DType())
	}
	if !grad.Shape().Equal(input.Shape()) {
		return fmt.Errorf("%w: gradient for input %d has shape %v, want %v",
			ErrShapeMismatch, index, grad.Shape(), input.Shape())
	}
	return nil
}

// forEachInput runs fn for every input index, fanning out over at most
// workers goroutines. The first error cancels the batch.
func forEachInput(workers, n int, fn func(i int) error) error {
	if workers <= 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		g.Go(func() error { return fn(i) })
	}
	return g.Wait()
}
