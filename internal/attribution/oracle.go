package attribution

import (
	"fmt"
	"sync"

	"github.com/lucid-ml/lucid/internal/autodiff"
	"github.com/lucid-ml/lucid/internal/nn"
	"github.com/lucid-ml/lucid/internal/tensor"
)

// ModuleOracle adapts an nn.Module running on an autodiff backend into an
// Oracle and a Scorer.
//
// Gradient runs the module forward on a gradient tape, seeds the backward
// pass with a one-hot vector selecting the requested class, and returns the
// gradient of that class score with respect to the input.
//
// The gradient tape is single-writer, so all calls are serialized on an
// internal mutex. The oracle is safe to share across goroutines but does
// not compute gradients concurrently.
type ModuleOracle[B tensor.Backend] struct {
	mu      sync.Mutex
	backend *autodiff.AutodiffBackend[B]
	module  nn.Module[*autodiff.AutodiffBackend[B]]
	guided  bool
}

// NewModuleOracle wraps module, whose operations run on backend, as a
// gradient oracle.
func NewModuleOracle[B tensor.Backend](
	module nn.Module[*autodiff.AutodiffBackend[B]],
	backend *autodiff.AutodiffBackend[B],
) *ModuleOracle[B] {
	return &ModuleOracle[B]{backend: backend, module: module}
}

// NewGuidedModuleOracle is like NewModuleOracle but computes guided
// gradients: during the backward pass, ReLU layers propagate only positive
// gradients through positively activated units.
func NewGuidedModuleOracle[B tensor.Backend](
	module nn.Module[*autodiff.AutodiffBackend[B]],
	backend *autodiff.AutodiffBackend[B],
) *ModuleOracle[B] {
	return &ModuleOracle[B]{backend: backend, module: module, guided: true}
}

// Gradient returns d score_class / d input. The returned tensor has the
// same shape as input. The input itself is never mutated; the forward pass
// runs on a private copy.
func (o *ModuleOracle[B]) Gradient(input *tensor.RawTensor, class int) (*tensor.RawTensor, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tape := o.backend.Tape()
	tape.Clear()
	o.backend.SetGuidedReLU(o.guided)
	defer o.backend.SetGuidedReLU(false)

	tape.StartRecording()
	defer tape.StopRecording()

	// The clone is the tape's leaf: reshaping it on tape routes the
	// gradient back to the input's original shape.
	leaf := input.Clone()
	x := tensor.New[float32](leaf, o.backend).Reshape(1, input.NumElements())

	scores := o.module.Forward(x)
	if err := checkScores(scores.Raw(), class); err != nil {
		return nil, err
	}

	seed, err := oneHot(scores.Shape(), class, input.Device())
	if err != nil {
		return nil, err
	}

	grads := tape.Backward(seed, o.backend)
	grad, ok := grads[leaf]
	if !ok {
		return nil, fmt.Errorf("attribution: no gradient reached the input, model output does not depend on it")
	}
	return grad, nil
}

// Score runs the module forward without recording and returns the score of
// the requested class.
func (o *ModuleOracle[B]) Score(input *tensor.RawTensor, class int) (float32, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tape := o.backend.Tape()
	tape.Clear()

	x := tensor.New[float32](input.Clone(), o.backend).Reshape(1, input.NumElements())
	scores := o.module.Forward(x)
	if err := checkScores(scores.Raw(), class); err != nil {
		return 0, err
	}
	return scores.At(0, class), nil
}

func checkScores(scores *tensor.RawTensor, class int) error {
	shape := scores.Shape()
	if len(shape) != 2 || shape[0] != 1 {
		return fmt.Errorf("%w: model output has shape %v, want [1, classes]", ErrShapeMismatch, shape)
	}
	if class < 0 || class >= shape[1] {
		return fmt.Errorf("%w: class %d out of range for %d model outputs", ErrShapeMismatch, class, shape[1])
	}
	return nil
}

func oneHot(shape tensor.Shape, class int, device tensor.Device) (*tensor.RawTensor, error) {
	seed, err := tensor.NewRaw(shape, tensor.Float32, device)
	if err != nil {
		return nil, err
	}
	seed.AsFloat32()[class] = 1
	return seed, nil
}
