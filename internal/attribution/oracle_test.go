package attribution_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucid-ml/lucid/internal/attribution"
	"github.com/lucid-ml/lucid/internal/autodiff"
	"github.com/lucid-ml/lucid/internal/backend/cpu"
	"github.com/lucid-ml/lucid/internal/nn"
	"github.com/lucid-ml/lucid/internal/tensor"
)

type adBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

// The gradient of a linear model's class score is that class's weight row.
func TestModuleOracle_LinearGradient(t *testing.T) {
	backend := autodiff.New(cpu.New())
	model, err := nn.NewLinearFromWeights([][]float32{
		{1, 2, 3},
		{-1, 0.5, 4},
	}, []float32{0.1, -0.2}, backend)
	require.NoError(t, err)

	oracle := attribution.NewModuleOracle[*cpu.CPUBackend](model, backend)
	input := rawFromSlice(t, []float32{0.5, -1, 2}, tensor.Shape{3})

	for class, want := range [][]float32{{1, 2, 3}, {-1, 0.5, 4}} {
		grad, err := oracle.Gradient(input, class)
		require.NoError(t, err)
		require.True(t, grad.Shape().Equal(input.Shape()))
		got := grad.AsFloat32()
		for j := range want {
			assert.InDelta(t, want[j], got[j], 1e-5, "class %d index %d", class, j)
		}
	}
}

func TestModuleOracle_InputNotMutated(t *testing.T) {
	backend := autodiff.New(cpu.New())
	model, err := nn.NewLinearFromWeights([][]float32{{1, 1}}, nil, backend)
	require.NoError(t, err)

	oracle := attribution.NewModuleOracle[*cpu.CPUBackend](model, backend)
	input := rawFromSlice(t, []float32{3, -4}, tensor.Shape{2})

	_, err = oracle.Gradient(input, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, -4}, input.AsFloat32())
}

func TestModuleOracle_ClassOutOfRange(t *testing.T) {
	backend := autodiff.New(cpu.New())
	model, err := nn.NewLinearFromWeights([][]float32{{1, 1}}, nil, backend)
	require.NoError(t, err)

	oracle := attribution.NewModuleOracle[*cpu.CPUBackend](model, backend)
	input := rawFromSlice(t, []float32{1, 2}, tensor.Shape{2})

	_, err = oracle.Gradient(input, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, attribution.ErrShapeMismatch), "got %v", err)

	_, err = oracle.Gradient(input, -1)
	require.Error(t, err)
}

func TestModuleOracle_Score(t *testing.T) {
	backend := autodiff.New(cpu.New())
	model, err := nn.NewLinearFromWeights([][]float32{{2, -1}}, []float32{0.5}, backend)
	require.NoError(t, err)

	oracle := attribution.NewModuleOracle[*cpu.CPUBackend](model, backend)
	input := rawFromSlice(t, []float32{3, 4}, tensor.Shape{2})

	score, err := oracle.Score(input, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2*3-1*4+0.5, score, 1e-5)
}

// Guided backprop blocks gradients that arrive negative at a ReLU, while a
// plain backward pass lets them through.
func TestModuleOracle_GuidedReLU(t *testing.T) {
	// score = -relu(x0) + 2*relu(x1)
	build := func() (nn.Module[adBackend], adBackend) {
		backend := autodiff.New(cpu.New())
		out, err := nn.NewLinearFromWeights([][]float32{{-1, 2}}, nil, backend)
		require.NoError(t, err)
		model := nn.NewSequential[adBackend](nn.NewReLU[adBackend](), out)
		return model, backend
	}

	input := rawFromSlice(t, []float32{1, 1}, tensor.Shape{2})

	model, backend := build()
	plain := attribution.NewModuleOracle[*cpu.CPUBackend](model, backend)
	grad, err := plain.Gradient(input, 0)
	require.NoError(t, err)
	got := grad.AsFloat32()
	assert.InDelta(t, -1, got[0], 1e-5)
	assert.InDelta(t, 2, got[1], 1e-5)

	model, backend = build()
	guided := attribution.NewGuidedModuleOracle[*cpu.CPUBackend](model, backend)
	grad, err = guided.Gradient(input, 0)
	require.NoError(t, err)
	got = grad.AsFloat32()
	assert.InDelta(t, 0, got[0], 1e-5, "negative gradient should be blocked")
	assert.InDelta(t, 2, got[1], 1e-5)
}

// End to end: SquareGrad on a real linear model converges to the squared
// weight row.
func TestSquareGrad_ModuleOracle(t *testing.T) {
	backend := autodiff.New(cpu.New())
	model, err := nn.NewLinearFromWeights([][]float32{
		{1, -2, 3},
		{0.5, 0, -1},
	}, nil, backend)
	require.NoError(t, err)

	oracle := attribution.NewModuleOracle[*cpu.CPUBackend](model, backend)
	method, err := attribution.NewSquareGrad(oracle, attribution.Config{
		Noise:     0.1,
		NbSamples: 10,
		Seed:      3,
	})
	require.NoError(t, err)

	input := rawFromSlice(t, []float32{0.2, 0.4, 0.6}, tensor.Shape{3})
	attrs, err := method.Explain([]*tensor.RawTensor{input}, []int{1})
	require.NoError(t, err)

	want := []float32{0.25, 0, 1}
	got := attrs[0].AsFloat32()
	for j := range want {
		assert.InDelta(t, want[j], got[j], 1e-4, "index %d", j)
	}
}

// GuidedBackprop through the method interface.
func TestGuidedBackprop_Explain(t *testing.T) {
	backend := autodiff.New(cpu.New())
	out, err := nn.NewLinearFromWeights([][]float32{{-1, 2}}, nil, backend)
	require.NoError(t, err)
	model := nn.NewSequential[adBackend](nn.NewReLU[adBackend](), out)

	oracle := attribution.NewGuidedModuleOracle[*cpu.CPUBackend](model, backend)
	method := attribution.NewGuidedBackprop(oracle)

	input := rawFromSlice(t, []float32{1, 1}, tensor.Shape{2})
	attrs, err := method.Explain([]*tensor.RawTensor{input}, []int{0})
	require.NoError(t, err)

	got := attrs[0].AsFloat32()
	assert.InDelta(t, 0, got[0], 1e-5)
	assert.InDelta(t, 2, got[1], 1e-5)
}
