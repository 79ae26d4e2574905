package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const validYAML = `
method: squaregrad
noise: 0.3
nb_samples: 20
seed: 42
model:
  weights:
    - [1.0, -2.0, 3.0]
    - [0.5, 0.0, -1.0]
  bias: [0.1, -0.1]
inputs:
  - [0.2, 0.4, 0.6]
labels: [1]
`

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, MethodSquareGrad, cfg.Method)
	assert.InDelta(t, 0.3, cfg.Noise, 1e-6)
	assert.Equal(t, 20, cfg.NbSamples)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Len(t, cfg.Model.Weights, 2)
	assert.Equal(t, []int{1}, cfg.Labels)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
method: smoothgrad
model:
  weights: [[1.0, 2.0]]
inputs: [[0.5, 0.5]]
labels: [0]
`))
	require.NoError(t, err)

	assert.InDelta(t, 0.2, cfg.Noise, 1e-6)
	assert.Equal(t, 50, cfg.NbSamples)
	assert.Equal(t, 50, cfg.Steps)
	assert.Equal(t, 1, cfg.PatchSize)
	assert.Equal(t, 1, cfg.PatchStride)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown method", `
method: shapley
model: {weights: [[1.0]]}
inputs: [[1.0]]
labels: [0]
`},
		{"negative noise", `
method: squaregrad
noise: -0.1
model: {weights: [[1.0]]}
inputs: [[1.0]]
labels: [0]
`},
		{"ragged weights", `
method: squaregrad
model:
  weights:
    - [1.0, 2.0]
    - [3.0]
inputs: [[1.0, 2.0]]
labels: [0]
`},
		{"label count mismatch", `
method: squaregrad
model: {weights: [[1.0]]}
inputs: [[1.0]]
labels: [0, 1]
`},
		{"label out of range", `
method: squaregrad
model: {weights: [[1.0]]}
inputs: [[1.0]]
labels: [3]
`},
		{"feature count mismatch", `
method: squaregrad
model: {weights: [[1.0, 2.0]]}
inputs: [[1.0]]
labels: [0]
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	cfg.ApplyOverrides(Overrides{Method: MethodVarGrad, Noise: 0.7, NbSamples: 5, Seed: 9})
	assert.Equal(t, MethodVarGrad, cfg.Method)
	assert.InDelta(t, 0.7, cfg.Noise, 1e-6)
	assert.Equal(t, 5, cfg.NbSamples)
	assert.Equal(t, int64(9), cfg.Seed)

	// Zero values leave the config untouched.
	cfg.ApplyOverrides(Overrides{})
	assert.Equal(t, MethodVarGrad, cfg.Method)
	assert.Equal(t, 5, cfg.NbSamples)
}
