// Package config loads and validates the YAML run specification consumed
// by the lucid CLI.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Method names accepted in a run spec.
const (
	MethodSquareGrad          = "squaregrad"
	MethodSmoothGrad          = "smoothgrad"
	MethodVarGrad             = "vargrad"
	MethodSaliency            = "saliency"
	MethodGradientInput       = "gradient_input"
	MethodIntegratedGradients = "integrated_gradients"
	MethodGuidedBackprop      = "guided_backprop"
	MethodOcclusion           = "occlusion"
)

var methodNames = map[string]bool{
	MethodSquareGrad:          true,
	MethodSmoothGrad:          true,
	MethodVarGrad:             true,
	MethodSaliency:            true,
	MethodGradientInput:       true,
	MethodIntegratedGradients: true,
	MethodGuidedBackprop:      true,
	MethodOcclusion:           true,
}

// Model describes a linear-plus-activation model inline in the run spec.
// Weights are row-major [classes][features].
type Model struct {
	Weights [][]float32 `yaml:"weights"`
	Bias    []float32   `yaml:"bias"`

	// ReLU inserts a ReLU before the linear layer, giving
	// guided_backprop a nonlinearity to act on.
	ReLU bool `yaml:"relu"`
}

// Config captures one attribution run: the method, its sampling knobs, the
// model, and the inputs to explain.
type Config struct {
	Method string `yaml:"method"`

	// Noise-based methods.
	Noise     float32 `yaml:"noise"`
	NbSamples int     `yaml:"nb_samples"`

	// Integrated gradients.
	Steps         int     `yaml:"steps"`
	BaselineValue float32 `yaml:"baseline_value"`

	// Occlusion.
	PatchSize   int `yaml:"patch_size"`
	PatchStride int `yaml:"patch_stride"`

	Workers int   `yaml:"workers"`
	Seed    int64 `yaml:"seed"`

	Model  Model       `yaml:"model"`
	Inputs [][]float32 `yaml:"inputs"`
	Labels []int       `yaml:"labels"`
}

// Load reads and validates a Config from a YAML file, filling defaults for
// omitted sampling parameters.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Noise == 0 {
		c.Noise = 0.2
	}
	if c.NbSamples == 0 {
		c.NbSamples = 50
	}
	if c.Steps == 0 {
		c.Steps = 50
	}
	if c.PatchSize == 0 {
		c.PatchSize = 1
	}
	if c.PatchStride == 0 {
		c.PatchStride = 1
	}
}

// Overrides captures CLI supplied values.
type Overrides struct {
	Method    string
	Noise     float64
	NbSamples int
	Steps     int
	Workers   int
	Seed      int64
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Method != "" {
		c.Method = o.Method
	}
	if o.Noise > 0 {
		c.Noise = float32(o.Noise)
	}
	if o.NbSamples > 0 {
		c.NbSamples = o.NbSamples
	}
	if o.Steps > 0 {
		c.Steps = o.Steps
	}
	if o.Workers > 0 {
		c.Workers = o.Workers
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
}

// Validate verifies the config describes a runnable attribution job.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if !methodNames[c.Method] {
		return fmt.Errorf("unknown method %q", c.Method)
	}
	if c.Noise <= 0 {
		return fmt.Errorf("noise must be > 0 (got %v)", c.Noise)
	}
	if c.NbSamples <= 0 {
		return fmt.Errorf("nb_samples must be > 0 (got %d)", c.NbSamples)
	}
	if c.Steps <= 0 {
		return fmt.Errorf("steps must be > 0 (got %d)", c.Steps)
	}
	if c.PatchSize <= 0 || c.PatchStride <= 0 {
		return fmt.Errorf("patch_size and patch_stride must be > 0 (got %d, %d)", c.PatchSize, c.PatchStride)
	}

	if len(c.Model.Weights) == 0 {
		return errors.New("model.weights must not be empty")
	}
	features := len(c.Model.Weights[0])
	for i, row := range c.Model.Weights {
		if len(row) != features {
			return fmt.Errorf("model.weights row %d has %d columns, want %d", i, len(row), features)
		}
	}
	if c.Model.Bias != nil && len(c.Model.Bias) != len(c.Model.Weights) {
		return fmt.Errorf("model.bias length %d does not match %d weight rows", len(c.Model.Bias), len(c.Model.Weights))
	}

	if len(c.Inputs) == 0 {
		return errors.New("inputs must not be empty")
	}
	if len(c.Labels) != len(c.Inputs) {
		return fmt.Errorf("%d inputs but %d labels", len(c.Inputs), len(c.Labels))
	}
	classes := len(c.Model.Weights)
	for i, input := range c.Inputs {
		if len(input) != features {
			return fmt.Errorf("input %d has %d features, model expects %d", i, len(input), features)
		}
		if c.Labels[i] < 0 || c.Labels[i] >= classes {
			return fmt.Errorf("label %d out of range for %d classes", c.Labels[i], classes)
		}
	}
	return nil
}
