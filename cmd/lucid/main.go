// Package main provides the lucid CLI for running attribution methods on
// linear models described in a YAML run spec.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lucid-ml/lucid/attribution"
	"github.com/lucid-ml/lucid/autodiff"
	"github.com/lucid-ml/lucid/backend/cpu"
	"github.com/lucid-ml/lucid/internal/config"
	"github.com/lucid-ml/lucid/nn"
	"github.com/lucid-ml/lucid/tensor"
)

const version = "v0.1.0-dev"

var (
	verbose    bool
	configPath string
	outputPath string
	overrides  config.Overrides

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lucid",
	Short: "Lucid - attribution methods for explaining model predictions",
	Long: `Lucid computes feature attributions for model predictions using
gradient-based methods (SquareGrad, SmoothGrad, VarGrad, Saliency,
GradientInput, IntegratedGradients, GuidedBackprop) and black-box
perturbation methods (Occlusion).

A run is described by a YAML spec: the method, its sampling parameters,
an inline linear model, and the inputs to explain.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lucid %s\n", version)
	},
}

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Run an attribution method over a YAML run spec",
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := uuid.NewString()
		log := logger.With(zap.String("run_id", runID))

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg.ApplyOverrides(overrides)
		if err := cfg.Validate(); err != nil {
			return err
		}

		log.Info("starting attribution run",
			zap.String("method", cfg.Method),
			zap.Int("inputs", len(cfg.Inputs)),
			zap.Int("nb_samples", cfg.NbSamples),
			zap.Float64("noise", float64(cfg.Noise)),
		)

		result, err := runExplain(cfg, runID)
		if err != nil {
			log.Error("attribution run failed", zap.Error(err))
			return err
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		out = append(out, '\n')

		if outputPath == "" || outputPath == "-" {
			_, err = os.Stdout.Write(out)
			return err
		}
		if err := os.WriteFile(outputPath, out, 0o644); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		log.Info("attribution run finished", zap.String("output", outputPath))
		return nil
	},
}

// runResult is the JSON document emitted by the explain command.
type runResult struct {
	RunID        string      `json:"run_id"`
	Method       string      `json:"method"`
	Labels       []int       `json:"labels"`
	Attributions [][]float32 `json:"attributions"`
}

func runExplain(cfg *config.Config, runID string) (*runResult, error) {
	backend := autodiff.New(cpu.New())
	model, err := buildModel(cfg, backend)
	if err != nil {
		return nil, err
	}

	guided := cfg.Method == config.MethodGuidedBackprop
	var oracle *attribution.ModuleOracle[*cpu.CPUBackend]
	if guided {
		oracle = attribution.NewGuidedModuleOracle[*cpu.CPUBackend](model, backend)
	} else {
		oracle = attribution.NewModuleOracle[*cpu.CPUBackend](model, backend)
	}

	method, err := buildMethod(cfg, oracle)
	if err != nil {
		return nil, err
	}

	inputs := make([]*tensor.RawTensor, len(cfg.Inputs))
	for i, values := range cfg.Inputs {
		raw, err := tensor.NewRaw(tensor.Shape{len(values)}, tensor.Float32, tensor.CPU)
		if err != nil {
			return nil, err
		}
		copy(raw.AsFloat32(), values)
		inputs[i] = raw
	}

	attrs, err := method.Explain(inputs, cfg.Labels)
	if err != nil {
		return nil, err
	}

	result := &runResult{
		RunID:        runID,
		Method:       cfg.Method,
		Labels:       cfg.Labels,
		Attributions: make([][]float32, len(attrs)),
	}
	for i, a := range attrs {
		result.Attributions[i] = a.AsFloat32()
	}
	return result, nil
}

type cpuAutodiff = *autodiff.Backend[*cpu.CPUBackend]

func buildModel(cfg *config.Config, backend cpuAutodiff) (nn.Module[cpuAutodiff], error) {
	linear, err := nn.NewLinearFromWeights(cfg.Model.Weights, cfg.Model.Bias, backend)
	if err != nil {
		return nil, err
	}
	if cfg.Model.ReLU {
		return nn.NewSequential[cpuAutodiff](nn.NewReLU[cpuAutodiff](), linear), nil
	}
	return linear, nil
}

func buildMethod(cfg *config.Config, oracle *attribution.ModuleOracle[*cpu.CPUBackend]) (attribution.Method, error) {
	sampling := attribution.Config{
		Noise:     cfg.Noise,
		NbSamples: cfg.NbSamples,
		Workers:   cfg.Workers,
		Seed:      cfg.Seed,
	}

	switch cfg.Method {
	case config.MethodSquareGrad:
		return attribution.NewSquareGrad(oracle, sampling)
	case config.MethodSmoothGrad:
		return attribution.NewSmoothGrad(oracle, sampling)
	case config.MethodVarGrad:
		return attribution.NewVarGrad(oracle, sampling)
	case config.MethodSaliency:
		return attribution.NewSaliency(oracle), nil
	case config.MethodGradientInput:
		return attribution.NewGradientInput(oracle), nil
	case config.MethodGuidedBackprop:
		return attribution.NewGuidedBackprop(oracle), nil
	case config.MethodIntegratedGradients:
		return attribution.NewIntegratedGradients(oracle, attribution.IGConfig{
			Steps:         cfg.Steps,
			BaselineValue: cfg.BaselineValue,
			Workers:       cfg.Workers,
		})
	case config.MethodOcclusion:
		return attribution.NewOcclusion(oracle, attribution.OcclusionConfig{
			PatchSize:     cfg.PatchSize,
			PatchStride:   cfg.PatchStride,
			BaselineValue: cfg.BaselineValue,
			Workers:       cfg.Workers,
		})
	default:
		return nil, fmt.Errorf("unknown method %q", cfg.Method)
	}
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	explainCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML run spec (required)")
	explainCmd.Flags().StringVarP(&outputPath, "output", "o", "-", "output file, or - for stdout")
	explainCmd.Flags().StringVar(&overrides.Method, "method", "", "override the method from the run spec")
	explainCmd.Flags().Float64Var(&overrides.Noise, "noise", 0, "override the noise level")
	explainCmd.Flags().IntVar(&overrides.NbSamples, "nb-samples", 0, "override the sample count")
	explainCmd.Flags().IntVar(&overrides.Steps, "steps", 0, "override the integration steps")
	explainCmd.Flags().IntVar(&overrides.Workers, "workers", 0, "override the worker count")
	explainCmd.Flags().Int64Var(&overrides.Seed, "seed", 0, "override the random seed")
	_ = explainCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(explainCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
