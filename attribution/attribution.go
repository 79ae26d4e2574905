// Copyright 2025 The Lucid Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package attribution provides the public API for the attribution methods
// of the Lucid toolkit.
//
// Gradient-based methods explain a prediction through the gradient of the
// class score with respect to the input:
//   - SquareGrad: mean squared gradient under Gaussian noise
//   - SmoothGrad: mean gradient under Gaussian noise
//   - VarGrad: gradient variance under Gaussian noise
//   - Saliency: absolute gradient
//   - GradientInput: gradient times input
//   - IntegratedGradients: path integral from a baseline
//   - GuidedBackprop: gradients with guided ReLU backpropagation
//
// Black-box methods only require a score function:
//   - Occlusion: score drop when patches are masked
//   - TokenOcclusion: score drop when tokens are removed from text
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	model, _ := nn.NewLinearFromWeights(weights, bias, backend)
//	oracle := attribution.NewModuleOracle[*cpu.CPUBackend](model, backend)
//
//	method, _ := attribution.NewSquareGrad(oracle, attribution.DefaultConfig())
//	attrs, _ := method.Explain(inputs, labels)
package attribution

import (
	"github.com/lucid-ml/lucid/internal/attribution"
	"github.com/lucid-ml/lucid/internal/autodiff"
	"github.com/lucid-ml/lucid/internal/nn"
	"github.com/lucid-ml/lucid/internal/tensor"
)

// Sentinel errors returned by attribution methods.
var (
	ErrInvalidConfig = attribution.ErrInvalidConfig
	ErrShapeMismatch = attribution.ErrShapeMismatch
)

// Oracle computes the gradient of a class score with respect to an input.
type Oracle = attribution.Oracle

// OracleFunc adapts a plain function to the Oracle interface.
type OracleFunc = attribution.OracleFunc

// Scorer evaluates the class score of an input without gradients.
type Scorer = attribution.Scorer

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc = attribution.ScorerFunc

// Method is the common interface of all tensor-based attribution methods.
type Method = attribution.Method

// Config holds the sampling parameters of the noise-based methods.
type Config = attribution.Config

// DefaultConfig returns the standard sampling parameters: noise 0.2 and
// 50 samples.
func DefaultConfig() Config {
	return attribution.DefaultConfig()
}

// ModuleOracle adapts an nn.Module running on an autodiff backend into an
// Oracle and a Scorer.
type ModuleOracle[B tensor.Backend] = attribution.ModuleOracle[B]

// NewModuleOracle wraps module, whose operations run on backend, as a
// gradient oracle.
func NewModuleOracle[B tensor.Backend](
	module nn.Module[*autodiff.AutodiffBackend[B]],
	backend *autodiff.AutodiffBackend[B],
) *ModuleOracle[B] {
	return attribution.NewModuleOracle(module, backend)
}

// NewGuidedModuleOracle is like NewModuleOracle but computes guided
// gradients for GuidedBackprop.
func NewGuidedModuleOracle[B tensor.Backend](
	module nn.Module[*autodiff.AutodiffBackend[B]],
	backend *autodiff.AutodiffBackend[B],
) *ModuleOracle[B] {
	return attribution.NewGuidedModuleOracle(module, backend)
}

// Gradient methods

// SquareGrad estimates the expected squared gradient under Gaussian
// perturbation of the input.
type SquareGrad = attribution.SquareGrad

// NewSquareGrad validates cfg and returns a SquareGrad method.
func NewSquareGrad(oracle Oracle, cfg Config) (*SquareGrad, error) {
	return attribution.NewSquareGrad(oracle, cfg)
}

// SmoothGrad averages raw gradients under Gaussian perturbation of the
// input.
type SmoothGrad = attribution.SmoothGrad

// NewSmoothGrad validates cfg and returns a SmoothGrad method.
func NewSmoothGrad(oracle Oracle, cfg Config) (*SmoothGrad, error) {
	return attribution.NewSmoothGrad(oracle, cfg)
}

// VarGrad measures the gradient variance under Gaussian perturbation of
// the input.
type VarGrad = attribution.VarGrad

// NewVarGrad validates cfg and returns a VarGrad method.
func NewVarGrad(oracle Oracle, cfg Config) (*VarGrad, error) {
	return attribution.NewVarGrad(oracle, cfg)
}

// Saliency attributes importance as the absolute gradient at the input.
type Saliency = attribution.Saliency

// NewSaliency returns a Saliency method.
func NewSaliency(oracle Oracle) *Saliency {
	return attribution.NewSaliency(oracle)
}

// GradientInput multiplies the gradient at the input by the input itself.
type GradientInput = attribution.GradientInput

// NewGradientInput returns a GradientInput method.
func NewGradientInput(oracle Oracle) *GradientInput {
	return attribution.NewGradientInput(oracle)
}

// IGConfig holds the parameters of IntegratedGradients.
type IGConfig = attribution.IGConfig

// DefaultIGConfig returns the standard parameters: 50 steps from a zero
// baseline.
func DefaultIGConfig() IGConfig {
	return attribution.DefaultIGConfig()
}

// IntegratedGradients approximates the path integral of the gradient from
// a baseline to the input.
type IntegratedGradients = attribution.IntegratedGradients

// NewIntegratedGradients validates cfg and returns an IntegratedGradients
// method.
func NewIntegratedGradients(oracle Oracle, cfg IGConfig) (*IntegratedGradients, error) {
	return attribution.NewIntegratedGradients(oracle, cfg)
}

// GuidedBackprop attributes importance with guided gradients. The oracle
// must compute them; use NewGuidedModuleOracle.
type GuidedBackprop = attribution.GuidedBackprop

// NewGuidedBackprop returns a GuidedBackprop method.
func NewGuidedBackprop(oracle Oracle) *GuidedBackprop {
	return attribution.NewGuidedBackprop(oracle)
}

// Black-box methods

// OcclusionConfig holds the parameters of Occlusion.
type OcclusionConfig = attribution.OcclusionConfig

// DefaultOcclusionConfig returns single-feature occlusion with a zero
// baseline.
func DefaultOcclusionConfig() OcclusionConfig {
	return attribution.DefaultOcclusionConfig()
}

// Occlusion attributes importance by masking patches of the input and
// measuring the score drop.
type Occlusion = attribution.Occlusion

// NewOcclusion validates cfg and returns an Occlusion method.
func NewOcclusion(scorer Scorer, cfg OcclusionConfig) (*Occlusion, error) {
	return attribution.NewOcclusion(scorer, cfg)
}

// Encoding is the tokenizer surface TokenOcclusion needs. It is satisfied
// by *tiktoken.Tiktoken.
type Encoding = attribution.Encoding

// TextScorer evaluates the class score of a piece of text.
type TextScorer = attribution.TextScorer

// TextScorerFunc adapts a plain function to the TextScorer interface.
type TextScorerFunc = attribution.TextScorerFunc

// TokenAttribution is the score drop observed when one token is removed
// from the text.
type TokenAttribution = attribution.TokenAttribution

// TokenOcclusion explains a text classification by deleting one token at
// a time.
type TokenOcclusion = attribution.TokenOcclusion

// NewTokenOcclusion returns a TokenOcclusion method using the given
// tokenizer and scorer.
func NewTokenOcclusion(enc Encoding, scorer TextScorer) *TokenOcclusion {
	return attribution.NewTokenOcclusion(enc, scorer)
}

// NewTiktokenOcclusion loads a tiktoken encoding by name, such as
// "cl100k_base".
func NewTiktokenOcclusion(encodingName string, scorer TextScorer) (*TokenOcclusion, error) {
	return attribution.NewTiktokenOcclusion(encodingName, scorer)
}
