// Copyright 2025 The Lucid Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU compute backend.
package cpu

import (
	internalcpu "github.com/lucid-ml/lucid/internal/backend/cpu"
	"github.com/lucid-ml/lucid/tensor"
)

// CPUBackend implements all tensor operations with pure Go kernels.
type CPUBackend = internalcpu.CPUBackend

// Compile-time check that CPUBackend implements tensor.Backend.
var _ tensor.Backend = (*CPUBackend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
func New() *CPUBackend {
	return internalcpu.New()
}
