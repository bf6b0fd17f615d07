// Copyright 2026 The Lyra Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure-Go CPU compute backend.
//
// This is the only backend shipped with the module: Lyra exists to stand in
// for a fused GPU attention kernel when that kernel cannot be compiled or
// loaded, so the CPU path is the whole point.
package cpu

import (
	internalcpu "github.com/bmwas/lyra/internal/backend/cpu"
	"github.com/bmwas/lyra/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	import (
//	    "github.com/bmwas/lyra/backend/cpu"
//	    "github.com/bmwas/lyra/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	}
func New() *Backend {
	return internalcpu.New()
}
