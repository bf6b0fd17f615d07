// Package cpu implements the pure-Go CPU backend.
//
// This backend is the reference compute path used when an accelerated fused
// attention kernel is unavailable. It favors correctness and simplicity over
// throughput: no tiling, no SIMD, no kernel fusion.
package cpu

import (
	"fmt"

	"github.com/bmwas/lyra/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
type CPUBackend struct {
	device tensor.Device
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Reshape returns a tensor with the same data but a different shape.
// This is a view operation: the returned tensor shares the buffer.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result, err := t.WithShape(newShape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return result
}

// Transpose transposes the tensor by permuting its dimensions.
// If axes is empty, all dimensions are reversed.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: axes length %d != ndim %d", len(axes), ndim))
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			panic(fmt.Sprintf("transpose: invalid axis %d for %dD tensor", ax, ndim))
		}
		if seen[ax] {
			panic(fmt.Sprintf("transpose: duplicate axis %d", ax))
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}

	result, err := tensor.NewRaw(newShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}

	permuteData(result, t, axes)
	return result
}

// permuteData copies src into dst under the given axis permutation.
// Elements are moved bytewise so every dtype is supported.
func permuteData(dst, src *tensor.RawTensor, axes []int) {
	srcStrides := src.Strides()
	elemSize := src.DType().Size()
	n := src.NumElements()

	srcData := src.Data()
	dstData := dst.Data()

	// Walk dst in row-major order, computing the matching src offset from
	// the permuted coordinates.
	dstShape := dst.Shape()
	coord := make([]int, len(dstShape))
	for i := 0; i < n; i++ {
		srcOffset := 0
		for d, ax := range axes {
			srcOffset += coord[d] * srcStrides[ax]
		}
		copy(dstData[i*elemSize:(i+1)*elemSize], srcData[srcOffset*elemSize:(srcOffset+1)*elemSize])

		// Increment the multi-index.
		for d := len(coord) - 1; d >= 0; d-- {
			coord[d]++
			if coord[d] < dstShape[d] {
				break
			}
			coord[d] = 0
		}
	}
}
