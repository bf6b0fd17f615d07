package cpu

import (
	"fmt"

	"github.com/bmwas/lyra/internal/tensor"
)

// Element-wise binary operations with NumPy-style broadcasting.
//
// Arithmetic is implemented for float32 and float64. Float16 tensors must be
// Cast to float32 first; integer tensors carry index data (sequence offsets)
// and have no arithmetic here.

// Add performs element-wise addition with broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("add", a, b,
		func(x, y float32) float32 { return x + y },
		func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("sub", a, b,
		func(x, y float32) float32 { return x - y },
		func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("mul", a, b,
		func(x, y float32) float32 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("div", a, b,
		func(x, y float32) float32 { return x / y },
		func(x, y float64) float64 { return x / y })
}

func (cpu *CPUBackend) binaryOp(
	name string,
	a, b *tensor.RawTensor,
	f32 func(x, y float32) float32,
	f64 func(x, y float64) float64,
) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", name, a.DType(), b.DType()))
	}

	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
	}

	switch a.DType() {
	case tensor.Float32:
		if needsBroadcast {
			broadcastLoop(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), outShape, a.Shape(), b.Shape(), f32)
		} else {
			fastLoop(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), f32)
		}
	case tensor.Float64:
		if needsBroadcast {
			broadcastLoop(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), outShape, a.Shape(), b.Shape(), f64)
		} else {
			fastLoop(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), f64)
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s (cast to float32 or float64 first)", name, a.DType()))
	}

	return result
}

// fastLoop applies op over same-shape operands.
func fastLoop[T float32 | float64](dst, a, b []T, op func(x, y T) T) {
	for i := range dst {
		dst[i] = op(a[i], b[i])
	}
}

// broadcastLoop applies op with NumPy broadcasting: each output coordinate
// maps to an operand coordinate, with size-1 (or missing) dimensions pinned
// to index 0.
func broadcastLoop[T float32 | float64](
	dst, a, b []T,
	outShape, aShape, bShape tensor.Shape,
	op func(x, y T) T,
) {
	aStrides := aShape.ComputeStrides()
	bStrides := bShape.ComputeStrides()
	coord := make([]int, len(outShape))

	for i := range dst {
		aIdx, bIdx := 0, 0
		for d := range outShape {
			// Align trailing dimensions.
			if ad := d - (len(outShape) - len(aShape)); ad >= 0 && aShape[ad] > 1 {
				aIdx += coord[d] * aStrides[ad]
			}
			if bd := d - (len(outShape) - len(bShape)); bd >= 0 && bShape[bd] > 1 {
				bIdx += coord[d] * bStrides[bd]
			}
		}
		dst[i] = op(a[aIdx], b[bIdx])

		for d := len(coord) - 1; d >= 0; d-- {
			coord[d]++
			if coord[d] < outShape[d] {
				break
			}
			coord[d] = 0
		}
	}
}
