package cpu

import (
	"fmt"

	"github.com/bmwas/lyra/internal/tensor"
)

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("MatMul: inputs must be 2D, got %dD and %dD", len(aShape), len(bShape)))
	}
	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("MatMul: inner dimension mismatch: %d vs %d", aShape[1], bShape[0]))
	}

	m, k, n := aShape[0], aShape[1], bShape[1]

	result, err := tensor.NewRaw(tensor.Shape{m, n}, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("MatMul: failed to create result tensor: %v", err))
	}

	switch a.DType() {
	case tensor.Float32:
		matmulBatches(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), 1, m, k, n)
	case tensor.Float64:
		matmulBatches(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), 1, m, k, n)
	default:
		panic(fmt.Sprintf("MatMul: unsupported dtype %s", a.DType()))
	}

	return result
}

// BatchMatMul performs batched matrix multiplication.
// Supports 3D and 4D tensors with batch dimensions.
//
// For 3D: [B, M, K] @ [B, K, N] -> [B, M, N]
// For 4D: [B, H, M, K] @ [B, H, K, N] -> [B, H, M, N]
//
// The last two dimensions are treated as matrix dimensions.
// All leading dimensions must match.
func (cpu *CPUBackend) BatchMatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()
	ndim := len(aShape)

	if ndim < 3 {
		panic(fmt.Sprintf("BatchMatMul: inputs must be at least 3D, got %dD", ndim))
	}
	if len(bShape) != ndim {
		panic(fmt.Sprintf("BatchMatMul: dimension mismatch, got %dD and %dD", ndim, len(bShape)))
	}
	for i := 0; i < ndim-2; i++ {
		if aShape[i] != bShape[i] {
			panic(fmt.Sprintf("BatchMatMul: batch dimension mismatch at dim %d: %d vs %d", i, aShape[i], bShape[i]))
		}
	}

	m := aShape[ndim-2]
	k := aShape[ndim-1]
	n := bShape[ndim-1]
	if k != bShape[ndim-2] {
		panic(fmt.Sprintf("BatchMatMul: inner dimension mismatch: %d vs %d", k, bShape[ndim-2]))
	}

	batchSize := 1
	for i := 0; i < ndim-2; i++ {
		batchSize *= aShape[i]
	}

	outShape := make(tensor.Shape, ndim)
	copy(outShape, aShape[:ndim-2])
	outShape[ndim-2] = m
	outShape[ndim-1] = n

	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("BatchMatMul: failed to create result tensor: %v", err))
	}

	switch a.DType() {
	case tensor.Float32:
		matmulBatches(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), batchSize, m, k, n)
	case tensor.Float64:
		matmulBatches(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), batchSize, m, k, n)
	default:
		panic(fmt.Sprintf("BatchMatMul: unsupported dtype %s", a.DType()))
	}

	return result
}

// matmulBatches multiplies batchSize independent (m, k) @ (k, n) pairs laid
// out contiguously. The k-inner ordering keeps row accesses sequential.
func matmulBatches[T float32 | float64](c, a, b []T, batchSize, m, k, n int) {
	for batch := 0; batch < batchSize; batch++ {
		aMat := a[batch*m*k : (batch+1)*m*k]
		bMat := b[batch*k*n : (batch+1)*k*n]
		cMat := c[batch*m*n : (batch+1)*m*n]

		for i := 0; i < m; i++ {
			cRow := cMat[i*n : (i+1)*n]
			for kIdx := 0; kIdx < k; kIdx++ {
				aVal := aMat[i*k+kIdx]
				bRow := bMat[kIdx*n : (kIdx+1)*n]
				for j := range cRow {
					cRow[j] += aVal * bRow[j]
				}
			}
		}
	}
}
