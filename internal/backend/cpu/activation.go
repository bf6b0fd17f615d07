package cpu

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"

	"github.com/bmwas/lyra/internal/tensor"
)

// Softmax computes softmax along the specified dimension.
// Softmax(x_i) = exp(x_i) / sum(exp(x_j)) for all j in dimension.
//
// The row maximum is subtracted before exponentiating so rows with large
// magnitudes (or -Inf masked entries) normalize without overflow. A row of
// all -Inf produces NaN, same as the accelerated kernels being substituted.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	// Normalize dimension
	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("softmax: dimension %d out of range for tensor of rank %d", dim, ndim))
	}

	result, err := tensor.NewRaw(shape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("softmax: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		softmaxRows(result.AsFloat32(), x.AsFloat32(), shape, dim,
			math32.Exp, float32(math.Inf(-1)))
	case tensor.Float64:
		softmaxRows(result.AsFloat64(), x.AsFloat64(), shape, dim,
			math.Exp, math.Inf(-1))
	default:
		panic(fmt.Sprintf("softmax: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}

	return result
}

// softmaxRows normalizes every 1-D lane along dim independently.
func softmaxRows[T float32 | float64](
	dst, src []T,
	shape tensor.Shape,
	dim int,
	exp func(T) T,
	negInf T,
) {
	strides := shape.ComputeStrides()
	dimSize := shape[dim]
	dimStride := strides[dim]

	numRows := 1
	for i := range shape {
		if i != dim {
			numRows *= shape[i]
		}
	}

	for row := 0; row < numRows; row++ {
		// Base flat index for this row: decompose row over the non-dim axes.
		baseIdx := 0
		remaining := row
		for i := len(shape) - 1; i >= 0; i-- {
			if i == dim {
				continue
			}
			baseIdx += (remaining % shape[i]) * strides[i]
			remaining /= shape[i]
		}

		// Max for numerical stability.
		maxVal := negInf
		for i := 0; i < dimSize; i++ {
			if v := src[baseIdx+i*dimStride]; v > maxVal {
				maxVal = v
			}
		}

		var sum T
		for i := 0; i < dimSize; i++ {
			idx := baseIdx + i*dimStride
			e := exp(src[idx] - maxVal)
			dst[idx] = e
			sum += e
		}

		for i := 0; i < dimSize; i++ {
			dst[baseIdx+i*dimStride] /= sum
		}
	}
}
