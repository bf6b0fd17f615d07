package cpu

import (
	"fmt"

	"github.com/x448/float16"

	"github.com/bmwas/lyra/internal/tensor"
)

// Cast converts the tensor to a different data type.
//
// Float16 conversion goes through github.com/x448/float16 (IEEE 754
// round-to-nearest-even); every other pair converts through float64.
// Casting to the same dtype returns a copy.
func (cpu *CPUBackend) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	if x.DType() == dtype {
		return x.Clone()
	}

	result, err := tensor.NewRaw(x.Shape(), dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("cast: %v", err))
	}

	// Fast path for the pair the attention fallback actually exercises.
	if x.DType() == tensor.Float16 && dtype == tensor.Float32 {
		src, dst := x.AsFloat16(), result.AsFloat32()
		for i := range src {
			dst[i] = src[i].Float32()
		}
		return result
	}
	if x.DType() == tensor.Float32 && dtype == tensor.Float16 {
		src, dst := x.AsFloat32(), result.AsFloat16()
		for i := range src {
			dst[i] = float16.Fromfloat32(src[i])
		}
		return result
	}

	n := x.NumElements()
	for i := 0; i < n; i++ {
		setAsFloat64(result, i, getAsFloat64(x, i))
	}
	return result
}

func getAsFloat64(t *tensor.RawTensor, i int) float64 {
	switch t.DType() {
	case tensor.Float32:
		return float64(t.AsFloat32()[i])
	case tensor.Float64:
		return t.AsFloat64()[i]
	case tensor.Float16:
		return float64(t.AsFloat16()[i].Float32())
	case tensor.Int32:
		return float64(t.AsInt32()[i])
	case tensor.Int64:
		return float64(t.AsInt64()[i])
	default:
		panic(fmt.Sprintf("cast: unsupported source dtype %s", t.DType()))
	}
}

func setAsFloat64(t *tensor.RawTensor, i int, v float64) {
	switch t.DType() {
	case tensor.Float32:
		t.AsFloat32()[i] = float32(v)
	case tensor.Float64:
		t.AsFloat64()[i] = v
	case tensor.Float16:
		t.AsFloat16()[i] = float16.Fromfloat32(float32(v))
	case tensor.Int32:
		t.AsInt32()[i] = int32(v)
	case tensor.Int64:
		t.AsInt64()[i] = int64(v)
	default:
		panic(fmt.Sprintf("cast: unsupported target dtype %s", t.DType()))
	}
}
