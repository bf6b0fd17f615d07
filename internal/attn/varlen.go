package attn

import (
	"errors"
	"fmt"

	"github.com/bmwas/lyra/internal/tensor"
)

// ErrVarlenUnsupported is returned when the cumulative sequence offsets
// describe genuinely ragged batches, which the fallback cannot compute
// correctly.
var ErrVarlenUnsupported = errors.New("attn: variable-length (ragged) attention not implemented")

// FlashAttnVarlenFunc is the variable-length counterpart of FlashAttnFunc.
//
// The fused kernel packs ragged batches and indexes them through cumulative
// sequence offsets (cuSeqlensQ/cuSeqlensK, one entry per batch element plus a
// leading zero). This fallback implements none of that: when the offsets
// describe uniform sequence lengths matching the dense tensors, the call
// delegates to FlashAttnFunc and the result is identical to the dense entry
// point; genuinely ragged offsets return ErrVarlenUnsupported instead of a
// silently wrong result.
//
// maxSeqlenQ and maxSeqlenK are accepted for signature compatibility and
// ignored. Nil offset tensors are treated as uniform.
func FlashAttnVarlenFunc[T tensor.DType, B tensor.Backend](
	q, k, v *tensor.Tensor[T, B],
	cuSeqlensQ, cuSeqlensK *tensor.Tensor[int32, B],
	maxSeqlenQ, maxSeqlenK int,
	opts Options,
) (*tensor.Tensor[T, B], error) {
	warnFallbackOnce()
	warnPath(pathVarlen)

	if err := checkUniformSeqlens("cu_seqlens_q", cuSeqlensQ, q.Shape()); err != nil {
		return nil, err
	}
	if err := checkUniformSeqlens("cu_seqlens_k", cuSeqlensK, k.Shape()); err != nil {
		return nil, err
	}

	backend := q.Backend()
	out := denseForward(q.Raw(), k.Raw(), v.Raw(), backend, opts)
	return tensor.New[T, B](out, backend), nil
}

// checkUniformSeqlens verifies that cumulative offsets describe batch
// elements of one shared length equal to the dense seqlen axis.
func checkUniformSeqlens[B tensor.Backend](name string, cu *tensor.Tensor[int32, B], dense tensor.Shape) error {
	if cu == nil {
		return nil
	}
	if len(dense) != 4 {
		panic("attn: q, k, v must be 4D (batch, seqlen, heads, headdim)")
	}

	offsets := cu.Data()
	batch, seqLen := dense[0], dense[1]
	if len(offsets) != batch+1 {
		return fmt.Errorf("%w: %s has %d offsets for batch size %d (want %d)",
			ErrVarlenUnsupported, name, len(offsets), batch, batch+1)
	}
	if offsets[0] != 0 {
		return fmt.Errorf("%w: %s must start at 0, got %d", ErrVarlenUnsupported, name, offsets[0])
	}

	for i := 0; i < batch; i++ {
		if got := int(offsets[i+1] - offsets[i]); got != seqLen {
			return fmt.Errorf("%w: %s element %d has length %d, dense path requires uniform length %d",
				ErrVarlenUnsupported, name, i, got, seqLen)
		}
	}
	return nil
}
