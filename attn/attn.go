// Copyright 2026 The Lyra Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package attn exposes the CPU fallback for fused flash-attention kernels.
//
// The API mirrors the fused kernel it substitutes: FlashAttnFunc for dense
// batches, FlashAttnVarlenFunc for the variable-length signature, and the
// FlashAttention wrapper object. Parameters the fallback cannot honor
// (dropout, window size, ALiBi slopes, determinism flag) are accepted and
// documented as ignored so call sites compile unchanged.
//
// Example:
//
//	backend := cpu.New()
//	q := tensor.Randn[float32](tensor.Shape{2, 128, 8, 64}, backend)
//	k := tensor.Randn[float32](tensor.Shape{2, 128, 8, 64}, backend)
//	v := tensor.Randn[float32](tensor.Shape{2, 128, 8, 64}, backend)
//	out := attn.FlashAttnFunc(q, k, v, attn.Options{Causal: true})
package attn

import (
	"github.com/bmwas/lyra/internal/attn"
	"github.com/bmwas/lyra/internal/tensor"
)

// Options carries the fused kernel's knobs. Only Scale and Causal affect
// the computation; see the field docs for the inert compatibility fields.
type Options = attn.Options

// ErrVarlenUnsupported is returned by FlashAttnVarlenFunc for genuinely
// ragged batches.
var ErrVarlenUnsupported = attn.ErrVarlenUnsupported

// FlashAttention is a thin stateful wrapper binding a softmax scale and a
// (never applied) dropout probability.
type FlashAttention[T tensor.DType, B tensor.Backend] = attn.FlashAttention[T, B]

// NewFlashAttention creates the wrapper. softmaxScale of 0 means
// auto-compute headDim^(-0.5) per call; attentionDropout is ignored.
func NewFlashAttention[T tensor.DType, B tensor.Backend](softmaxScale, attentionDropout float32) *FlashAttention[T, B] {
	return attn.NewFlashAttention[T, B](softmaxScale, attentionDropout)
}

// FlashAttnFunc computes scaled-dot-product attention over
// (batch, seqlen, heads, headdim) tensors on the CPU.
func FlashAttnFunc[T tensor.DType, B tensor.Backend](
	q, k, v *tensor.Tensor[T, B],
	opts Options,
) *tensor.Tensor[T, B] {
	return attn.FlashAttnFunc(q, k, v, opts)
}

// FlashAttnVarlenFunc is the variable-length signature of the fused kernel.
// Uniform offsets delegate to the dense path; ragged offsets return
// ErrVarlenUnsupported.
func FlashAttnVarlenFunc[T tensor.DType, B tensor.Backend](
	q, k, v *tensor.Tensor[T, B],
	cuSeqlensQ, cuSeqlensK *tensor.Tensor[int32, B],
	maxSeqlenQ, maxSeqlenK int,
	opts Options,
) (*tensor.Tensor[T, B], error) {
	return attn.FlashAttnVarlenFunc(q, k, v, cuSeqlensQ, cuSeqlensK, maxSeqlenQ, maxSeqlenK, opts)
}

// CausalMask creates an additive causal mask of shape (1, seqQ, seqK):
// 0 at and below the diagonal, -Inf strictly above.
func CausalMask[B tensor.Backend](seqQ, seqK int, backend B) *tensor.Tensor[float32, B] {
	return attn.CausalMask(seqQ, seqK, backend)
}

// ScaledDotProductAttention computes attention in the (batch, heads, seq,
// headDim) layout and returns the attention weights alongside the output.
// scale of 0 auto-computes headDim^(-0.5); mask may be nil.
func ScaledDotProductAttention[B tensor.Backend](
	query, key, value *tensor.Tensor[float32, B],
	mask *tensor.Tensor[float32, B],
	scale float32,
) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	return attn.ScaledDotProductAttention(query, key, value, mask, scale)
}
