// Package attn provides a CPU fallback for fused flash-attention kernels.
//
// The entry points mirror the fused kernel's API (FlashAttnFunc,
// FlashAttnVarlenFunc, the FlashAttention wrapper) so call sites need no
// changes when the accelerated kernel cannot be compiled or loaded. The
// computation is the direct, un-tiled reference: batched matmul, additive
// causal mask, softmax, batched matmul.
package attn

import (
	"math"

	"github.com/bmwas/lyra/internal/tensor"
)

// Options carries the knobs of the fused kernel's signature.
//
// Only Scale and Causal affect the computation. The remaining fields are
// accepted so call sites written against the fused kernel keep compiling;
// they are documented as ignored rather than omitted.
type Options struct {
	// Scale multiplies the raw attention scores. Zero means auto-compute
	// the standard normalization headDim^(-0.5).
	Scale float32

	// Causal forbids each query position from attending to key positions
	// with a strictly greater index.
	Causal bool

	// DropoutP is accepted for signature compatibility and ignored: the
	// fallback never applies dropout.
	DropoutP float32

	// WindowSize is accepted for signature compatibility and ignored:
	// windowed/local attention is not implemented.
	WindowSize [2]int

	// AlibiSlopes is accepted for signature compatibility and ignored:
	// ALiBi bias is not implemented.
	AlibiSlopes []float32

	// Deterministic is accepted for signature compatibility and ignored:
	// the fallback is already deterministic.
	Deterministic bool
}

// FlashAttnFunc computes scaled-dot-product attention on the CPU.
//
// q, k, v have shape (batch, seqlen, heads, headdim) and must share all four
// sizes; the output has the shape and dtype of q. Float16 inputs are upcast
// to float32 for the computation and the result cast back.
//
// The first call in the process emits a one-time advisory that the slower
// fallback is active; every call emits a warning-level record naming the
// path taken.
//
// Shape or dtype violations panic with the underlying primitive's message;
// there is no domain-specific validation beyond the rank check.
func FlashAttnFunc[T tensor.DType, B tensor.Backend](
	q, k, v *tensor.Tensor[T, B],
	opts Options,
) *tensor.Tensor[T, B] {
	warnFallbackOnce()
	warnPath(pathDense)

	backend := q.Backend()
	out := denseForward(q.Raw(), k.Raw(), v.Raw(), backend, opts)
	return tensor.New[T, B](out, backend)
}

// denseForward runs the reference pipeline at the RawTensor level:
//
//	(B, S, H, D) → (B·H, S, D) → QKᵀ·scale → mask → softmax → ·V → (B, S, H, D)
func denseForward(q, k, v *tensor.RawTensor, backend tensor.Backend, opts Options) *tensor.RawTensor {
	if len(q.Shape()) != 4 || len(k.Shape()) != 4 || len(v.Shape()) != 4 {
		panic("attn: q, k, v must be 4D (batch, seqlen, heads, headdim)")
	}

	// Float16 storage computes in float32.
	inDType := q.DType()
	if inDType == tensor.Float16 {
		q = backend.Cast(q, tensor.Float32)
		k = backend.Cast(k, tensor.Float32)
		v = backend.Cast(v, tensor.Float32)
	}

	batch := q.Shape()[0]
	seqQ := q.Shape()[1]
	heads := q.Shape()[2]
	headDim := q.Shape()[3]
	seqK := k.Shape()[1]

	scale := float64(opts.Scale)
	if scale == 0 {
		scale = 1.0 / math.Sqrt(float64(headDim))
	}

	// Bring heads next to batch and flatten, so one batched matmul stands
	// in for independent per-head attention.
	qf := backend.Reshape(backend.Transpose(q, 0, 2, 1, 3), tensor.Shape{batch * heads, seqQ, headDim})
	kf := backend.Reshape(backend.Transpose(k, 0, 2, 1, 3), tensor.Shape{batch * heads, seqK, headDim})
	vf := backend.Reshape(backend.Transpose(v, 0, 2, 1, 3), tensor.Shape{batch * heads, seqK, headDim})

	// scores = q @ k^T * scale, shape (B·H, Sq, Sk).
	scores := backend.BatchMatMul(qf, backend.Transpose(kf, 0, 2, 1))
	scores = backend.MulScalar(scores, scalarFor(scores.DType(), scale))

	if opts.Causal {
		scores = backend.Add(scores, causalMaskRaw(seqQ, seqK, scores.DType(), backend))
	}

	weights := backend.Softmax(scores, -1)

	out := backend.BatchMatMul(weights, vf)
	out = backend.Transpose(backend.Reshape(out, tensor.Shape{batch, heads, seqQ, headDim}), 0, 2, 1, 3)

	if inDType == tensor.Float16 {
		out = backend.Cast(out, tensor.Float16)
	}
	return out
}

// scalarFor converts a float64 scale into the scalar type the backend
// expects for the given dtype.
func scalarFor(dtype tensor.DataType, v float64) any {
	if dtype == tensor.Float64 {
		return v
	}
	return float32(v)
}

// causalMaskRaw builds an additive mask of shape (1, seqQ, seqK) with -Inf
// strictly above the diagonal, broadcastable over (B·H, Sq, Sk) scores.
func causalMaskRaw(seqQ, seqK int, dtype tensor.DataType, backend tensor.Backend) *tensor.RawTensor {
	mask, err := tensor.NewRaw(tensor.Shape{1, seqQ, seqK}, tensor.Float32, backend.Device())
	if err != nil {
		panic(err)
	}

	data := mask.AsFloat32()
	negInf := float32(math.Inf(-1))
	for i := 0; i < seqQ; i++ {
		for j := i + 1; j < seqK; j++ {
			data[i*seqK+j] = negInf
		}
	}

	if dtype != tensor.Float32 {
		return backend.Cast(mask, dtype)
	}
	return mask
}

// CausalMask creates a causal (autoregressive) attention mask.
//
// The mask is additive: 0 on the diagonal and below (allowed), -Inf strictly
// above (masked). Applied to attention scores before softmax it guarantees
// zero post-softmax weight on future positions:
//
//	// For seqQ = seqK = 4:
//	// [[0,   -inf, -inf, -inf],
//	//  [0,   0,    -inf, -inf],
//	//  [0,   0,    0,    -inf],
//	//  [0,   0,    0,    0   ]]
//
// Shape: (1, seqQ, seqK), broadcastable over both (B·H, Sq, Sk) flattened
// scores and (B, H, Sq, Sk) per-head scores.
func CausalMask[B tensor.Backend](seqQ, seqK int, backend B) *tensor.Tensor[float32, B] {
	return tensor.New[float32, B](causalMaskRaw(seqQ, seqK, tensor.Float32, backend), backend)
}

// ScaledDotProductAttention computes attention in the per-head layout,
// returning the attention weights alongside the output.
//
// This is the same mechanism FlashAttnFunc uses, exposed for callers that
// keep heads as a separate axis or need the weights:
//
//	Attention(Q, K, V) = softmax(QK^T * scale + mask) * V
//
// Parameters:
//   - query: (batch, heads, seqQ, headDim)
//   - key: (batch, heads, seqK, headDim)
//   - value: (batch, heads, seqK, headDim)
//   - mask: optional additive mask, -Inf on forbidden positions, or nil
//   - scale: scaling factor (0 for auto-compute as headDim^(-0.5))
//
// Returns:
//   - output: (batch, heads, seqQ, headDim)
//   - weights: (batch, heads, seqQ, seqK)
func ScaledDotProductAttention[B tensor.Backend](
	query, key, value *tensor.Tensor[float32, B],
	mask *tensor.Tensor[float32, B],
	scale float32,
) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	if len(query.Shape()) != 4 || len(key.Shape()) != 4 || len(value.Shape()) != 4 {
		panic("attn: query, key, value must be 4D (batch, heads, seq, headDim)")
	}

	headDim := query.Shape()[3]
	if scale == 0 {
		scale = float32(1.0 / math.Sqrt(float64(headDim)))
	}

	kT := key.Transpose(0, 1, 3, 2)
	scores := query.BatchMatMul(kT).MulScalar(scale)

	if mask != nil {
		scores = scores.Add(mask)
	}

	weights := scores.Softmax(-1)
	output := weights.BatchMatMul(value)

	return output, weights
}
