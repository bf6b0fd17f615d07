package attn

import (
	"github.com/bmwas/lyra/internal/tensor"
)

// FlashAttention is a thin stateful wrapper over FlashAttnFunc, mirroring
// the module-object form of the fused kernel's API.
//
// It binds a softmax scale and a dropout probability at construction and
// carries no other behavior. The dropout probability is held only for
// signature compatibility; it is never applied.
type FlashAttention[T tensor.DType, B tensor.Backend] struct {
	scale    float32
	dropoutP float32
}

// NewFlashAttention creates the wrapper.
//
// softmaxScale of 0 means auto-compute headDim^(-0.5) per call.
// attentionDropout is retained but ignored.
func NewFlashAttention[T tensor.DType, B tensor.Backend](softmaxScale, attentionDropout float32) *FlashAttention[T, B] {
	return &FlashAttention[T, B]{
		scale:    softmaxScale,
		dropoutP: attentionDropout,
	}
}

// Scale returns the bound softmax scale (0 = auto).
func (fa *FlashAttention[T, B]) Scale() float32 {
	return fa.scale
}

// DropoutP returns the bound dropout probability. It has no effect on the
// computation.
func (fa *FlashAttention[T, B]) DropoutP() float32 {
	return fa.dropoutP
}

// Forward computes attention over (batch, seqlen, heads, headdim) tensors,
// forwarding to FlashAttnFunc with causal supplied per call.
func (fa *FlashAttention[T, B]) Forward(q, k, v *tensor.Tensor[T, B], causal bool) *tensor.Tensor[T, B] {
	return FlashAttnFunc(q, k, v, Options{
		Scale:    fa.scale,
		Causal:   causal,
		DropoutP: fa.dropoutP,
	})
}
