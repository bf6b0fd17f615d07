package attn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmwas/lyra/internal/backend/cpu"
	"github.com/bmwas/lyra/internal/tensor"
)

// TestFlashAttention_ForwardMatchesFunc checks that the wrapper object
// forwards its bound scale and causal flag to FlashAttnFunc unchanged.
func TestFlashAttention_ForwardMatchesFunc(t *testing.T) {
	backend := cpu.New()

	q := tensor.Randn[float32](tensor.Shape{2, 4, 2, 8}, backend)
	k := tensor.Randn[float32](tensor.Shape{2, 4, 2, 8}, backend)
	v := tensor.Randn[float32](tensor.Shape{2, 4, 2, 8}, backend)

	fa := NewFlashAttention[float32, *cpu.CPUBackend](0.25, 0.1)

	for _, causal := range []bool{false, true} {
		got := fa.Forward(q, k, v, causal)
		want := FlashAttnFunc(q, k, v, Options{Scale: 0.25, Causal: causal})
		require.Equal(t, want.Data(), got.Data(), "causal=%v", causal)
	}
}

// TestFlashAttention_Accessors checks the bound configuration.
func TestFlashAttention_Accessors(t *testing.T) {
	fa := NewFlashAttention[float32, *cpu.CPUBackend](0.5, 0.2)

	assert.Equal(t, float32(0.5), fa.Scale())
	assert.Equal(t, float32(0.2), fa.DropoutP())
}

// TestFlashAttention_DropoutHasNoEffect checks that two wrappers differing
// only in dropout probability produce bit-identical output.
func TestFlashAttention_DropoutHasNoEffect(t *testing.T) {
	backend := cpu.New()

	q := tensor.Randn[float32](tensor.Shape{1, 4, 1, 8}, backend)
	k := tensor.Randn[float32](tensor.Shape{1, 4, 1, 8}, backend)
	v := tensor.Randn[float32](tensor.Shape{1, 4, 1, 8}, backend)

	dry := NewFlashAttention[float32, *cpu.CPUBackend](0, 0)
	wet := NewFlashAttention[float32, *cpu.CPUBackend](0, 0.9)

	require.Equal(t, dry.Forward(q, k, v, true).Data(), wet.Forward(q, k, v, true).Data())
}
