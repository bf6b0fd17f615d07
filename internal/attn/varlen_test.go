package attn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmwas/lyra/internal/backend/cpu"
	"github.com/bmwas/lyra/internal/tensor"
)

// TestFlashAttnVarlenFunc_UniformMatchesDense checks that uniform offsets
// produce output identical to the dense entry point — the documented
// behavior of the unimplemented ragged path.
func TestFlashAttnVarlenFunc_UniformMatchesDense(t *testing.T) {
	backend := cpu.New()
	batch, seqLen := 2, 4

	q := tensor.Randn[float32](tensor.Shape{batch, seqLen, 2, 8}, backend)
	k := tensor.Randn[float32](tensor.Shape{batch, seqLen, 2, 8}, backend)
	v := tensor.Randn[float32](tensor.Shape{batch, seqLen, 2, 8}, backend)

	// Cumulative offsets for two sequences of the full length.
	cu, err := tensor.FromSlice([]int32{0, 4, 8}, tensor.Shape{batch + 1}, backend)
	require.NoError(t, err)

	dense := FlashAttnFunc(q, k, v, Options{Causal: true})
	varlen, err := FlashAttnVarlenFunc(q, k, v, cu, cu, seqLen, seqLen, Options{Causal: true})
	require.NoError(t, err)

	require.Equal(t, dense.Data(), varlen.Data())
}

// TestFlashAttnVarlenFunc_NilOffsets treats missing offsets as uniform.
func TestFlashAttnVarlenFunc_NilOffsets(t *testing.T) {
	backend := cpu.New()

	q := tensor.Randn[float32](tensor.Shape{1, 3, 1, 4}, backend)
	k := tensor.Randn[float32](tensor.Shape{1, 3, 1, 4}, backend)
	v := tensor.Randn[float32](tensor.Shape{1, 3, 1, 4}, backend)

	dense := FlashAttnFunc(q, k, v, Options{})
	varlen, err := FlashAttnVarlenFunc[float32, *cpu.CPUBackend](q, k, v, nil, nil, 3, 3, Options{})
	require.NoError(t, err)

	require.Equal(t, dense.Data(), varlen.Data())
}

// TestFlashAttnVarlenFunc_RaggedRejected checks that genuinely ragged
// offsets are rejected instead of silently computing wrong results.
func TestFlashAttnVarlenFunc_RaggedRejected(t *testing.T) {
	backend := cpu.New()
	batch, seqLen := 2, 4

	q := tensor.Randn[float32](tensor.Shape{batch, seqLen, 1, 8}, backend)
	k := tensor.Randn[float32](tensor.Shape{batch, seqLen, 1, 8}, backend)
	v := tensor.Randn[float32](tensor.Shape{batch, seqLen, 1, 8}, backend)

	// Lengths 3 and 2: a real ragged batch.
	cu, err := tensor.FromSlice([]int32{0, 3, 5}, tensor.Shape{batch + 1}, backend)
	require.NoError(t, err)

	out, err := FlashAttnVarlenFunc(q, k, v, cu, cu, seqLen, seqLen, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVarlenUnsupported), "error = %v, want ErrVarlenUnsupported", err)
	assert.Nil(t, out)
}

// TestFlashAttnVarlenFunc_BadOffsetCount rejects offset tensors that do not
// hold batch+1 entries.
func TestFlashAttnVarlenFunc_BadOffsetCount(t *testing.T) {
	backend := cpu.New()

	q := tensor.Randn[float32](tensor.Shape{2, 4, 1, 8}, backend)
	k := tensor.Randn[float32](tensor.Shape{2, 4, 1, 8}, backend)
	v := tensor.Randn[float32](tensor.Shape{2, 4, 1, 8}, backend)

	cu, err := tensor.FromSlice([]int32{0, 4}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	_, err = FlashAttnVarlenFunc(q, k, v, cu, cu, 4, 4, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVarlenUnsupported))
}
