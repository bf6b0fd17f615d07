package attn

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bmwas/lyra/internal/backend/cpu"
	"github.com/bmwas/lyra/internal/tensor"
)

// TestAdvisory_OneTimeNoticeFiresOnce checks that the process-wide fallback
// notice is emitted at most once: after forcing the first use, a captured
// window of further calls must contain per-call path records but no repeat
// of the one-time notice.
func TestAdvisory_OneTimeNoticeFiresOnce(t *testing.T) {
	backend := cpu.New()

	q := tensor.Randn[float32](tensor.Shape{1, 2, 1, 4}, backend)
	k := tensor.Randn[float32](tensor.Shape{1, 2, 1, 4}, backend)
	v := tensor.Randn[float32](tensor.Shape{1, 2, 1, 4}, backend)

	// Make sure the one-time notice has already fired.
	FlashAttnFunc(q, k, v, Options{})

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	FlashAttnFunc(q, k, v, Options{})
	if _, err := FlashAttnVarlenFunc[float32, *cpu.CPUBackend](q, k, v, nil, nil, 2, 2, Options{}); err != nil {
		t.Fatalf("varlen call failed: %v", err)
	}

	logged := buf.String()
	assert.NotContains(t, logged, "fused attention kernel unavailable")
	assert.Equal(t, 1, strings.Count(logged, "path=dense"))
	assert.Equal(t, 1, strings.Count(logged, "path=varlen"))
}
