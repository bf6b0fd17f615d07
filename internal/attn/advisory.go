package attn

import (
	"log/slog"
	"sync"
)

// path identifies which fallback entry point served a call.
type path string

const (
	pathDense  path = "dense"
	pathVarlen path = "varlen"
)

var fallbackOnce sync.Once

// warnFallbackOnce emits the process-wide advisory that the slow reference
// path is active. It fires exactly once, at first use, and is never reset.
func warnFallbackOnce() {
	fallbackOnce.Do(func() {
		slog.Warn("fused attention kernel unavailable, using CPU fallback",
			"hint", "install the accelerated kernel for better performance")
	})
}

// warnPath emits the per-call advisory naming the path taken.
func warnPath(p path) {
	switch p {
	case pathVarlen:
		slog.Warn("variable-length attention fallback not implemented, using dense path",
			"path", string(p))
	default:
		slog.Warn("using CPU attention fallback, performance will be degraded",
			"path", string(p))
	}
}
