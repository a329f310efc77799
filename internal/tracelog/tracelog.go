// Package tracelog provides the structured debug logging used by the
// decoder and translator (SPEC_FULL.md "Ambient Stack / Logging"), built on
// go.uber.org/zap the way wippyai/wasm-runtime wires zap around its wazero
// host.
package tracelog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.RWMutex
	logger *zap.SugaredLogger
)

func init() {
	// Default to a no-op logger so library use never prints unless a
	// caller opts in via SetVerbose/SetLogger.
	logger = zap.NewNop().Sugar()
}

// L returns the process-wide sugared logger used for decode/translate
// tracing.
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLogger replaces the process-wide logger, e.g. to wire in a
// development config from cmd/wasm2js's --verbose flag.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l.Sugar()
}

// SetVerbose switches to a human-readable development logger at debug
// level, or back to a no-op logger.
func SetVerbose(verbose bool) error {
	if !verbose {
		SetLogger(zap.NewNop())
		return nil
	}
	cfg := zap.NewDevelopmentConfig()
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}
