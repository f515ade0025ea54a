// Package log holds the process-wide zap logger.
package log

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.RWMutex
	logger = mustBuild(false)
)

func mustBuild(debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// SetDebug swaps the logger for a development logger at debug level, or back
// to the production logger.
func SetDebug(debug bool) {
	l := mustBuild(debug)
	mu.Lock()
	old := logger
	logger = l
	mu.Unlock()
	_ = old.Sync()
}

// Set replaces the logger, mainly for tests.
func Set(l *zap.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

func Get() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
