package crosstarget

import "go.uber.org/zap"

var logger = zap.NewNop()

// SetLogger installs a logger for per-target validation reporting. The
// default is a no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Logger returns the package logger.
func Logger() *zap.Logger {
	return logger
}
