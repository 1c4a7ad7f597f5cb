// Package logging builds the zap loggers shared by the pericope binaries.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a production zap logger filtered at the named level.
// Blank or unrecognized levels fall back to info.
func NewLogger(level string) (*zap.Logger, error) {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if normalized == "warning" {
		normalized = "warn"
	}

	threshold := zapcore.InfoLevel
	if normalized != "" {
		if parsed, err := zapcore.ParseLevel(normalized); err == nil {
			threshold = parsed
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(threshold)
	return cfg.Build()
}
