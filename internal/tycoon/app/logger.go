package app

import (
	"fmt"

	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/config"
	"go.uber.org/zap"
)

// NewLogger builds the process logger: the zap production config for json,
// the development config for console.
func NewLogger(cfg config.ObservabilityConfig) (*zap.Logger, error) {
	var zc zap.Config
	switch cfg.LogFormat {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}

	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		zc.Level = level
	}
	return zc.Build()
}
