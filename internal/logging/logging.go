// Package logging configures the process-wide zap logger. All components
// receive a *zap.Logger through their constructors; there is no package-level
// logger state outside this factory.
//
// Logs always go to stderr: when serving MCP, stdout is reserved for the
// protocol stream.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	Level       string // debug, info, warn, error
	Development bool   // human-readable console encoding instead of JSON
}

// New builds a logger writing to stderr at the configured level.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	return zcfg.Build()
}

// NewNop returns a logger that discards everything. Used in tests and as a
// default when a component is constructed without an explicit logger.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
