package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewDiagnostic builds the console logger used for progress and warnings. The
// report log stays separate so its lines are never interleaved with these.
func NewDiagnostic(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}
