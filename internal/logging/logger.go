package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Verbose bool      // debug level
	JSON    bool      // JSON encoder instead of console
	Out     io.Writer // defaults to stderr; stdout carries the result
}

// New builds the process logger.
func New(o Options) *zap.Logger {
	out := o.Out
	if out == nil {
		out = os.Stderr
	}
	level := zapcore.InfoLevel
	if o.Verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if o.JSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), level)
	return zap.New(core)
}

// Redact keeps the first few characters of a credential.
func Redact(s string) string {
	const keep = 6
	if len(s) <= keep {
		return "***"
	}
	return s[:keep] + "***"
}
