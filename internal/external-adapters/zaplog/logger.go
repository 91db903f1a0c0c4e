// Package zaplog adapts go.uber.org/zap to the domain Logger interface.
package zaplog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ochairo/pgbrew/internal/domain/interfaces"
)

// Config selects level and encoding of the logger
type Config struct {
	Level  string    // debug, info, warn, error
	Format string    // console or json
	Output io.Writer // defaults to stderr
}

// Logger implements interfaces.Logger on top of a zap logger
type Logger struct {
	z *zap.Logger
}

var _ interfaces.Logger = (*Logger)(nil)

// New builds a logger from cfg
func New(cfg Config) (*Logger, error) {
	level := zap.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", "console", "text":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), zap.NewAtomicLevelAt(level))
	return &Logger{z: zap.New(core, zap.AddStacktrace(zap.ErrorLevel))}, nil
}

// Wrap adapts an existing zap logger
func Wrap(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// Sync flushes buffered entries
func (l *Logger) Sync() error { return l.z.Sync() }

// Debug logs debug-level messages
func (l *Logger) Debug(msg string, fields ...interfaces.Field) { l.z.Debug(msg, toZap(fields)...) }

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interfaces.Field) { l.z.Info(msg, toZap(fields)...) }

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...interfaces.Field) { l.z.Warn(msg, toZap(fields)...) }

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interfaces.Field) { l.z.Error(msg, toZap(fields)...) }

func toZap(fields []interfaces.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			out = append(out, zap.NamedError(f.Key, v))
		case nil:
			out = append(out, zap.Skip())
		default:
			out = append(out, zap.Any(f.Key, v))
		}
	}
	return out
}
