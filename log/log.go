// Package log builds zap loggers for the command line and tests.
package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// ConsoleEncoding writes plain text.
	ConsoleEncoding = "console"
	// JSONEncoding writes one JSON object per entry.
	JSONEncoding = "json"
)

// where logs go by default.
var logWriter io.Writer = os.Stderr

// DefaultLevel is used for modules without a configured level.
func DefaultLevel() zapcore.Level {
	return zapcore.InfoLevel
}

// Encoder returns the zap encoder for the encoding name.
func Encoder(encoding string) (zapcore.Encoder, error) {
	switch encoding {
	case "", ConsoleEncoding:
		return zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), nil
	case JSONEncoding:
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), nil
	}
	return nil, fmt.Errorf("unknown log encoding %q", encoding)
}

// NewWithLevel creates a logger with a fixed level and with a set of (optional) hooks.
func NewWithLevel(module string,
	level zap.AtomicLevel,
	encoder zapcore.Encoder,
	hooks ...func(zapcore.Entry) error,
) *zap.Logger {
	core := zapcore.NewCore(encoder, zapcore.AddSync(logWriter), level)
	if len(hooks) > 0 {
		core = zapcore.RegisterHooks(core, hooks...)
	}
	return zap.New(core).Named(module)
}

// SetLevel returns a logger derived from l that logs at level. Unlike
// zap.IncreaseLevel the level may be lower than the level of l, entries still
// pass through the core of l so it must be created with the lowest level any
// module uses.
func SetLevel(l *zap.Logger, level zap.AtomicLevel) *zap.Logger {
	return l.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &coreWithLevel{Core: core, lvl: level}
	}))
}

type coreWithLevel struct {
	zapcore.Core
	lvl zap.AtomicLevel
}

func (c *coreWithLevel) Enabled(level zapcore.Level) bool {
	return c.lvl.Enabled(level)
}

func (c *coreWithLevel) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.lvl.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *coreWithLevel) With(fields []zapcore.Field) zapcore.Core {
	return &coreWithLevel{Core: c.Core.With(fields), lvl: c.lvl}
}
