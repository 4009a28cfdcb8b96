package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func captureLogs(tb testing.TB) *bytes.Buffer {
	var buf bytes.Buffer
	prev := logWriter
	logWriter = &buf
	tb.Cleanup(func() { logWriter = prev })
	return &buf
}

func plainEncoder() zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	return zapcore.NewConsoleEncoder(cfg)
}

func TestLogLevel(t *testing.T) {
	buf := captureLogs(t)

	hooked := 0
	hook := func(entry zapcore.Entry) error {
		hooked++
		require.Equal(t, zapcore.WarnLevel, entry.Level)
		return nil
	}
	root := NewWithLevel("diffa", zap.NewAtomicLevelAt(zapcore.WarnLevel), plainEncoder(), hook)
	root.Info("hidden")
	require.Empty(t, buf.String())

	root.Warn("shown")
	require.Equal(t, "WARN\tdiffa\tshown\n", buf.String())
	require.Equal(t, 1, hooked)
}

func TestDecodeLevels(t *testing.T) {
	type cfg struct {
		Store     string `mapstructure:"store"`
		Interview string `mapstructure:"interview"`
		Unset     string `mapstructure:"unset"`
	}
	levels, err := DecodeLevels(cfg{Store: "debug", Interview: "error"})
	require.NoError(t, err)
	require.Len(t, levels, 2)
	require.Equal(t, zapcore.DebugLevel, levels["store"].Level())
	require.Equal(t, zapcore.ErrorLevel, levels["interview"].Level())

	_, err = DecodeLevels(map[string]string{"store": "loud"})
	require.ErrorContains(t, err, "store")
}

func TestNamedLevels(t *testing.T) {
	buf := captureLogs(t)
	root := NewWithLevel("diffa", zap.NewAtomicLevelAt(zapcore.DebugLevel), plainEncoder())
	levels, err := DecodeLevels(map[string]string{"store": "error"})
	require.NoError(t, err)

	levels.Named(root, "store").Warn("hidden")
	require.Empty(t, buf.String())

	levels.Named(root, "store").Error("shown")
	require.Equal(t, "ERROR\tdiffa.store\tshown\n", buf.String())
	buf.Reset()

	levels.Named(root, "interview").Debug("hidden")
	levels.Named(root, "interview").Info("default")
	require.Equal(t, "INFO\tdiffa.interview\tdefault\n", buf.String())
}

func TestSetLevelHooked(t *testing.T) {
	buf := captureLogs(t)
	hooked := 0
	hook := func(zapcore.Entry) error {
		hooked++
		return nil
	}
	root := NewWithLevel("diffa", zap.NewAtomicLevelAt(zapcore.DebugLevel), plainEncoder(), hook)

	store := SetLevel(root.Named("store"), zap.NewAtomicLevelAt(zapcore.ErrorLevel))
	store.Info("hidden")
	require.Empty(t, buf.String())
	require.Zero(t, hooked)

	store.Error("shown")
	require.Equal(t, "ERROR\tdiffa.store\tshown\n", buf.String())
	require.Equal(t, 1, hooked)
	buf.Reset()

	SetLevel(root.Named("interview"), zap.NewAtomicLevelAt(zapcore.InfoLevel)).
		With(zap.Int("round", 1)).Info("asked")
	require.Equal(t, "INFO\tdiffa.interview\tasked\t{\"round\": 1}\n", buf.String())
	require.Equal(t, 2, hooked)
}
