package logger

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/saiset-co/sai-cache/types"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, zapcore.DebugLevel, parseLogLevel("debug"))
	require.Equal(t, zapcore.InfoLevel, parseLogLevel("info"))
	require.Equal(t, zapcore.WarnLevel, parseLogLevel("warn"))
	require.Equal(t, zapcore.ErrorLevel, parseLogLevel("error"))
	require.Equal(t, zapcore.InfoLevel, parseLogLevel("unknown"))
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("nil config falls back to the default logger", func(t *testing.T) {
		t.Parallel()

		log, err := NewLogger(nil)
		require.NoError(t, err)
		require.NotNil(t, log)
	})

	t.Run("registered custom logger wins", func(t *testing.T) {
		RegisterLogger("custom-nop", func(config interface{}) (types.Logger, error) {
			return NewZapWrapper(zap.NewNop()), nil
		})

		log, err := NewLogger(&types.LoggerConfig{Type: "custom-nop"})
		require.NoError(t, err)
		require.NotNil(t, log)
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NewLogger(&types.LoggerConfig{Type: "syslog"})
		require.ErrorIs(t, err, types.ErrLoggerTypeUnknown)
	})
}

func TestZapWrapper(t *testing.T) {
	t.Parallel()

	log := NewZapWrapper(zap.NewNop())
	log.Debug("debug message", zap.String("key", "value"))
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")
	log.Log(zapcore.InfoLevel, "leveled message")

	wrapper, ok := log.(*ZapWrapper)
	require.True(t, ok)
	wrapper.ErrorWithErrStack("with stack", errors.New("wrapped failure"))
}

func TestExtractStackFromError(t *testing.T) {
	t.Parallel()

	// Errors built with pkg/errors carry frames; plain errors only
	// have their message.
	require.Contains(t, extractStackFromError(errors.New("traced")), "zap_logger_test.go")
	require.Equal(t, "cache key empty", extractStackFromError(types.ErrCacheKeyEmpty))
	require.Empty(t, extractStackFromError(nil))
}
