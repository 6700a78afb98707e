package logging_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"calltree2dot/internal/logging"
)

func TestNewLogger(t *testing.T) {
	logger, err := logging.NewLogger("warn")
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.True(t, logger.Core().Enabled(zapcore.ErrorLevel))

	_, err = logging.NewLogger("loud")
	require.Error(t, err)
}
