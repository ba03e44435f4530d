package dbg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("warn", true)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = NewLogger("chatty", false)
	require.Error(t, err)

	assert.True(t, NewDevLogger().Core().Enabled(zapcore.DebugLevel))
	assert.False(t, NewProdLogger().Core().Enabled(zapcore.DebugLevel))
}
