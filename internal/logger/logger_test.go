package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	testCases := []struct {
		level  string
		format string
		want   zapcore.Level
	}{
		{"debug", "console", zapcore.DebugLevel},
		{"info", "json", zapcore.InfoLevel},
		{"warn", "", zapcore.WarnLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.level+"/"+tc.format, func(t *testing.T) {
			log, err := NewLogger(tc.level, tc.format)
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tc.want))
			assert.False(t, log.Core().Enabled(tc.want-1))
		})
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger("verbose", "console")
	assert.Error(t, err)
}
