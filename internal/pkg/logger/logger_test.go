package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("debug")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelDebug, l)

	l, ok = ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, slog.LevelInfo, l)
}

func TestInitHandlers(t *testing.T) {
	for _, h := range []string{HandlerSlogZap, HandlerZapSlog} {
		zl, err := Init("warn", h)
		require.NoError(t, err, h)
		require.NotNil(t, zl)
		assert.NotPanics(t, func() { NewSlogAdapter().Info("hello", "handler", h) })
	}

	_, err := Init("info", "syslog")
	assert.Error(t, err)
}
