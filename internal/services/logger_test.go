package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LogLevelDebug,
		" WARN ":  LogLevelWarn,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
		"":        LogLevelInfo,
		"verbose": LogLevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLogLevel(in), "input %q", in)
	}
}

func TestNewLogger_TestEnvIsNoOp(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	_, ok := NewLogger("chatsync").(*NoOpLogger)
	assert.True(t, ok)
}

func TestProductionLogger_LevelAndWith(t *testing.T) {
	l, err := NewProductionLogger("chatsync", LogLevelError, true)
	require.NoError(t, err)

	l.SetLevel(LogLevelDebug)
	child := l.With("session", "abc")
	child.Debug("debug entry", "k", 1)
	child.Info("info entry")
	assert.Equal(t, "ERROR", LogLevelError.String())
}
