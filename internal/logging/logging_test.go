package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestLogger_KeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core)).With("component", "console")

	l.Info("workflow selected", "workflow_id", "w1")
	l.Warn("stale response", "workflow_id", "w0")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "workflow selected", entries[0].Message)
		assert.Equal(t, "w1", entries[0].ContextMap()["workflow_id"])
		assert.Equal(t, "console", entries[0].ContextMap()["component"])
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	}
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(Options{Level: "debug", Format: "console"})
	assert.NoError(t, err)
	assert.NotNil(t, l)

	NewNop().Error("dropped", "k", "v")
}
