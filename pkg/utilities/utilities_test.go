package utilities

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewRequestID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 2000)
	for range 2000 {
		id := NewRequestID()
		require.NotEmpty(t, id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestNewKSUID(t *testing.T) {
	assert.Len(t, NewKSUID(), 27)
	assert.NotEqual(t, NewKSUID(), NewKSUID())
}

func TestLevelFromString(t *testing.T) {
	for in, want := range map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	} {
		assert.Equal(t, want, levelFromString(in), in)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_DEV", "1")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FILE", "")
	t.Setenv("LOG_MAX_AGE_DAYS", "x")

	cfg := ConfigFromEnv()
	assert.True(t, cfg.Dev)
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, 7, cfg.MaxAgeDays)
}

func TestInit_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.log")
	lg, err := Init(Config{Level: "info", File: path, MaxAgeDays: 1})
	require.NoError(t, err)

	lg.Sugar().Infow("hello file", "k", "v")
	lg.Debug("dropped")
	_ = lg.Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), `"msg":"hello file"`))
	assert.False(t, strings.Contains(string(b), "dropped"))
}
