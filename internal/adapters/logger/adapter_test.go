// Package logger provides the zap-backed logging adapter.
package logger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	adapter := New(Options{Level: "debug", AppName: "branchpin"})
	require.NotNil(t, adapter)

	// Must not panic on any level.
	ctx := context.Background()
	adapter.Debug(ctx, "debug message", map[string]interface{}{"k": "v"})
	adapter.Info(ctx, "info message", nil)
	adapter.Warn(ctx, "warn message", map[string]interface{}{"n": 1})
	adapter.Error(ctx, "error message", errors.New("boom"), nil)
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	adapter := New(Options{Level: "chatty"})
	require.NotNil(t, adapter)
	adapter.Info(context.Background(), "still works", nil)
}

func TestNew_WithFileSink(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "branchpin.log")
	adapter := New(Options{Level: "info", File: logFile})

	adapter.Info(context.Background(), "written to file", map[string]interface{}{"k": "v"})
	require.NoError(t, adapter.Sync())

	assert.FileExists(t, logFile)
}

func TestToZapFields_SortedAndStable(t *testing.T) {
	fields := toZapFields(map[string]interface{}{
		"zeta":  1,
		"alpha": "a",
		"mid":   true,
	})

	require.Len(t, fields, 3)
	assert.Equal(t, zap.Any("alpha", "a"), fields[0])
	assert.Equal(t, zap.Any("mid", true), fields[1])
	assert.Equal(t, zap.Any("zeta", 1), fields[2])
}

func TestToZapFields_Empty(t *testing.T) {
	assert.Nil(t, toZapFields(nil))
	assert.Nil(t, toZapFields(map[string]interface{}{}))
}

func TestNewNop(t *testing.T) {
	adapter := NewNop()
	require.NotNil(t, adapter)
	adapter.Error(context.Background(), "discarded", errors.New("boom"), nil)
}
