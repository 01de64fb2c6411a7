package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestInitWritesToConfiguredPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spawnpool.log")
	require.NoError(t, Init(Config{Level: "debug", Encoding: "json", OutputPaths: []string{path}}))

	ctx := ContextWithRunID(context.Background(), "run-7")
	ctx = context.WithValue(ctx, PoolKey, "bullet")
	WithContext(ctx).Info("pool ready")
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id":"run-7"`)
	assert.Contains(t, string(data), `"pool":"bullet"`)
	assert.Contains(t, string(data), `"message":"pool ready"`)
}

func TestGetReturnsLogger(t *testing.T) {
	assert.NotNil(t, Get())
	assert.NotNil(t, With())
}
