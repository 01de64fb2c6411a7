// Package testutil provides testing utilities for spawnpool
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/spawnpool/pkg/config"
	"github.com/ajitpratap0/spawnpool/pkg/scene"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// AssertEventually asserts that a condition becomes true within the specified timeout.
// It checks the condition every 10ms until it succeeds or the timeout expires.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// NewScene returns a scene logging to the test output. It is closed when the
// test completes.
func NewScene(t *testing.T, opts ...scene.Option) *scene.Scene {
	t.Helper()
	opts = append([]scene.Option{scene.WithLogger(TestLogger(t))}, opts...)
	s := scene.New(t.Name(), opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// SmallSimulation returns a valid, fast simulation config with tracing and
// metrics off.
func SmallSimulation() *config.SimulationConfig {
	cfg := config.Default()
	cfg.Name = "test"
	cfg.Seed = 7
	cfg.Ticks = 200
	cfg.Scene.MaxNodes = 1000
	cfg.Pool.ReleaseGuard = true
	return cfg
}

// WriteFile writes content under the test's temp dir and returns the path.
func WriteFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}
