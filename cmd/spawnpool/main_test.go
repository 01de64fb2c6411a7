package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/spawnpool/internal/simulation"
	"github.com/ajitpratap0/spawnpool/pkg/errors"
	"github.com/ajitpratap0/spawnpool/pkg/testutil"
)

const simYAML = `
name: cli-test
seed: 3
ticks: 500
scene:
  max_nodes: 200
prototypes:
  - name: Bullet
    reserve: 16
    preload: 4
    spawn_rate: 0.9
    despawn_rate: 0.8
  - name: Enemy
    spawn_rate: 0.4
    despawn_rate: 0.3
external_destroy_rate: 0.05
logging:
  level: error
`

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "spawnpool v"+version)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := testutil.WriteFile(t, "sim.yaml", []byte(simYAML))
	t.Setenv("SPAWNPOOL_SEED", "77")

	cmd := newRunCmd()
	v := bindConfig(cmd.Flags())
	require.NoError(t, cmd.Flags().Set("config", path))
	require.NoError(t, cmd.Flags().Set("ticks", "12"))
	require.NoError(t, cmd.Flags().Set("release-guard", "true"))

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "cli-test", cfg.Name)
	assert.Equal(t, uint64(77), cfg.Seed)
	assert.Equal(t, 12, cfg.Ticks)
	assert.True(t, cfg.Pool.ReleaseGuard)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadConfigDefaultsAndErrors(t *testing.T) {
	cmd := newRunCmd()
	v := bindConfig(cmd.Flags())
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Name)

	require.NoError(t, cmd.Flags().Set("ticks", "-1"))
	_, err = loadConfig(v)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	cmd = newRunCmd()
	v = bindConfig(cmd.Flags())
	require.NoError(t, cmd.Flags().Set("config", filepath.Join(t.TempDir(), "nope.yaml")))
	_, err = loadConfig(v)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestRunCommandWritesReport(t *testing.T) {
	path := testutil.WriteFile(t, "sim.yaml", []byte(simYAML))
	reportPath := filepath.Join(t.TempDir(), "report.json.zst")
	eventsPath := filepath.Join(t.TempDir(), "events.jsonl")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"run", "--config", path, "--ticks", "100", "--report", reportPath, "--events", eventsPath})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), `Simulation "cli-test" finished`)
	assert.Contains(t, out.String(), "pool Bullet")
	assert.Contains(t, out.String(), "pool Enemy")

	report, err := simulation.ReadReport(reportPath)
	require.NoError(t, err)
	assert.Equal(t, "cli-test", report.Name)
	assert.Equal(t, 100, report.Ticks)
	assert.Len(t, report.Pools, 2)

	events, err := os.ReadFile(eventsPath)
	require.NoError(t, err)
	assert.Contains(t, string(events), `"kind":"created"`)
}
