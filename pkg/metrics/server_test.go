package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestServerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPoolMetrics(reg)
	m.ObserveAcquire("Bullet", true)

	srv := NewServer("127.0.0.1:0", reg, zaptest.NewLogger(t))
	require.NoError(t, srv.Activate())
	defer func() { assert.NoError(t, srv.Deactivate(context.Background())) }()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `spawnpool_pool_acquires_total{pool="Bullet",result="hit"} 1`)
}

func TestServerActivateReportsBindErrors(t *testing.T) {
	srv := NewServer("127.0.0.1:-1", prometheus.NewRegistry(), nil)
	assert.Error(t, srv.Activate())
	assert.Equal(t, "127.0.0.1:-1", srv.Addr())
}
