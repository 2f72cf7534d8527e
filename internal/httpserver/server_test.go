package httpserver

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/muniheat/dhcore/internal/metrics"
)

func TestHealthEndpointReportsHealthy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 18080
	s, err := New(cfg, metrics.NewRegistry(), "test")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go s.ListenAndServe(ctx)
	defer cancel()
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Get("http://127.0.0.1:18080/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
}

func TestMetricsEndpointUnavailableWithoutRegistry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 18081
	s, err := New(cfg, nil, "test")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go s.ListenAndServe(ctx)
	defer cancel()
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Get("http://127.0.0.1:18081/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 503, resp.StatusCode)
}
