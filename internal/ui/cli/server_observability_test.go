package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slicer/internal/core/app"
	"slicer/internal/core/config"
	"slicer/internal/data/history"
)

func newHealth(t *testing.T, withStore bool) *app.HealthService {
	t.Helper()
	cfg := config.DefaultConfig()
	opts := []app.Option{app.WithWorkingDir(t.TempDir())}
	if withStore {
		store, err := history.Open(filepath.Join(t.TempDir(), "h.db"), time.Second)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		opts = append(opts, app.WithHistory(store))
	} else {
		cfg.History.Enabled = true
	}
	a, err := app.New(cfg, opts...)
	require.NoError(t, err)
	return app.NewHealthService(a)
}

func TestObservabilityServerHealth(t *testing.T) {
	t.Run("up", func(t *testing.T) {
		srv := NewObservabilityServer("", newHealth(t, true))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var status app.HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, "up", status.Status)
		assert.Equal(t, "ok", status.Components["history"])
	})

	t.Run("degraded", func(t *testing.T) {
		srv := NewObservabilityServer("", newHealth(t, false))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "missing but enabled in config")
	})
}

func TestObservabilityServerServesMetrics(t *testing.T) {
	srv := NewObservabilityServer("127.0.0.1:0", newHealth(t, true))
	require.NoError(t, srv.Start(context.Background()))
	defer srv.Stop(context.Background())

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestObservabilityServerRejectsBadAddress(t *testing.T) {
	srv := NewObservabilityServer("not-an-address", nil)
	assert.Error(t, srv.Start(context.Background()))
}
