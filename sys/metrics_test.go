package sys

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServer(t *testing.T) {
	srv := httptest.NewServer(NewMetricsServer(":0").Handler)
	defer srv.Close()

	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestGetHostStats(t *testing.T) {
	stats, err := GetHostStats()
	if err != nil {
		t.Skipf("host stats unavailable: %v", err)
	}
	assert.Positive(t, stats.Goroutines)
	assert.GreaterOrEqual(t, stats.MemoryPercent, 0.0)
}
