package sys

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMetricsServer returns an HTTP server exposing /metrics on addr.
func NewMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// RegisterMetricsDaemon serves metrics for the lifetime of the bot when
// METRICS_ADDR is set.
func RegisterMetricsDaemon(cfg *Config) {
	RegisterDaemon(LogMetrics, func(ctx context.Context) (bool, func(), func()) {
		if cfg == nil || cfg.MetricsAddr == "" {
			return false, nil, nil
		}
		srv := NewMetricsServer(cfg.MetricsAddr)
		run := func() {
			LogMetrics(MsgMetricsListening, cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				LogError(MsgMetricsServeFail, err)
			}
		}
		shutdown := func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}
		return true, run, shutdown
	})
}
