package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TileFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wander",
		Subsystem: "tiles",
		Name:      "fetches_total",
		Help:      "Total tile fetches by provider and outcome",
	}, []string{"provider", "outcome"})

	TileFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wander",
		Subsystem: "tiles",
		Name:      "fetch_duration_seconds",
		Help:      "Tile fetch latency in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"provider"})

	TileCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wander",
		Subsystem: "tiles",
		Name:      "cache_hits_total",
		Help:      "Total tile cache hits",
	}, []string{"layer"})

	TileCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wander",
		Subsystem: "tiles",
		Name:      "cache_misses_total",
		Help:      "Total tile cache misses",
	}, []string{"layer"})

	PanoramaFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wander",
		Subsystem: "panorama",
		Name:      "fetches_total",
		Help:      "Total panorama fetches by outcome",
	}, []string{"outcome"})

	PanoramaFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "wander",
		Subsystem: "panorama",
		Name:      "fetch_duration_seconds",
		Help:      "Panorama fetch latency in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	CircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "wander",
		Subsystem: "http",
		Name:      "circuit_open",
		Help:      "1 when the named circuit breaker is open",
	}, []string{"name"})
)

// ObserveFetch records one provider fetch.
func ObserveFetch(provider string, start time.Time, err error) {
	TileFetches.WithLabelValues(provider, outcome(err)).Inc()
	TileFetchDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}

// ObservePanoramaFetch records one panorama image fetch.
func ObservePanoramaFetch(start time.Time, err error) {
	PanoramaFetches.WithLabelValues(outcome(err)).Inc()
	PanoramaFetchDuration.Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Serve exposes /metrics on addr until ctx is done. An empty addr disables it.
func Serve(ctx context.Context, addr string, logger *slog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
}
