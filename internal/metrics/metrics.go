// Package metrics exposes assistant counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Exchange outcomes
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeQuota = "quota"
)

var (
	Exchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jarvis_exchanges_total",
			Help: "Total number of completed exchanges",
		},
		[]string{"branch", "outcome"},
	)

	ExchangeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jarvis_exchange_duration_seconds",
			Help:    "Exchange duration in seconds, from submission to idle",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
		[]string{"branch"},
	)

	MemoryConsolidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jarvis_memory_consolidations_total",
			Help: "Total number of facts consolidated into long-term memory",
		},
	)

	MemoryRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jarvis_memory_records",
			Help: "Number of records held in long-term memory",
		},
	)
)

// ObserveExchange records one finished exchange
func ObserveExchange(branch, outcome string, started time.Time) {
	Exchanges.WithLabelValues(branch, outcome).Inc()
	ExchangeDuration.WithLabelValues(branch).Observe(time.Since(started).Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("Serving metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
