// Package metrics exposes Prometheus counters and histograms for the
// template pipeline, plus an optional /metrics HTTP listener.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the pipeline's instruments. A nil *Metrics is safe to use;
// every method is a no-op on it.
type Metrics struct {
	ingests       *prometheus.CounterVec
	matches       *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

// New registers the pipeline instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ingests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "draftforge_ingests_total",
			Help: "Document ingests by outcome (created, duplicate, error).",
		}, []string{"outcome"}),
		matches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "draftforge_matches_total",
			Help: "Template match requests by outcome (accepted, rejected, fallback, error).",
		}, []string{"outcome"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "draftforge_fallbacks_total",
			Help: "Web fallback runs by outcome (created, duplicate, no_results, no_usable_content, generation_failed, error).",
		}, []string{"outcome"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "draftforge_stage_duration_seconds",
			Help:    "Pipeline stage latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
	}
}

// Default registers on the global Prometheus registry.
func Default() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

func (m *Metrics) IngestOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ingests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) MatchOutcome(outcome string) {
	if m == nil {
		return
	}
	m.matches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) FallbackOutcome(outcome string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(outcome).Inc()
}

// ObserveStage records the latency of one pipeline stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Serve runs a /metrics listener until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics listener shutdown", zap.Error(err))
		}
	}()

	logger.Info("metrics listener started", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
