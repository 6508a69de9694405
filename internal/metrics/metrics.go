// Package metrics exposes worker counters over HTTP for Prometheus.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tfworker"

// OutcomeSuccess labels iterations that produced a probability. Failures are
// labelled with their error kind.
const OutcomeSuccess = "success"

// Metrics holds the worker collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Iterations          *prometheus.CounterVec
	PredictDuration     prometheus.Histogram
	LastProbability     prometheus.Gauge
	ConsecutiveFailures prometheus.Gauge
}

// New registers the worker collectors plus the Go and process collectors.
func New(model string) *Metrics {
	labels := prometheus.Labels{"model": model}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "iterations_total",
			Help:        "Total number of worker iterations by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		PredictDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "predict_duration_seconds",
			Help:        "Wall-clock time of predict calls, failed ones included",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		LastProbability: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_probability",
			Help:        "Probability returned by the latest successful predict call",
			ConstLabels: labels,
		}),
		ConsecutiveFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "consecutive_failures",
			Help:        "Number of failed iterations since the last success",
			ConstLabels: labels,
		}),
	}
	m.registry.MustRegister(
		m.Iterations,
		m.PredictDuration,
		m.LastProbability,
		m.ConsecutiveFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSuccess records a successful iteration.
func (m *Metrics) ObserveSuccess(took time.Duration, probability float64) {
	m.Iterations.WithLabelValues(OutcomeSuccess).Inc()
	m.PredictDuration.Observe(took.Seconds())
	m.LastProbability.Set(probability)
	m.ConsecutiveFailures.Set(0)
}

// ObserveFailure records a failed iteration of the given kind.
func (m *Metrics) ObserveFailure(kind string, took time.Duration, consecutive int) {
	m.Iterations.WithLabelValues(kind).Inc()
	m.PredictDuration.Observe(took.Seconds())
	m.ConsecutiveFailures.Set(float64(consecutive))
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// Handler serves GET /metrics, GET /healthz and GET /readyz. ready reports
// whether the latest iteration succeeded; nil means always ready.
func (m *Metrics) Handler(ready func() bool) http.Handler {
	router := httprouter.New()
	router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	router.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.GET("/readyz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		if ready != nil && !ready() {
			http.Error(w, "last prediction failed", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return router
}

// Serve listens on addr until ctx is done.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ServeListener(ctx, ln, h)
}

// ServeListener serves h on ln until ctx is done, then shuts down gracefully.
func ServeListener(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
