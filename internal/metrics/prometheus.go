package metrics

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moltbunker/stakedesk/internal/logging"
)

// PrometheusRecorder implements Recorder on a dedicated registry so nothing
// leaks into the global default registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	actions        *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	syncFailures   prometheus.Counter
	state          prometheus.Gauge
	goroutines     prometheus.Gauge
	uptimeSeconds  prometheus.Gauge

	startTime time.Time
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder registers the stakedesk metrics in a new registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()

	p := &PrometheusRecorder{
		registry: reg,
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stakedesk",
			Name:      "actions_total",
			Help:      "Staking actions by action and outcome.",
		}, []string{"action", "outcome"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stakedesk",
			Name:      "action_duration_seconds",
			Help:      "Wall time of staking actions, including wallet confirmation and inclusion.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"action"}),
		syncFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stakedesk",
			Name:      "sync_failures_total",
			Help:      "Balance refreshes that failed and kept the previous snapshot.",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stakedesk",
			Name:      "controller_state",
			Help:      "Current controller state (0 idle, 1 connecting, 2 network checking, 3 submitting, 4 succeeded, 5 failed).",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stakedesk",
			Name:      "goroutine_count",
			Help:      "Number of goroutines.",
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stakedesk",
			Name:      "uptime_seconds",
			Help:      "Time since the client started in seconds.",
		}),
		startTime: time.Now(),
	}

	reg.MustRegister(p.actions, p.actionDuration, p.syncFailures, p.state, p.goroutines, p.uptimeSeconds)
	return p
}

// Registry returns the registry the metrics live in.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// ObserveAction implements Recorder.
func (p *PrometheusRecorder) ObserveAction(action, outcome string, duration time.Duration) {
	p.actions.WithLabelValues(action, outcome).Inc()
	p.actionDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// SyncFailed implements Recorder.
func (p *PrometheusRecorder) SyncFailed() {
	p.syncFailures.Inc()
}

// SetState implements Recorder.
func (p *PrometheusRecorder) SetState(state int) {
	p.state.Set(float64(state))
}

// Handler serves the registry in the Prometheus text format, refreshing the
// process gauges before each scrape.
func (p *PrometheusRecorder) Handler() http.Handler {
	inner := promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.goroutines.Set(float64(runtime.NumGoroutine()))
		p.uptimeSeconds.Set(time.Since(p.startTime).Seconds())
		inner.ServeHTTP(w, r)
	})
}

// Serve exposes /metrics on addr until ctx is done.
func (p *PrometheusRecorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logging.Info("metrics endpoint listening", logging.Component("metrics"), "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
