// Package metrics exposes debounce and run counters for Prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vcnkl/settle/debounce"
)

const namespace = "settle"

type Metrics struct {
	registry *prometheus.Registry

	// Debounce counts timer lifecycle events per task.
	Debounce struct {
		Scheduled  *prometheus.CounterVec
		Superseded *prometheus.CounterVec
		Fired      *prometheus.CounterVec
	}

	// Runs counts finished runs per task and status.
	Runs *prometheus.CounterVec
	// RunDuration is the wall time of a finished run.
	RunDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.Debounce.Scheduled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "debounce",
		Name:      "scheduled_total",
		Help:      "Number of times a quiet window was (re)started.",
	}, []string{"task"})
	m.Debounce.Superseded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "debounce",
		Name:      "superseded_total",
		Help:      "Number of pending actions replaced before they ran.",
	}, []string{"task"})
	m.Debounce.Fired = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "debounce",
		Name:      "fired_total",
		Help:      "Number of quiet windows that expired and ran their action.",
	}, []string{"task"})
	m.Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Number of finished task runs.",
	}, []string{"task", "status"})
	m.RunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Time taken by a task run.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"task"})

	m.registry.MustRegister(
		m.Debounce.Scheduled,
		m.Debounce.Superseded,
		m.Debounce.Fired,
		m.Runs,
		m.RunDuration,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records one finished run. status is "success", "failure" or
// "skipped".
func (m *Metrics) ObserveRun(task, status string, d time.Duration) {
	m.Runs.WithLabelValues(task, status).Inc()
	if status != "skipped" {
		m.RunDuration.WithLabelValues(task).Observe(d.Seconds())
	}
}

// Observer returns a debounce.Observer that counts events under task.
func (m *Metrics) Observer(task string) debounce.Observer {
	return &observer{
		scheduled:  m.Debounce.Scheduled.WithLabelValues(task),
		superseded: m.Debounce.Superseded.WithLabelValues(task),
		fired:      m.Debounce.Fired.WithLabelValues(task),
	}
}

type observer struct {
	scheduled, superseded, fired prometheus.Counter
}

func (o *observer) Scheduled()  { o.scheduled.Inc() }
func (o *observer) Superseded() { o.superseded.Inc() }
func (o *observer) Fired()      { o.fired.Inc() }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx ends.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrapf(err, "failed to serve metrics on %s", addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed to shut down metrics server")
	}
	return nil
}
