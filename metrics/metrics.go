// Package metrics exposes a verifier run's progress as Prometheus gauges
// and counters behind the --metrics-addr flag: a small registry of
// counters/gauges served over HTTP via promhttp. The CLI records the cycle
// counter and gauge once Simulator.Run returns; nothing in this repository
// calls CheckRan, ViolationRaised or WarningRaised.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector tracks the counters and gauges a verifier run publishes.
type Collector struct {
	registry *prometheus.Registry

	cyclesSimulated prometheus.Counter
	checksRun       *prometheus.CounterVec
	violations      prometheus.Counter
	warnings        prometheus.Counter
	currentCycle    prometheus.Gauge
}

// New builds a Collector with its own registry, so that multiple verifier
// runs in one process (e.g. one per gadget in a batch) don't collide on
// metric names.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		cyclesSimulated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "matchi",
			Name:      "cycles_simulated_total",
			Help:      "Number of simulation cycles completed.",
		}),
		checksRun: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchi",
			Name:      "checks_run_total",
			Help:      "Number of safety-check invocations, by check name.",
		}, []string{"check"}),
		violations: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "matchi",
			Name:      "violations_total",
			Help:      "Number of fatal security violations raised.",
		}),
		warnings: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "matchi",
			Name:      "warnings_total",
			Help:      "Number of non-fatal warnings raised.",
		}),
		currentCycle: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "matchi",
			Name:      "current_cycle",
			Help:      "Cycle index currently being simulated.",
		}),
	}
	return c
}

// CycleCompleted records that one simulation cycle finished.
func (c *Collector) CycleCompleted(cycle int) {
	c.cyclesSimulated.Inc()
	c.currentCycle.Set(float64(cycle))
}

// CheckRan records one invocation of the named safety check
// ("wire_sensitivity", "transition_leakage", "pipeline_inputs",
// "randomness_single_use", "output_discipline").
func (c *Collector) CheckRan(name string) {
	c.checksRun.WithLabelValues(name).Inc()
}

// ViolationRaised records a fatal security violation.
func (c *Collector) ViolationRaised() { c.violations.Inc() }

// WarningRaised records a non-fatal warning.
func (c *Collector) WarningRaised() { c.warnings.Inc() }

// Serve starts an HTTP server exposing this Collector's registry at /metrics
// on addr, returning once the context is cancelled or the server fails.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
