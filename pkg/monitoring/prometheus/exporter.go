// Package prometheus exposes a sweep's live progress as Prometheus
// gauges. In the framework this module is adapted from, this package
// was a query client reading an external Prometheus server; a sweep
// has no such server to query - it is itself the thing an operator
// wants to observe while it runs - so this is an exporter instead:
// it owns a registry and an HTTP handler, and the Runner pushes
// observations into it as cells start and finish.
package prometheus

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter holds the live gauges a running sweep updates and serves
// them over /metrics.
type Exporter struct {
	registry *prometheus.Registry

	cellsTotal     prometheus.Gauge
	cellsCompleted prometheus.Gauge
	cellsInFlight  prometheus.Gauge
	cellsAborted   prometheus.Gauge

	blockingRatio  *prometheus.GaugeVec
	restorability  *prometheus.GaugeVec

	server *http.Server
}

// NewExporter builds an Exporter with a fresh registry holding only the
// sweep gauges below; no process or Go runtime collectors are registered.
func NewExporter() *Exporter {
	registry := prometheus.NewRegistry()

	e := &Exporter{
		registry: registry,
		cellsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cascade_sim",
			Name:      "sweep_cells_total",
			Help:      "Total number of cells in the current sweep plan.",
		}),
		cellsCompleted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cascade_sim",
			Name:      "sweep_cells_completed",
			Help:      "Number of cells that have finished executing.",
		}),
		cellsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cascade_sim",
			Name:      "sweep_cells_in_flight",
			Help:      "Number of cells currently executing.",
		}),
		cellsAborted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cascade_sim",
			Name:      "sweep_cells_aborted",
			Help:      "Number of cells that aborted on an invariant violation.",
		}),
		blockingRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cascade_sim",
			Name:      "cell_request_blocking_ratio",
			Help:      "Most recent request blocking ratio reported by a (routing, restoration, load) cell.",
		}, []string{"routing", "restoration", "load"}),
		restorability: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cascade_sim",
			Name:      "cell_restorability",
			Help:      "Most recent restorability ratio reported by a (routing, restoration, load) cell.",
		}, []string{"routing", "restoration", "load"}),
	}

	registry.MustRegister(e.cellsTotal, e.cellsCompleted, e.cellsInFlight, e.cellsAborted, e.blockingRatio, e.restorability)
	return e
}

// SetPlanSize records the total number of cells a sweep will execute.
func (e *Exporter) SetPlanSize(n int) {
	e.cellsTotal.Set(float64(n))
}

// CellStarted increments the in-flight gauge.
func (e *Exporter) CellStarted() {
	e.cellsInFlight.Inc()
}

// CellFinished decrements in-flight, increments completed (and aborted
// if applicable), and records the cell's latest blocking/restorability
// snapshot under its (routing, restoration, load) label set.
func (e *Exporter) CellFinished(routing, restoration string, load float64, aborted bool, blockingRatio, restorability float64) {
	e.cellsInFlight.Dec()
	e.cellsCompleted.Inc()
	if aborted {
		e.cellsAborted.Inc()
		return
	}
	labels := prometheus.Labels{
		"routing":     routing,
		"restoration": restoration,
		"load":        fmt.Sprintf("%g", load),
	}
	e.blockingRatio.With(labels).Set(blockingRatio)
	e.restorability.With(labels).Set(restorability)
}

// Serve starts the /metrics HTTP server on addr in the background. An
// empty addr is a caller error - callers simply do not call Serve when
// metrics are disabled.
func (e *Exporter) Serve(addr string) error {
	if addr == "" {
		return fmt.Errorf("prometheus: exporter address must not be empty")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))

	e.server = &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("prometheus: exporter failed to start: %w", err)
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// Shutdown stops the metrics server, if running.
func (e *Exporter) Shutdown(ctx context.Context) error {
	if e.server == nil {
		return nil
	}
	return e.server.Shutdown(ctx)
}
