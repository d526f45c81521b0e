// Package runner fans a sweep plan's cells out across a bounded pool
// of goroutines, one Environment per cell, and collects each cell's
// outcome into a RunReport.
package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jihwankim/cascade-sim/pkg/config"
	"github.com/jihwankim/cascade-sim/pkg/core/audit"
	"github.com/jihwankim/cascade-sim/pkg/emergency"
	"github.com/jihwankim/cascade-sim/pkg/engine"
	"github.com/jihwankim/cascade-sim/pkg/monitoring/prometheus"
	"github.com/jihwankim/cascade-sim/pkg/reporting"
	"github.com/jihwankim/cascade-sim/pkg/topology"
)

// Runner executes a sweep Plan: every cell runs in its own Environment,
// built from the plan's shared Config template plus the cell's own
// load, seed, and resolved policy pair.
type Runner struct {
	cfg      *config.Config
	plan     config.Plan
	base     *topology.Topology
	logger   *reporting.Logger
	audit    *audit.Coordinator
	halt     *emergency.HaltController
	exporter *prometheus.Exporter
}

// New builds a Runner for the given config, sweep plan, and base
// topology (already loaded, DC-placed, and k-shortest-paths indexed).
func New(cfg *config.Config, plan config.Plan, base *topology.Topology, logger *reporting.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		plan:   plan,
		base:   base,
		logger: logger,
		audit:  audit.New(),
	}
}

// WithHalt wires an emergency.HaltController so an operator can abort
// the sweep early; in-flight cells finish, queued cells are skipped.
func (r *Runner) WithHalt(h *emergency.HaltController) *Runner {
	r.halt = h
	return r
}

// WithExporter wires a live Prometheus exporter that receives
// cell-start/cell-finish observations as the sweep progresses.
func (r *Runner) WithExporter(e *prometheus.Exporter) *Runner {
	r.exporter = e
	return r
}

// cellOutcome pairs a cell's position in the plan with its result, so
// goroutines can write into a pre-sized slice without locking.
type cellOutcome struct {
	index  int
	result reporting.CellResult
}

// Run executes every cell in the plan, bounded to cfg.Execution.Threads
// concurrent cells, and returns the assembled RunReport.
func (r *Runner) Run(ctx context.Context) (*reporting.RunReport, error) {
	runID := uuid.NewString()
	start := time.Now()

	if r.exporter != nil {
		r.exporter.SetPlanSize(len(r.plan.Cells))
	}

	report := &reporting.RunReport{
		RunID:        runID,
		StartTime:    start,
		Status:       reporting.StatusRunning,
		TopologyFile: r.cfg.Topology.File,
		NumArrivals:  r.plan.Template.NumArrivals,
	}

	outcomes := make([]cellOutcome, len(r.plan.Cells))
	sem := make(chan struct{}, r.cfg.Execution.Threads)
	var wg sync.WaitGroup

	progress := reporting.NewProgressReporter(reporting.OutputFormat(r.cfg.Reporting.ProgressFormat), r.logger)

	var haltCh <-chan struct{}
	if r.halt != nil {
		haltCh = r.halt.StopChannel()
	}

	stopped := false
	for i, cell := range r.plan.Cells {
		select {
		case <-haltCh:
			stopped = true
		default:
		}
		if stopped {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(i int, cell config.Cell) {
			defer wg.Done()
			defer func() { <-sem }()

			if r.exporter != nil {
				r.exporter.CellStarted()
			}
			progress.ReportCellStarted(cell.RoutingName, cell.RestorationName, cell.Load, cell.Seed)

			result := r.runCell(cell)
			outcomes[i] = cellOutcome{index: i, result: result}

			progress.ReportCellCompleted(result)
			if r.exporter != nil {
				r.exporter.CellFinished(cell.RoutingName, cell.RestorationName, cell.Load, result.Aborted,
					result.Result.RequestBlockingRatio, result.Result.Restorability)
			}

			logLine := r.audit.LogCell(cell, result)
			r.logger.WithCell(cell.RoutingName, cell.RestorationName, cell.Load, cell.Seed).Info(logLine)
		}(i, cell)
	}
	wg.Wait()

	for _, o := range outcomes {
		if o.result.Routing == "" && o.result.Restoration == "" {
			continue // slot never ran (halted before its goroutine launched)
		}
		report.Cells = append(report.Cells, o.result)
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime).String()
	switch {
	case stopped:
		report.Status = reporting.StatusStopped
		report.Message = "sweep halted before all cells completed"
		if r.halt != nil {
			report.Message = fmt.Sprintf("sweep halted: %s", r.halt.Reason())
		}
	default:
		report.Status = reporting.StatusCompleted
	}

	progress.ReportRunCompleted(report)
	return report, nil
}

// runCell builds and executes one cell's Environment, translating an
// engine.InvariantError into an aborted CellResult rather than
// propagating it - one cell's invariant violation must not take down
// the rest of the sweep.
func (r *Runner) runCell(cell config.Cell) reporting.CellResult {
	cfg := r.plan.Template
	cfg.Load = cell.Load
	cfg.Seed = cell.Seed

	routingPolicy, err := config.RoutingPolicy(cell.RoutingName, r.cfg.Execution.RiskAlpha)
	if err != nil {
		return reporting.CellResult{
			Routing: cell.RoutingName, Restoration: cell.RestorationName, Load: cell.Load, Seed: cell.Seed,
			Aborted: true, AbortReason: err.Error(),
		}
	}
	restorationPolicy, err := config.RestorationPolicy(cell.RestorationName, r.cfg.Execution.RiskAlpha)
	if err != nil {
		return reporting.CellResult{
			Routing: cell.RoutingName, Restoration: cell.RestorationName, Load: cell.Load, Seed: cell.Seed,
			Aborted: true, AbortReason: err.Error(),
		}
	}

	env, err := engine.New(cfg, r.base, routingPolicy, restorationPolicy)
	if err != nil {
		return reporting.CellResult{
			Routing: cell.RoutingName, Restoration: cell.RestorationName, Load: cell.Load, Seed: cell.Seed,
			Aborted: true, AbortReason: err.Error(),
		}
	}
	env.Reset(cell.Seed)

	result, err := env.Run()
	if err != nil {
		return reporting.CellResult{
			Routing: cell.RoutingName, Restoration: cell.RestorationName, Load: cell.Load, Seed: cell.Seed,
			Result: result, Aborted: true, AbortReason: err.Error(),
		}
	}

	return reporting.CellResult{
		Routing: cell.RoutingName, Restoration: cell.RestorationName, Load: cell.Load, Seed: cell.Seed,
		Result: result,
	}
}

// DefaultRunDir returns where a run's artifacts would be written,
// given the configured output root.
func DefaultRunDir(cfg *config.Config, runID string) string {
	return filepath.Join(cfg.Reporting.OutputDir, runID)
}

// FormatArgs renders an argument list the way Storage.WriteInfo wants
// it logged: space-joined, same as a shell would echo it back.
func FormatArgs(args []string) string {
	return strings.Join(args, " ")
}
