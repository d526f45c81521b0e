package reporting

import (
	"encoding/json"
	"fmt"
	"time"
)

// OutputFormat selects how progress lines are rendered. Sweeps run
// unattended far more often than interactively, so unlike the cadence
// this is adapted from, there is no terminal-UI mode here - only the
// two machine/human formats an operator might tail or pipe.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// ProgressReporter emits a line per meaningful sweep event: a cell
// starting, a cell finishing, and the final sweep summary.
type ProgressReporter struct {
	format OutputFormat
	logger *Logger
}

// NewProgressReporter creates a ProgressReporter.
func NewProgressReporter(format OutputFormat, logger *Logger) *ProgressReporter {
	return &ProgressReporter{format: format, logger: logger}
}

// ReportCellStarted announces that a (routing, restoration, load, seed)
// cell has begun executing.
func (pr *ProgressReporter) ReportCellStarted(routing, restoration string, load float64, seed int64) {
	switch pr.format {
	case FormatJSON:
		pr.emit(map[string]interface{}{
			"event":       "cell_started",
			"routing":     routing,
			"restoration": restoration,
			"load":        load,
			"seed":        seed,
			"timestamp":   time.Now(),
		})
	default:
		fmt.Printf("[CELL START] routing=%s restoration=%s load=%.1f seed=%d\n", routing, restoration, load, seed)
	}
}

// ReportCellCompleted announces a cell's outcome: its blocking ratio
// and restorability if it ran to completion, or its abort reason if it
// was cut short by an invariant violation.
func (pr *ProgressReporter) ReportCellCompleted(result CellResult) {
	switch pr.format {
	case FormatJSON:
		pr.emit(map[string]interface{}{
			"event":     "cell_completed",
			"result":    result,
			"timestamp": time.Now(),
		})
	default:
		if result.Aborted {
			fmt.Printf("[CELL DONE] routing=%s restoration=%s load=%.1f seed=%d ABORTED: %s\n",
				result.Routing, result.Restoration, result.Load, result.Seed, result.AbortReason)
			return
		}
		fmt.Printf("[CELL DONE] routing=%s restoration=%s load=%.1f seed=%d blocking=%.4f restorability=%.4f\n",
			result.Routing, result.Restoration, result.Load, result.Seed,
			result.Result.RequestBlockingRatio, result.Result.Restorability)
	}
}

// ReportSweepProgress announces coarse-grained sweep completion
// counts, suitable for a cadence of one line per N completed cells
// rather than one per arrival.
func (pr *ProgressReporter) ReportSweepProgress(completed, total int, elapsed time.Duration) {
	switch pr.format {
	case FormatJSON:
		pr.emit(map[string]interface{}{
			"event":     "sweep_progress",
			"completed": completed,
			"total":     total,
			"elapsed":   elapsed.String(),
			"timestamp": time.Now(),
		})
	default:
		fmt.Printf("[SWEEP] %d/%d cells complete (elapsed %s)\n", completed, total, elapsed.Round(time.Second))
	}
}

// ReportRunCompleted prints the final sweep summary.
func (pr *ProgressReporter) ReportRunCompleted(report *RunReport) {
	switch pr.format {
	case FormatJSON:
		pr.emit(map[string]interface{}{
			"event":     "run_completed",
			"report":    report,
			"timestamp": time.Now(),
		})
	default:
		pr.printTextSummary(report)
	}
}

func (pr *ProgressReporter) emit(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		pr.logger.Error("failed to marshal progress event", "error", err)
		return
	}
	fmt.Println(string(data))
}

func (pr *ProgressReporter) printTextSummary(report *RunReport) {
	aborted := 0
	for _, c := range report.Cells {
		if c.Aborted {
			aborted++
		}
	}

	fmt.Printf("\n[SWEEP SUMMARY] %s\n", report.Status)
	fmt.Printf("  Run ID: %s\n", report.RunID)
	fmt.Printf("  Duration: %s\n", report.Duration)
	fmt.Printf("  Topology: %s\n", report.TopologyFile)
	fmt.Printf("  Cells: %d (%d aborted)\n", len(report.Cells), aborted)
	if len(report.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(report.Errors))
	}
	fmt.Println()
}
