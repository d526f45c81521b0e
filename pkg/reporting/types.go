package reporting

import (
	"time"

	"github.com/jihwankim/cascade-sim/pkg/config"
	"github.com/jihwankim/cascade-sim/pkg/stats"
)

// RunStatus represents the status of a sweep execution.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusStopped   RunStatus = "stopped"
)

// CellResult is one (routing, restoration, load, seed) cell's outcome:
// its identifying parameters, the final statistics record, and -
// should the episode have aborted on an invariant violation - the
// error that ended it early.
type CellResult struct {
	Routing     string       `json:"routing"`
	Restoration string       `json:"restoration"`
	Load        float64      `json:"load"`
	Seed        int64        `json:"seed"`
	Result      stats.Result `json:"result"`
	Aborted     bool         `json:"aborted"`
	AbortReason string       `json:"abort_reason,omitempty"`
}

// RunReport is the complete record of one sweep: metadata plus every
// cell's result, the fixed-key schema a Storage persists to disk.
type RunReport struct {
	RunID     string    `json:"run_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  string    `json:"duration"`

	Status  RunStatus `json:"status"`
	Message string    `json:"message,omitempty"`

	TopologyFile string `json:"topology_file"`
	NumArrivals  int    `json:"num_arrivals"`

	Cells []CellResult `json:"cells"`

	Errors []string `json:"errors,omitempty"`
}

// CellKey identifies a cell's position in the sweep, independent of
// its outcome - used as a map key by the Runner while cells are still
// in flight.
type CellKey struct {
	Routing     string
	Restoration string
	Load        float64
	Seed        int64
}

// KeyOf returns the cell's identifying key.
func KeyOf(c config.Cell) CellKey {
	return CellKey{Routing: c.RoutingName, Restoration: c.RestorationName, Load: c.Load, Seed: c.Seed}
}
