// Package audit keeps a run-scoped log of every cell's outcome - an
// append-only record a Runner can dump alongside a RunReport so an
// operator can see, in order, which cells completed cleanly and which
// aborted on an invariant violation, without re-deriving it from the
// (unordered, concurrently-written) results slice.
package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/jihwankim/cascade-sim/pkg/config"
	"github.com/jihwankim/cascade-sim/pkg/reporting"
)

// Entry is one logged cell outcome.
type Entry struct {
	Timestamp   time.Time
	Routing     string
	Restoration string
	Load        float64
	Seed        int64
	Success     bool
	Reason      string
}

// Coordinator accumulates Entries across a sweep's concurrent cell
// goroutines.
type Coordinator struct {
	mu  sync.Mutex
	log []Entry
}

// New creates an empty Coordinator.
func New() *Coordinator {
	return &Coordinator{}
}

// LogCell records a cell's outcome and returns a one-line human
// summary suitable for passing straight to a Logger call.
func (c *Coordinator) LogCell(cell config.Cell, result reporting.CellResult) string {
	entry := Entry{
		Timestamp:   time.Now(),
		Routing:     cell.RoutingName,
		Restoration: cell.RestorationName,
		Load:        cell.Load,
		Seed:        cell.Seed,
		Success:     !result.Aborted,
		Reason:      result.AbortReason,
	}

	c.mu.Lock()
	c.log = append(c.log, entry)
	c.mu.Unlock()

	if entry.Success {
		return fmt.Sprintf("cell completed: blocking=%.4f restorability=%.4f",
			result.Result.RequestBlockingRatio, result.Result.Restorability)
	}
	return fmt.Sprintf("cell aborted: %s", entry.Reason)
}

// Entries returns the complete audit log in the order cells finished.
func (c *Coordinator) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.log...)
}

// Summary tallies the audit log into a pass/fail count.
type Summary struct {
	TotalCells int
	Succeeded  int
	Aborted    int
}

// String renders the summary for a one-line sweep-completion log.
func (s Summary) String() string {
	return fmt.Sprintf("audit summary: %d cells, %d succeeded, %d aborted", s.TotalCells, s.Succeeded, s.Aborted)
}

// Summarize computes the Summary over the current log.
func (c *Coordinator) Summarize() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{TotalCells: len(c.log)}
	for _, e := range c.log {
		if e.Success {
			s.Succeeded++
		} else {
			s.Aborted++
		}
	}
	return s
}
