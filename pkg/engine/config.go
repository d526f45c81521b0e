// Package engine drives one simulation episode: a single-threaded,
// cooperative discrete-event loop over a cloned topology, independent
// RNG, routing and restoration policies, and a disaster scheduler.
package engine

import (
	"fmt"

	"github.com/jihwankim/cascade-sim/pkg/service"
)

// Config parameterizes one episode. A Runner builds one Config per
// (routing, restoration, load, seed) cell.
type Config struct {
	NumArrivals int
	Seed        int64

	// Load is the offered traffic intensity in Erlangs; the mean
	// inter-arrival time is derived as MeanHoldingTime / Load.
	Load            float64
	MeanHoldingTime float64

	NetworkUnitsPerLink      int
	ComputingUnitsPerDC      int
	NetworkUnitsPerService   int
	ComputingUnitsPerService int

	PriorityClasses []service.PriorityClass

	MeanFailureInterArrival float64
	MeanFailureDuration     float64

	TrackStatsEvery int
}

// Validate reports a configuration error per the error handling
// taxonomy's "fatal at startup" disposition.
func (c Config) Validate() error {
	if c.NumArrivals <= 0 {
		return fmt.Errorf("engine: num_arrivals must be positive, got %d", c.NumArrivals)
	}
	if c.Load <= 0 {
		return fmt.Errorf("engine: load must be positive, got %v", c.Load)
	}
	if c.MeanHoldingTime <= 0 {
		return fmt.Errorf("engine: mean holding time must be positive, got %v", c.MeanHoldingTime)
	}
	if len(c.PriorityClasses) == 0 {
		return fmt.Errorf("engine: at least one priority class is required")
	}
	if c.NetworkUnitsPerService <= 0 || c.ComputingUnitsPerService <= 0 {
		return fmt.Errorf("engine: per-service unit requirements must be positive")
	}
	return nil
}

// MeanInterArrivalTime derives the Poisson arrival process mean from
// the offered load, following the standard Erlang load definition
// load = mean_holding_time / mean_inter_arrival_time.
func (c Config) MeanInterArrivalTime() float64 {
	return c.MeanHoldingTime / c.Load
}
