// Package stats aggregates per-episode simulation outcomes into the
// result record schema reported per (routing, restoration, load, seed)
// cell, substituting neutral values where a ratio's denominator is
// zero rather than letting the computation divide by zero.
package stats

import "github.com/jihwankim/cascade-sim/pkg/topology"

// Result is the fixed-key record produced by one completed episode.
type Result struct {
	Processed int `json:"processed"`
	Rejected  int `json:"rejected"`

	RequestBlockingRatio float64 `json:"request_blocking_ratio"`
	AverageLinkUtilization float64 `json:"average_link_utilization"`
	AverageDCUtilization   float64 `json:"average_dc_utilization"`
	AverageAvailability    float64 `json:"average_availability"`

	Disrupted        int     `json:"disrupted"`
	Restored         int     `json:"restored"`
	Restorability    float64 `json:"restorability"`
	Relocated        int     `json:"relocated"`
	RelocationRatio  float64 `json:"relocation_ratio"`
	ReDisrupted      int     `json:"re_disrupted"`

	AverageLossCost           float64 `json:"average_loss_cost"`
	AverageExpectedLossCost   float64 `json:"average_expected_loss_cost"`
	AverageExpectedCapacityLoss float64 `json:"average_expected_capacity_loss"`

	DisruptedByTier map[string]int `json:"disrupted_by_tier"`
	RestoredByTier  map[string]int `json:"restored_by_tier"`
}

// Snapshot is a progress record emitted every TrackStatsEvery arrivals.
type Snapshot struct {
	ArrivalCount int     `json:"arrival_count"`
	Now          float64 `json:"now"`
	Result       Result  `json:"result"`
}

// Aggregator accumulates counters across one episode.
type Aggregator struct {
	trackEvery int

	processed int
	rejected  int

	disrupted   int
	restored    int
	relocated   int
	reDisrupted int

	disruptedByTier map[string]int
	restoredByTier  map[string]int

	sumServiceTime float64
	sumHoldingTime float64

	sumLossCost              float64
	sumExpectedLossCost      float64
	sumExpectedCapacityLoss  float64
	disruptedForCostAverages int

	Snapshots []Snapshot
}

// NewAggregator builds an empty Aggregator. trackEvery <= 0 disables
// progress snapshots.
func NewAggregator(trackEvery int) *Aggregator {
	return &Aggregator{
		trackEvery:      trackEvery,
		disruptedByTier: make(map[string]int),
		restoredByTier:  make(map[string]int),
	}
}

// RecordProcessed counts one service that was offered to the routing
// policy, admitted or not.
func (a *Aggregator) RecordProcessed() { a.processed++ }

// RecordRejected counts one service the routing policy could not admit.
func (a *Aggregator) RecordRejected() { a.rejected++ }

// RecordCompleted folds a terminated (departed or sealed) service's
// observed service time and holding time into the availability mean.
func (a *Aggregator) RecordCompleted(serviceTime, holdingTime float64) {
	a.sumServiceTime += serviceTime
	a.sumHoldingTime += holdingTime
}

// RecordDisrupted counts one service disrupted by a failure, tagged by
// the tier that caused it ("link", "epicenter", "T73", "T15", "T5").
func (a *Aggregator) RecordDisrupted(tier string, lossCost, expectedLossCost, expectedCapacityLoss float64) {
	a.disrupted++
	a.disruptedByTier[tier]++
	a.sumLossCost += lossCost
	a.sumExpectedLossCost += expectedLossCost
	a.sumExpectedCapacityLoss += expectedCapacityLoss
	a.disruptedForCostAverages++
}

// RecordRestored counts one disrupted service successfully restored
// (rerouted or relocated), tagged by the tier of its original failure.
func (a *Aggregator) RecordRestored(tier string) {
	a.restored++
	a.restoredByTier[tier]++
}

// RecordRelocated counts one restored service that moved to a
// different destination DC.
func (a *Aggregator) RecordRelocated() { a.relocated++ }

// RecordReDisrupted counts one service that was already
// failed-before and is now disrupted a second time.
func (a *Aggregator) RecordReDisrupted() { a.reDisrupted++ }

func ratio(num, den int, neutral float64) float64 {
	if den == 0 {
		return neutral
	}
	return float64(num) / float64(den)
}

func meanF(sum float64, n int, neutral float64) float64 {
	if n == 0 {
		return neutral
	}
	return sum / float64(n)
}

// Result computes the final record. topo supplies utilization
// averages; call topo.FinalizeUtilization(now) before this.
func (a *Aggregator) Result(topo *topology.Topology) Result {
	return Result{
		Processed:                   a.processed,
		Rejected:                    a.rejected,
		RequestBlockingRatio:        ratio(a.rejected, a.processed, 0),
		AverageLinkUtilization:      topo.AverageLinkUtilization(),
		AverageDCUtilization:        topo.AverageDCUtilization(),
		AverageAvailability:         availabilityMean(a.sumServiceTime, a.sumHoldingTime),
		Disrupted:                   a.disrupted,
		Restored:                    a.restored,
		Restorability:               ratio(a.restored, a.disrupted, 1),
		Relocated:                   a.relocated,
		RelocationRatio:             ratio(a.relocated, a.disrupted, 0),
		ReDisrupted:                 a.reDisrupted,
		AverageLossCost:             meanF(a.sumLossCost, a.disruptedForCostAverages, 0),
		AverageExpectedLossCost:     meanF(a.sumExpectedLossCost, a.disruptedForCostAverages, 0),
		AverageExpectedCapacityLoss: meanF(a.sumExpectedCapacityLoss, a.disruptedForCostAverages, 0),
		DisruptedByTier:             copyTierMap(a.disruptedByTier),
		RestoredByTier:              copyTierMap(a.restoredByTier),
	}
}

func availabilityMean(sumServiceTime, sumHoldingTime float64) float64 {
	if sumHoldingTime == 0 {
		return 0
	}
	return sumServiceTime / sumHoldingTime
}

func copyTierMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// MaybeSnapshot appends a progress snapshot when arrivalCount is a
// positive multiple of the configured cadence.
func (a *Aggregator) MaybeSnapshot(arrivalCount int, now float64, topo *topology.Topology) {
	if a.trackEvery <= 0 || arrivalCount == 0 || arrivalCount%a.trackEvery != 0 {
		return
	}
	a.Snapshots = append(a.Snapshots, Snapshot{
		ArrivalCount: arrivalCount,
		Now:          now,
		Result:       a.Result(topo),
	})
}
