package config

import (
	"fmt"

	"github.com/jihwankim/cascade-sim/pkg/engine"
	"github.com/jihwankim/cascade-sim/pkg/restoration"
	"github.com/jihwankim/cascade-sim/pkg/routing"
)

// Cell is one (routing policy, restoration policy, load, seed)
// combination the Runner executes independently.
type Cell struct {
	RoutingName     string
	RestorationName string
	Load            float64
	Seed            int64
}

// Plan enumerates every cell a Config's sweep ranges describe, plus the
// engine.Config template shared by all of them (the load and seed vary
// per cell, everything else is constant across the sweep).
type Plan struct {
	Cells    []Cell
	Template engine.Config
}

// BuildPlan expands a Config's load range, policy lists, and seed count
// into the full cross-product of cells the Runner will execute.
func BuildPlan(c *Config) (Plan, error) {
	if err := c.Validate(); err != nil {
		return Plan{}, err
	}

	template := engine.Config{
		NumArrivals:              c.Traffic.NumArrivals,
		MeanHoldingTime:          c.Traffic.MeanHoldingTime,
		NetworkUnitsPerLink:      c.Traffic.NetworkUnitsPerLink,
		ComputingUnitsPerDC:      c.Traffic.ComputingUnitsPerDC,
		NetworkUnitsPerService:   c.Traffic.NetworkUnitsPerService,
		ComputingUnitsPerService: c.Traffic.ComputingUnitsPerService,
		PriorityClasses:          c.Traffic.PriorityClasses,
		MeanFailureInterArrival:  c.Disaster.MeanFailureInterArrival,
		MeanFailureDuration:      c.Disaster.MeanFailureDuration,
		TrackStatsEvery:          c.Reporting.TrackStatsEvery,
	}

	var cells []Cell
	for _, routingName := range c.Execution.RoutingPolicies {
		for _, restorationName := range c.Execution.RestorationPolicies {
			for load := c.Traffic.MinLoad; load <= c.Traffic.MaxLoad+1e-9; load += c.Traffic.LoadStep {
				for s := 0; s < c.Execution.NumSeeds; s++ {
					cells = append(cells, Cell{
						RoutingName:     routingName,
						RestorationName: restorationName,
						Load:            load,
						Seed:            c.Execution.Seed + int64(s),
					})
				}
			}
		}
	}
	if len(cells) == 0 {
		return Plan{}, fmt.Errorf("config: sweep produced zero cells (check min_load/max_load/load_step)")
	}
	return Plan{Cells: cells, Template: template}, nil
}

// RoutingPolicy resolves a CLI/config policy name to a routing.Policy
// instance, wiring risk_alpha for the risk-aware variant.
func RoutingPolicy(name string, riskAlpha float64) (routing.Policy, error) {
	switch name {
	case "CADC":
		return routing.ClosestAvailableDC{}, nil
	case "FADC":
		return routing.FarthestAvailableDC{}, nil
	case "FLB":
		return routing.FullLoadBalancing{}, nil
	case "RADC":
		return routing.RandomAvailableDC{}, nil
	case "RISK":
		return routing.RiskBalanced{Alpha: riskAlpha}, nil
	default:
		return nil, fmt.Errorf("config: unknown routing policy %q", name)
	}
}

// RestorationPolicy resolves a CLI/config policy name to a
// restoration.Policy instance.
func RestorationPolicy(name string, riskAlpha float64) (restoration.Policy, error) {
	switch name {
	case "DNR":
		return restoration.DoNotRestore{}, nil
	case "PR":
		return restoration.PathRestoration{}, nil
	case "PRwR":
		return restoration.PathRestorationWithRelocation{}, nil
	case "PRPA":
		return restoration.RiskAware{Alpha: riskAlpha}, nil
	default:
		return nil, fmt.Errorf("config: unknown restoration policy %q", name)
	}
}
