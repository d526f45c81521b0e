package routing

import (
	"math"

	"github.com/jihwankim/cascade-sim/pkg/service"
	"github.com/jihwankim/cascade-sim/pkg/topology"
)

// ClosestAvailableDC (CADC) picks the viable DC reachable with the
// fewest hops, preferring the first precomputed path (already the
// shortest for that DC) on ties.
type ClosestAvailableDC struct{}

func (ClosestAvailableDC) Name() string { return "CADC" }

func (ClosestAvailableDC) Route(ctx Context, svc *service.Service) Outcome {
	t := ctx.Topology()
	var bestDC string
	var bestPath *topology.Path
	bestHops := math.MaxInt32
	for _, dc := range t.DCs {
		paths := viablePaths(ctx, svc.Source, dc, svc.NetworkUnits, svc.ComputingUnits)
		if len(paths) == 0 {
			continue
		}
		if paths[0].Hops < bestHops {
			bestHops = paths[0].Hops
			bestDC = dc
			bestPath = paths[0]
		}
	}
	if bestPath == nil {
		return Outcome{Admitted: false}
	}
	return Outcome{Admitted: true, DC: bestDC, Path: bestPath}
}

// FarthestAvailableDC (FADC) picks the viable DC reachable with the
// most hops, the inverse of CADC - used to study load spread under
// geographic diversity.
type FarthestAvailableDC struct{}

func (FarthestAvailableDC) Name() string { return "FADC" }

func (FarthestAvailableDC) Route(ctx Context, svc *service.Service) Outcome {
	t := ctx.Topology()
	var bestDC string
	var bestPath *topology.Path
	bestHops := -1
	for _, dc := range t.DCs {
		paths := viablePaths(ctx, svc.Source, dc, svc.NetworkUnits, svc.ComputingUnits)
		if len(paths) == 0 {
			continue
		}
		if paths[0].Hops > bestHops {
			bestHops = paths[0].Hops
			bestDC = dc
			bestPath = paths[0]
		}
	}
	if bestPath == nil {
		return Outcome{Admitted: false}
	}
	return Outcome{Admitted: true, DC: bestDC, Path: bestPath}
}

// FullLoadBalancing (FLB) scores every viable (DC, path) pair by
// (max link usage on path / network units per link) * (DC occupancy
// ratio) and picks the minimum.
type FullLoadBalancing struct{}

func (FullLoadBalancing) Name() string { return "FLB" }

func (FullLoadBalancing) Route(ctx Context, svc *service.Service) Outcome {
	t := ctx.Topology()
	var bestDC string
	var bestPath *topology.Path
	bestScore := math.Inf(1)
	for _, dc := range t.DCs {
		paths := viablePaths(ctx, svc.Source, dc, svc.NetworkUnits, svc.ComputingUnits)
		if len(paths) == 0 {
			continue
		}
		n := t.Nodes[dc]
		dcOccupancy := 0.0
		if n.TotalUnits > 0 {
			dcOccupancy = float64(n.TotalUnits-n.AvailableUnits) / float64(n.TotalUnits)
		}
		for _, p := range paths {
			score := maxLinkUsage(t, p) * dcOccupancy
			if score < bestScore {
				bestScore = score
				bestDC = dc
				bestPath = p
			}
		}
	}
	if bestPath == nil {
		return Outcome{Admitted: false}
	}
	return Outcome{Admitted: true, DC: bestDC, Path: bestPath}
}

// RandomAvailableDC (RADC) permutes the DC order with the episode RNG
// and admits to the first DC that has any viable shortest path.
type RandomAvailableDC struct{}

func (RandomAvailableDC) Name() string { return "RADC" }

func (RandomAvailableDC) Route(ctx Context, svc *service.Service) Outcome {
	t := ctx.Topology()
	order := ctx.RNG().Perm(len(t.DCs))
	for _, idx := range order {
		dc := t.DCs[idx]
		paths := viablePaths(ctx, svc.Source, dc, svc.NetworkUnits, svc.ComputingUnits)
		if len(paths) == 0 {
			continue
		}
		return Outcome{Admitted: true, DC: dc, Path: paths[0]}
	}
	return Outcome{Admitted: false}
}

// RiskBalanced picks the (DC, path) pair minimizing
// Alpha*h_norm + (1-Alpha)*p_max across every viable path to every
// viable DC, where h_norm is hop count normalized by the longest
// viable path's hop count and p_max is the path's highest current
// disaster failure probability.
type RiskBalanced struct {
	Alpha float64
}

func (RiskBalanced) Name() string { return "RISK" }

func (r RiskBalanced) Route(ctx Context, svc *service.Service) Outcome {
	t := ctx.Topology()
	type candidate struct {
		dc   string
		path *topology.Path
	}
	var candidates []candidate
	for _, dc := range t.DCs {
		for _, p := range viablePaths(ctx, svc.Source, dc, svc.NetworkUnits, svc.ComputingUnits) {
			candidates = append(candidates, candidate{dc: dc, path: p})
		}
	}
	if len(candidates) == 0 {
		return Outcome{Admitted: false}
	}
	maxHops := 0
	for _, c := range candidates {
		if c.path.Hops > maxHops {
			maxHops = c.path.Hops
		}
	}
	bestScore := math.Inf(1)
	var best candidate
	for _, c := range candidates {
		score := riskScore(t, c.path, maxHops, r.Alpha)
		if score < bestScore {
			bestScore = score
			best = c
		}
	}
	return Outcome{Admitted: true, DC: best.dc, Path: best.path}
}
