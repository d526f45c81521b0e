// Package routing implements the datacenter and path selection
// strategies applied to each incoming service at admission time.
package routing

import (
	"github.com/jihwankim/cascade-sim/pkg/rng"
	"github.com/jihwankim/cascade-sim/pkg/service"
	"github.com/jihwankim/cascade-sim/pkg/topology"
)

// Context is the slice of simulation state a routing policy needs.
// The engine's Environment satisfies this structurally, so this
// package never imports the engine package.
type Context interface {
	Topology() *topology.Topology
	RNG() *rng.Source
}

// Outcome is the result of a routing attempt.
type Outcome struct {
	Admitted bool
	DC       string
	Path     *topology.Path
}

// Policy selects a destination DC and a viable path for svc.
type Policy interface {
	Name() string
	Route(ctx Context, svc *service.Service) Outcome
}

// viablePaths returns, for the candidate DC, the subset of
// precomputed k-shortest-paths that are currently viable for svc.
func viablePaths(ctx Context, source, dc string, networkUnits, computingUnits int) []*topology.Path {
	t := ctx.Topology()
	if !t.DCAvailable(dc, computingUnits) {
		return nil
	}
	var out []*topology.Path
	for _, p := range t.KShortestPaths(source, dc) {
		if t.PathViable(p, networkUnits) {
			out = append(out, p)
		}
	}
	return out
}

// maxLinkUsage returns the highest (total-available)/total ratio among
// the links of p, used by the Full-Load-Balancing policy.
func maxLinkUsage(t *topology.Topology, p *topology.Path) float64 {
	links, err := t.LinksOnPath(p)
	if err != nil {
		return 1
	}
	max := 0.0
	for _, l := range links {
		if l.TotalUnits == 0 {
			continue
		}
		usage := float64(l.TotalUnits-l.AvailableUnits) / float64(l.TotalUnits)
		if usage > max {
			max = usage
		}
	}
	return max
}

// maxFailureProbability returns the highest current_failure_probability
// among the links of p.
func maxFailureProbability(t *topology.Topology, p *topology.Path) float64 {
	links, err := t.LinksOnPath(p)
	if err != nil {
		return 0
	}
	max := 0.0
	for _, l := range links {
		if l.CurrentFailureProbability > max {
			max = l.CurrentFailureProbability
		}
	}
	return max
}

// riskScore computes f(p) = alpha*h_norm + (1-alpha)*p_max, where
// h_norm is p's hop count normalized by the longest viable path's hop
// count and p_max is the highest current failure probability on p.
func riskScore(t *topology.Topology, p *topology.Path, maxHops int, alpha float64) float64 {
	hNorm := 0.0
	if maxHops > 0 {
		hNorm = float64(p.Hops) / float64(maxHops)
	}
	pMax := maxFailureProbability(t, p)
	return alpha*hNorm + (1-alpha)*pMax
}

func longestHops(paths []*topology.Path) int {
	max := 0
	for _, p := range paths {
		if p.Hops > max {
			max = p.Hops
		}
	}
	return max
}
