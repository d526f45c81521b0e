package restoration

import (
	"github.com/jihwankim/cascade-sim/pkg/service"
	"github.com/jihwankim/cascade-sim/pkg/topology"
)

// DoNotRestore (DNR) seals every disrupted service immediately; no
// rerouting is attempted.
type DoNotRestore struct{}

func (DoNotRestore) Name() string { return "DNR" }

func (DoNotRestore) Restore(ctx Context, disrupted []*service.Service) []*service.Service {
	for _, svc := range orderForRestoration(ctx.Now(), disrupted) {
		seal(ctx, svc)
	}
	return disrupted
}

// samePathAttempt looks for a viable path from svc.Source back to its
// existing destination DC. The caller has already released the
// service's reservation there, so the destination must again have
// spare capacity for the service's computing units.
func samePathAttempt(ctx Context, svc *service.Service) *topology.Path {
	t := ctx.Topology()
	if !t.DCAvailable(svc.Destination, svc.ComputingUnits) {
		return nil
	}
	for _, p := range t.KShortestPaths(svc.Source, svc.Destination) {
		if t.PathViable(p, svc.NetworkUnits) {
			return p
		}
	}
	return nil
}

// PathRestoration (PR) tries to reroute each disrupted service back to
// its original destination DC over an alternate viable path; failing
// that, the service is sealed.
type PathRestoration struct{}

func (PathRestoration) Name() string { return "PR" }

func (PathRestoration) Restore(ctx Context, disrupted []*service.Service) []*service.Service {
	for _, svc := range orderForRestoration(ctx.Now(), disrupted) {
		if p := samePathAttempt(ctx, svc); p != nil {
			if err := reprovision(ctx, svc, svc.Destination, p); err == nil {
				continue
			}
		}
		seal(ctx, svc)
	}
	return disrupted
}

// PathRestorationWithRelocation (PRwR) tries PR first; if no path back
// to the original DC is viable, it falls back to the active routing
// policy to find any other viable DC, marking the service relocated.
type PathRestorationWithRelocation struct{}

func (PathRestorationWithRelocation) Name() string { return "PRwR" }

func (PathRestorationWithRelocation) Restore(ctx Context, disrupted []*service.Service) []*service.Service {
	for _, svc := range orderForRestoration(ctx.Now(), disrupted) {
		if p := samePathAttempt(ctx, svc); p != nil {
			if err := reprovision(ctx, svc, svc.Destination, p); err == nil {
				continue
			}
		}
		out := ctx.ActiveRoutingPolicy().Route(ctx, svc)
		if out.Admitted {
			if err := reprovision(ctx, svc, out.DC, out.Path); err == nil {
				svc.Relocated = true
				continue
			}
		}
		seal(ctx, svc)
	}
	return disrupted
}

// RiskAware (PRPA) chooses, among every viable (same-DC and
// relocation) path, the one minimizing the same risk score the RISK
// routing policy uses, falling back to sealing when nothing is viable.
type RiskAware struct {
	Alpha float64
}

func (RiskAware) Name() string { return "PRPA" }

func (r RiskAware) Restore(ctx Context, disrupted []*service.Service) []*service.Service {
	for _, svc := range orderForRestoration(ctx.Now(), disrupted) {
		dc, path := r.bestCandidate(ctx, svc)
		if path == nil {
			seal(ctx, svc)
			continue
		}
		if err := reprovision(ctx, svc, dc, path); err != nil {
			seal(ctx, svc)
			continue
		}
		if dc != svc.Destination {
			svc.Relocated = true
		}
	}
	return disrupted
}

func (r RiskAware) bestCandidate(ctx Context, svc *service.Service) (string, *topology.Path) {
	t := ctx.Topology()
	type candidate struct {
		dc   string
		path *topology.Path
	}
	var candidates []candidate
	for _, dc := range t.DCs {
		if !t.DCAvailable(dc, svc.ComputingUnits) {
			continue
		}
		for _, p := range t.KShortestPaths(svc.Source, dc) {
			if t.PathViable(p, svc.NetworkUnits) {
				candidates = append(candidates, candidate{dc: dc, path: p})
			}
		}
	}
	if len(candidates) == 0 {
		return "", nil
	}
	maxHops := 0
	for _, c := range candidates {
		if c.path.Hops > maxHops {
			maxHops = c.path.Hops
		}
	}
	bestScore := 1e18
	var best candidate
	for _, c := range candidates {
		score := scorePath(t, c.path, maxHops, r.Alpha)
		if score < bestScore {
			bestScore = score
			best = c
		}
	}
	return best.dc, best.path
}

// scorePath mirrors routing.riskScore; duplicated here (rather than
// exported from routing) to keep the two policy families decoupled.
func scorePath(t *topology.Topology, p *topology.Path, maxHops int, alpha float64) float64 {
	hNorm := 0.0
	if maxHops > 0 {
		hNorm = float64(p.Hops) / float64(maxHops)
	}
	pMax := 0.0
	links, err := t.LinksOnPath(p)
	if err == nil {
		for _, l := range links {
			if l.CurrentFailureProbability > pMax {
				pMax = l.CurrentFailureProbability
			}
		}
	}
	return alpha*hNorm + (1-alpha)*pMax
}
