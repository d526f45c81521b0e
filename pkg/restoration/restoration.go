// Package restoration implements the policies that react to a batch
// of services disrupted by a link or disaster failure: reroute them,
// relocate them to a different datacenter, or seal them as dropped.
package restoration

import (
	"sort"

	"github.com/jihwankim/cascade-sim/pkg/routing"
	"github.com/jihwankim/cascade-sim/pkg/service"
	"github.com/jihwankim/cascade-sim/pkg/topology"
)

// Context is the slice of simulation state a restoration policy
// needs. The engine's Environment satisfies this structurally.
type Context interface {
	routing.Context
	Now() float64
	ActiveRoutingPolicy() routing.Policy
}

// Policy restores (or seals) every disrupted service, returning the
// updated set for statistics purposes.
type Policy interface {
	Name() string
	Restore(ctx Context, disrupted []*service.Service) []*service.Service
}

// orderForRestoration sorts disrupted services by the spec's ordering
// rule: primary key is priority class (lower first), secondary key is
// remaining holding time (ascending - least time left served first),
// with a stable tiebreak on service id so the comparator is total.
func orderForRestoration(now float64, services []*service.Service) []*service.Service {
	out := append([]*service.Service(nil), services...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority.Priority != b.Priority.Priority {
			return a.Priority.Priority < b.Priority.Priority
		}
		ra, rb := a.RemainingTime(now), b.RemainingTime(now)
		if ra != rb {
			return ra < rb
		}
		return a.ID < b.ID
	})
	return out
}

// reprovision reserves capacity on path/dc exactly as initial
// admission does, flips the service back to healthy, and leaves
// scheduling its departure to the caller (the engine owns the event
// queue).
func reprovision(ctx Context, svc *service.Service, dc string, path *topology.Path) error {
	if err := ctx.Topology().ReserveRoute(path, svc.NetworkUnits, svc.ComputingUnits, svc.ID, ctx.Now()); err != nil {
		return err
	}
	svc.Destination = dc
	svc.Route = path
	svc.Failed = false
	svc.Provisioned = true
	svc.ExpectedRisk = ctx.Topology().RiskOfPath(path)
	return nil
}

// seal marks svc permanently dropped: no further restoration or events.
func seal(ctx Context, svc *service.Service) {
	svc.Seal(ctx.Now())
}
