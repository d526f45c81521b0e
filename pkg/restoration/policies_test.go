package restoration

import (
	"testing"

	"github.com/jihwankim/cascade-sim/pkg/rng"
	"github.com/jihwankim/cascade-sim/pkg/routing"
	"github.com/jihwankim/cascade-sim/pkg/service"
	"github.com/jihwankim/cascade-sim/pkg/topology"
)

type fakeCtx struct {
	t      *topology.Topology
	rngSrc *rng.Source
	now    float64
	policy routing.Policy
}

func (f *fakeCtx) Topology() *topology.Topology       { return f.t }
func (f *fakeCtx) RNG() *rng.Source                   { return f.rngSrc }
func (f *fakeCtx) Now() float64                       { return f.now }
func (f *fakeCtx) ActiveRoutingPolicy() routing.Policy { return f.policy }

// buildTwoDC builds Source -- A -- C(dc) and Source -- E -- F -- D(dc),
// mirroring the routing package's branching fixture.
func buildTwoDC(t *testing.T) *fakeCtx {
	t.Helper()
	topo := topology.New()
	for _, id := range []string{"Source", "A", "C", "E", "F", "D"} {
		topo.AddNode(id, 0, 0)
	}
	links := [][2]string{
		{"Source", "A"}, {"A", "C"},
		{"Source", "E"}, {"E", "F"}, {"F", "D"},
	}
	for i, pair := range links {
		if _, err := topo.AddLink(string(rune('a'+i)), pair[0], pair[1], 1); err != nil {
			t.Fatalf("AddLink: %v", err)
		}
	}
	for _, l := range topo.Links {
		l.TotalUnits = 10
		l.AvailableUnits = 10
	}
	if err := topo.PlaceDCs(topology.PlacementFixed, 2, 10, []string{"C", "D"}); err != nil {
		t.Fatalf("PlaceDCs: %v", err)
	}
	topo.ComputeKShortestPaths(3, append([]string{"Source"}, topo.DCs...))
	return &fakeCtx{t: topo, rngSrc: rng.New(1), policy: routing.ClosestAvailableDC{}}
}

func disruptedSvc(destination string, priority int) *service.Service {
	return &service.Service{
		ID:             1,
		Source:         "Source",
		Destination:    destination,
		NetworkUnits:   1,
		ComputingUnits: 1,
		ArrivalTime:    0,
		HoldingTime:    100,
		Priority:       service.PriorityClass{Priority: priority},
	}
}

func TestDoNotRestoreSealsAll(t *testing.T) {
	ctx := buildTwoDC(t)
	svc := disruptedSvc("C", 1)
	DoNotRestore{}.Restore(ctx, []*service.Service{svc})
	if !svc.Failed {
		t.Fatal("expected DNR to seal the service")
	}
}

func TestPathRestorationReroutesWhenViable(t *testing.T) {
	ctx := buildTwoDC(t)
	svc := disruptedSvc("C", 1)
	PathRestoration{}.Restore(ctx, []*service.Service{svc})
	if svc.Failed {
		t.Fatal("expected PR to successfully reroute when a path exists")
	}
	if svc.Route == nil || svc.Route.Destination() != "C" {
		t.Fatalf("expected route back to C, got %+v", svc.Route)
	}
}

func TestPathRestorationSealsWhenNoAlternative(t *testing.T) {
	ctx := buildTwoDC(t)
	ctx.t.Links["b"].AvailableUnits = 0 // sever the only A-C link
	svc := disruptedSvc("C", 1)
	PathRestoration{}.Restore(ctx, []*service.Service{svc})
	if !svc.Failed {
		t.Fatal("expected PR to seal when no alternative path exists")
	}
}

func TestPathRestorationWithRelocationFallsBackToOtherDC(t *testing.T) {
	ctx := buildTwoDC(t)
	ctx.t.Nodes["C"].AvailableUnits = 0 // original DC full, force relocation
	svc := disruptedSvc("C", 1)
	PathRestorationWithRelocation{}.Restore(ctx, []*service.Service{svc})
	if svc.Failed {
		t.Fatal("expected PRwR to relocate rather than seal")
	}
	if !svc.Relocated {
		t.Fatal("expected Relocated to be set")
	}
	if svc.Destination != "D" {
		t.Fatalf("expected relocation to D, got %s", svc.Destination)
	}
}

func TestRiskAwareSealsWhenNothingViable(t *testing.T) {
	ctx := buildTwoDC(t)
	for _, l := range ctx.t.Links {
		l.AvailableUnits = 0
	}
	svc := disruptedSvc("C", 1)
	RiskAware{Alpha: 0.5}.Restore(ctx, []*service.Service{svc})
	if !svc.Failed {
		t.Fatal("expected RiskAware to seal when nothing is viable")
	}
}

func TestOrderForRestorationPriorityFirst(t *testing.T) {
	now := 10.0
	low := &service.Service{ID: 2, ArrivalTime: 0, HoldingTime: 100, Priority: service.PriorityClass{Priority: 5}}
	high := &service.Service{ID: 1, ArrivalTime: 0, HoldingTime: 100, Priority: service.PriorityClass{Priority: 1}}
	ordered := orderForRestoration(now, []*service.Service{low, high})
	if ordered[0] != high {
		t.Fatal("expected the lower-priority-number service to be restored first")
	}
}

func TestOrderForRestorationRemainingTimeTiebreak(t *testing.T) {
	now := 10.0
	shortRemaining := &service.Service{ID: 2, ArrivalTime: 0, HoldingTime: 20, Priority: service.PriorityClass{Priority: 1}}
	longRemaining := &service.Service{ID: 1, ArrivalTime: 0, HoldingTime: 100, Priority: service.PriorityClass{Priority: 1}}
	ordered := orderForRestoration(now, []*service.Service{shortRemaining, longRemaining})
	if ordered[0] != shortRemaining {
		t.Fatal("expected the service with less remaining time to be restored first on a priority tie")
	}
}
