package engine

import (
	"errors"
	"testing"

	"github.com/jihwankim/cascade-sim/pkg/event"
	"github.com/jihwankim/cascade-sim/pkg/restoration"
	"github.com/jihwankim/cascade-sim/pkg/routing"
	"github.com/jihwankim/cascade-sim/pkg/service"
	"github.com/jihwankim/cascade-sim/pkg/topology"
)

// deadEndTopo builds Source-X-D1 with no alternate path to any DC, so
// once the Source-X link fails a service riding it has nowhere to
// reroute: PathRestoration must seal it, matching the scenario where
// restoration has no alternative to fall back on.
func deadEndTopo(t *testing.T) *topology.Topology {
	t.Helper()
	topo := topology.New()
	for _, id := range []string{"Source", "X", "D1"} {
		topo.AddNode(id, 0, 0)
	}
	if _, err := topo.AddLink("Source-X", "Source", "X", 1); err != nil {
		t.Fatalf("AddLink: %v", err)
	}
	if _, err := topo.AddLink("X-D1", "X", "D1", 1); err != nil {
		t.Fatalf("AddLink: %v", err)
	}
	if err := topo.PlaceDCs(topology.PlacementFixed, 1, 50, []string{"D1"}); err != nil {
		t.Fatalf("PlaceDCs: %v", err)
	}
	topo.ComputeKShortestPaths(3, append([]string{"Source"}, topo.DCs...))
	return topo
}

// twoPathTopo builds Source-X-D1 and Source-Y-D2: a service riding the
// Source-X link can be relocated to D2 via Source-Y once Source-X
// fails, since D1 itself stays reachable through no other route.
func twoPathTopo(t *testing.T) *topology.Topology {
	t.Helper()
	topo := topology.New()
	for _, id := range []string{"Source", "X", "Y", "D1", "D2"} {
		topo.AddNode(id, 0, 0)
	}
	for _, pair := range [][2]string{{"Source", "X"}, {"X", "D1"}, {"Source", "Y"}, {"Y", "D2"}} {
		if _, err := topo.AddLink(pair[0]+"-"+pair[1], pair[0], pair[1], 1); err != nil {
			t.Fatalf("AddLink: %v", err)
		}
	}
	if err := topo.PlaceDCs(topology.PlacementFixed, 2, 50, []string{"D1", "D2"}); err != nil {
		t.Fatalf("PlaceDCs: %v", err)
	}
	topo.ComputeKShortestPaths(3, append([]string{"Source"}, topo.DCs...))
	return topo
}

// parallelRouteTopo gives D2 two independent routes (via Y and via Z)
// in addition to D1's single route via X, so a service relocated from
// D1 to D2 can later survive a failure on its D2 route by failing over
// to the other D2 route, without a second relocation.
func parallelRouteTopo(t *testing.T) *topology.Topology {
	t.Helper()
	topo := topology.New()
	for _, id := range []string{"Source", "X", "Y", "Z", "D1", "D2"} {
		topo.AddNode(id, 0, 0)
	}
	for _, pair := range [][2]string{{"Source", "X"}, {"X", "D1"}, {"Source", "Y"}, {"Y", "D2"}, {"Source", "Z"}, {"Z", "D2"}} {
		if _, err := topo.AddLink(pair[0]+"-"+pair[1], pair[0], pair[1], 1); err != nil {
			t.Fatalf("AddLink: %v", err)
		}
	}
	if err := topo.PlaceDCs(topology.PlacementFixed, 2, 50, []string{"D1", "D2"}); err != nil {
		t.Fatalf("PlaceDCs: %v", err)
	}
	topo.ComputeKShortestPaths(3, append([]string{"Source"}, topo.DCs...))
	return topo
}

// admitDirect bypasses the routing policy and the event-driven arrival
// path to hand-place a single already-admitted service on path, for
// tests that need full control over which service occupies which
// route before triggering a failure.
func admitDirect(t *testing.T, e *Environment, id int, path *topology.Path, holdingTime float64) *service.Service {
	t.Helper()
	svc := &service.Service{
		ID:             id,
		ArrivalTime:    e.now,
		HoldingTime:    holdingTime,
		Source:         path.Source(),
		Priority:       e.cfg.PriorityClasses[0],
		ComputingUnits: 1,
		NetworkUnits:   1,
		Destination:    path.Destination(),
		Route:          path,
		Provisioned:    true,
	}
	if err := e.topo.ReserveRoute(path, svc.NetworkUnits, svc.ComputingUnits, svc.ID, e.now); err != nil {
		t.Fatalf("ReserveRoute: %v", err)
	}
	svc.ExpectedRisk = e.topo.RiskOfPath(path)
	e.services[svc.ID] = svc
	e.queue.Push(&event.Event{Time: e.now + holdingTime, Kind: event.Departure, Payload: svc})
	return svc
}

func smallBase(t *testing.T) *topology.Topology {
	t.Helper()
	topo := topology.New()
	for _, id := range []string{"Source", "A", "DC1", "DC2"} {
		topo.AddNode(id, 0, 0)
	}
	for _, pair := range [][2]string{{"Source", "A"}, {"A", "DC1"}, {"A", "DC2"}} {
		if _, err := topo.AddLink(pair[0]+"-"+pair[1], pair[0], pair[1], 1); err != nil {
			t.Fatalf("AddLink: %v", err)
		}
	}
	if err := topo.PlaceDCs(topology.PlacementFixed, 2, 50, []string{"DC1", "DC2"}); err != nil {
		t.Fatalf("PlaceDCs: %v", err)
	}
	topo.ComputeKShortestPaths(3, append([]string{"Source"}, topo.DCs...))
	return topo
}

func baseConfig() Config {
	return Config{
		NumArrivals:              50,
		Seed:                     7,
		Load:                     5,
		MeanHoldingTime:          10,
		NetworkUnitsPerLink:      20,
		ComputingUnitsPerDC:      50,
		NetworkUnitsPerService:   1,
		ComputingUnitsPerService: 1,
		PriorityClasses:          []service.PriorityClass{{Name: "gold", Priority: 1, LossCost: 10, ExpectedLossCost: 5}},
		MeanFailureInterArrival:  1000,
		MeanFailureDuration:      50,
		TrackStatsEvery:          10,
	}
}

func TestRunProcessesAllArrivals(t *testing.T) {
	topo := smallBase(t)
	env, err := New(baseConfig(), topo, routing.ClosestAvailableDC{}, restoration.PathRestoration{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env.Reset(1)
	result, err := env.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Processed != 50 {
		t.Fatalf("expected 50 processed arrivals, got %d", result.Processed)
	}
	if result.RequestBlockingRatio < 0 || result.RequestBlockingRatio > 1 {
		t.Fatalf("blocking ratio out of range: %v", result.RequestBlockingRatio)
	}
}

func TestRunIsDeterministicForSameSeed(t *testing.T) {
	cfg := baseConfig()
	topoA := smallBase(t)
	topoB := smallBase(t)

	envA, _ := New(cfg, topoA, routing.ClosestAvailableDC{}, restoration.PathRestoration{})
	envB, _ := New(cfg, topoB, routing.ClosestAvailableDC{}, restoration.PathRestoration{})
	envA.Reset(99)
	envB.Reset(99)

	resultA, errA := envA.Run()
	resultB, errB := envB.Run()
	if errA != nil || errB != nil {
		t.Fatalf("Run errors: %v %v", errA, errB)
	}
	if resultA.Processed != resultB.Processed || resultA.Rejected != resultB.Rejected ||
		resultA.RequestBlockingRatio != resultB.RequestBlockingRatio ||
		resultA.Disrupted != resultB.Disrupted || resultA.Restored != resultB.Restored {
		t.Fatalf("expected identical results for identical seeds, got %+v vs %+v", resultA, resultB)
	}
}

func TestResetClearsPriorEpisodeState(t *testing.T) {
	topo := smallBase(t)
	env, _ := New(baseConfig(), topo, routing.ClosestAvailableDC{}, restoration.PathRestoration{})
	env.Reset(1)
	if _, err := env.Run(); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	env.Reset(1)
	if len(env.services) != 0 {
		t.Fatal("expected Reset to clear in-flight services")
	}
	if env.topo.Nodes["DC1"].AvailableUnits != env.topo.Nodes["DC1"].TotalUnits {
		t.Fatal("expected Reset to restore full DC capacity")
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.NumArrivals = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero arrivals")
	}
}

// TestPathRestorationSealsWhenNoAlternatePathExists covers the PR
// baseline scenario: a service with no alternate route to its DC is
// sealed on link failure, contributing zero restorability and an
// availability equal to its truncated service time over its full
// holding time.
func TestPathRestorationSealsWhenNoAlternatePathExists(t *testing.T) {
	topo := deadEndTopo(t)
	env, err := New(baseConfig(), topo, routing.ClosestAvailableDC{}, restoration.PathRestoration{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env.Reset(1)
	env.queue = event.NewQueue()
	env.services = make(map[int]*service.Service)

	paths := env.topo.KShortestPaths("Source", "D1")
	if len(paths) == 0 {
		t.Fatal("expected a Source->D1 path")
	}
	svc := admitDirect(t, env, 1, paths[0], 100)

	env.now = 10
	if err := env.handleLinkFailureArrival(&service.LinkFailure{ID: 1, LinkID: "Source-X", Duration: 50}); err != nil {
		t.Fatalf("handleLinkFailureArrival: %v", err)
	}

	if !svc.Failed {
		t.Fatal("expected the service to be sealed, no alternate path exists")
	}
	if svc.ServiceTime != 10 {
		t.Fatalf("expected ServiceTime == 10 (time of failure), got %v", svc.ServiceTime)
	}
	wantAvailability := 10.0 / 100.0
	if svc.Availability != wantAvailability {
		t.Fatalf("expected availability %v, got %v", wantAvailability, svc.Availability)
	}

	result := env.statsAgg.Result(env.topo)
	if result.Disrupted != 1 || result.Restored != 0 {
		t.Fatalf("expected 1 disrupted, 0 restored, got %+v", result)
	}
	if result.Restorability != 0 {
		t.Fatalf("expected restorability 0, got %v", result.Restorability)
	}
	if result.AverageAvailability != wantAvailability {
		t.Fatalf("expected average_availability to include the sealed service, got %v want %v", result.AverageAvailability, wantAvailability)
	}
}

// TestPathRestorationWithRelocationMovesServiceToAlternateDC covers the
// PRwR scenario: when the original path is unrestorable but another DC
// is reachable, the service is relocated rather than sealed, and the
// relocation is reflected in restorability/relocation_ratio.
func TestPathRestorationWithRelocationMovesServiceToAlternateDC(t *testing.T) {
	topo := twoPathTopo(t)
	env, err := New(baseConfig(), topo, routing.ClosestAvailableDC{}, restoration.PathRestorationWithRelocation{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env.Reset(1)
	env.queue = event.NewQueue()
	env.services = make(map[int]*service.Service)

	paths := env.topo.KShortestPaths("Source", "D1")
	if len(paths) == 0 {
		t.Fatal("expected a Source->D1 path")
	}
	svc := admitDirect(t, env, 1, paths[0], 100)

	env.now = 10
	if err := env.handleLinkFailureArrival(&service.LinkFailure{ID: 1, LinkID: "Source-X", Duration: 50}); err != nil {
		t.Fatalf("handleLinkFailureArrival: %v", err)
	}

	if svc.Failed {
		t.Fatal("expected the service to be relocated, not sealed")
	}
	if !svc.Relocated {
		t.Fatal("expected Relocated to be set after a cross-DC restoration")
	}
	if svc.Destination != "D2" {
		t.Fatalf("expected relocation to D2, got %v", svc.Destination)
	}

	result := env.statsAgg.Result(env.topo)
	if result.Disrupted != 1 || result.Restored != 1 {
		t.Fatalf("expected 1 disrupted, 1 restored, got %+v", result)
	}
	if result.Restorability != 1 {
		t.Fatalf("expected restorability 1, got %v", result.Restorability)
	}
	if result.RelocationRatio != 1 {
		t.Fatalf("expected relocation_ratio 1, got %v", result.RelocationRatio)
	}
}

// TestRelocatedFlagResetsOnNewDisruption covers the review's Relocated
// reset requirement: a service relocated once must not carry that flag
// into a later disruption that restores it in place via plain PR.
func TestRelocatedFlagResetsOnNewDisruption(t *testing.T) {
	topo := parallelRouteTopo(t)
	env, err := New(baseConfig(), topo, routing.ClosestAvailableDC{}, restoration.PathRestorationWithRelocation{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env.Reset(1)
	env.queue = event.NewQueue()
	env.services = make(map[int]*service.Service)

	paths := env.topo.KShortestPaths("Source", "D1")
	svc := admitDirect(t, env, 1, paths[0], 1000)

	env.now = 10
	if err := env.handleLinkFailureArrival(&service.LinkFailure{ID: 1, LinkID: "Source-X", Duration: 50}); err != nil {
		t.Fatalf("first handleLinkFailureArrival: %v", err)
	}
	if !svc.Relocated {
		t.Fatal("expected Relocated after the first disruption's relocation")
	}
	if err := env.handleLinkFailureDeparture(&service.LinkFailure{ID: 1, LinkID: "Source-X"}); err != nil {
		t.Fatalf("handleLinkFailureDeparture: %v", err)
	}

	// A second disruption hits whichever D2 route the relocation picked
	// (Source-Y or Source-Z) and restores it over the other D2 route:
	// no relocation this time.
	secondLink := "Source-Y"
	if len(svc.Route.Nodes) > 1 && svc.Route.Nodes[1] == "Z" {
		secondLink = "Source-Z"
	}
	env.now = 20
	if err := env.handleLinkFailureArrival(&service.LinkFailure{ID: 2, LinkID: secondLink, Duration: 50}); err != nil {
		t.Fatalf("second handleLinkFailureArrival: %v", err)
	}

	if svc.Failed {
		t.Fatal("expected the service to survive the second disruption")
	}
	if svc.Relocated {
		t.Fatal("expected Relocated to reset to false since the second restoration used the same DC")
	}
	if !svc.FailedBefore {
		t.Fatal("expected FailedBefore to stay set once a service has ever been disrupted")
	}
}

// TestReDisruptionCountedOnSecondFailureOnly covers the re-disruption
// scenario: a service disrupted twice is counted as disrupted twice in
// total, but only the second disruption increments ReDisrupted, since
// failed_before is false the first time and true the second.
func TestReDisruptionCountedOnSecondFailureOnly(t *testing.T) {
	topo := twoPathTopo(t)
	env, err := New(baseConfig(), topo, routing.ClosestAvailableDC{}, restoration.PathRestorationWithRelocation{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env.Reset(1)
	env.queue = event.NewQueue()
	env.services = make(map[int]*service.Service)

	paths := env.topo.KShortestPaths("Source", "D1")
	svc := admitDirect(t, env, 1, paths[0], 1000)

	env.now = 10
	if err := env.handleLinkFailureArrival(&service.LinkFailure{ID: 1, LinkID: "Source-X", Duration: 50}); err != nil {
		t.Fatalf("first handleLinkFailureArrival: %v", err)
	}
	if !svc.FailedBefore {
		t.Fatal("expected FailedBefore after the first disruption")
	}
	if got := env.statsAgg.Result(env.topo).ReDisrupted; got != 0 {
		t.Fatalf("expected 0 re-disruptions after the first failure, got %d", got)
	}
	if err := env.handleLinkFailureDeparture(&service.LinkFailure{ID: 1, LinkID: "Source-X"}); err != nil {
		t.Fatalf("handleLinkFailureDeparture: %v", err)
	}

	env.now = 20
	if err := env.handleLinkFailureArrival(&service.LinkFailure{ID: 2, LinkID: "Source-Y", Duration: 50}); err != nil {
		t.Fatalf("second handleLinkFailureArrival: %v", err)
	}

	result := env.statsAgg.Result(env.topo)
	if result.Disrupted != 2 {
		t.Fatalf("expected 2 total disruptions, got %d", result.Disrupted)
	}
	if result.ReDisrupted != 1 {
		t.Fatalf("expected exactly 1 re-disruption (the second failure only), got %d", result.ReDisrupted)
	}
}

// TestDisasterArrivalDisruptsEachServiceOnceAcrossRegionLinks covers
// the multi-link cascade scenario: a region listing several links that
// share a running service must disrupt that service exactly once, via
// a single disaster_arrival covering the whole link list.
func TestDisasterArrivalDisruptsEachServiceOnceAcrossRegionLinks(t *testing.T) {
	topo := topology.New()
	for _, id := range []string{"Source", "X", "D1"} {
		topo.AddNode(id, 0, 0)
	}
	if _, err := topo.AddLink("l1", "Source", "X", 1); err != nil {
		t.Fatalf("AddLink: %v", err)
	}
	if _, err := topo.AddLink("l2", "X", "D1", 1); err != nil {
		t.Fatalf("AddLink: %v", err)
	}
	if err := topo.PlaceDCs(topology.PlacementFixed, 1, 50, []string{"D1"}); err != nil {
		t.Fatalf("PlaceDCs: %v", err)
	}
	topo.ComputeKShortestPaths(3, append([]string{"Source"}, topo.DCs...))

	env, err := New(baseConfig(), topo, routing.ClosestAvailableDC{}, restoration.PathRestoration{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env.Reset(1)
	env.queue = event.NewQueue()
	env.services = make(map[int]*service.Service)

	paths := env.topo.KShortestPaths("Source", "D1")
	svc := admitDirect(t, env, 1, paths[0], 100)

	env.now = 10
	failure := &service.DisasterFailure{ID: 1, ZoneID: "z1", Region: topology.RegionEpicenter, LinkIDs: []string{"l1", "l2"}, Duration: 50}
	if err := env.handleDisasterArrival(failure); err != nil {
		t.Fatalf("handleDisasterArrival: %v", err)
	}

	if len(failure.Disrupted) != 1 || failure.Disrupted[0] != svc.ID {
		t.Fatalf("expected exactly one disruption record for the service riding both failed links, got %v", failure.Disrupted)
	}
	if result := env.statsAgg.Result(env.topo); result.Disrupted != 1 {
		t.Fatalf("expected 1 disrupted service despite both its links failing, got %d", result.Disrupted)
	}
}

func TestInvariantErrorUnwraps(t *testing.T) {
	wrapped := errUnknownLink
	ie := &InvariantError{EventKind: "arrival", Now: 1, Err: wrapped}
	if !errors.Is(ie, wrapped) {
		t.Fatal("expected InvariantError to unwrap to the underlying error")
	}
}
