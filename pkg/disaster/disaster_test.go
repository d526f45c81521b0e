package disaster

import (
	"testing"

	"github.com/jihwankim/cascade-sim/pkg/rng"
	"github.com/jihwankim/cascade-sim/pkg/topology"
)

func buildZoneTopology(t *testing.T) *topology.Topology {
	t.Helper()
	topo := topology.New()
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		topo.AddNode(id, 0, 0)
	}
	topo.AddLink("l1", "A", "B", 1)
	topo.AddLink("l2", "B", "C", 1)
	topo.AddLink("l3", "C", "D", 1)
	topo.AddLink("l4", "D", "E", 1)

	zone := &topology.Zone{ID: "z1"}
	zone.Regions[topology.RegionEpicenter] = topology.Region{
		Kind:  topology.RegionEpicenter,
		Links: []topology.RegionLink{{LinkID: "l1", BaseFailureProbability: 0.9}},
	}
	zone.Regions[topology.RegionT73] = topology.Region{
		Kind:  topology.RegionT73,
		Links: []topology.RegionLink{{LinkID: "l2", BaseFailureProbability: 0.73}},
	}
	zone.Regions[topology.RegionT15] = topology.Region{
		Kind:  topology.RegionT15,
		Links: []topology.RegionLink{{LinkID: "l3", BaseFailureProbability: 0.15}},
	}
	zone.Regions[topology.RegionT5] = topology.Region{
		Kind:  topology.RegionT5,
		Links: []topology.RegionLink{{LinkID: "l4", BaseFailureProbability: 0.05}},
	}
	topo.Zones = []*topology.Zone{zone}
	return topo
}

func TestNextTriggerArrivalFormula(t *testing.T) {
	s := NewScheduler(nil, 100, 3600)
	s.zones = make([]*topology.Zone, 3)
	s.numZones = 3

	trigger, ok := s.NextTriggerArrival(1000)
	if !ok {
		t.Fatal("expected a trigger for the first zone")
	}
	// interval = floor(1000 / 3.5) = 285; k=0 -> trigger = 285.
	if trigger != 285 {
		t.Fatalf("expected trigger 285, got %d", trigger)
	}
}

func TestNextTriggerArrivalExhausted(t *testing.T) {
	s := NewScheduler(nil, 100, 3600)
	s.zones = make([]*topology.Zone, 1)
	s.numZones = 1
	s.zonesBegun = 1
	if _, ok := s.NextTriggerArrival(1000); ok {
		t.Fatal("expected no trigger once every zone has begun")
	}
}

func TestActivateArmsAllFourRegionsRegardlessOfCascadeOutcome(t *testing.T) {
	topo := buildZoneTopology(t)
	s := NewScheduler(topo.Zones, 10, 3600)
	r := rng.New(1)

	s.Activate(topo, r, 0)

	for _, linkID := range []string{"l1", "l2", "l3", "l4"} {
		if topo.Links[linkID].CurrentFailureProbability == 0 {
			t.Fatalf("expected %s to be armed regardless of whether its tier fires", linkID)
		}
	}
}

func TestActivateEpicenterAlwaysFires(t *testing.T) {
	topo := buildZoneTopology(t)
	s := NewScheduler(topo.Zones, 10, 3600)
	r := rng.New(1)

	subEvents := s.Activate(topo, r, 0)
	foundEpicenter := false
	for _, se := range subEvents {
		if se.Region == topology.RegionEpicenter && len(se.Links) == 1 && se.Links[0] == "l1" {
			foundEpicenter = true
		}
	}
	if !foundEpicenter {
		t.Fatal("expected the epicenter sub-event to always fire")
	}
}

func TestT5TimeAdvancesRegardlessOfT15Outcome(t *testing.T) {
	topo := buildZoneTopology(t)
	s := NewScheduler(topo.Zones, 10, 3600)
	r := rng.New(42)

	subEvents := s.Activate(topo, r, 0)
	var epiTime float64
	for _, se := range subEvents {
		if se.Region == topology.RegionEpicenter {
			epiTime = se.At
		}
	}
	for _, se := range subEvents {
		if se.Region == topology.RegionT5 {
			want := epiTime + 3600 + 3600 + 3600
			if se.At != want {
				t.Fatalf("expected T5 time to be epicenter+10800 regardless of T15 outcome, got %v want %v", se.At, want)
			}
		}
	}
}

func TestActivateEmitsOneSubEventPerFiredRegionCoveringAllItsLinks(t *testing.T) {
	topo := topology.New()
	for _, id := range []string{"A", "B", "C"} {
		topo.AddNode(id, 0, 0)
	}
	topo.AddLink("l1", "A", "B", 1)
	topo.AddLink("l7", "B", "C", 1)

	zone := &topology.Zone{ID: "z1"}
	zone.Regions[topology.RegionEpicenter] = topology.Region{
		Kind: topology.RegionEpicenter,
		Links: []topology.RegionLink{
			{LinkID: "l1", BaseFailureProbability: 0.9},
			{LinkID: "l7", BaseFailureProbability: 0.9},
		},
	}
	topo.Zones = []*topology.Zone{zone}

	s := NewScheduler(topo.Zones, 10, 3600)
	r := rng.New(1)

	subEvents := s.Activate(topo, r, 0)

	epicenterEvents := 0
	for _, se := range subEvents {
		if se.Region == topology.RegionEpicenter {
			epicenterEvents++
			if len(se.Links) != 2 {
				t.Fatalf("expected the epicenter sub-event to cover both region links, got %v", se.Links)
			}
		}
	}
	if epicenterEvents != 1 {
		t.Fatalf("expected exactly one sub-event for the two-link epicenter region, got %d", epicenterEvents)
	}
}

func TestNoteDepartureDisarmsWhenStagesExhausted(t *testing.T) {
	topo := buildZoneTopology(t)
	s := NewScheduler(topo.Zones, 10, 3600)
	r := rng.New(2)
	s.Activate(topo, r, 0)

	stages := s.pendingStages["z1"]
	disarmed := false
	for i := 0; i < stages; i++ {
		disarmed = s.NoteDeparture("z1")
	}
	if !disarmed {
		t.Fatal("expected the zone to disarm once every pending stage departs")
	}
}

func TestDisarmResetsFailureProbabilities(t *testing.T) {
	topo := buildZoneTopology(t)
	s := NewScheduler(topo.Zones, 10, 3600)
	r := rng.New(3)
	s.Activate(topo, r, 0)

	s.Disarm(topo, "z1")
	for _, linkID := range []string{"l1", "l2", "l3", "l4"} {
		if topo.Links[linkID].CurrentFailureProbability != 0 {
			t.Fatalf("expected %s to be disarmed, got %v", linkID, topo.Links[linkID].CurrentFailureProbability)
		}
	}
}
