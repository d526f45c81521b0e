package stats

import (
	"testing"

	"github.com/jihwankim/cascade-sim/pkg/topology"
)

func TestResultNeutralValuesOnEmptyEpisode(t *testing.T) {
	a := NewAggregator(0)
	topo := topology.New()
	r := a.Result(topo)
	if r.RequestBlockingRatio != 0 {
		t.Fatalf("expected blocking ratio neutral 0, got %v", r.RequestBlockingRatio)
	}
	if r.Restorability != 1 {
		t.Fatalf("expected restorability neutral 1 with no disruptions, got %v", r.Restorability)
	}
	if r.RelocationRatio != 0 {
		t.Fatalf("expected relocation ratio neutral 0, got %v", r.RelocationRatio)
	}
}

func TestResultComputesRatios(t *testing.T) {
	a := NewAggregator(0)
	for i := 0; i < 10; i++ {
		a.RecordProcessed()
	}
	for i := 0; i < 3; i++ {
		a.RecordRejected()
	}
	a.RecordDisrupted("link", 1, 2, 3)
	a.RecordDisrupted("T73", 1, 2, 3)
	a.RecordRestored("link")
	a.RecordRelocated()

	topo := topology.New()
	r := a.Result(topo)
	if r.RequestBlockingRatio != 0.3 {
		t.Fatalf("expected blocking ratio 0.3, got %v", r.RequestBlockingRatio)
	}
	if r.Restorability != 0.5 {
		t.Fatalf("expected restorability 0.5, got %v", r.Restorability)
	}
	if r.RelocationRatio != 0.5 {
		t.Fatalf("expected relocation ratio 0.5, got %v", r.RelocationRatio)
	}
	if r.DisruptedByTier["link"] != 1 || r.DisruptedByTier["T73"] != 1 {
		t.Fatalf("expected per-tier disrupted counts, got %v", r.DisruptedByTier)
	}
	if r.AverageLossCost != 1 || r.AverageExpectedLossCost != 2 || r.AverageExpectedCapacityLoss != 3 {
		t.Fatalf("expected per-service cost means, got %+v", r)
	}
}

func TestMaybeSnapshotCadence(t *testing.T) {
	a := NewAggregator(5)
	topo := topology.New()
	for i := 1; i <= 12; i++ {
		a.MaybeSnapshot(i, float64(i), topo)
	}
	if len(a.Snapshots) != 2 {
		t.Fatalf("expected 2 snapshots at arrivals 5 and 10, got %d", len(a.Snapshots))
	}
	if a.Snapshots[0].ArrivalCount != 5 || a.Snapshots[1].ArrivalCount != 10 {
		t.Fatalf("unexpected snapshot arrival counts: %+v", a.Snapshots)
	}
}

func TestMaybeSnapshotDisabled(t *testing.T) {
	a := NewAggregator(0)
	topo := topology.New()
	for i := 1; i <= 10; i++ {
		a.MaybeSnapshot(i, float64(i), topo)
	}
	if len(a.Snapshots) != 0 {
		t.Fatal("expected no snapshots when cadence is disabled")
	}
}
