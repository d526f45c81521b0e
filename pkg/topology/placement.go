package topology

import (
	"fmt"
	"sort"
)

// PlacementMode selects how datacenter nodes are chosen within a
// topology that does not itself label nodes as DCs.
type PlacementMode string

const (
	// PlacementDegree picks the numDCs nodes with the highest degree,
	// breaking ties by node id for determinism.
	PlacementDegree PlacementMode = "degree"
	// PlacementFixed picks an explicit, caller-supplied list of node
	// names, grounded on original_source/graph.py's get_dcs hardcoded
	// ["Salt_Lake_City", "Birmingham", "Bismarck"] example.
	PlacementFixed PlacementMode = "fixed"
)

// PlaceDCs marks numDCs nodes as datacenters and gives each
// computingUnitsPerDC capacity. For PlacementFixed, names must supply
// exactly the node ids to mark.
func (t *Topology) PlaceDCs(mode PlacementMode, numDCs, computingUnitsPerDC int, names []string) error {
	var chosen []string
	switch mode {
	case PlacementDegree:
		chosen = t.topDegreeNodes(numDCs)
	case PlacementFixed:
		if len(names) == 0 {
			return fmt.Errorf("topology: fixed DC placement requires at least one name")
		}
		for _, name := range names {
			if _, ok := t.Nodes[name]; !ok {
				return fmt.Errorf("topology: fixed DC placement references unknown node %s", name)
			}
		}
		chosen = names
	default:
		return fmt.Errorf("topology: unknown DC placement mode %q", mode)
	}

	for _, id := range chosen {
		n := t.Nodes[id]
		n.IsDC = true
		n.TotalUnits = computingUnitsPerDC
		n.AvailableUnits = computingUnitsPerDC
	}
	t.DCs = append([]string(nil), chosen...)
	sort.Strings(t.DCs)
	return nil
}

func (t *Topology) topDegreeNodes(n int) []string {
	type deg struct {
		id     string
		degree int
	}
	all := make([]deg, 0, len(t.Nodes))
	for id := range t.Nodes {
		all = append(all, deg{id: id, degree: len(t.edges[id])})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].degree != all[j].degree {
			return all[i].degree > all[j].degree
		}
		return all[i].id < all[j].id
	})
	if n > len(all) {
		n = len(all)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = all[i].id
	}
	return out
}
