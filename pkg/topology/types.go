// Package topology models the datacenter-interconnect graph: nodes,
// links, disaster zones, and the precomputed k-shortest-path index.
package topology

// Node is a network vertex; a subset are flagged as datacenters (DCs)
// with compute capacity, all others are pure transit/source nodes.
type Node struct {
	ID  string
	X   float64
	Y   float64

	IsDC bool

	TotalUnits     int
	AvailableUnits int

	Failed bool

	Utilization float64
	LastUpdate  float64

	// RunningServices holds the ids of services currently provisioned
	// at this node (only meaningful when IsDC).
	RunningServices map[int]struct{}

	NodeFailureProbability float64
}

// Link is an undirected edge between two nodes.
type Link struct {
	ID string
	A  string
	B  string

	Length float64 // geographic distance, informational

	TotalUnits     int
	AvailableUnits int

	Failed bool

	Utilization float64
	LastUpdate  float64

	// RunningServices is ordered by insertion; a service appears at
	// most once.
	RunningServices []int

	BaseFailureProbability    float64
	CurrentFailureProbability float64
}

// Other returns the endpoint of the link that is not id.
func (l *Link) Other(id string) string {
	if l.A == id {
		return l.B
	}
	return l.A
}

// HasService reports whether serviceID is already recorded as running
// on this link.
func (l *Link) HasService(serviceID int) bool {
	for _, id := range l.RunningServices {
		if id == serviceID {
			return true
		}
	}
	return false
}

// Path is an ordered, read-only sequence of node ids of length >= 2.
type Path struct {
	Nodes  []string
	Hops   int
	Length float64
}

// NewPath builds a Path from a node sequence, deriving Hops.
func NewPath(nodes []string, length float64) *Path {
	p := &Path{Nodes: append([]string(nil), nodes...), Length: length}
	if len(p.Nodes) > 0 {
		p.Hops = len(p.Nodes) - 1
	}
	return p
}

// Source and Destination return the path endpoints.
func (p *Path) Source() string      { return p.Nodes[0] }
func (p *Path) Destination() string { return p.Nodes[len(p.Nodes)-1] }

// RegionKind identifies one of the four ordered regions of a disaster zone.
type RegionKind int

const (
	RegionEpicenter RegionKind = iota
	RegionT73
	RegionT15
	RegionT5
)

func (r RegionKind) String() string {
	switch r {
	case RegionEpicenter:
		return "epicenter"
	case RegionT73:
		return "T73"
	case RegionT15:
		return "T15"
	case RegionT5:
		return "T5"
	default:
		return "unknown"
	}
}

// RegionLink is one (link, base probability) entry within a region.
type RegionLink struct {
	LinkID                 string
	BaseFailureProbability float64
}

// Region is one of the four tiers of a disaster zone.
type Region struct {
	Kind  RegionKind
	Links []RegionLink
}

// Zone is an ordered 4-tuple of regions: epicenter, T73, T15, T5.
// A zone is consumed in one cascade activation during a simulation.
type Zone struct {
	ID      string
	Regions [4]Region
}

// AllLinks returns the union of link ids across all four regions,
// each appearing once.
func (z *Zone) AllLinks() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range z.Regions {
		for _, rl := range r.Links {
			if _, ok := seen[rl.LinkID]; !ok {
				seen[rl.LinkID] = struct{}{}
				out = append(out, rl.LinkID)
			}
		}
	}
	return out
}
