package topology

import (
	"encoding/xml"
	"fmt"
	"math"
	"os"
)

type xmlTopology struct {
	Nodes []xmlNode `xml:"node"`
	Links []xmlLink `xml:"link"`
	Zones []xmlZone `xml:"zone"`
}

type xmlNode struct {
	ID string  `xml:"id,attr"`
	X  float64 `xml:"x,attr"`
	Y  float64 `xml:"y,attr"`
}

type xmlLink struct {
	ID     string `xml:"id,attr"`
	Source string `xml:"source,attr"`
	Target string `xml:"target,attr"`
}

type xmlZone struct {
	ID      string      `xml:"id,attr"`
	Regions []xmlRegion `xml:"region"`
}

type xmlRegion struct {
	ID    int             `xml:"id,attr"`
	Links []xmlDisasterLink `xml:"disaster_link"`
}

type xmlDisasterLink struct {
	Probability float64 `xml:"probability,attr"`
	LinkID      string  `xml:",chardata"`
}

// haversineKM is the great-circle distance in kilometers between two
// lat/lon points, used when a topology file provides geographic
// coordinates instead of an explicit link length.
func haversineKM(x1, y1, x2, y2 float64) float64 {
	const earthRadiusKM = 6371.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(x2 - x1)
	dLon := toRad(y2 - y1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(x1))*math.Cos(toRad(x2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

// LoadXML parses a topology descriptor in the <node>/<link>/<zone>
// schema: each node carries x/y coordinates, each link a source and
// target node id, and each zone an ordered set of up to four <region>
// elements (id 0=epicenter, 1=T73, 2=T15, 3=T5), each listing
// <disaster_link probability="p">LinkId</disaster_link> entries.
func LoadXML(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("topology: reading %s: %w", path, err)
	}
	var doc xmlTopology
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("topology: parsing %s: %w", path, err)
	}

	t := New()
	for _, n := range doc.Nodes {
		t.AddNode(n.ID, n.X, n.Y)
	}
	for _, l := range doc.Links {
		src, ok1 := t.Nodes[l.Source]
		dst, ok2 := t.Nodes[l.Target]
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("topology: link %s references unknown node", l.ID)
		}
		length := haversineKM(src.X, src.Y, dst.X, dst.Y)
		if _, err := t.AddLink(l.ID, l.Source, l.Target, length); err != nil {
			return nil, err
		}
	}

	for _, z := range doc.Zones {
		zone := &Zone{ID: z.ID}
		for _, r := range z.Regions {
			if r.ID < 0 || r.ID > 3 {
				return nil, fmt.Errorf("topology: zone %s has invalid region id %d", z.ID, r.ID)
			}
			region := Region{Kind: RegionKind(r.ID)}
			for _, dl := range r.Links {
				region.Links = append(region.Links, RegionLink{
					LinkID:                 dl.LinkID,
					BaseFailureProbability: dl.Probability,
				})
			}
			zone.Regions[r.ID] = region
		}
		for i := range zone.Regions {
			zone.Regions[i].Kind = RegionKind(i)
		}
		t.Zones = append(t.Zones, zone)
	}

	return t, nil
}
