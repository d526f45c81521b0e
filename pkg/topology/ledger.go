package topology

import "fmt"

// InvariantError marks a resource-ledger invariant violation: releasing
// capacity that was never reserved, or a negative available-units count
// surfacing after an update. Callers abort the owning episode on this
// error rather than attempt to continue with corrupted accounting.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return "topology: invariant violation: " + e.Msg }

// touchNodeUtilization folds the elapsed interval since LastUpdate into
// the running time-weighted average, then advances LastUpdate to now.
// u_cur is computed from the occupancy observed BEFORE the caller
// applies its own reservation/release delta.
func touchNodeUtilization(n *Node, now float64) {
	uCur := 0.0
	if n.TotalUnits > 0 {
		uCur = float64(n.TotalUnits-n.AvailableUnits) / float64(n.TotalUnits)
	}
	if now > 0 {
		n.Utilization = (n.Utilization*n.LastUpdate + uCur*(now-n.LastUpdate)) / now
	}
	n.LastUpdate = now
}

func touchLinkUtilization(l *Link, now float64) {
	uCur := 0.0
	if l.TotalUnits > 0 {
		uCur = float64(l.TotalUnits-l.AvailableUnits) / float64(l.TotalUnits)
	}
	if now > 0 {
		l.Utilization = (l.Utilization*l.LastUpdate + uCur*(now-l.LastUpdate)) / now
	}
	l.LastUpdate = now
}

// FinalizeUtilization folds the interval since each node/link's last
// update through to now, so a utilization read taken after the event
// loop stops still reflects the final holding interval.
func (t *Topology) FinalizeUtilization(now float64) {
	for _, n := range t.Nodes {
		touchNodeUtilization(n, now)
	}
	for _, l := range t.Links {
		touchLinkUtilization(l, now)
	}
}

// AverageLinkUtilization returns the mean time-weighted utilization
// across all links, or 0 when the topology has none.
func (t *Topology) AverageLinkUtilization() float64 {
	if len(t.Links) == 0 {
		return 0
	}
	sum := 0.0
	for _, l := range t.Links {
		sum += l.Utilization
	}
	return sum / float64(len(t.Links))
}

// AverageDCUtilization returns the mean time-weighted utilization
// across all datacenter nodes, or 0 when there are none.
func (t *Topology) AverageDCUtilization() float64 {
	if len(t.DCs) == 0 {
		return 0
	}
	sum := 0.0
	for _, id := range t.DCs {
		sum += t.Nodes[id].Utilization
	}
	return sum / float64(len(t.DCs))
}

// ReserveDC accounts for a service occupying computingUnits of capacity
// at a destination DC, updating its time-weighted utilization first.
func (t *Topology) ReserveDC(dcID string, computingUnits, serviceID int, now float64) error {
	n, ok := t.Nodes[dcID]
	if !ok || !n.IsDC {
		return fmt.Errorf("topology: %s is not a known datacenter", dcID)
	}
	if n.AvailableUnits < computingUnits {
		return &InvariantError{Msg: fmt.Sprintf("insufficient capacity at %s: have %d need %d", dcID, n.AvailableUnits, computingUnits)}
	}
	touchNodeUtilization(n, now)
	n.AvailableUnits -= computingUnits
	n.RunningServices[serviceID] = struct{}{}
	return nil
}

// ReleaseDC returns computingUnits of capacity to a destination DC.
func (t *Topology) ReleaseDC(dcID string, computingUnits, serviceID int, now float64) error {
	n, ok := t.Nodes[dcID]
	if !ok || !n.IsDC {
		return fmt.Errorf("topology: %s is not a known datacenter", dcID)
	}
	if _, running := n.RunningServices[serviceID]; !running {
		return &InvariantError{Msg: fmt.Sprintf("release of service %d not running at %s", serviceID, dcID)}
	}
	touchNodeUtilization(n, now)
	n.AvailableUnits += computingUnits
	if n.AvailableUnits > n.TotalUnits {
		return &InvariantError{Msg: fmt.Sprintf("available units exceed total at %s after release", dcID)}
	}
	delete(n.RunningServices, serviceID)
	return nil
}

// ReserveLink accounts for a service occupying networkUnits of capacity
// on a single link.
func (t *Topology) ReserveLink(linkID string, networkUnits, serviceID int, now float64) error {
	l, ok := t.Links[linkID]
	if !ok {
		return fmt.Errorf("topology: unknown link %s", linkID)
	}
	if l.AvailableUnits < networkUnits {
		return &InvariantError{Msg: fmt.Sprintf("insufficient capacity on link %s: have %d need %d", linkID, l.AvailableUnits, networkUnits)}
	}
	touchLinkUtilization(l, now)
	l.AvailableUnits -= networkUnits
	l.RunningServices = append(l.RunningServices, serviceID)
	return nil
}

// ReleaseLink returns networkUnits of capacity to a single link.
func (t *Topology) ReleaseLink(linkID string, networkUnits, serviceID int, now float64) error {
	l, ok := t.Links[linkID]
	if !ok {
		return fmt.Errorf("topology: unknown link %s", linkID)
	}
	if !l.HasService(serviceID) {
		return &InvariantError{Msg: fmt.Sprintf("release of service %d not running on link %s", serviceID, linkID)}
	}
	touchLinkUtilization(l, now)
	l.AvailableUnits += networkUnits
	if l.AvailableUnits > l.TotalUnits {
		return &InvariantError{Msg: fmt.Sprintf("available units exceed total on link %s after release", linkID)}
	}
	out := l.RunningServices[:0]
	removed := false
	for _, id := range l.RunningServices {
		if id == serviceID && !removed {
			removed = true
			continue
		}
		out = append(out, id)
	}
	l.RunningServices = out
	return nil
}

// ReserveRoute reserves networkUnits on every link of p and
// computingUnits at the destination DC. On partial failure it unwinds
// whatever it already reserved and returns the error untouched, so the
// caller can treat admission as atomic.
func (t *Topology) ReserveRoute(p *Path, networkUnits, computingUnits, serviceID int, now float64) error {
	links, err := t.LinksOnPath(p)
	if err != nil {
		return err
	}
	reserved := make([]*Link, 0, len(links))
	for _, l := range links {
		if err := t.ReserveLink(l.ID, networkUnits, serviceID, now); err != nil {
			for _, r := range reserved {
				_ = t.ReleaseLink(r.ID, networkUnits, serviceID, now)
			}
			return err
		}
		reserved = append(reserved, l)
	}
	if err := t.ReserveDC(p.Destination(), computingUnits, serviceID, now); err != nil {
		for _, r := range reserved {
			_ = t.ReleaseLink(r.ID, networkUnits, serviceID, now)
		}
		return err
	}
	return nil
}

// ReleaseRoute is the inverse of ReserveRoute: it releases capacity on
// every link of p and at the destination DC.
func (t *Topology) ReleaseRoute(p *Path, networkUnits, computingUnits, serviceID int, now float64) error {
	links, err := t.LinksOnPath(p)
	if err != nil {
		return err
	}
	for _, l := range links {
		if err := t.ReleaseLink(l.ID, networkUnits, serviceID, now); err != nil {
			return err
		}
	}
	return t.ReleaseDC(p.Destination(), computingUnits, serviceID, now)
}

// RiskOfPath computes Σ current_failure_probability·total_units over
// p's links: the expected-capacity-loss proxy used by risk-aware
// routing/restoration and recorded against every provisioned service
// for the statistics aggregator.
func (t *Topology) RiskOfPath(p *Path) float64 {
	links, err := t.LinksOnPath(p)
	if err != nil {
		return 0
	}
	risk := 0.0
	for _, l := range links {
		risk += l.CurrentFailureProbability * float64(l.TotalUnits)
	}
	return risk
}

// PathViable reports whether p can currently admit a service needing
// networkUnits per link: no failed node, no failed link, and every
// link on the path has sufficient available capacity.
func (t *Topology) PathViable(p *Path, networkUnits int) bool {
	for _, id := range p.Nodes {
		if n, ok := t.Nodes[id]; !ok || n.Failed {
			return false
		}
	}
	links, err := t.LinksOnPath(p)
	if err != nil {
		return false
	}
	for _, l := range links {
		if l.Failed || l.AvailableUnits < networkUnits {
			return false
		}
	}
	return true
}

// DCAvailable reports whether dcID is a known, unfailed DC with at
// least computingUnits of spare capacity.
func (t *Topology) DCAvailable(dcID string, computingUnits int) bool {
	n, ok := t.Nodes[dcID]
	if !ok || !n.IsDC || n.Failed {
		return false
	}
	return n.AvailableUnits >= computingUnits
}
