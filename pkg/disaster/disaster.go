// Package disaster implements the zone-based cascading disaster
// scheduler: a zone is activated once per simulation, arming all of
// its links, then independently rolling each cascade tier in turn.
package disaster

import (
	"math"

	"github.com/jihwankim/cascade-sim/pkg/rng"
	"github.com/jihwankim/cascade-sim/pkg/topology"
)

// SubEvent is one region activation scheduled by a zone cascade: a
// region that rolls true fires a single disaster_arrival covering
// every link it lists, so a service traversing more than one of the
// region's links is disrupted once, not once per link.
type SubEvent struct {
	ZoneID   string
	Region   topology.RegionKind
	Links    []string
	At       float64
	Duration float64
}

// Scheduler drives the zone-trigger formula and cascade activation.
// One Scheduler is owned per simulation episode.
type Scheduler struct {
	zones []*topology.Zone

	numZones            int
	zonesBegun          int
	meanFailureInterArrival float64
	meanFailureDuration     float64

	// pendingStages counts, per in-flight activation, how many
	// disaster_departure events remain before the zone disarms: one
	// for the epicenter (always fires) plus one per cascade tier that
	// actually rolled true.
	pendingStages map[string]int
}

// NewScheduler builds a Scheduler over the zones carried by the
// topology. meanFailureInterArrival/meanFailureDuration parameterize
// the epicenter's own exponential arrival/duration draws.
func NewScheduler(zones []*topology.Zone, meanFailureInterArrival, meanFailureDuration float64) *Scheduler {
	return &Scheduler{
		zones:                   zones,
		numZones:                len(zones),
		meanFailureInterArrival: meanFailureInterArrival,
		meanFailureDuration:     meanFailureDuration,
		pendingStages:           make(map[string]int),
	}
}

// NextTriggerArrival computes the arrival count at which the next
// not-yet-begun zone should activate, per
// next_disaster_arrival = disaster_interval * (k+1), where
// disaster_interval = floor(num_arrivals / (number_of_zones + 0.5))
// and k is the count of zones already begun. Returns false once every
// zone has begun.
func (s *Scheduler) NextTriggerArrival(numArrivals int) (int, bool) {
	if s.zonesBegun >= s.numZones || s.numZones == 0 {
		return 0, false
	}
	interval := math.Floor(float64(numArrivals) / (float64(s.numZones) + 0.5))
	trigger := int(interval) * (s.zonesBegun + 1)
	return trigger, true
}

// Activate arms every link in every region of the next not-yet-begun
// zone (per the spec's "before the first sub-event is scheduled, every
// link in every region of the active zone has its current failure
// probability set" rule), then rolls the four-tier cascade and returns
// the sub-events to schedule as disaster_arrival events. now is the
// simulation instant the epicenter itself draws relative to.
func (s *Scheduler) Activate(t *topology.Topology, r *rng.Source, now float64) []SubEvent {
	if s.zonesBegun >= s.numZones {
		return nil
	}
	zone := s.zones[s.zonesBegun]
	s.zonesBegun++

	for _, linkID := range zone.AllLinks() {
		if l, ok := t.Links[linkID]; ok {
			l.CurrentFailureProbability = 0
			for _, region := range zone.Regions {
				for _, rl := range region.Links {
					if rl.LinkID == linkID {
						l.CurrentFailureProbability = rl.BaseFailureProbability
					}
				}
			}
		}
	}

	var subEvents []SubEvent
	stages := 0

	epicenterAt := now + r.Exponential(s.meanFailureInterArrival)
	epicenterDuration := r.Exponential(s.meanFailureDuration)
	if links := regionLinkIDs(zone.Regions[topology.RegionEpicenter]); len(links) > 0 {
		subEvents = append(subEvents, SubEvent{
			ZoneID: zone.ID, Region: topology.RegionEpicenter, Links: links,
			At: epicenterAt, Duration: epicenterDuration,
		})
	}
	stages++ // epicenter always consumes one pending stage

	t73Time := epicenterAt + 3600
	if r.RollPercent(73) {
		if links := regionLinkIDs(zone.Regions[topology.RegionT73]); len(links) > 0 {
			subEvents = append(subEvents, SubEvent{
				ZoneID: zone.ID, Region: topology.RegionT73, Links: links,
				At: t73Time, Duration: r.Exponential(s.meanFailureDuration),
			})
		}
		stages++
	}

	t15Time := t73Time + 3600
	if r.RollPercent(15) {
		if links := regionLinkIDs(zone.Regions[topology.RegionT15]); len(links) > 0 {
			subEvents = append(subEvents, SubEvent{
				ZoneID: zone.ID, Region: topology.RegionT15, Links: links,
				At: t15Time, Duration: r.Exponential(s.meanFailureDuration),
			})
		}
		stages++
	}

	t5Time := t15Time + 3600
	if r.RollPercent(5) {
		if links := regionLinkIDs(zone.Regions[topology.RegionT5]); len(links) > 0 {
			subEvents = append(subEvents, SubEvent{
				ZoneID: zone.ID, Region: topology.RegionT5, Links: links,
				At: t5Time, Duration: r.Exponential(s.meanFailureDuration),
			})
		}
		stages++
	}

	s.pendingStages[zone.ID] = stages
	return subEvents
}

// regionLinkIDs flattens a region's link entries into the plain id
// list a SubEvent carries.
func regionLinkIDs(region topology.Region) []string {
	ids := make([]string, len(region.Links))
	for i, rl := range region.Links {
		ids[i] = rl.LinkID
	}
	return ids
}

// NoteDeparture records that one disaster_departure for zoneID fired,
// and reports whether the zone is now fully consumed and should have
// its armed links' current failure probabilities reset to zero.
func (s *Scheduler) NoteDeparture(zoneID string) bool {
	remaining, ok := s.pendingStages[zoneID]
	if !ok {
		return false
	}
	remaining--
	if remaining <= 0 {
		delete(s.pendingStages, zoneID)
		return true
	}
	s.pendingStages[zoneID] = remaining
	return false
}

// Disarm resets the current failure probability of every link in zone
// back to zero, marking the zone's disaster window fully passed.
func (s *Scheduler) Disarm(t *topology.Topology, zoneID string) {
	for _, zone := range s.zones {
		if zone.ID != zoneID {
			continue
		}
		for _, linkID := range zone.AllLinks() {
			if l, ok := t.Links[linkID]; ok {
				l.CurrentFailureProbability = 0
			}
		}
		return
	}
}

// Reset rearms the scheduler for a new seed: no zones begun, no
// pending stages.
func (s *Scheduler) Reset() {
	s.zonesBegun = 0
	s.pendingStages = make(map[string]int)
}
