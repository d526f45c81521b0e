package engine

import (
	"errors"

	"github.com/jihwankim/cascade-sim/pkg/event"
	"github.com/jihwankim/cascade-sim/pkg/service"
)

var errUnknownEventKind = errors.New("unknown event kind")

// scheduleNextArrival draws the next inter-arrival gap and pushes a
// fresh, not-yet-routed service. It stops arming new arrivals once
// NumArrivals have been scheduled; in-flight services are still
// allowed to depart or be disrupted and restored afterward.
func (e *Environment) scheduleNextArrival() {
	if e.arrivalsScheduled >= e.cfg.NumArrivals {
		return
	}
	gap := e.rngSrc.Exponential(e.cfg.MeanInterArrivalTime())
	svc := e.newService()
	e.arrivalsScheduled++
	e.queue.Push(&event.Event{Time: e.now + gap, Kind: event.Arrival, Payload: svc})
}

func (e *Environment) newService() *service.Service {
	id := e.nextServiceID
	e.nextServiceID++

	sources := e.topo.SourceNodes()
	source := sources[e.rngSrc.Choice(len(sources))]

	priority := e.cfg.PriorityClasses[e.rngSrc.Choice(len(e.cfg.PriorityClasses))]
	holding := e.rngSrc.Exponential(e.cfg.MeanHoldingTime)

	return &service.Service{
		ID:             id,
		Source:         source,
		Priority:       priority,
		ComputingUnits: e.rngSrc.UniformInt(1, 5),
		NetworkUnits:   e.cfg.NetworkUnitsPerService,
		HoldingTime:    holding,
	}
}

// scheduleNextLinkFailure arms the next ordinary (non-disaster) link
// outage: a uniformly random link fails after an exponential gap, for
// an exponential duration. Re-armed forever while arrivals remain.
func (e *Environment) scheduleNextLinkFailure() {
	if e.arrivalsScheduled >= e.cfg.NumArrivals {
		return
	}
	linkIDs := e.topo.SortedLinkIDs()
	if len(linkIDs) == 0 {
		return
	}
	gap := e.rngSrc.Exponential(e.cfg.MeanFailureInterArrival)
	linkID := linkIDs[e.rngSrc.Choice(len(linkIDs))]
	duration := e.rngSrc.Exponential(e.cfg.MeanFailureDuration)

	id := e.nextFailureID
	e.nextFailureID++
	failure := &service.LinkFailure{ID: id, LinkID: linkID, ArrivalTime: e.now + gap, Duration: duration}
	e.queue.Push(&event.Event{Time: failure.ArrivalTime, Kind: event.LinkFailureArrival, Payload: failure})
}

// maybeTriggerDisaster checks whether the arrival count just reached
// the next zone's trigger point and, if so, activates the cascade and
// schedules its sub-events.
func (e *Environment) maybeTriggerDisaster() {
	trigger, ok := e.scheduler.NextTriggerArrival(e.cfg.NumArrivals)
	if !ok || e.arrivalsScheduled < trigger {
		return
	}
	subEvents := e.scheduler.Activate(e.topo, e.rngSrc, e.now)
	for _, se := range subEvents {
		id := e.nextFailureID
		e.nextFailureID++
		failure := &service.DisasterFailure{
			ID:          id,
			ZoneID:      se.ZoneID,
			Region:      se.Region,
			LinkIDs:     se.Links,
			ArrivalTime: se.At,
			Duration:    se.Duration,
		}
		e.queue.Push(&event.Event{Time: se.At, Kind: event.DisasterArrival, Payload: failure})
	}
}
