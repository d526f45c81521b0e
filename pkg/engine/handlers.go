package engine

import (
	"github.com/jihwankim/cascade-sim/pkg/event"
	"github.com/jihwankim/cascade-sim/pkg/service"
)

func (e *Environment) handleArrival(svc *service.Service) error {
	svc.ArrivalTime = e.now
	e.statsAgg.RecordProcessed()

	out := e.routingPolicy.Route(e, svc)
	if out.Admitted {
		// The routing policy already confirmed out.Path is viable and
		// out.DC has spare capacity, so a reservation failure here can
		// only mean the ledger's accounting has been corrupted.
		if err := e.topo.ReserveRoute(out.Path, svc.NetworkUnits, svc.ComputingUnits, svc.ID, e.now); err != nil {
			return &InvariantError{EventKind: event.Arrival.String(), Now: e.now, Err: err}
		}
		svc.Destination = out.DC
		svc.Route = out.Path
		svc.Provisioned = true
		svc.ExpectedRisk = e.topo.RiskOfPath(out.Path)
		e.services[svc.ID] = svc
		e.queue.Push(&event.Event{Time: e.now + svc.HoldingTime, Kind: event.Departure, Payload: svc})
	} else {
		e.statsAgg.RecordRejected()
	}

	e.statsAgg.MaybeSnapshot(e.arrivalsScheduled, e.now, e.topo)
	e.scheduleNextArrival()
	e.maybeTriggerDisaster()
	return nil
}

func (e *Environment) handleDeparture(svc *service.Service) error {
	if svc.Failed {
		// Sealed while in flight; its departure event should already
		// have been cancelled by the handler that sealed it.
		return &InvariantError{EventKind: event.Departure.String(), Now: e.now, Err: errDepartureOfSealedService}
	}
	if err := e.topo.ReleaseRoute(svc.Route, svc.NetworkUnits, svc.ComputingUnits, svc.ID, e.now); err != nil {
		return &InvariantError{EventKind: event.Departure.String(), Now: e.now, Err: err}
	}
	svc.ServiceTime = e.now - svc.ArrivalTime
	if svc.HoldingTime > 0 {
		svc.Availability = svc.ServiceTime / svc.HoldingTime
	} else {
		svc.Availability = 1
	}
	e.statsAgg.RecordCompleted(svc.ServiceTime, svc.HoldingTime)
	delete(e.services, svc.ID)
	return nil
}

// disruptedOnLink collects the services currently running on linkID,
// releasing their reservations and cancelling their pending
// departures so the restoration policy can freely reroute them.
func (e *Environment) disruptedOnLink(linkID string) ([]*service.Service, error) {
	link, ok := e.topo.Links[linkID]
	if !ok {
		return nil, errUnknownLink
	}
	ids := append([]int(nil), link.RunningServices...)
	var disrupted []*service.Service
	for _, id := range ids {
		svc, ok := e.services[id]
		if !ok {
			return nil, errServiceNotTracked
		}
		if !e.queue.Remove(func(ev *event.Event) bool {
			return ev.Kind == event.Departure && ev.Payload.(*service.Service).ID == svc.ID
		}) {
			return nil, errDepartureNotScheduled
		}
		if err := e.topo.ReleaseRoute(svc.Route, svc.NetworkUnits, svc.ComputingUnits, svc.ID, e.now); err != nil {
			return nil, err
		}
		if svc.FailedBefore {
			e.statsAgg.RecordReDisrupted()
		}
		svc.FailedBefore = true
		svc.Failed = true
		svc.Relocated = false
		disrupted = append(disrupted, svc)
	}
	return disrupted, nil
}

// disruptedOnLinks is disruptedOnLink generalized over every link a
// disaster region lists at once: a service running on more than one
// of the listed links is still only collected, released, and disrupted
// once, per the union-over-edges rule governing a region's fan-out.
func (e *Environment) disruptedOnLinks(linkIDs []string) ([]*service.Service, error) {
	seen := make(map[int]struct{})
	var disrupted []*service.Service
	for _, linkID := range linkIDs {
		link, ok := e.topo.Links[linkID]
		if !ok {
			return nil, errUnknownLink
		}
		ids := append([]int(nil), link.RunningServices...)
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			svc, ok := e.services[id]
			if !ok {
				return nil, errServiceNotTracked
			}
			if !e.queue.Remove(func(ev *event.Event) bool {
				return ev.Kind == event.Departure && ev.Payload.(*service.Service).ID == svc.ID
			}) {
				return nil, errDepartureNotScheduled
			}
			if err := e.topo.ReleaseRoute(svc.Route, svc.NetworkUnits, svc.ComputingUnits, svc.ID, e.now); err != nil {
				return nil, err
			}
			if svc.FailedBefore {
				e.statsAgg.RecordReDisrupted()
			}
			svc.FailedBefore = true
			svc.Failed = true
			svc.Relocated = false
			seen[id] = struct{}{}
			disrupted = append(disrupted, svc)
		}
	}
	return disrupted, nil
}

// settleRestoration applies the aftermath of one restoration pass:
// sealed services are folded into the availability statistics (their
// ServiceTime/HoldingTime were already fixed by Seal) and dropped from
// tracking; restored services get a fresh departure scheduled for
// their remaining holding time.
func (e *Environment) settleRestoration(tier string, restored []*service.Service) {
	for _, svc := range restored {
		if svc.Failed {
			e.statsAgg.RecordCompleted(svc.ServiceTime, svc.HoldingTime)
			delete(e.services, svc.ID)
			continue
		}
		remaining := svc.RemainingTime(e.now)
		e.queue.Push(&event.Event{Time: e.now + remaining, Kind: event.Departure, Payload: svc})
		e.statsAgg.RecordRestored(tier)
		if svc.Relocated {
			e.statsAgg.RecordRelocated()
		}
	}
}

// recordDisruptions tallies the per-service cost metrics for a batch of
// disrupted services. average_loss_cost and average_expected_loss_cost
// are per-service means of the static priority class figures;
// average_expected_capacity_loss is the mean of each service's
// expected_risk, the risk-score-as-capacity-loss proxy computed for its
// route at provisioning (or re-provisioning) time.
func (e *Environment) recordDisruptions(tier string, disrupted []*service.Service) {
	for _, svc := range disrupted {
		e.statsAgg.RecordDisrupted(tier, svc.Priority.LossCost, svc.Priority.ExpectedLossCost, svc.ExpectedRisk)
	}
}

func (e *Environment) handleLinkFailureArrival(failure *service.LinkFailure) error {
	link, ok := e.topo.Links[failure.LinkID]
	if !ok {
		return &InvariantError{EventKind: event.LinkFailureArrival.String(), Now: e.now, Err: errUnknownLink}
	}
	link.Failed = true

	disrupted, err := e.disruptedOnLink(failure.LinkID)
	if err != nil {
		return &InvariantError{EventKind: event.LinkFailureArrival.String(), Now: e.now, Err: err}
	}
	failure.Disrupted = serviceIDs(disrupted)
	e.recordDisruptions("link", disrupted)

	restored := e.restorationPolicy.Restore(e, disrupted)
	e.settleRestoration("link", restored)

	e.queue.Push(&event.Event{Time: e.now + failure.Duration, Kind: event.LinkFailureDeparture, Payload: failure})
	return nil
}

func (e *Environment) handleLinkFailureDeparture(failure *service.LinkFailure) error {
	link, ok := e.topo.Links[failure.LinkID]
	if !ok {
		return &InvariantError{EventKind: event.LinkFailureDeparture.String(), Now: e.now, Err: errUnknownLink}
	}
	link.Failed = false
	e.scheduleNextLinkFailure()
	return nil
}

func (e *Environment) handleDisasterArrival(failure *service.DisasterFailure) error {
	for _, linkID := range failure.LinkIDs {
		link, ok := e.topo.Links[linkID]
		if !ok {
			return &InvariantError{EventKind: event.DisasterArrival.String(), Now: e.now, Err: errUnknownLink}
		}
		link.Failed = true
	}

	disrupted, err := e.disruptedOnLinks(failure.LinkIDs)
	if err != nil {
		return &InvariantError{EventKind: event.DisasterArrival.String(), Now: e.now, Err: err}
	}
	failure.Disrupted = serviceIDs(disrupted)
	tier := failure.Region.String()
	e.recordDisruptions(tier, disrupted)

	restored := e.restorationPolicy.Restore(e, disrupted)
	e.settleRestoration(tier, restored)

	e.queue.Push(&event.Event{Time: e.now + failure.Duration, Kind: event.DisasterDeparture, Payload: failure})
	return nil
}

func (e *Environment) handleDisasterDeparture(failure *service.DisasterFailure) error {
	for _, linkID := range failure.LinkIDs {
		link, ok := e.topo.Links[linkID]
		if !ok {
			return &InvariantError{EventKind: event.DisasterDeparture.String(), Now: e.now, Err: errUnknownLink}
		}
		link.Failed = false
	}
	if e.scheduler.NoteDeparture(failure.ZoneID) {
		e.scheduler.Disarm(e.topo, failure.ZoneID)
	}
	return nil
}

func serviceIDs(services []*service.Service) []int {
	ids := make([]int, len(services))
	for i, s := range services {
		ids[i] = s.ID
	}
	return ids
}
