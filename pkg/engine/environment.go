package engine

import (
	"github.com/jihwankim/cascade-sim/pkg/disaster"
	"github.com/jihwankim/cascade-sim/pkg/event"
	"github.com/jihwankim/cascade-sim/pkg/restoration"
	"github.com/jihwankim/cascade-sim/pkg/rng"
	"github.com/jihwankim/cascade-sim/pkg/routing"
	"github.com/jihwankim/cascade-sim/pkg/service"
	"github.com/jihwankim/cascade-sim/pkg/stats"
	"github.com/jihwankim/cascade-sim/pkg/topology"
)

// Environment owns one episode's mutable state: a cloned topology, the
// event queue, the episode RNG, the active policies, and the running
// statistics aggregator. One Environment is never shared between
// goroutines; the Runner clones a fresh one per cell.
type Environment struct {
	cfg Config

	baseTopology *topology.Topology
	topo         *topology.Topology

	queue     *event.Queue
	rngSrc    *rng.Source
	scheduler *disaster.Scheduler

	routingPolicy     routing.Policy
	restorationPolicy restoration.Policy

	statsAgg *stats.Aggregator

	now               float64
	nextServiceID     int
	nextFailureID     int
	arrivalsScheduled int

	services map[int]*service.Service
}

// New builds an Environment bound to baseTopology (never mutated
// directly; each Reset clones it) and the given policies.
func New(cfg Config, baseTopology *topology.Topology, routingPolicy routing.Policy, restorationPolicy restoration.Policy) (*Environment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Environment{
		cfg:               cfg,
		baseTopology:      baseTopology,
		routingPolicy:     routingPolicy,
		restorationPolicy: restorationPolicy,
		scheduler:         disaster.NewScheduler(baseTopology.Zones, cfg.MeanFailureInterArrival, cfg.MeanFailureDuration),
	}
	return e, nil
}

// Topology satisfies routing.Context and restoration.Context.
func (e *Environment) Topology() *topology.Topology { return e.topo }

// RNG satisfies routing.Context and restoration.Context.
func (e *Environment) RNG() *rng.Source { return e.rngSrc }

// Now satisfies restoration.Context.
func (e *Environment) Now() float64 { return e.now }

// ActiveRoutingPolicy satisfies restoration.Context.
func (e *Environment) ActiveRoutingPolicy() routing.Policy { return e.routingPolicy }

// Reset reinitializes the episode for seed: a fresh topology clone,
// empty event queue, freshly seeded RNG, a clean stats aggregator, and
// the first service arrival and first ordinary link failure armed.
func (e *Environment) Reset(seed int64) {
	e.topo = e.baseTopology.Clone()
	e.topo.Reset(e.cfg.NetworkUnitsPerLink)
	e.queue = event.NewQueue()
	e.rngSrc = rng.New(seed)
	e.scheduler.Reset()
	e.statsAgg = stats.NewAggregator(e.cfg.TrackStatsEvery)
	e.now = 0
	e.nextServiceID = 1
	e.nextFailureID = 1
	e.arrivalsScheduled = 0
	e.services = make(map[int]*service.Service)

	e.scheduleNextArrival()
	e.scheduleNextLinkFailure()
}

// Run drains the event loop to completion and returns the final
// statistics. An InvariantError aborts the episode immediately; the
// partially accumulated result is returned alongside the error so a
// caller can still record progress snapshots taken before the abort.
func (e *Environment) Run() (stats.Result, error) {
	for {
		ev := e.queue.Pop()
		if ev == nil {
			break
		}
		e.now = ev.Time
		if err := e.dispatch(ev); err != nil {
			e.topo.FinalizeUtilization(e.now)
			return e.statsAgg.Result(e.topo), err
		}
	}
	e.topo.FinalizeUtilization(e.now)
	return e.statsAgg.Result(e.topo), nil
}

// Snapshots returns the progress records captured during Run at the
// configured cadence.
func (e *Environment) Snapshots() []stats.Snapshot { return e.statsAgg.Snapshots }

func (e *Environment) dispatch(ev *event.Event) error {
	switch ev.Kind {
	case event.Arrival:
		return e.handleArrival(ev.Payload.(*service.Service))
	case event.Departure:
		return e.handleDeparture(ev.Payload.(*service.Service))
	case event.LinkFailureArrival:
		return e.handleLinkFailureArrival(ev.Payload.(*service.LinkFailure))
	case event.LinkFailureDeparture:
		return e.handleLinkFailureDeparture(ev.Payload.(*service.LinkFailure))
	case event.DisasterArrival:
		return e.handleDisasterArrival(ev.Payload.(*service.DisasterFailure))
	case event.DisasterDeparture:
		return e.handleDisasterDeparture(ev.Payload.(*service.DisasterFailure))
	default:
		return &InvariantError{EventKind: ev.Kind.String(), Now: e.now, Err: errUnknownEventKind}
	}
}
