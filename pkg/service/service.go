// Package service holds the connection-oriented request and failure
// entities the engine routes, provisions, disrupts, and restores.
package service

import "github.com/jihwankim/cascade-sim/pkg/topology"

// PriorityClass groups services sharing an admission/restoration
// priority and cost model. Lower Priority values are served first
// during restoration ordering.
type PriorityClass struct {
	Name             string  `yaml:"name"`
	Priority         int     `yaml:"priority"`
	LossCost         float64 `yaml:"loss_cost"`
	ExpectedLossCost float64 `yaml:"expected_loss_cost"`
	MaxDegradation   float64 `yaml:"max_degradation"`
	MaxDelay         float64 `yaml:"max_delay"`
}

// Service is one provisioned (or pending/failed) connection request
// between a source node and a destination datacenter. Two services are
// equal if and only if their IDs match; all other fields may evolve
// over the service's lifetime (rerouted, sealed, restored).
type Service struct {
	ID int

	ArrivalTime float64
	HoldingTime float64

	Source string

	Priority       PriorityClass
	ComputingUnits int
	NetworkUnits   int

	Destination string
	Route       *topology.Path

	ServiceTime  float64
	Availability float64

	Provisioned  bool
	Failed       bool
	FailedBefore bool
	Relocated    bool

	ExpectedRisk float64

	// ServiceDisasterID holds an id for the disaster zone activation
	// that disrupted the service. The engine does not set it:
	// re-disruption counting relies on FailedBefore, not on this field.
	ServiceDisasterID string

	ReDisrupted int
}

// Equal reports identity by ID, per the data model's equality rule.
func (s *Service) Equal(other *Service) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.ID == other.ID
}

// RemainingTime returns how much holding time is left at instant now.
func (s *Service) RemainingTime(now float64) float64 {
	elapsed := now - s.ArrivalTime
	remaining := s.HoldingTime - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Seal finalizes a dropped (non-restorable) service: records its
// observed service time and availability, and marks it permanently
// failed with no further events scheduled.
func (s *Service) Seal(now float64) {
	s.ServiceTime = now - s.ArrivalTime
	if s.HoldingTime > 0 {
		s.Availability = s.ServiceTime / s.HoldingTime
	} else {
		s.Availability = 0
	}
	s.Failed = true
}

// LinkFailure represents one active ordinary (non-disaster) link
// outage.
type LinkFailure struct {
	ID         int
	LinkID     string
	ArrivalTime float64
	Duration   float64

	// Disrupted is a snapshot of the service ids running on the link
	// at the moment of failure, taken before any restoration runs.
	Disrupted []int
}

// Equal reports identity by ID.
func (f *LinkFailure) Equal(other *LinkFailure) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.ID == other.ID
}

// DisasterFailure represents one region firing within a disaster zone
// cascade activation, covering every link that region lists.
type DisasterFailure struct {
	ID          int
	ZoneID      string
	Region      topology.RegionKind
	LinkIDs     []string
	ArrivalTime float64
	Duration    float64

	Disrupted []int
}

// Equal reports identity by ID.
func (f *DisasterFailure) Equal(other *DisasterFailure) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.ID == other.ID
}
