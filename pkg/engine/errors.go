package engine

import (
	"errors"
	"fmt"
)

var (
	errUnknownLink              = errors.New("engine: unknown link")
	errServiceNotTracked        = errors.New("engine: running service not tracked by the environment")
	errDepartureNotScheduled    = errors.New("engine: service had no scheduled departure to cancel")
	errDepartureOfSealedService = errors.New("engine: departure event fired for an already-sealed service")
)

// InvariantError distinguishes a fatal episode-aborting invariant
// violation (capacity accounting corrupted, a departure event missing
// from the queue, a post-provision viability violation) from ordinary
// admission/restoration failures, which are expected outcomes and are
// simply counted.
type InvariantError struct {
	EventKind string
	Now       float64
	Err       error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("engine: invariant violation handling %s at t=%v: %v", e.EventKind, e.Now, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }
