// Package event implements the discrete-event queue driving one
// simulation episode: a min-heap ordered by event time, with a
// monotonic insertion sequence as a tiebreak so same-instant events
// resolve deterministically in arrival order.
package event

import "container/heap"

// Kind identifies the six event kinds the engine handles.
type Kind int

const (
	Arrival Kind = iota
	Departure
	LinkFailureArrival
	LinkFailureDeparture
	DisasterArrival
	DisasterDeparture
)

func (k Kind) String() string {
	switch k {
	case Arrival:
		return "arrival"
	case Departure:
		return "departure"
	case LinkFailureArrival:
		return "link_failure_arrival"
	case LinkFailureDeparture:
		return "link_failure_departure"
	case DisasterArrival:
		return "disaster_arrival"
	case DisasterDeparture:
		return "disaster_departure"
	default:
		return "unknown"
	}
}

// Event is one scheduled occurrence. Payload carries kind-specific
// data (a *service.Service for Arrival/Departure, a failure or
// disaster record for the others) as an opaque value so this package
// has no dependency on the domain packages it schedules work for.
type Event struct {
	Time    float64
	Kind    Kind
	Payload interface{}

	seq uint64
}

// eventHeap is the container/heap.Interface implementation backing Queue.
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(*Event)) }

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Queue is a min-heap of pending events ordered by (Time, seq).
type Queue struct {
	heap eventHeap
	next uint64
}

// NewQueue returns an empty event queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push schedules e at its Time, breaking ties by insertion order.
func (q *Queue) Push(e *Event) {
	e.seq = q.next
	q.next++
	heap.Push(&q.heap, e)
}

// Pop removes and returns the earliest pending event, or nil if empty.
func (q *Queue) Pop() *Event {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.heap).(*Event)
}

// Peek returns the earliest pending event without removing it.
func (q *Queue) Peek() *Event {
	if q.Len() == 0 {
		return nil
	}
	return q.heap[0]
}

// Len reports the number of pending events.
func (q *Queue) Len() int { return q.heap.Len() }

// Remove deletes the first event matching predicate from the queue and
// reports whether one was found. Used to cancel a scheduled departure
// when its service is disrupted before it naturally departs.
func (q *Queue) Remove(predicate func(*Event) bool) bool {
	for i, e := range q.heap {
		if predicate(e) {
			heap.Remove(&q.heap, i)
			return true
		}
	}
	return false
}
