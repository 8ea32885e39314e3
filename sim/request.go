// Defines the Request struct that models one transactional request in the
// simulation. Tracks arrival, service start and completion times, plus the
// serving instance and the phase active at arrival.

package sim

import (
	"fmt"
)

// RequestStatus represents the lifecycle state of a request.
type RequestStatus string

const (
	// StatusQueued: arrived, waiting for an instance.
	StatusQueued RequestStatus = "queued"
	// StatusBlocked: arrived under the block policy, holding the arrival
	// stream until admitted.
	StatusBlocked RequestStatus = "blocked"
	// StatusRunning: dispatched to an instance, service in progress.
	StatusRunning RequestStatus = "running"
	// StatusCompleted: finished service normally.
	StatusCompleted RequestStatus = "completed"
	// StatusTruncated: forcibly finalized because its instance disappeared at
	// a phase boundary or the horizon was reached first.
	StatusTruncated RequestStatus = "truncated"
	// StatusDropped: rejected because the fleet was empty or saturated under
	// the drop policy.
	StatusDropped RequestStatus = "dropped"
)

// Final reports whether the status is terminal. A request with a final status
// is immutable and owned by the metrics collector.
func (s RequestStatus) Final() bool {
	return s == StatusCompleted || s == StatusTruncated || s == StatusDropped
}

// Request models a single request's lifecycle. Timestamps are in ticks;
// StartTime and CompletionTime are -1 until set.
type Request struct {
	ID int // sequential arrival number, unique within a run

	ArrivalTime    int64
	StartTime      int64
	CompletionTime int64

	// ServiceDuration is the sampled service time in ticks, set at dispatch.
	ServiceDuration int64

	// Instance is the serving instance's identity, empty until dispatched.
	Instance InstanceID
	// PhaseAtArrival is the index of the phase active when the request arrived.
	PhaseAtArrival int

	Status RequestStatus
}

// NewRequest creates a request in the queued state, arrived at the given tick.
func NewRequest(id int, arrival int64, phase int) *Request {
	return &Request{
		ID:             id,
		ArrivalTime:    arrival,
		StartTime:      -1,
		CompletionTime: -1,
		PhaseAtArrival: phase,
		Status:         StatusQueued,
	}
}

// ResponseTime returns completion minus arrival, in ticks. Only meaningful
// once the request has a final status.
func (r *Request) ResponseTime() int64 {
	return r.CompletionTime - r.ArrivalTime
}

// String returns a human-readable representation of the request.
func (r *Request) String() string {
	return fmt.Sprintf("Request: (ID: %d, Status: %s, ArrivalTime: %d, Instance: %s)",
		r.ID, r.Status, r.ArrivalTime, r.Instance)
}
