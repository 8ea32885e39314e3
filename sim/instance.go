package sim

import "fmt"

// InstanceID uniquely identifies an instance within a run. The identity is
// "<type>/<index>" and is stable across phase boundaries: if the next phase's
// fleet still contains index-th instance of the type, it is the same machine.
type InstanceID string

// MakeInstanceID builds the identity for the index-th instance of a type.
func MakeInstanceID(typ string, index int) InstanceID {
	return InstanceID(fmt.Sprintf("%s/%d", typ, index))
}

// Instance is one live machine of the active fleet. Owned exclusively by the
// InstancePool; all mutation happens inside the scheduler's event step.
type Instance struct {
	ID    InstanceID
	Type  string
	Index int

	ServiceRate float64 // requests per second, from the current phase's fleet entry
	CostRate    float64 // cost per instance-second
	Capacity    int     // max concurrent in-flight requests

	// Running holds the requests currently in flight, in dispatch order.
	Running []*Request

	// Lifetime and busy accounting for utilization reporting.
	StartTick int64
	StopTick  int64 // -1 while the instance is live
	BusyTicks int64 // integral of in-flight service time
}

func newInstance(typ string, index int, entry FleetEntry, now int64) *Instance {
	return &Instance{
		ID:          MakeInstanceID(typ, index),
		Type:        typ,
		Index:       index,
		ServiceRate: entry.ServiceRate,
		CostRate:    entry.CostRate,
		Capacity:    entry.Capacity,
		StartTick:   now,
		StopTick:    -1,
	}
}

// InFlight returns the number of requests currently being served.
func (in *Instance) InFlight() int {
	return len(in.Running)
}

// Saturated reports whether the instance is at its concurrency limit.
func (in *Instance) Saturated() bool {
	return len(in.Running) >= in.Capacity
}

// attach records a dispatched request.
func (in *Instance) attach(req *Request) {
	in.Running = append(in.Running, req)
}

// detach removes a finished request from the running set.
func (in *Instance) detach(req *Request) {
	for i, r := range in.Running {
		if r == req {
			in.Running = append(in.Running[:i], in.Running[i+1:]...)
			return
		}
	}
	panic(fmt.Sprintf("detach: request %d not running on instance %s", req.ID, in.ID))
}

// Utilization returns the fraction of the instance's capacity-time spent
// serving requests, over its lifetime up to now (or until it stopped).
func (in *Instance) Utilization(now int64) float64 {
	end := in.StopTick
	if end < 0 {
		end = now
	}
	life := end - in.StartTick
	if life <= 0 || in.Capacity <= 0 {
		return 0
	}
	return float64(in.BusyTicks) / (float64(life) * float64(in.Capacity))
}

// before orders instances for deterministic selection: by type, then index.
func (in *Instance) before(other *Instance) bool {
	if in.Type != other.Type {
		return in.Type < other.Type
	}
	return in.Index < other.Index
}
