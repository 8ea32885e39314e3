// The instance pool: tracks the live fleet for the active phase, assigns
// arrivals to the least-loaded instance, holds per-type FIFO wait queues
// under the queue policy, and implements the phase-boundary handover.

package sim

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// InstancePool owns the live instances of the active phase. Not thread-safe;
// all calls happen inside the scheduler's event-processing step.
type InstancePool struct {
	// active is sorted by (type, index) so that least-loaded ties resolve to
	// the lowest instance identity.
	active  []*Instance
	retired []*Instance

	// waitQs holds the per-type FIFO queues of unassignable requests under
	// the queue policy. typeOrder keeps deterministic iteration.
	waitQs    map[string][]*Request
	typeOrder []string
}

// NewInstancePool creates an empty pool; ApplyPhase installs the first fleet.
func NewInstancePool() *InstancePool {
	return &InstancePool{
		waitQs: make(map[string][]*Request),
	}
}

// ApplyPhase swaps the active fleet to the given phase's at tick now.
//
// Boundary policy: an instance whose identity survives into the new fleet
// keeps its in-flight requests (and adopts the new phase's rates and
// capacity); an instance removed from the fleet is stopped, and its in-flight
// requests are returned for truncation. Requests waiting for an instance type
// that vanished entirely are returned for truncation as well.
func (p *InstancePool) ApplyPhase(phase *Phase, now int64) []*Request {
	keep := make(map[InstanceID]FleetEntry)
	for _, entry := range phase.Fleet {
		for i := 0; i < entry.Count; i++ {
			keep[MakeInstanceID(entry.Type, i)] = entry
		}
	}

	var truncated []*Request
	var next []*Instance
	existing := make(map[InstanceID]*Instance, len(p.active))

	for _, inst := range p.active {
		existing[inst.ID] = inst
		entry, ok := keep[inst.ID]
		if !ok {
			// Stopped at the boundary; anything still on it is truncated.
			inst.StopTick = now
			for _, req := range inst.Running {
				inst.BusyTicks += now - req.StartTime
				truncated = append(truncated, req)
			}
			inst.Running = nil
			p.retired = append(p.retired, inst)
			logrus.Debugf("[tick %07d] instance %s stopped", now, inst.ID)
			continue
		}
		inst.ServiceRate = entry.ServiceRate
		inst.CostRate = entry.CostRate
		inst.Capacity = entry.Capacity
		next = append(next, inst)
	}

	for id, entry := range keep {
		if _, ok := existing[id]; ok {
			continue
		}
		inst := newInstance(entry.Type, indexOf(id, entry.Type), entry, now)
		next = append(next, inst)
		logrus.Debugf("[tick %07d] instance %s started", now, inst.ID)
	}

	sort.Slice(next, func(i, j int) bool { return next[i].before(next[j]) })
	p.active = next

	// Rebuild the type order for the new fleet and flush waiters whose type
	// no longer exists anywhere in it.
	types := make(map[string]bool, len(phase.Fleet))
	p.typeOrder = p.typeOrder[:0]
	for _, entry := range phase.Fleet {
		if entry.Count > 0 {
			types[entry.Type] = true
			p.typeOrder = append(p.typeOrder, entry.Type)
		}
	}
	sort.Strings(p.typeOrder)

	for typ, q := range p.waitQs {
		if types[typ] || len(q) == 0 {
			continue
		}
		truncated = append(truncated, q...)
		delete(p.waitQs, typ)
	}

	return truncated
}

// indexOf recovers the numeric index from an instance identity.
func indexOf(id InstanceID, typ string) int {
	idx := 0
	for i := len(typ) + 1; i < len(id); i++ {
		idx = idx*10 + int(id[i]-'0')
	}
	return idx
}

// Assign picks the least-loaded unsaturated instance, tie-broken by lowest
// identity, and attaches the request to it. Returns nil when every instance
// is saturated or the fleet is empty; the caller applies the queue policy.
func (p *InstancePool) Assign(req *Request) *Instance {
	var best *Instance
	for _, inst := range p.active {
		if inst.Saturated() {
			continue
		}
		if best == nil || inst.InFlight() < best.InFlight() {
			best = inst
		}
	}
	if best == nil {
		return nil
	}
	p.assignTo(best, req)
	return best
}

// assignTo attaches a request to a specific instance.
func (p *InstancePool) assignTo(inst *Instance, req *Request) {
	inst.attach(req)
	req.Instance = inst.ID
}

// Release detaches a finished request and credits the instance's busy time.
func (p *InstancePool) Release(inst *Instance, req *Request, now int64) {
	inst.detach(req)
	inst.BusyTicks += now - req.StartTime
}

// Get returns the live instance with the given identity, or nil.
func (p *InstancePool) Get(id InstanceID) *Instance {
	for _, inst := range p.active {
		if inst.ID == id {
			return inst
		}
	}
	return nil
}

// Size returns the number of live instances.
func (p *InstancePool) Size() int {
	return len(p.active)
}

// Enqueue holds a saturated arrival in a per-type FIFO queue: the type with
// the fewest waiters, ties broken by lexicographic type name.
func (p *InstancePool) Enqueue(req *Request) {
	best := ""
	for _, typ := range p.typeOrder {
		if best == "" || len(p.waitQs[typ]) < len(p.waitQs[best]) {
			best = typ
		}
	}
	if best == "" {
		panic("Enqueue called with an empty fleet")
	}
	p.waitQs[best] = append(p.waitQs[best], req)
}

// TypeOrder returns the instance types present in the active fleet, sorted.
func (p *InstancePool) TypeOrder() []string {
	return p.typeOrder
}

// FreeInstanceOf returns the least-loaded unsaturated instance of the given
// type, tie-broken by lowest identity, or nil.
func (p *InstancePool) FreeInstanceOf(typ string) *Instance {
	var best *Instance
	for _, inst := range p.active {
		if inst.Type != typ || inst.Saturated() {
			continue
		}
		if best == nil || inst.InFlight() < best.InFlight() {
			best = inst
		}
	}
	return best
}

// DequeueFor pops the oldest waiter for the given instance type, or nil.
func (p *InstancePool) DequeueFor(typ string) *Request {
	q := p.waitQs[typ]
	if len(q) == 0 {
		return nil
	}
	req := q[0]
	p.waitQs[typ] = q[1:]
	return req
}

// QueuedCount returns the total number of waiting requests.
func (p *InstancePool) QueuedCount() int {
	total := 0
	for _, q := range p.waitQs {
		total += len(q)
	}
	return total
}

// DrainQueued removes and returns every waiting request, oldest first per
// type, in deterministic type order. Used at the horizon.
func (p *InstancePool) DrainQueued() []*Request {
	var out []*Request
	types := make([]string, 0, len(p.waitQs))
	for typ := range p.waitQs {
		types = append(types, typ)
	}
	sort.Strings(types)
	for _, typ := range types {
		out = append(out, p.waitQs[typ]...)
		delete(p.waitQs, typ)
	}
	return out
}

// Instances returns every instance ever started, live and retired, in a
// deterministic order. Live instances first sorted by identity, then retired
// in stop order.
func (p *InstancePool) Instances() []*Instance {
	out := make([]*Instance, 0, len(p.active)+len(p.retired))
	out = append(out, p.active...)
	out = append(out, p.retired...)
	return out
}

// Active returns the live instances sorted by identity. The returned slice is
// the pool's internal storage; callers MUST NOT modify it.
func (p *InstancePool) Active() []*Instance {
	return p.active
}
