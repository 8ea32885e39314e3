package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstancePool_ApplyPhaseBuildsFleet(t *testing.T) {
	p := NewInstancePool()
	phase := phaseSpec(0, 10, 1, entry("m5", 2, 1, 0.1, 1), entry("c6", 1, 2, 0.4, 2))

	truncated := p.ApplyPhase(&phase, 0)
	assert.Empty(t, truncated)
	assert.Equal(t, 3, p.Size())

	// Sorted by (type, index) for deterministic selection.
	ids := []InstanceID{}
	for _, inst := range p.Active() {
		ids = append(ids, inst.ID)
	}
	assert.Equal(t, []InstanceID{"c6/0", "m5/0", "m5/1"}, ids)
}

func TestInstancePool_AssignLeastLoadedWithIdentityTieBreak(t *testing.T) {
	p := NewInstancePool()
	phase := phaseSpec(0, 10, 1, entry("m5", 2, 1, 0.1, 2))
	p.ApplyPhase(&phase, 0)

	r := func(id int) *Request { return NewRequest(id, 0, 0) }

	// Empty pool: tie at 0 in-flight resolves to the lowest identity.
	i1 := p.Assign(r(0))
	require.NotNil(t, i1)
	assert.Equal(t, InstanceID("m5/0"), i1.ID)

	// m5/1 is now strictly less loaded.
	i2 := p.Assign(r(1))
	require.NotNil(t, i2)
	assert.Equal(t, InstanceID("m5/1"), i2.ID)

	// Tie at 1 in-flight each: back to m5/0.
	i3 := p.Assign(r(2))
	require.NotNil(t, i3)
	assert.Equal(t, InstanceID("m5/0"), i3.ID)

	i4 := p.Assign(r(3))
	require.NotNil(t, i4)
	assert.Equal(t, InstanceID("m5/1"), i4.ID)

	// Both at capacity 2: saturation.
	assert.Nil(t, p.Assign(r(4)))
}

func TestInstancePool_ReleaseFreesSlot(t *testing.T) {
	p := NewInstancePool()
	phase := phaseSpec(0, 10, 1, entry("m5", 1, 1, 0.1, 1))
	p.ApplyPhase(&phase, 0)

	req := NewRequest(0, 0, 0)
	inst := p.Assign(req)
	require.NotNil(t, inst)
	assert.Nil(t, p.Assign(NewRequest(1, 0, 0)))

	req.StartTime = 0
	p.Release(inst, req, secs(2))
	assert.Equal(t, 0, inst.InFlight())
	assert.Equal(t, secs(2), inst.BusyTicks)

	assert.NotNil(t, p.Assign(NewRequest(2, 0, 0)))
}

func TestInstancePool_PhaseBoundaryKeepsSurvivorsTruncatesRest(t *testing.T) {
	// GIVEN a fleet of two m5 instances, each serving one request
	p := NewInstancePool()
	ph1 := phaseSpec(0, 50, 1, entry("m5", 2, 1, 0.1, 1))
	p.ApplyPhase(&ph1, 0)

	keep := NewRequest(0, 0, 0)
	keep.StartTime = secs(40)
	keep.Status = StatusRunning
	p.Assign(keep)
	require.Equal(t, InstanceID("m5/0"), keep.Instance)

	gone := NewRequest(1, 0, 0)
	gone.StartTime = secs(45)
	gone.Status = StatusRunning
	p.Assign(gone)
	require.Equal(t, InstanceID("m5/1"), gone.Instance)

	// WHEN the next phase shrinks the type to one instance
	ph2 := phaseSpec(50, 100, 1, entry("m5", 1, 1, 0.1, 1))
	truncated := p.ApplyPhase(&ph2, secs(50))

	// THEN m5/0 survives with its request, m5/1's request is handed back
	require.Len(t, truncated, 1)
	assert.Same(t, gone, truncated[0])
	assert.Equal(t, 1, p.Size())

	surviving := p.Get("m5/0")
	require.NotNil(t, surviving)
	assert.Equal(t, 1, surviving.InFlight())
	assert.Nil(t, p.Get("m5/1"))

	// The stopped instance is retired with its busy time credited.
	instances := p.Instances()
	require.Len(t, instances, 2)
}

func TestInstancePool_PhaseBoundaryAdoptsNewRates(t *testing.T) {
	p := NewInstancePool()
	ph1 := phaseSpec(0, 50, 1, entry("m5", 1, 1, 0.1, 1))
	p.ApplyPhase(&ph1, 0)

	ph2 := phaseSpec(50, 100, 1, entry("m5", 1, 4, 0.2, 3))
	p.ApplyPhase(&ph2, secs(50))

	inst := p.Get("m5/0")
	require.NotNil(t, inst)
	assert.Equal(t, 4.0, inst.ServiceRate)
	assert.Equal(t, 0.2, inst.CostRate)
	assert.Equal(t, 3, inst.Capacity)
	// Same machine: its start tick is unchanged.
	assert.Equal(t, int64(0), inst.StartTick)
}

func TestInstancePool_WaitQueues(t *testing.T) {
	p := NewInstancePool()
	phase := phaseSpec(0, 10, 1, entry("a", 1, 1, 0.1, 1), entry("b", 1, 1, 0.1, 1))
	p.ApplyPhase(&phase, 0)

	r1 := NewRequest(1, 0, 0)
	r2 := NewRequest(2, 0, 0)
	r3 := NewRequest(3, 0, 0)

	// Fewest-waiters routing with lexicographic tie-break: a, then b, then a.
	p.Enqueue(r1)
	p.Enqueue(r2)
	p.Enqueue(r3)
	assert.Equal(t, 3, p.QueuedCount())

	assert.Same(t, r1, p.DequeueFor("a"))
	assert.Same(t, r2, p.DequeueFor("b"))
	assert.Same(t, r3, p.DequeueFor("a"))
	assert.Nil(t, p.DequeueFor("a"))
	assert.Equal(t, 0, p.QueuedCount())
}

func TestInstancePool_VanishedTypeFlushesWaiters(t *testing.T) {
	p := NewInstancePool()
	ph1 := phaseSpec(0, 50, 1, entry("m5", 1, 1, 0.1, 1))
	p.ApplyPhase(&ph1, 0)

	waiting := NewRequest(0, 0, 0)
	p.Enqueue(waiting)

	// The next phase has no m5 capacity at all.
	ph2 := phaseSpec(50, 100, 1, entry("c6", 1, 1, 0.1, 1))
	truncated := p.ApplyPhase(&ph2, secs(50))

	require.Len(t, truncated, 1)
	assert.Same(t, waiting, truncated[0])
	assert.Equal(t, 0, p.QueuedCount())
}

func TestInstancePool_DrainQueuedIsDeterministic(t *testing.T) {
	p := NewInstancePool()
	phase := phaseSpec(0, 10, 1, entry("a", 1, 1, 0.1, 1), entry("b", 1, 1, 0.1, 1))
	p.ApplyPhase(&phase, 0)

	r1 := NewRequest(1, 0, 0)
	r2 := NewRequest(2, 0, 0)
	p.Enqueue(r1) // a
	p.Enqueue(r2) // b

	drained := p.DrainQueued()
	require.Len(t, drained, 2)
	assert.Same(t, r1, drained[0])
	assert.Same(t, r2, drained[1])
}

func TestInstanceUtilization(t *testing.T) {
	inst := newInstance("m5", 0, entry("m5", 1, 1, 0.1, 2), 0)
	inst.BusyTicks = secs(30)

	// 30 busy seconds over 100 seconds of 2-wide capacity.
	assert.InDelta(t, 0.15, inst.Utilization(secs(100)), 1e-9)

	inst.StopTick = secs(50)
	assert.InDelta(t, 0.3, inst.Utilization(secs(100)), 1e-9)
}
