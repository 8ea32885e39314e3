package sim

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/allocsim/allocsim/sim/trace"
)

// Simulator is the core object that holds simulated time, system state and
// the event loop. All shared state (clock, event queue, instance pool,
// metrics) lives here, never in package globals, so independent runs with
// different seeds can execute concurrently, each owning its own Simulator.
type Simulator struct {
	Clock   int64
	Horizon int64

	Plan   *Plan
	Config *Config

	// EventQueue holds pending arrival, completion and phase-change events.
	EventQueue *EventHeap
	Pool       *InstancePool
	Metrics    *Metrics
	RNG        *PartitionedRNG

	// Trace is non-nil only when the config asks for the event log.
	Trace *trace.SimulationTrace

	gen          *WorkloadGenerator
	policy       QueuePolicy
	currentPhase int

	// blocked holds the one request waiting for admission under the block
	// policy; while it is set the arrival stream is paused.
	blocked *Request

	// nextEventID is the per-simulator insertion sequence used as the
	// deterministic event-ordering tie-break.
	nextEventID uint64
	execSeq     uint64
}

// NewSimulator validates the plan and config and builds a ready-to-run
// simulator: first fleet installed, phase changes scheduled, first arrival
// drawn.
func NewSimulator(plan *Plan, cfg *Config) (*Simulator, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &Simulator{
		Horizon:    cfg.HorizonTicks(plan),
		Plan:       plan,
		Config:     cfg,
		EventQueue: NewEventHeap(),
		Pool:       NewInstancePool(),
		Metrics:    NewMetrics(plan),
		RNG:        NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
		policy:     cfg.Policy(),
	}
	if cfg.SaveEventLog {
		s.Trace = trace.NewSimulationTrace()
	}

	s.Pool.ApplyPhase(&plan.Phases[0], 0)
	for i := 1; i < len(plan.Phases); i++ {
		if plan.Phases[i].Start >= s.Horizon {
			break
		}
		s.Schedule(s.newPhaseChangeEvent(plan.Phases[i].Start, i))
	}

	s.gen = NewWorkloadGenerator(plan, s.Horizon, s.RNG.ForSubsystem(SubsystemWorkload))
	s.scheduleNextArrival(0)

	return s, nil
}

// Schedule pushes an event into the simulator's event queue.
func (s *Simulator) Schedule(ev Event) {
	s.EventQueue.Schedule(ev)
}

// newEventID generates the next insertion-sequence ID for this simulator.
func (s *Simulator) newEventID() uint64 {
	s.nextEventID++
	return s.nextEventID
}

func (s *Simulator) newArrivalEvent(timestamp int64, req *Request) *ArrivalEvent {
	return &ArrivalEvent{
		BaseEvent: newBaseEvent(timestamp, s.newEventID(), EventTypeArrival),
		Request:   req,
	}
}

func (s *Simulator) newCompletionEvent(timestamp int64, req *Request, inst InstanceID) *CompletionEvent {
	return &CompletionEvent{
		BaseEvent: newBaseEvent(timestamp, s.newEventID(), EventTypeCompletion),
		Request:   req,
		Instance:  inst,
	}
}

func (s *Simulator) newPhaseChangeEvent(timestamp int64, phaseIdx int) *PhaseChangeEvent {
	return &PhaseChangeEvent{
		BaseEvent: newBaseEvent(timestamp, s.newEventID(), EventTypePhaseChange),
		PhaseIdx:  phaseIdx,
	}
}

// Run executes the event loop until the queue drains or the horizon is
// passed, then finalizes whatever is still in flight and returns the result.
func (s *Simulator) Run() *SimulationResult {
	s.Metrics.StartRun()

	for s.EventQueue.Len() > 0 {
		ev := s.EventQueue.PopNext()
		if ev.Timestamp() > s.Horizon {
			// Anything left in the queue completes past the horizon; the
			// affected requests are truncated below.
			break
		}
		if ev.Timestamp() < s.Clock {
			panic(fmt.Sprintf("clock went backwards: %d < %d", ev.Timestamp(), s.Clock))
		}
		s.Clock = ev.Timestamp()

		s.recordTrace(ev)
		logrus.Debugf("[tick %07d] executing %s #%d", s.Clock, ev.Type(), ev.EventID())
		ev.Execute(s)
	}

	s.finalizeAtHorizon()

	utils := s.collectUtils()
	s.Metrics.FinishRun(s.Plan.CostUpTo(s.Horizon), utils, s.Horizon)
	logrus.Infof("[tick %07d] simulation ended", s.Horizon)

	return s.Metrics.Summarize()
}

// recordTrace appends an event record when the event log is enabled.
func (s *Simulator) recordTrace(ev Event) {
	if s.Trace == nil {
		return
	}
	rec := trace.EventRecord{
		Seq:       s.execSeq,
		Tick:      ev.Timestamp(),
		Kind:      string(ev.Type()),
		RequestID: -1,
		Phase:     s.currentPhase,
	}
	switch e := ev.(type) {
	case *ArrivalEvent:
		rec.RequestID = e.Request.ID
	case *CompletionEvent:
		rec.RequestID = e.Request.ID
		rec.Instance = string(e.Instance)
	case *PhaseChangeEvent:
		rec.Phase = e.PhaseIdx
	}
	s.Trace.Record(rec)
	s.execSeq++
}

// scheduleNextArrival draws the next arrival following tick from and schedules
// it. No-op while the stream is paused by a blocked request or once the draw
// falls past the horizon.
func (s *Simulator) scheduleNextArrival(from int64) {
	if s.blocked != nil {
		return
	}
	req := s.gen.Next(from)
	if req == nil {
		return
	}
	s.Schedule(s.newArrivalEvent(req.ArrivalTime, req))
}

// handleArrival routes a new request through the instance pool and draws the
// arrival that follows it.
func (s *Simulator) handleArrival(e *ArrivalEvent) {
	req := e.Request
	now := e.Timestamp()
	s.Metrics.Injected++
	logrus.Debugf("[tick %07d] arrival of request %d (phase %d)", now, req.ID, req.PhaseAtArrival)

	switch {
	case s.Pool.Size() == 0:
		// No fleet at all: the request is lost no matter the policy.
		s.finalize(req, StatusDropped, now)
	default:
		if inst := s.Pool.Assign(req); inst != nil {
			s.dispatch(req, inst, now)
		} else {
			s.saturated(req, now)
		}
	}

	s.scheduleNextArrival(now)
}

// saturated applies the configured queue policy to an unassignable request.
func (s *Simulator) saturated(req *Request, now int64) {
	switch s.policy {
	case PolicyQueue:
		s.Pool.Enqueue(req)
	case PolicyDrop:
		s.finalize(req, StatusDropped, now)
	case PolicyBlock:
		req.Status = StatusBlocked
		s.blocked = req
	}
}

// dispatch starts service for a request on an instance: samples the service
// duration from the instance's rate and schedules the completion.
func (s *Simulator) dispatch(req *Request, inst *Instance, now int64) {
	req.Status = StatusRunning
	req.StartTime = now
	req.ServiceDuration = s.sampleServiceTicks(inst)
	s.Schedule(s.newCompletionEvent(now+req.ServiceDuration, req, inst.ID))
	logrus.Debugf("[tick %07d] request %d dispatched to %s for %d ticks",
		now, req.ID, inst.ID, req.ServiceDuration)
}

// sampleServiceTicks draws an exponential service duration for the instance's
// service rate. One draw per dispatch, from the service RNG stream.
func (s *Simulator) sampleServiceTicks(inst *Instance) int64 {
	rng := s.RNG.ForSubsystem(SubsystemService)
	rateTicks := inst.ServiceRate / TicksPerSecond
	d := int64(rng.ExpFloat64() / rateTicks)
	if d < 1 {
		return 1
	}
	return d
}

// handleCompletion releases the instance, records the finished request and
// immediately reuses the freed slot for a waiter.
func (s *Simulator) handleCompletion(e *CompletionEvent) {
	req := e.Request
	now := e.Timestamp()

	// A request truncated at a phase boundary leaves a stale completion
	// event behind; skip it.
	if req.Status != StatusRunning {
		return
	}
	inst := s.Pool.Get(e.Instance)
	if inst == nil {
		return
	}

	s.Pool.Release(inst, req, now)
	req.Status = StatusCompleted
	req.CompletionTime = now
	s.Metrics.Record(req, s.phaseIndexAt(now))
	logrus.Debugf("[tick %07d] request %d completed on %s", now, req.ID, inst.ID)

	if s.blocked != nil {
		b := s.blocked
		s.blocked = nil
		s.Pool.assignTo(inst, b)
		s.dispatch(b, inst, now)
		s.scheduleNextArrival(now)
		return
	}
	if next := s.Pool.DequeueFor(inst.Type); next != nil {
		s.Pool.assignTo(inst, next)
		s.dispatch(next, inst, now)
	}
}

// handlePhaseChange swaps the active fleet. In-flight requests whose instance
// survives keep running; everything stranded is truncated, and freed or new
// capacity is immediately offered to waiting requests.
func (s *Simulator) handlePhaseChange(e *PhaseChangeEvent) {
	now := e.Timestamp()
	s.currentPhase = e.PhaseIdx
	phase := &s.Plan.Phases[e.PhaseIdx]
	logrus.Infof("[tick %07d] phase %d begins: %d instance types, arrival rate %v/s",
		now, e.PhaseIdx, len(phase.Fleet), phase.ArrivalRate)

	for _, req := range s.Pool.ApplyPhase(phase, now) {
		s.finalize(req, StatusTruncated, now)
	}

	s.drainQueues(now)
	if s.blocked != nil {
		if inst := s.Pool.Assign(s.blocked); inst != nil {
			b := s.blocked
			s.blocked = nil
			s.dispatch(b, inst, now)
			s.scheduleNextArrival(now)
		}
	}
}

// drainQueues dispatches waiting requests onto any free capacity, oldest
// first per type, in deterministic type order.
func (s *Simulator) drainQueues(now int64) {
	for _, typ := range s.Pool.TypeOrder() {
		for {
			inst := s.Pool.FreeInstanceOf(typ)
			if inst == nil {
				break
			}
			req := s.Pool.DequeueFor(typ)
			if req == nil {
				break
			}
			s.Pool.assignTo(inst, req)
			s.dispatch(req, inst, now)
		}
	}
}

// finalize stamps a terminal status on a request and records it.
func (s *Simulator) finalize(req *Request, status RequestStatus, now int64) {
	req.Status = status
	req.CompletionTime = now
	s.Metrics.Record(req, s.phaseIndexAt(now))
}

// finalizeAtHorizon truncates everything still in the system once the event
// loop stops: in-flight requests, queued waiters and a blocked arrival.
func (s *Simulator) finalizeAtHorizon() {
	now := s.Horizon

	for _, inst := range s.Pool.Active() {
		running := append([]*Request(nil), inst.Running...)
		for _, req := range running {
			s.Pool.Release(inst, req, now)
			s.finalize(req, StatusTruncated, now)
		}
		inst.StopTick = now
	}
	for _, req := range s.Pool.DrainQueued() {
		s.finalize(req, StatusTruncated, now)
	}
	if s.blocked != nil {
		s.finalize(s.blocked, StatusTruncated, now)
		s.blocked = nil
	}
}

// phaseIndexAt returns the plan phase index containing tick t, clamping the
// horizon itself to the final active phase. Any other out-of-horizon lookup
// is an internal invariant violation.
func (s *Simulator) phaseIndexAt(t int64) int {
	if t >= s.Horizon {
		t = s.Horizon - 1
	}
	idx, _, err := s.Plan.PhaseAt(t)
	if err != nil {
		panic(err)
	}
	return idx
}

// collectUtils snapshots the utilization of every instance that ever ran,
// sorted by identity for stable output.
func (s *Simulator) collectUtils() []InstanceUtil {
	instances := s.Pool.Instances()
	sort.Slice(instances, func(i, j int) bool { return instances[i].before(instances[j]) })

	utils := make([]InstanceUtil, 0, len(instances))
	for _, inst := range instances {
		utils = append(utils, InstanceUtil{
			Instance: inst.ID,
			Type:     inst.Type,
			Util:     inst.Utilization(s.Horizon),
		})
	}
	return utils
}
