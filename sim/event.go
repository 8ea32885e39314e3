package sim

// EventType tags the event union: arrivals, completions and phase changes.
type EventType string

const (
	EventTypeArrival     EventType = "Arrival"
	EventTypeCompletion  EventType = "Completion"
	EventTypePhaseChange EventType = "PhaseChange"
)

// EventTypePriority defines ordering for simultaneous events.
// Lower values are processed first: arrivals before completions before phase
// changes, so a request finishing exactly at a boundary completes normally
// instead of being truncated.
var EventTypePriority = map[EventType]int{
	EventTypeArrival:     1,
	EventTypeCompletion:  2,
	EventTypePhaseChange: 3,
}

// Event represents a simulation event, consumed exactly once by the scheduler.
type Event interface {
	Timestamp() int64
	EventID() uint64
	Type() EventType
	Execute(sim *Simulator)
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	timestamp int64
	eventID   uint64
	eventType EventType
}

func newBaseEvent(timestamp int64, eventID uint64, eventType EventType) BaseEvent {
	return BaseEvent{
		timestamp: timestamp,
		eventID:   eventID,
		eventType: eventType,
	}
}

func (e *BaseEvent) Timestamp() int64 {
	return e.timestamp
}

func (e *BaseEvent) EventID() uint64 {
	return e.eventID
}

func (e *BaseEvent) Type() EventType {
	return e.eventType
}

// ArrivalEvent represents a request arriving at the system.
type ArrivalEvent struct {
	BaseEvent
	Request *Request
}

func (e *ArrivalEvent) Execute(sim *Simulator) {
	sim.handleArrival(e)
}

// CompletionEvent represents a request finishing service on an instance.
type CompletionEvent struct {
	BaseEvent
	Request  *Request
	Instance InstanceID
}

func (e *CompletionEvent) Execute(sim *Simulator) {
	sim.handleCompletion(e)
}

// PhaseChangeEvent swaps the active fleet to the plan phase at PhaseIdx.
type PhaseChangeEvent struct {
	BaseEvent
	PhaseIdx int
}

func (e *PhaseChangeEvent) Execute(sim *Simulator) {
	sim.handlePhaseChange(e)
}
