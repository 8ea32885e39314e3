// Package trace provides ordered event-trace recording for reproducibility
// debugging. This package has no dependencies on sim/: it stores pure data
// types, so the exporter layer can consume it without importing the engine.
package trace

// EventRecord captures a single executed scheduler event.
type EventRecord struct {
	// Seq is the execution order, starting at 0. Two runs with the same seed,
	// plan and configuration produce identical sequences.
	Seq uint64
	// Tick is the simulated time the event executed at.
	Tick int64
	// Kind is the event type tag ("Arrival", "Completion", "PhaseChange").
	Kind string
	// RequestID is the affected request, or -1 for phase changes.
	RequestID int
	// Instance is the serving instance identity, empty when not applicable.
	Instance string
	// Phase is the phase index active after the event executed.
	Phase int
}
