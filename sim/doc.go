// Package sim provides the core discrete-event simulation engine for
// validating cloud allocation plans against a transactional workload.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - plan.go: the time-phased allocation plan driving the fleet
//   - event.go: the event union that drives the simulation (Arrival,
//     Completion, PhaseChange) and its deterministic ordering
//   - simulator.go: the event loop, dispatch, and phase-boundary handling
//
// # Architecture
//
// A run is logically single-threaded and cooperative: one clock, one ordered
// event queue, no locks. Every mutation of the instance pool and the metrics
// collector happens inside the scheduler's event-processing step. Determinism
// comes from three places: the event heap's (timestamp, type priority,
// insertion sequence) ordering, the per-subsystem partitioned RNG, and the
// fixed draw order of one inter-arrival sample per arrival and one service
// sample per dispatch. Re-running with the same plan, configuration and seed
// reproduces the SimulationResult bit for bit.
//
// The sim/trace sub-package records the ordered event log when requested;
// result formatting lives entirely in the cmd layer.
package sim
