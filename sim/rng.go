package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey uniquely identifies a reproducible run. Two simulations with
// the same SimulationKey and identical plan and configuration MUST produce
// bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

const (
	// SubsystemWorkload is the RNG subsystem for inter-arrival draws. It is
	// seeded with the master seed directly, so a seed maps one-to-one onto
	// the arrival sequence.
	SubsystemWorkload = "workload"

	// SubsystemService is the RNG subsystem for service-duration draws,
	// consumed once per dispatch.
	SubsystemService = "service"
)

// PartitionedRNG hands out one deterministically-seeded RNG per subsystem.
// Partitioning keeps the arrival stream and service-time sampling isolated:
// adding draws to one subsystem never shifts the other's sequence.
//
// Every subsystem except the workload is seeded with
// masterSeed XOR fnv1a64(name).
//
// Not thread-safe; all draws happen inside the scheduler's event loop.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the RNG for the named subsystem, creating and caching
// it on first use. The same name always returns the same *rand.Rand.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	seed := int64(p.key)
	if name != SubsystemWorkload {
		seed ^= fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(seed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey this PartitionedRNG was created with.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
