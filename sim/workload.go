// Workload generation: a lazy, finite stream of request arrivals following a
// Poisson process whose rate is the arrival rate of the phase active at the
// previous arrival. Rate changes apply to the next inter-arrival draw, never
// retroactively.

package sim

import "math/rand"

// ArrivalSampler generates inter-arrival times.
type ArrivalSampler interface {
	// SampleIAT returns the next inter-arrival time in ticks for the given
	// rate in requests per second. Always returns a positive value (>= 1).
	SampleIAT(rng *rand.Rand, ratePerSecond float64) int64
}

// PoissonSampler generates exponentially-distributed inter-arrival times.
type PoissonSampler struct{}

func (PoissonSampler) SampleIAT(rng *rand.Rand, ratePerSecond float64) int64 {
	rateTicks := ratePerSecond / TicksPerSecond
	iat := int64(rng.ExpFloat64() / rateTicks)
	if iat < 1 {
		return 1
	}
	return iat
}

// WorkloadGenerator produces the arrival stream for one run. It is lazy: each
// call to Next draws exactly one inter-arrival time, so the scheduler can
// pause the stream (block policy) without consuming RNG state out of order.
// Restartable only via a fresh generator with a fresh seeded RNG.
type WorkloadGenerator struct {
	plan    *Plan
	horizon int64
	rng     *rand.Rand
	sampler ArrivalSampler
	nextID  int
}

// NewWorkloadGenerator creates a generator over the plan, bounded by horizon.
func NewWorkloadGenerator(plan *Plan, horizon int64, rng *rand.Rand) *WorkloadGenerator {
	return &WorkloadGenerator{
		plan:    plan,
		horizon: horizon,
		rng:     rng,
		sampler: PoissonSampler{},
	}
}

// Next draws the next arrival following the one at tick from (use 0 for the
// first draw). The inter-arrival rate is taken from the phase active at from.
// Returns nil when the drawn arrival would land at or past the horizon; the
// draw is discarded and the stream ends.
func (g *WorkloadGenerator) Next(from int64) *Request {
	if from >= g.horizon {
		return nil
	}
	_, phase, err := g.plan.PhaseAt(from)
	if err != nil {
		return nil
	}

	at := from + g.sampler.SampleIAT(g.rng, phase.ArrivalRate)
	if at >= g.horizon {
		return nil
	}

	phaseIdx, _, err := g.plan.PhaseAt(at)
	if err != nil {
		return nil
	}

	req := NewRequest(g.nextID, at, phaseIdx)
	g.nextID++
	return req
}

// Generated returns how many arrivals the generator has produced so far.
func (g *WorkloadGenerator) Generated() int {
	return g.nextID
}
