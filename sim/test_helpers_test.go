package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// secs converts seconds to ticks for test readability.
func secs(s float64) int64 {
	return int64(s * TicksPerSecond)
}

// entry builds a fleet entry with the fields tests care about.
func entry(typ string, count int, serviceRate, costRate float64, capacity int) FleetEntry {
	return FleetEntry{
		Type:        typ,
		Count:       count,
		ServiceRate: serviceRate,
		CostRate:    costRate,
		Capacity:    capacity,
	}
}

// phaseSpec builds a phase from times in seconds.
func phaseSpec(startSec, endSec, arrivalRate float64, fleet ...FleetEntry) Phase {
	return Phase{
		Start:       secs(startSec),
		End:         secs(endSec),
		ArrivalRate: arrivalRate,
		Fleet:       fleet,
	}
}

// planOf builds a plan and fails the test if it does not validate.
func planOf(t *testing.T, phases ...Phase) *Plan {
	t.Helper()
	p := &Plan{Phases: phases}
	require.NoError(t, p.Validate())
	return p
}

// maxConcurrent replays the request records of one instance and returns the
// peak number of simultaneously in-flight requests.
func maxConcurrent(records []*Request, inst InstanceID) int {
	type edge struct {
		tick  int64
		delta int
	}
	var edges []edge
	for _, r := range records {
		if r.Instance != inst || r.StartTime < 0 {
			continue
		}
		edges = append(edges, edge{r.StartTime, +1}, edge{r.CompletionTime, -1})
	}
	// Completions at tick t free the slot before a start at the same tick,
	// matching the scheduler's arrival-after-completion retry order.
	peak, cur := 0, 0
	for {
		if len(edges) == 0 {
			break
		}
		minIdx := 0
		for i, e := range edges {
			m := edges[minIdx]
			if e.tick < m.tick || (e.tick == m.tick && e.delta < m.delta) {
				minIdx = i
			}
		}
		cur += edges[minIdx].delta
		if cur > peak {
			peak = cur
		}
		edges = append(edges[:minIdx], edges[minIdx+1:]...)
	}
	return peak
}
