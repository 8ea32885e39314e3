// Defines the allocation plan: the time-phased description of the instance
// fleet produced by an external optimizer. The plan is loaded once, validated,
// and read-only for the rest of the run.

package sim

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// TicksPerSecond is the simulated-time resolution. One tick is one microsecond.
const TicksPerSecond = 1_000_000

var (
	// ErrInvalidPlan marks malformed plans: unsorted, overlapping or
	// non-contiguous phases, or non-positive rates and capacities.
	ErrInvalidPlan = errors.New("invalid allocation plan")

	// ErrOutOfHorizon marks a phase lookup past the final phase's end.
	// The scheduler must have stopped before this can happen, so seeing
	// it at runtime is a defect, not a recoverable condition.
	ErrOutOfHorizon = errors.New("time beyond plan horizon")
)

// FleetEntry describes one instance type inside a phase's fleet.
type FleetEntry struct {
	Type        string  // instance type identifier (e.g. "m5.large")
	Count       int     // number of live instances of this type
	ServiceRate float64 // requests per second one instance can serve
	CostRate    float64 // billed cost per instance-second
	Capacity    int     // max concurrent in-flight requests per instance
}

// Phase is a contiguous simulated-time interval with a fixed fleet and
// arrival rate. Start is inclusive, End exclusive, both in ticks.
type Phase struct {
	Start       int64
	End         int64
	ArrivalRate float64 // request arrivals per second while this phase is active
	Fleet       []FleetEntry
}

// Duration returns the phase length in ticks.
func (p *Phase) Duration() int64 {
	return p.End - p.Start
}

// CostPerSecond returns the billed cost of the phase's whole fleet for one
// second, regardless of utilization.
func (p *Phase) CostPerSecond() float64 {
	total := 0.0
	for _, e := range p.Fleet {
		total += float64(e.Count) * e.CostRate
	}
	return total
}

// TotalCapacity returns the number of requests the phase's fleet can hold
// in flight simultaneously.
func (p *Phase) TotalCapacity() int {
	total := 0
	for _, e := range p.Fleet {
		total += e.Count * e.Capacity
	}
	return total
}

// Plan is the validated, immutable sequence of phases driving a run.
type Plan struct {
	Phases []Phase
}

// planFile is the YAML shape of a plan. Times are seconds, rates per second;
// they are converted to ticks on load.
type planFile struct {
	Phases []struct {
		Start       float64 `yaml:"start"`
		End         float64 `yaml:"end"`
		ArrivalRate float64 `yaml:"arrival_rate"`
		Fleet       []struct {
			Type        string  `yaml:"type"`
			Count       int     `yaml:"count"`
			ServiceRate float64 `yaml:"service_rate"`
			CostRate    float64 `yaml:"cost_rate"`
			Capacity    int     `yaml:"capacity"`
		} `yaml:"fleet"`
	} `yaml:"phases"`
}

// LoadPlan reads and validates an allocation plan from a YAML file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan parses and validates an allocation plan from YAML bytes.
func ParsePlan(data []byte) (*Plan, error) {
	var pf planFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse plan file: %w", err)
	}

	plan := &Plan{Phases: make([]Phase, 0, len(pf.Phases))}
	for _, ps := range pf.Phases {
		phase := Phase{
			Start:       int64(ps.Start * TicksPerSecond),
			End:         int64(ps.End * TicksPerSecond),
			ArrivalRate: ps.ArrivalRate,
			Fleet:       make([]FleetEntry, 0, len(ps.Fleet)),
		}
		for _, fs := range ps.Fleet {
			capacity := fs.Capacity
			if capacity == 0 {
				capacity = 1 // single request at a time unless stated otherwise
			}
			phase.Fleet = append(phase.Fleet, FleetEntry{
				Type:        fs.Type,
				Count:       fs.Count,
				ServiceRate: fs.ServiceRate,
				CostRate:    fs.CostRate,
				Capacity:    capacity,
			})
		}
		plan.Phases = append(plan.Phases, phase)
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// Validate checks the plan invariants: at least one phase, phases starting at
// zero, contiguous, non-overlapping and sorted, and positive rates. A fleet
// entry may have Count 0 (a type scheduled out for the phase), but its rates
// and capacity must still be well-formed.
func (p *Plan) Validate() error {
	if len(p.Phases) == 0 {
		return fmt.Errorf("%w: no phases", ErrInvalidPlan)
	}
	if p.Phases[0].Start != 0 {
		return fmt.Errorf("%w: first phase starts at %d, want 0", ErrInvalidPlan, p.Phases[0].Start)
	}
	for i := range p.Phases {
		ph := &p.Phases[i]
		if ph.End <= ph.Start {
			return fmt.Errorf("%w: phase %d has non-positive duration [%d, %d)", ErrInvalidPlan, i, ph.Start, ph.End)
		}
		if i > 0 && ph.Start != p.Phases[i-1].End {
			return fmt.Errorf("%w: phase %d starts at %d but phase %d ends at %d",
				ErrInvalidPlan, i, ph.Start, i-1, p.Phases[i-1].End)
		}
		if ph.ArrivalRate <= 0 {
			return fmt.Errorf("%w: phase %d has non-positive arrival rate %v", ErrInvalidPlan, i, ph.ArrivalRate)
		}
		seen := make(map[string]bool, len(ph.Fleet))
		for _, e := range ph.Fleet {
			if e.Type == "" {
				return fmt.Errorf("%w: phase %d has a fleet entry without a type", ErrInvalidPlan, i)
			}
			if seen[e.Type] {
				return fmt.Errorf("%w: phase %d lists instance type %q twice", ErrInvalidPlan, i, e.Type)
			}
			seen[e.Type] = true
			if e.Count < 0 {
				return fmt.Errorf("%w: phase %d type %q has negative count %d", ErrInvalidPlan, i, e.Type, e.Count)
			}
			if e.ServiceRate <= 0 {
				return fmt.Errorf("%w: phase %d type %q has non-positive service rate %v", ErrInvalidPlan, i, e.Type, e.ServiceRate)
			}
			if e.Capacity <= 0 {
				return fmt.Errorf("%w: phase %d type %q has non-positive capacity %d", ErrInvalidPlan, i, e.Type, e.Capacity)
			}
			if e.CostRate < 0 {
				return fmt.Errorf("%w: phase %d type %q has negative cost rate %v", ErrInvalidPlan, i, e.Type, e.CostRate)
			}
		}
	}
	return nil
}

// Horizon returns the end of the final phase, which bounds simulated time.
func (p *Plan) Horizon() int64 {
	return p.Phases[len(p.Phases)-1].End
}

// PhaseAt returns the index and phase whose interval contains tick t.
func (p *Plan) PhaseAt(t int64) (int, *Phase, error) {
	if t < 0 || t >= p.Horizon() {
		return 0, nil, fmt.Errorf("%w: tick %d, horizon %d", ErrOutOfHorizon, t, p.Horizon())
	}
	// First phase whose End is past t; phases are contiguous from 0.
	i := sort.Search(len(p.Phases), func(i int) bool {
		return p.Phases[i].End > t
	})
	return i, &p.Phases[i], nil
}

// CostUpTo returns the billed infrastructure cost of running the plan's
// fleets from tick 0 until the given tick. Cost accrues per second of
// instance lifetime with no minimum billing period, independent of how many
// requests were served.
func (p *Plan) CostUpTo(horizon int64) float64 {
	total := 0.0
	for i := range p.Phases {
		ph := &p.Phases[i]
		if ph.Start >= horizon {
			break
		}
		end := min(ph.End, horizon)
		seconds := float64(end-ph.Start) / TicksPerSecond
		total += seconds * ph.CostPerSecond()
	}
	return total
}
