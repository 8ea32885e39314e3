// Tracks simulation-wide and per-request measurements for final reporting:
// response times, completion/truncation/drop counts, billed cost, per-phase
// throughput and fleet utilization.

package sim

import (
	"time"

	"github.com/sirupsen/logrus"
)

// InstanceUtil is the realized utilization of one instance over its lifetime.
type InstanceUtil struct {
	Instance InstanceID
	Type     string
	Util     float64
}

// PhaseStats aggregates per-phase outcomes.
type PhaseStats struct {
	Phase     int
	Completed int
	// Throughput is completed requests per simulated second of the phase.
	Throughput float64
}

// SimulationResult is the immutable outcome of one run: the ordered
// per-request records plus aggregate statistics.
type SimulationResult struct {
	// Records holds every finalized request in finalization order.
	Records []*Request

	// ResponseTimes summarizes completed requests only; truncated and
	// dropped requests never get a meaningful response time.
	ResponseTimes Distribution

	Injected  int
	Completed int
	Truncated int
	Dropped   int

	// TotalCost is the billed infrastructure cost: capacity is paid for
	// whether or not it served requests.
	TotalCost float64

	// MeanUtilization averages each instance's busy fraction over all
	// instances that ever ran.
	MeanUtilization float64
	InstanceUtils   []InstanceUtil

	PhaseStats []PhaseStats

	// SimEndedTick is the simulated tick at which the run finalized.
	SimEndedTick int64
	// WallTime is the real time the run took.
	WallTime time.Duration
}

// Metrics accumulates per-request records during a run and derives the
// aggregate statistics once the scheduler signals termination.
type Metrics struct {
	Injected int

	records   []*Request
	completed int
	truncated int
	dropped   int

	phaseCompleted map[int]int

	// Set by the simulator at finalization, before Summarize.
	cost         float64
	utils        []InstanceUtil
	simEndedTick int64
	wallStart    time.Time
	wallEnd      time.Time
	plan         *Plan

	summary *SimulationResult
}

// NewMetrics creates an empty collector for one run.
func NewMetrics(plan *Plan) *Metrics {
	return &Metrics{
		phaseCompleted: make(map[int]int),
		plan:           plan,
	}
}

// Record stores a finalized request. Called exactly once per request; the
// request must carry a final status and is immutable from here on.
func (m *Metrics) Record(req *Request, completionPhase int) {
	if !req.Status.Final() {
		panic("Record called with non-final request " + req.String())
	}
	if m.summary != nil {
		panic("Record called after Summarize")
	}
	m.records = append(m.records, req)
	switch req.Status {
	case StatusCompleted:
		m.completed++
		m.phaseCompleted[completionPhase]++
	case StatusTruncated:
		m.truncated++
	case StatusDropped:
		m.dropped++
	}
}

// StartRun records the wall-clock start of the simulation.
func (m *Metrics) StartRun() {
	m.wallStart = time.Now()
}

// FinishRun is called by the simulator at termination with the final billed
// cost, instance utilizations and the tick the run ended at.
func (m *Metrics) FinishRun(cost float64, utils []InstanceUtil, endedTick int64) {
	m.cost = cost
	m.utils = utils
	m.simEndedTick = endedTick
	m.wallEnd = time.Now()

	inSystem := m.completed + m.truncated + m.dropped
	if m.Injected != inSystem {
		logrus.Warnf("injected requests (%d) do not match requests in the system (%d)",
			m.Injected, inSystem)
	}
}

// Summarize derives the aggregate statistics. Idempotent: repeated calls
// return the same immutable result.
func (m *Metrics) Summarize() *SimulationResult {
	if m.summary != nil {
		return m.summary
	}

	respTimes := make([]int64, 0, m.completed)
	for _, req := range m.records {
		if req.Status == StatusCompleted {
			respTimes = append(respTimes, req.ResponseTime())
		}
	}

	meanUtil := 0.0
	if len(m.utils) > 0 {
		for _, u := range m.utils {
			meanUtil += u.Util
		}
		meanUtil /= float64(len(m.utils))
	}

	phaseStats := make([]PhaseStats, 0, len(m.plan.Phases))
	for i := range m.plan.Phases {
		ph := &m.plan.Phases[i]
		completed := m.phaseCompleted[i]
		phaseStats = append(phaseStats, PhaseStats{
			Phase:      i,
			Completed:  completed,
			Throughput: float64(completed) / (float64(ph.Duration()) / TicksPerSecond),
		})
	}

	m.summary = &SimulationResult{
		Records:         m.records,
		ResponseTimes:   NewDistribution(respTimes),
		Injected:        m.Injected,
		Completed:       m.completed,
		Truncated:       m.truncated,
		Dropped:         m.dropped,
		TotalCost:       m.cost,
		MeanUtilization: meanUtil,
		InstanceUtils:   m.utils,
		PhaseStats:      phaseStats,
		SimEndedTick:    m.simEndedTick,
		WallTime:        m.wallEnd.Sub(m.wallStart),
	}
	return m.summary
}
