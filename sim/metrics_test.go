package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishedRequest(id int, arrival, start, end float64, status RequestStatus) *Request {
	req := NewRequest(id, secs(arrival), 0)
	req.StartTime = secs(start)
	req.CompletionTime = secs(end)
	req.Status = status
	return req
}

func TestMetrics_CountsByStatus(t *testing.T) {
	plan := planOf(t, phaseSpec(0, 100, 1, entry("m5", 1, 1, 0.1, 1)))
	m := NewMetrics(plan)
	m.Injected = 3

	m.Record(finishedRequest(0, 0, 0, 2, StatusCompleted), 0)
	m.Record(finishedRequest(1, 1, 1, 100, StatusTruncated), 0)
	m.Record(finishedRequest(2, 2, -1, 2, StatusDropped), 0)
	m.FinishRun(10, nil, secs(100))

	r := m.Summarize()
	assert.Equal(t, 3, r.Injected)
	assert.Equal(t, 1, r.Completed)
	assert.Equal(t, 1, r.Truncated)
	assert.Equal(t, 1, r.Dropped)
	assert.Len(t, r.Records, 3)

	// Only completed requests feed the response-time distribution.
	assert.Equal(t, 1, r.ResponseTimes.Count)
	assert.InDelta(t, 2.0, r.ResponseTimes.Mean, 1e-9)
}

func TestMetrics_RecordRejectsNonFinalRequest(t *testing.T) {
	plan := planOf(t, phaseSpec(0, 100, 1, entry("m5", 1, 1, 0.1, 1)))
	m := NewMetrics(plan)

	req := NewRequest(0, 0, 0)
	req.Status = StatusRunning
	assert.Panics(t, func() { m.Record(req, 0) })
}

func TestMetrics_SummarizeIsIdempotent(t *testing.T) {
	plan := planOf(t, phaseSpec(0, 100, 1, entry("m5", 1, 1, 0.1, 1)))
	m := NewMetrics(plan)
	m.Injected = 1
	m.Record(finishedRequest(0, 0, 0, 1, StatusCompleted), 0)
	m.FinishRun(5, nil, secs(100))

	r1 := m.Summarize()
	r2 := m.Summarize()
	assert.Same(t, r1, r2)

	// Further recording after summarization is a defect.
	assert.Panics(t, func() { m.Record(finishedRequest(1, 0, 0, 1, StatusCompleted), 0) })
}

func TestMetrics_PhaseThroughput(t *testing.T) {
	plan := planOf(t,
		phaseSpec(0, 50, 1, entry("m5", 1, 1, 0.1, 1)),
		phaseSpec(50, 100, 1, entry("m5", 1, 1, 0.1, 1)),
	)
	m := NewMetrics(plan)
	m.Injected = 3
	m.Record(finishedRequest(0, 0, 0, 1, StatusCompleted), 0)
	m.Record(finishedRequest(1, 2, 2, 3, StatusCompleted), 0)
	m.Record(finishedRequest(2, 60, 60, 61, StatusCompleted), 1)
	m.FinishRun(0, nil, secs(100))

	r := m.Summarize()
	require.Len(t, r.PhaseStats, 2)
	assert.Equal(t, 2, r.PhaseStats[0].Completed)
	assert.InDelta(t, 2.0/50, r.PhaseStats[0].Throughput, 1e-9)
	assert.Equal(t, 1, r.PhaseStats[1].Completed)
	assert.InDelta(t, 1.0/50, r.PhaseStats[1].Throughput, 1e-9)
}

func TestMetrics_MeanUtilization(t *testing.T) {
	plan := planOf(t, phaseSpec(0, 100, 1, entry("m5", 2, 1, 0.1, 1)))
	m := NewMetrics(plan)
	m.FinishRun(10, []InstanceUtil{
		{Instance: "m5/0", Type: "m5", Util: 0.5},
		{Instance: "m5/1", Type: "m5", Util: 0.1},
	}, secs(100))

	r := m.Summarize()
	assert.InDelta(t, 0.3, r.MeanUtilization, 1e-9)
	assert.InDelta(t, 10.0, r.TotalCost, 1e-9)
}

func TestNewDistribution(t *testing.T) {
	// 1..5 seconds in ticks.
	values := []int64{secs(5), secs(1), secs(3), secs(2), secs(4)}
	d := NewDistribution(values)

	assert.Equal(t, 5, d.Count)
	assert.InDelta(t, 3.0, d.Mean, 1e-9)
	assert.InDelta(t, 3.0, d.P50, 1e-9)
	assert.InDelta(t, 1.0, d.Min, 1e-9)
	assert.InDelta(t, 5.0, d.Max, 1e-9)
	// Linear interpolation: p90 of [1..5] is 4.6.
	assert.InDelta(t, 4.6, d.P90, 1e-9)

	assert.Equal(t, Distribution{}, NewDistribution(nil))
}

func TestNewDistribution_SingleValue(t *testing.T) {
	d := NewDistribution([]int64{secs(2)})
	assert.InDelta(t, 2.0, d.P50, 1e-9)
	assert.InDelta(t, 2.0, d.P99, 1e-9)
	assert.InDelta(t, 2.0, d.Mean, 1e-9)
}
