package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimulationTrace_RecordAndLen(t *testing.T) {
	st := NewSimulationTrace()
	assert.Equal(t, 0, st.Len())

	st.Record(EventRecord{Seq: 0, Tick: 100, Kind: "Arrival", RequestID: 0, Phase: 0})
	st.Record(EventRecord{Seq: 1, Tick: 250, Kind: "Completion", RequestID: 0, Instance: "m5/0", Phase: 0})
	st.Record(EventRecord{Seq: 2, Tick: 500, Kind: "PhaseChange", RequestID: -1, Phase: 1})

	assert.Equal(t, 3, st.Len())
	assert.Equal(t, "Completion", st.Records[1].Kind)
	assert.Equal(t, "m5/0", st.Records[1].Instance)
	assert.Equal(t, -1, st.Records[2].RequestID)
}

func TestSummarize(t *testing.T) {
	st := NewSimulationTrace()
	st.Record(EventRecord{Seq: 0, Tick: 100, Kind: "Arrival"})
	st.Record(EventRecord{Seq: 1, Tick: 100, Kind: "Arrival"})
	st.Record(EventRecord{Seq: 2, Tick: 300, Kind: "Completion"})
	st.Record(EventRecord{Seq: 3, Tick: 900, Kind: "PhaseChange", RequestID: -1})

	s := Summarize(st)
	assert.Equal(t, 4, s.TotalEvents)
	assert.Equal(t, int64(100), s.FirstTick)
	assert.Equal(t, int64(900), s.LastTick)
	assert.Equal(t, 2, s.CountByKind["Arrival"])
	assert.Equal(t, 1, s.CountByKind["Completion"])
	assert.Equal(t, 1, s.CountByKind["PhaseChange"])
}

func TestSummarize_NilAndEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.TotalEvents)
	assert.Empty(t, s.CountByKind)

	s = Summarize(NewSimulationTrace())
	assert.Equal(t, 0, s.TotalEvents)
	assert.Equal(t, int64(0), s.FirstTick)
}
