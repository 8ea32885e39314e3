package trace

// SimulationTrace collects the ordered event records of one run.
type SimulationTrace struct {
	Records []EventRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace() *SimulationTrace {
	return &SimulationTrace{
		Records: make([]EventRecord, 0),
	}
}

// Record appends an executed-event record.
func (st *SimulationTrace) Record(record EventRecord) {
	st.Records = append(st.Records, record)
}

// Len returns the number of recorded events.
func (st *SimulationTrace) Len() int {
	return len(st.Records)
}
