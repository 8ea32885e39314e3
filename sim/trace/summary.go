package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalEvents int
	// CountByKind maps event type tag → number of executed events.
	CountByKind map[string]int
	FirstTick   int64
	LastTick    int64
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		CountByKind: make(map[string]int),
	}
	if st == nil || len(st.Records) == 0 {
		return summary
	}

	summary.TotalEvents = len(st.Records)
	summary.FirstTick = st.Records[0].Tick
	summary.LastTick = st.Records[len(st.Records)-1].Tick
	for _, r := range st.Records {
		summary.CountByKind[r.Kind]++
	}
	return summary
}
