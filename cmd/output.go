// Result writers: the summary text report, the per-request CSV, the
// per-instance utilization CSV and the optional event trace CSV. The core
// engine emits a SimulationResult; all formatting lives here.

package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	sim "github.com/allocsim/allocsim/sim"
	"github.com/allocsim/allocsim/sim/trace"
)

// FormatSummary renders the human-readable report of a run.
func FormatSummary(r *sim.SimulationResult, planPath string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "=== Simulation summary for %s ===\n", planPath)
	fmt.Fprintf(&sb, "Requests: Injected: %d. Completed: %d. Truncated: %d. Dropped: %d.\n",
		r.Injected, r.Completed, r.Truncated, r.Dropped)

	rt := r.ResponseTimes
	fmt.Fprintf(&sb, "Response time: Average: %.4f s Max: %.4f s Min: %.4f s "+
		"Median: %.4f s 90-perc: %.4f s 95-perc: %.4f s 99-perc: %.4f s\n",
		rt.Mean, rt.Max, rt.Min, rt.P50, rt.P90, rt.P95, rt.P99)

	fmt.Fprintf(&sb, "Cost: %.2f. Util: %.2f\n", r.TotalCost, r.MeanUtilization)

	for _, ps := range r.PhaseStats {
		fmt.Fprintf(&sb, "Phase %d: completed %d (%.2f req/s)\n",
			ps.Phase, ps.Completed, ps.Throughput)
	}

	fmt.Fprintf(&sb, "Simulated: %.2f s. Wall time: %.2f s\n",
		float64(r.SimEndedTick)/sim.TicksPerSecond, r.WallTime.Seconds())

	return sb.String()
}

// WriteSummary saves the text report to a file.
func WriteSummary(path string, r *sim.SimulationResult, planPath string) error {
	return os.WriteFile(path, []byte(FormatSummary(r, planPath)), 0o644)
}

// WriteRequestsCSV saves per-request event times, one line per request:
// creation, service start and end, serving instance, phase and final status.
func WriteRequestsCSV(path string, records []*sim.Request) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create request file: %w", err)
	}
	defer file.Close() //nolint:errcheck // flushed and checked via writer.Error below

	w := csv.NewWriter(file)
	if err := w.Write([]string{"req", "arrival", "start", "end", "instance", "type", "phase", "status"}); err != nil {
		return err
	}
	for _, req := range records {
		row := []string{
			strconv.Itoa(req.ID),
			formatTick(req.ArrivalTime),
			formatTick(req.StartTime),
			formatTick(req.CompletionTime),
			string(req.Instance),
			instanceType(req.Instance),
			strconv.Itoa(req.PhaseAtArrival),
			string(req.Status),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteUtilsCSV saves the realized utilization of each instance.
func WriteUtilsCSV(path string, utils []sim.InstanceUtil) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create utilization file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	w := csv.NewWriter(file)
	if err := w.Write([]string{"instance", "type", "util"}); err != nil {
		return err
	}
	for _, u := range utils {
		row := []string{
			string(u.Instance),
			u.Type,
			strconv.FormatFloat(u.Util, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteTraceCSV saves the ordered event trace of a run.
func WriteTraceCSV(path string, st *trace.SimulationTrace) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	w := csv.NewWriter(file)
	if err := w.Write([]string{"seq", "tick", "kind", "req", "instance", "phase"}); err != nil {
		return err
	}
	if st != nil {
		for _, rec := range st.Records {
			row := []string{
				strconv.FormatUint(rec.Seq, 10),
				strconv.FormatInt(rec.Tick, 10),
				rec.Kind,
				strconv.Itoa(rec.RequestID),
				rec.Instance,
				strconv.Itoa(rec.Phase),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

// formatTick renders a tick as seconds; unset (-1) timestamps stay -1.
func formatTick(t int64) string {
	if t < 0 {
		return "-1"
	}
	return strconv.FormatFloat(float64(t)/sim.TicksPerSecond, 'f', 6, 64)
}

// instanceType extracts the type part of an instance identity ("type/index").
func instanceType(id sim.InstanceID) string {
	s := string(id)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[:i]
	}
	return s
}
