package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/allocsim/allocsim/sim"
)

var (
	// CLI flags; the file config (--config) provides defaults and explicit
	// flags override it.
	planFile     string  // Allocation plan YAML produced by the external optimizer
	configFile   string  // Optional simulation config YAML
	seed         int64   // Seed for all randomness in the run
	workloadLen  float64 // Simulated length in seconds (0 = full plan horizon)
	queuePolicy  string  // Saturation policy: queue, drop or block
	saveEventLog bool    // Record the full ordered event trace
	logLevel     string  // Log verbosity level

	// Output flags
	outputDir    string // Directory for result files
	outputPrefix string // Prefix for result file names
	saveRequests bool   // Write the per-request CSV
	saveUtils    bool   // Write the per-instance utilization CSV
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "allocsim",
	Short: "Discrete-event simulator for cloud allocation plans",
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate a transactional workload against an allocation plan",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := &sim.Config{
			Seed:           seed,
			WorkloadLength: workloadLen,
			QueuePolicy:    sim.QueuePolicy(queuePolicy),
			SaveEventLog:   saveEventLog,
		}
		if configFile != "" {
			cfg, err = sim.LoadConfig(configFile)
			if err != nil {
				logrus.Fatalf("Unable to load config: %v", err)
			}
			// Explicit flags override the file.
			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}
			if cmd.Flags().Changed("workload-length") {
				cfg.WorkloadLength = workloadLen
			}
			if cmd.Flags().Changed("queue-policy") {
				cfg.QueuePolicy = sim.QueuePolicy(queuePolicy)
			}
			if cmd.Flags().Changed("save-event-log") {
				cfg.SaveEventLog = saveEventLog
			}
		}

		plan, err := sim.LoadPlan(planFile)
		if err != nil {
			logrus.Fatalf("Unable to load plan %s: %v", planFile, err)
		}

		logrus.Infof("Starting simulation: %d phases, horizon=%ds, seed=%d, policy=%s",
			len(plan.Phases), plan.Horizon()/sim.TicksPerSecond, cfg.Seed, cfg.Policy())

		s, err := sim.NewSimulator(plan, cfg)
		if err != nil {
			logrus.Fatalf("Unable to build simulator: %v", err)
		}
		result := s.Run()

		fmt.Print(FormatSummary(result, planFile))

		outPath := func(suffix string) string {
			return filepath.Join(outputDir, outputPrefix+suffix)
		}
		if err := WriteSummary(outPath("_out.txt"), result, planFile); err != nil {
			logrus.Fatalf("Unable to write summary: %v", err)
		}
		if saveRequests {
			if err := WriteRequestsCSV(outPath("_reqs.csv"), result.Records); err != nil {
				logrus.Fatalf("Unable to write request events: %v", err)
			}
		}
		if saveUtils {
			if err := WriteUtilsCSV(outPath("_utils.csv"), result.InstanceUtils); err != nil {
				logrus.Fatalf("Unable to write utilizations: %v", err)
			}
		}
		if cfg.SaveEventLog {
			if err := WriteTraceCSV(outPath("_events.csv"), s.Trace); err != nil {
				logrus.Fatalf("Unable to write event trace: %v", err)
			}
		}

		logrus.Info("Simulation complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&planFile, "plan", "", "Allocation plan YAML file (required)")
	runCmd.Flags().StringVar(&configFile, "config", "", "Simulation config YAML file")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for random workload and service-time generation")
	runCmd.Flags().Float64Var(&workloadLen, "workload-length", 0, "Simulated length in seconds (0 = full plan horizon)")
	runCmd.Flags().StringVar(&queuePolicy, "queue-policy", "queue", "Saturation policy (queue, drop, block)")
	runCmd.Flags().BoolVar(&saveEventLog, "save-event-log", false, "Record the full ordered event trace")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().StringVar(&outputDir, "output-dir", ".", "Output directory")
	runCmd.Flags().StringVar(&outputPrefix, "output-prefix", "allocsim", "Output file prefix")
	runCmd.Flags().BoolVar(&saveRequests, "save-requests", false, "Save per-request event times as CSV")
	runCmd.Flags().BoolVar(&saveUtils, "save-utils", false, "Save per-instance utilization as CSV")

	if err := runCmd.MarkFlagRequired("plan"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(runCmd)
}
