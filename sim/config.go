package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// QueuePolicy selects what happens to a request that arrives while every
// instance in the active fleet is saturated.
type QueuePolicy string

const (
	// PolicyQueue holds the request in a per-instance-type FIFO queue with no
	// upper bound; it is retried on the next completion for that type.
	PolicyQueue QueuePolicy = "queue"
	// PolicyDrop finalizes the request immediately with the dropped status.
	PolicyDrop QueuePolicy = "drop"
	// PolicyBlock holds the request for admission and pauses the arrival
	// stream until it is dispatched, modeling a closed admission gate.
	PolicyBlock QueuePolicy = "block"
)

// Config groups the run options recognized by the core. Unrecognized keys in
// a config file are ignored; the CLI layer owns their validation.
type Config struct {
	// WorkloadLength caps simulated time, in seconds. Zero means the full
	// plan horizon.
	WorkloadLength float64 `yaml:"workload_length"`
	// Seed drives all randomness. Re-running with the same plan, config and
	// seed reproduces the result bit for bit.
	Seed int64 `yaml:"random_seed"`
	// QueuePolicy is the saturation policy. Empty defaults to queue.
	QueuePolicy QueuePolicy `yaml:"queue_policy"`
	// SaveEventLog enables recording of the full ordered event trace.
	SaveEventLog bool `yaml:"save_event_log"`
}

// LoadConfig loads and validates a simulation config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the option values. Called before the run starts so a bad
// configuration never produces a partial simulation.
func (c *Config) Validate() error {
	if c.WorkloadLength < 0 {
		return fmt.Errorf("workload_length must not be negative, got %v", c.WorkloadLength)
	}
	switch c.QueuePolicy {
	case "", PolicyQueue, PolicyDrop, PolicyBlock:
	default:
		return fmt.Errorf("unknown queue_policy %q (want queue, drop or block)", c.QueuePolicy)
	}
	return nil
}

// Policy returns the effective queue policy, applying the queue default.
func (c *Config) Policy() QueuePolicy {
	if c.QueuePolicy == "" {
		return PolicyQueue
	}
	return c.QueuePolicy
}

// HorizonTicks returns the simulated horizon for a run of the given plan:
// the plan horizon, optionally shortened by WorkloadLength.
func (c *Config) HorizonTicks(plan *Plan) int64 {
	horizon := plan.Horizon()
	if c.WorkloadLength > 0 {
		requested := int64(c.WorkloadLength * TicksPerSecond)
		if requested < horizon {
			horizon = requested
		}
	}
	return horizon
}
