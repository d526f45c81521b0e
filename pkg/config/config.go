// Package config loads and validates the YAML configuration that
// parameterizes a cascade-sim sweep: topology, traffic, disaster, and
// execution settings, plus reporting and metrics-exporter endpoints.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jihwankim/cascade-sim/pkg/service"
)

// Config is the root sweep configuration.
type Config struct {
	Framework  FrameworkConfig  `yaml:"framework"`
	Topology   TopologyConfig   `yaml:"topology"`
	Traffic    TrafficConfig    `yaml:"traffic"`
	Disaster   DisasterConfig   `yaml:"disaster"`
	Execution  ExecutionConfig  `yaml:"execution"`
	Reporting  ReportingConfig  `yaml:"reporting"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// FrameworkConfig contains general framework settings.
type FrameworkConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// TopologyConfig describes the network file and path/DC-placement settings.
type TopologyConfig struct {
	File        string   `yaml:"file"`
	KPaths      int      `yaml:"k_paths"`
	NumDCs      int      `yaml:"num_dcs"`
	DCPlacement string   `yaml:"dc_placement"` // "degree" or "fixed"
	DCNames     []string `yaml:"dc_names"`      // only used when dc_placement == "fixed"
}

// TrafficConfig describes the offered-load sweep and per-service sizing.
type TrafficConfig struct {
	NumArrivals              int                      `yaml:"num_arrivals"`
	MeanHoldingTime          float64                  `yaml:"mean_holding_time"`
	MinLoad                  float64                  `yaml:"min_load"`
	MaxLoad                  float64                  `yaml:"max_load"`
	LoadStep                 float64                  `yaml:"load_step"`
	NetworkUnitsPerLink      int                      `yaml:"network_units_per_link"`
	ComputingUnitsPerDC      int                      `yaml:"computing_units_per_dc"`
	NetworkUnitsPerService   int                      `yaml:"network_units_per_service"`
	ComputingUnitsPerService int                      `yaml:"computing_units_per_service"`
	PriorityClasses          []service.PriorityClass `yaml:"priority_classes"`
}

// DisasterConfig describes the zone cascade schedule.
type DisasterConfig struct {
	Occurrences             int     `yaml:"occurrences"`
	MeanFailureInterArrival float64 `yaml:"mean_failure_inter_arrival"`
	MeanFailureDuration     float64 `yaml:"mean_failure_duration"`
}

// ExecutionConfig controls the sweep's policies, concurrency, and seeding.
type ExecutionConfig struct {
	Threads          int      `yaml:"threads"`
	Seed             int64    `yaml:"seed"`
	NumSeeds         int      `yaml:"num_seeds"`
	RoutingPolicies  []string `yaml:"routing_policies"`
	RestorationPolicies []string `yaml:"restoration_policies"`
	RiskAlpha        float64  `yaml:"risk_alpha"`
}

// ReportingConfig contains output directory and progress-cadence settings.
type ReportingConfig struct {
	OutputDir       string `yaml:"output_dir"`
	TrackStatsEvery int    `yaml:"track_stats_every"`
	ProgressFormat  string `yaml:"progress_format"` // "text" or "json"
}

// MetricsConfig configures the live Prometheus exporter. Addr left empty
// disables the exporter entirely.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the configuration used when no file is present,
// matching the CLI surface's documented flag defaults.
func DefaultConfig() *Config {
	return &Config{
		Framework: FrameworkConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Topology: TopologyConfig{
			File:        "testdata/nsfnet.xml",
			KPaths:      5,
			NumDCs:      3,
			DCPlacement: "degree",
		},
		Traffic: TrafficConfig{
			NumArrivals:              100000,
			MeanHoldingTime:          10,
			MinLoad:                 100,
			MaxLoad:                 100,
			LoadStep:                50,
			NetworkUnitsPerLink:      200,
			ComputingUnitsPerDC:      500,
			NetworkUnitsPerService:   1,
			ComputingUnitsPerService: 1,
			PriorityClasses: []service.PriorityClass{
				{Name: "gold", Priority: 1, LossCost: 10, ExpectedLossCost: 8, MaxDegradation: 0, MaxDelay: 0},
				{Name: "silver", Priority: 2, LossCost: 5, ExpectedLossCost: 3, MaxDegradation: 0, MaxDelay: 0},
				{Name: "bronze", Priority: 3, LossCost: 1, ExpectedLossCost: 1, MaxDegradation: 0, MaxDelay: 0},
			},
		},
		Disaster: DisasterConfig{
			Occurrences:             3,
			MeanFailureInterArrival: 3600,
			MeanFailureDuration:     3600,
		},
		Execution: ExecutionConfig{
			Threads:             4,
			Seed:                42,
			NumSeeds:            1,
			RoutingPolicies:     []string{"CADC"},
			RestorationPolicies: []string{"PR"},
			RiskAlpha:           0.5,
		},
		Reporting: ReportingConfig{
			OutputDir:       "./reports",
			TrackStatsEvery: 1000,
			ProgressFormat:  "text",
		},
	}
}

// Load reads cfg from a YAML file, starting from DefaultConfig and
// expanding environment variables in the raw file content before
// parsing, so secrets/paths can be injected without editing the file
// (e.g. ${REPORTS_DIR}/run-1). A missing file is not an error: the
// defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes cfg to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: failed to marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	return nil
}

// Validate reports a fatal configuration error (§7's Configuration
// error disposition): unknown policy names, malformed load ranges,
// missing topology file, or an invalid DC placement mode.
func (c *Config) Validate() error {
	if c.Topology.File == "" {
		return fmt.Errorf("config: topology.file is required")
	}
	switch c.Topology.DCPlacement {
	case "degree", "fixed":
	default:
		return fmt.Errorf("config: topology.dc_placement must be 'degree' or 'fixed', got %q", c.Topology.DCPlacement)
	}
	if c.Topology.DCPlacement == "fixed" && len(c.Topology.DCNames) != c.Topology.NumDCs {
		return fmt.Errorf("config: topology.dc_names must list exactly num_dcs=%d names for fixed placement", c.Topology.NumDCs)
	}
	if c.Topology.NumDCs < 1 {
		return fmt.Errorf("config: topology.num_dcs must be at least 1")
	}
	if c.Topology.KPaths < 1 {
		return fmt.Errorf("config: topology.k_paths must be at least 1")
	}
	if c.Traffic.NumArrivals <= 0 {
		return fmt.Errorf("config: traffic.num_arrivals must be positive")
	}
	if c.Traffic.MinLoad <= 0 || c.Traffic.MaxLoad < c.Traffic.MinLoad {
		return fmt.Errorf("config: traffic.min_load/max_load must form a non-empty positive range")
	}
	if c.Traffic.LoadStep <= 0 {
		return fmt.Errorf("config: traffic.load_step must be positive")
	}
	if len(c.Traffic.PriorityClasses) == 0 {
		return fmt.Errorf("config: traffic.priority_classes must name at least one class")
	}
	if c.Execution.Threads < 1 {
		return fmt.Errorf("config: execution.threads must be at least 1")
	}
	if c.Execution.NumSeeds < 1 {
		return fmt.Errorf("config: execution.num_seeds must be at least 1")
	}
	if len(c.Execution.RoutingPolicies) == 0 {
		return fmt.Errorf("config: execution.routing_policies must name at least one policy")
	}
	for _, name := range c.Execution.RoutingPolicies {
		switch name {
		case "CADC", "FADC", "FLB", "RADC", "RISK":
		default:
			return fmt.Errorf("config: unknown routing policy %q", name)
		}
	}
	if len(c.Execution.RestorationPolicies) == 0 {
		return fmt.Errorf("config: execution.restoration_policies must name at least one policy")
	}
	for _, name := range c.Execution.RestorationPolicies {
		switch name {
		case "DNR", "PR", "PRwR", "PRPA":
		default:
			return fmt.Errorf("config: unknown restoration policy %q", name)
		}
	}
	if c.Reporting.OutputDir == "" {
		return fmt.Errorf("config: reporting.output_dir is required")
	}
	return nil
}

// ApplyOverride applies one "--set key=value" override in dotted-path
// form (e.g. "traffic.min_load=200") onto cfg. Only the leaf fields a
// sweep operator plausibly wants to tweak between runs are supported;
// anything else is a configuration error.
func (c *Config) ApplyOverride(key, value string) error {
	switch key {
	case "framework.log_level":
		c.Framework.LogLevel = value
	case "framework.log_format":
		c.Framework.LogFormat = value
	case "topology.file":
		c.Topology.File = value
	case "topology.num_dcs":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("config: %s must be an int: %w", key, err)
		}
		c.Topology.NumDCs = n
	case "topology.dc_placement":
		c.Topology.DCPlacement = value
	case "traffic.min_load":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("config: %s must be a float: %w", key, err)
		}
		c.Traffic.MinLoad = f
	case "traffic.max_load":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("config: %s must be a float: %w", key, err)
		}
		c.Traffic.MaxLoad = f
	case "traffic.load_step":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("config: %s must be a float: %w", key, err)
		}
		c.Traffic.LoadStep = f
	case "execution.seed":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("config: %s must be an int64: %w", key, err)
		}
		c.Execution.Seed = n
	case "execution.threads":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("config: %s must be an int: %w", key, err)
		}
		c.Execution.Threads = n
	case "reporting.output_dir":
		c.Reporting.OutputDir = value
	case "metrics.addr":
		c.Metrics.Addr = value
	default:
		return fmt.Errorf("config: unknown override key %q", key)
	}
	return nil
}

// ApplyOverrides applies a "--set key=value" list, in order.
func (c *Config) ApplyOverrides(sets []string) error {
	for _, raw := range sets {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("config: malformed --set override %q, expected key=value", raw)
		}
		if err := c.ApplyOverride(parts[0], parts[1]); err != nil {
			return err
		}
	}
	return nil
}
