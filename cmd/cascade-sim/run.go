package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jihwankim/cascade-sim/pkg/config"
	"github.com/jihwankim/cascade-sim/pkg/core/runner"
	"github.com/jihwankim/cascade-sim/pkg/emergency"
	"github.com/jihwankim/cascade-sim/pkg/monitoring/prometheus"
	"github.com/jihwankim/cascade-sim/pkg/reporting"
	"github.com/jihwankim/cascade-sim/pkg/topology"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Args:  cobra.NoArgs,
	Short: "Execute a sweep over routing policy, restoration policy, load, and seed",
	Long:  `Loads a sweep configuration, expands it into a plan, and executes every cell.`,
	RunE:  runSweep,
}

func init() {
	runCmd.Flags().String("topology-file", "", "topology descriptor (.xml or .txt), overrides config")
	runCmd.Flags().Int("num-arrivals", 0, "arrivals per cell, overrides config")
	runCmd.Flags().Int("k-paths", 0, "candidate paths per source/DC pair, overrides config")
	runCmd.Flags().Int("num-dcs", 0, "number of datacenters to place, overrides config")
	runCmd.Flags().String("dc-placement", "", "'degree' or 'fixed', overrides config")
	runCmd.Flags().StringSlice("dc-names", nil, "fixed DC node names, used when dc-placement=fixed")
	runCmd.Flags().Int("threads", 0, "concurrent cells, overrides config")
	runCmd.Flags().Float64("min-load", 0, "sweep start load (Erlangs), overrides config")
	runCmd.Flags().Float64("max-load", 0, "sweep end load (Erlangs), overrides config")
	runCmd.Flags().Float64("load-step", 0, "sweep load increment, overrides config")
	runCmd.Flags().Int64("seed", 0, "base RNG seed, overrides config")
	runCmd.Flags().Int("num-seeds", 0, "seeds per (policy, load) combination, overrides config")
	runCmd.Flags().StringSlice("routing", nil, "routing policies to sweep (repeatable)")
	runCmd.Flags().StringSlice("restoration", nil, "restoration policies to sweep (repeatable)")
	runCmd.Flags().Float64("risk-alpha", -1, "risk-aware policy weighting, overrides config")
	runCmd.Flags().String("output-folder", "", "sweep report output directory, overrides config")
	runCmd.Flags().Int("track-stats-every", 0, "arrivals between progress snapshots, overrides config")
	runCmd.Flags().Int("disaster-occurrences", 0, "sets disaster.occurrences, overrides config (the disaster scheduler does not read this value)")
	runCmd.Flags().Float64("failure-duration", 0, "mean disaster zone duration, overrides config")
	runCmd.Flags().StringArray("set", nil, "override config values (e.g. --set traffic.min_load=200)")
	runCmd.Flags().Bool("dry-run", false, "build the plan and exit without executing it")
	runCmd.Flags().String("metrics-addr", "", "expose a live Prometheus /metrics endpoint on this address")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := applyFlagOverrides(cmd, cfg); err != nil {
		return fmt.Errorf("failed to apply flag overrides: %w", err)
	}

	setFlags, _ := cmd.Flags().GetStringArray("set")
	if err := cfg.ApplyOverrides(setFlags); err != nil {
		return fmt.Errorf("failed to apply --set overrides: %w", err)
	}

	if verbose {
		cfg.Framework.LogLevel = "debug"
	}

	logger := reporting.NewLoggerFromConfig(cfg.Framework)
	logger.Info("cascade-sim starting", "version", version)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	plan, err := config.BuildPlan(cfg)
	if err != nil {
		return fmt.Errorf("failed to build sweep plan: %w", err)
	}
	logger.Info("sweep plan built", "cells", len(plan.Cells))

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		fmt.Printf("sweep plan is valid: %d cells\n", len(plan.Cells))
		return nil
	}

	base, err := loadTopology(cfg)
	if err != nil {
		return fmt.Errorf("failed to load topology: %w", err)
	}
	logger.Info("topology loaded", "file", cfg.Topology.File, "nodes", len(base.SortedNodeIDs()), "dcs", len(base.DCs))

	r := runner.New(cfg, plan, base, logger)

	metricsAddr := cfg.Metrics.Addr
	if cmd.Flags().Changed("metrics-addr") {
		metricsAddr, _ = cmd.Flags().GetString("metrics-addr")
	}
	if metricsAddr != "" {
		exporter := prometheus.NewExporter()
		if err := exporter.Serve(metricsAddr); err != nil {
			return fmt.Errorf("failed to start metrics exporter: %w", err)
		}
		logger.Info("metrics exporter listening", "addr", metricsAddr)
		r = r.WithExporter(exporter)
	}

	halt := emergency.New(emergency.Config{EnableSignalHandlers: true})
	haltCtx, cancelHalt := context.WithCancel(context.Background())
	defer cancelHalt()
	halt.Start(haltCtx)
	halt.OnStop(func(reason string) {
		logger.Warn("halt triggered", "reason", reason)
	})
	r = r.WithHalt(halt)

	storage, err := reporting.NewStorage(cfg.Reporting.OutputDir, logger)
	if err != nil {
		return fmt.Errorf("failed to create report storage: %w", err)
	}

	report, err := r.Run(context.Background())
	if err != nil {
		return fmt.Errorf("sweep execution failed: %w", err)
	}

	if err := storage.WriteInfo(report.RunID, os.Args, resolvedConfigFields(cfg)); err != nil {
		logger.Warn("failed to write run metadata", "error", err)
	}
	if _, err := storage.SaveReport(report); err != nil {
		logger.Warn("failed to save report", "error", err)
	}

	if report.Status == reporting.StatusStopped {
		return fmt.Errorf("sweep halted: %s", report.Message)
	}

	logger.Info("sweep completed", "cells", len(report.Cells))
	return nil
}

// loadTopology loads the configured topology file (by extension),
// places datacenters, and precomputes k-shortest paths.
func loadTopology(cfg *config.Config) (*topology.Topology, error) {
	var topo *topology.Topology
	var err error

	switch ext := strings.ToLower(filepath.Ext(cfg.Topology.File)); ext {
	case ".xml":
		topo, err = topology.LoadXML(cfg.Topology.File)
	default:
		topo, err = topology.LoadText(cfg.Topology.File)
	}
	if err != nil {
		return nil, err
	}

	mode := topology.PlacementDegree
	if cfg.Topology.DCPlacement == "fixed" {
		mode = topology.PlacementFixed
	}
	if err := topo.PlaceDCs(mode, cfg.Topology.NumDCs, cfg.Traffic.ComputingUnitsPerDC, cfg.Topology.DCNames); err != nil {
		return nil, err
	}

	endpoints := append(topo.SourceNodes(), topo.DCs...)
	topo.ComputeKShortestPaths(cfg.Topology.KPaths, endpoints)

	return topo, nil
}

// applyFlagOverrides layers explicitly-set CLI flags onto cfg, taking
// precedence over the loaded file but below --set (applied after, by
// the caller) since --set is the most specific override mechanism.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()

	if f.Changed("topology-file") {
		cfg.Topology.File, _ = f.GetString("topology-file")
	}
	if f.Changed("num-arrivals") {
		cfg.Traffic.NumArrivals, _ = f.GetInt("num-arrivals")
	}
	if f.Changed("k-paths") {
		cfg.Topology.KPaths, _ = f.GetInt("k-paths")
	}
	if f.Changed("num-dcs") {
		cfg.Topology.NumDCs, _ = f.GetInt("num-dcs")
	}
	if f.Changed("dc-placement") {
		cfg.Topology.DCPlacement, _ = f.GetString("dc-placement")
	}
	if f.Changed("dc-names") {
		cfg.Topology.DCNames, _ = f.GetStringSlice("dc-names")
	}
	if f.Changed("threads") {
		cfg.Execution.Threads, _ = f.GetInt("threads")
	}
	if f.Changed("min-load") {
		cfg.Traffic.MinLoad, _ = f.GetFloat64("min-load")
	}
	if f.Changed("max-load") {
		cfg.Traffic.MaxLoad, _ = f.GetFloat64("max-load")
	}
	if f.Changed("load-step") {
		cfg.Traffic.LoadStep, _ = f.GetFloat64("load-step")
	}
	if f.Changed("seed") {
		cfg.Execution.Seed, _ = f.GetInt64("seed")
	}
	if f.Changed("num-seeds") {
		cfg.Execution.NumSeeds, _ = f.GetInt("num-seeds")
	}
	if f.Changed("routing") {
		cfg.Execution.RoutingPolicies, _ = f.GetStringSlice("routing")
	}
	if f.Changed("restoration") {
		cfg.Execution.RestorationPolicies, _ = f.GetStringSlice("restoration")
	}
	if f.Changed("risk-alpha") {
		cfg.Execution.RiskAlpha, _ = f.GetFloat64("risk-alpha")
	}
	if f.Changed("output-folder") {
		cfg.Reporting.OutputDir, _ = f.GetString("output-folder")
	}
	if f.Changed("track-stats-every") {
		cfg.Reporting.TrackStatsEvery, _ = f.GetInt("track-stats-every")
	}
	if f.Changed("disaster-occurrences") {
		cfg.Disaster.Occurrences, _ = f.GetInt("disaster-occurrences")
	}
	if f.Changed("failure-duration") {
		cfg.Disaster.MeanFailureDuration, _ = f.GetFloat64("failure-duration")
	}
	return nil
}

// resolvedConfigFields flattens the fields an operator most plausibly
// wants recorded in a run's 0-info.txt metadata.
func resolvedConfigFields(cfg *config.Config) map[string]string {
	return map[string]string{
		"topology.file":                cfg.Topology.File,
		"topology.num_dcs":             fmt.Sprintf("%d", cfg.Topology.NumDCs),
		"topology.dc_placement":        cfg.Topology.DCPlacement,
		"traffic.num_arrivals":         fmt.Sprintf("%d", cfg.Traffic.NumArrivals),
		"traffic.min_load":             fmt.Sprintf("%g", cfg.Traffic.MinLoad),
		"traffic.max_load":             fmt.Sprintf("%g", cfg.Traffic.MaxLoad),
		"traffic.load_step":            fmt.Sprintf("%g", cfg.Traffic.LoadStep),
		"execution.threads":            fmt.Sprintf("%d", cfg.Execution.Threads),
		"execution.seed":               fmt.Sprintf("%d", cfg.Execution.Seed),
		"execution.num_seeds":          fmt.Sprintf("%d", cfg.Execution.NumSeeds),
		"execution.routing_policies":   strings.Join(cfg.Execution.RoutingPolicies, ","),
		"execution.restoration_policies": strings.Join(cfg.Execution.RestorationPolicies, ","),
		"reporting.output_dir":         cfg.Reporting.OutputDir,
	}
}
