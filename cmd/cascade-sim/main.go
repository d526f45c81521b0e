package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	version = "dev" // set by build flags
)

var rootCmd = &cobra.Command{
	Use:   "cascade-sim",
	Short: "Discrete-event simulator of a datacenter-interconnect network under disaster-induced cascading failures",
	Long: `cascade-sim simulates service provisioning, link and datacenter
failures, and restoration policies across a datacenter-interconnect
network. Sweeps span routing policy, restoration policy, offered load,
and seed, running each cell independently and reporting per-cell
blocking and restorability statistics.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
}

// Commands are defined in separate files:
// - runCmd in run.go

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
