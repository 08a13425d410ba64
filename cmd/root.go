package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rail-sim/rail-sim/dvfs"
)

var (
	// CLI flags
	logLevel     string // Log verbosity level
	platformPath string // Platform YAML (rails, clocks, relationships)
	scenarioPath string // Scenario YAML (sequence of events to drive)
	showTree     bool   // Dump the rail tree after the scenario
	showStats    bool   // Dump the time-at-voltage histograms after the scenario
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "rail-sim",
	Short: "Voltage rail constraint solver and ramp engine",
}

// runCmd loads a platform, binds simulated regulators, and drives a
// scenario of rate-change / thermal / suspend events against it.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario against a platform",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		spec, err := dvfs.LoadPlatformSpec(platformPath)
		if err != nil {
			logrus.Fatalf("unable to load platform: %v", err)
		}
		sys, err := dvfs.BuildSystem(spec)
		if err != nil {
			logrus.Fatalf("unable to build system: %v", err)
		}
		if err := sys.Start(spec.SimRegulators()); err != nil {
			logrus.Fatalf("unable to start system: %v", err)
		}

		if scenarioPath != "" {
			scenario, err := LoadScenario(scenarioPath)
			if err != nil {
				logrus.Fatalf("unable to load scenario: %v", err)
			}
			if err := scenario.Run(sys); err != nil {
				logrus.Errorf("scenario stopped: %v", err)
			}
		}

		if showTree {
			sys.DumpTree(os.Stdout)
		}
		if showStats {
			sys.DumpStats(os.Stdout)
		}
	},
}

// dumpCmd prints the static voltage tables of a platform file.
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print a platform's voltage tables",
	Run: func(cmd *cobra.Command, args []string) {
		spec, err := dvfs.LoadPlatformSpec(platformPath)
		if err != nil {
			logrus.Fatalf("unable to load platform: %v", err)
		}
		sys, err := dvfs.BuildSystem(spec)
		if err != nil {
			logrus.Fatalf("unable to build system: %v", err)
		}
		sys.DumpTables(os.Stdout)
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
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&platformPath, "platform", "platform.yaml", "Platform description YAML")

	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML to drive against the platform")
	runCmd.Flags().BoolVar(&showTree, "tree", true, "Dump the rail tree when the scenario finishes")
	runCmd.Flags().BoolVar(&showStats, "stats", false, "Dump time-at-voltage histograms when the scenario finishes")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dumpCmd)
}
