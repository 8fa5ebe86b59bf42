package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cyclesim",
	Short: "Cyclic process-simulation engine",
	Long: `cyclesim drives a declarative cyclic simulation program: algorithm and
model instances (PID controllers, tanks, valves, waveform generators) plus
derived variables, advanced at a fixed cycle rate.

Commands:
  run       Drive a program in real time, publishing snapshots as it goes
  generate  Run a program for a fixed number of cycles as fast as possible
  validate  Load and validate a program config without running it

Examples:
  cyclesim validate --config tank.yaml
  cyclesim generate --config tank.yaml --cycles 1000 --history-csv out.csv
  cyclesim run --config tank.yaml --redis-addr localhost:6379`,
	Version: Version,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
