package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/myorg/cyclesim/cyclesim/internal/cerrors"
	"github.com/myorg/cyclesim/cyclesim/internal/clock"
	"github.com/myorg/cyclesim/cyclesim/internal/engine"
	"github.com/myorg/cyclesim/cyclesim/internal/sink"
)

type runOptions struct {
	ConfigFile   string
	Quiet        bool
	RedisAddr    string
	RedisChannel string
	HistoryCSV   string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a program in real time",
	Long: `run loads a program configuration and drives it indefinitely in REALTIME
mode, pacing each cycle against wall-clock time. Press Ctrl-C to stop; the
current cycle finishes and sinks are closed before exit.`,
	RunE: runRealtime,
}

func init() {
	runCmd.Flags().StringVar(&runOpts.ConfigFile, "config", "", "program configuration file (required)")
	runCmd.Flags().BoolVar(&runOpts.Quiet, "quiet", false, "suppress progress output")
	runCmd.Flags().StringVar(&runOpts.RedisAddr, "redis-addr", "", "Redis address for the live publisher (e.g. localhost:6379); omit to run without one")
	runCmd.Flags().StringVar(&runOpts.RedisChannel, "redis-channel", "", "Redis pub/sub channel for live notifications")
	runCmd.Flags().StringVar(&runOpts.HistoryCSV, "history-csv", "", "CSV file to persist sampled snapshots to; omit to run without a history sink")
}

func runRealtime(cmd *cobra.Command, args []string) error {
	cfg, err := loadProgramConfig(runOpts.ConfigFile)
	if err != nil {
		return err
	}
	cfg.Clock.Mode = clock.ModeRealtime

	e, err := engine.New(cfg)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	if runOpts.RedisAddr != "" {
		pub := sink.NewRedisPublisher(sink.RedisConfig{Addr: runOpts.RedisAddr, Channel: runOpts.RedisChannel})
		defer pub.Close()
		e.SetPublisher(pub)
		logProgress(runOpts.Quiet, "Publishing live snapshots to redis://%s (channel %q)", runOpts.RedisAddr, pub.Channel())
	}

	if runOpts.HistoryCSV != "" {
		historySink, err := sink.NewCSVHistorySinkFromTemplate(runOpts.HistoryCSV, cfg.ExportTemplate)
		if err != nil {
			return fmt.Errorf("creating history sink: %w", err)
		}
		e.SetHistorySink(historySink)
		logProgress(runOpts.Quiet, "Recording sampled history to %s", runOpts.HistoryCSV)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logProgress(runOpts.Quiet, "received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	logProgress(runOpts.Quiet, "Starting cyclesim run (cycle_time=%.3fs)", cfg.Clock.CycleTime)
	err = e.RunRealtime(ctx)

	var canceled *cerrors.CancelRequested
	if errors.As(err, &canceled) {
		logProgress(runOpts.Quiet, "stopped after %d cycles", canceled.CycleCount)
		return nil
	}
	return err
}
