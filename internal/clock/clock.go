// Package clock implements the cycle-counting clock that drives the
// simulation engine. Unlike a wall-clock wrapper, its core state is a
// cycle count; simulated time is always derived from it rather than
// accumulated, so repeated Step calls never drift.
package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Mode selects whether Step paces itself against wall-clock time.
type Mode int

const (
	// ModeRealtime sleeps out the remainder of each cycle, pacing the
	// driver against wall-clock time. Intended for live/online runs.
	ModeRealtime Mode = iota
	// ModeGenerator never sleeps; cycles advance as fast as the driver
	// can execute them. Intended for batch data generation.
	ModeGenerator
)

func (m Mode) String() string {
	switch m {
	case ModeRealtime:
		return "REALTIME"
	case ModeGenerator:
		return "GENERATOR"
	default:
		return "UNKNOWN"
	}
}

// Execution-time warning threshold and the constants the lag analyzer
// shares with this package, grounded on core/clock.py.
const (
	ExecutionTimeWarningThreshold = 0.6
	LagSafetyMargin               = 1.5
	MinRecordLength               = 10
)

// Execution-time histogram range, in microseconds: 1us to 60s, the same
// range and precision the teacher's internal/metrics/collector.go uses for
// query latencies, applied here to per-cycle execution time instead.
const (
	minExecTimeUs = 1
	maxExecTimeUs = 60_000_000
	execSigFigs   = 3
)

// Config configures a Clock.
type Config struct {
	// CycleTime is the driver's execution period, in seconds.
	CycleTime float64
	// StartTimestamp is the simulated start time, as a Unix timestamp.
	StartTimestamp float64
	// Mode selects pacing behavior.
	Mode Mode
	// SampleInterval, if non-zero, must be >= CycleTime; it controls how
	// often Step reports NeedSample=true. Zero means every cycle samples.
	SampleInterval float64
	// TimeFormat is a Go time layout string used to render TimeStr. Empty
	// means RFC3339.
	TimeFormat string
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.CycleTime <= 0 {
		return fmt.Errorf("cycle_time must be positive, got %v", c.CycleTime)
	}
	if c.SampleInterval < 0 {
		return fmt.Errorf("sample_interval must not be negative, got %v", c.SampleInterval)
	}
	if c.SampleInterval > 0 && c.SampleInterval < c.CycleTime {
		return fmt.Errorf("sample_interval (%v) must be >= cycle_time (%v)", c.SampleInterval, c.CycleTime)
	}
	return nil
}

// Warning records a single execution-time overrun observed by Step.
type Warning struct {
	CycleCount    uint64
	ExecutionTime time.Duration
	CycleTime     time.Duration
}

// Clock drives cycle stepping for the engine. A Clock is not safe for
// concurrent use; it is owned by a single driver goroutine.
type Clock struct {
	cfg Config

	cycleCount uint64
	running    bool

	currentCycleStart time.Time
	sampleCycles      uint64

	mu            sync.Mutex
	warnings      []Warning
	execTimes     *hdrhistogram.Histogram
	execTimeCount int64
}

// New constructs a Clock from a validated Config.
func New(cfg Config) (*Clock, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sampleCycles := uint64(1)
	if cfg.SampleInterval > 0 {
		sc := uint64(cfg.SampleInterval / cfg.CycleTime)
		if sc < 1 {
			sc = 1
		}
		sampleCycles = sc
	}

	return &Clock{
		cfg:          cfg,
		sampleCycles: sampleCycles,
		execTimes:    hdrhistogram.New(minExecTimeUs, maxExecTimeUs, execSigFigs),
	}, nil
}

// Mode reports the clock's pacing mode.
func (c *Clock) Mode() Mode { return c.cfg.Mode }

// CycleCount returns the number of cycles completed so far.
func (c *Clock) CycleCount() uint64 { return c.cycleCount }

// SimTime returns the current simulated time as a Unix timestamp,
// computed as start + cycleCount*cycleTime rather than accumulated, so it
// never drifts from repeated addition.
func (c *Clock) SimTime() float64 {
	return c.cfg.StartTimestamp + float64(c.cycleCount)*c.cfg.CycleTime
}

// Start marks the clock as running and records the first cycle's start
// time. Calling Step before Start implicitly starts the clock.
func (c *Clock) Start() {
	if c.running {
		return
	}
	c.running = true
	c.currentCycleStart = time.Now()
}

// Stop marks the clock as no longer running. It does not reset cycle
// count or simulated time.
func (c *Clock) Stop() {
	c.running = false
}

// Reset sets the cycle counter to n, leaving mode and configuration
// untouched.
func (c *Clock) Reset(n uint64) {
	c.cycleCount = n
}

// Warnings returns a copy of the overrun warnings recorded so far.
func (c *Clock) Warnings() []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

func (c *Clock) recordWarning(w Warning) {
	c.mu.Lock()
	c.warnings = append(c.warnings, w)
	c.mu.Unlock()
}

func (c *Clock) recordExecTime(d time.Duration) {
	us := d.Microseconds()
	if us < minExecTimeUs {
		us = minExecTimeUs
	}
	c.mu.Lock()
	c.execTimes.RecordValue(us)
	c.execTimeCount++
	c.mu.Unlock()
}

// ExecStats summarizes the distribution of per-cycle execution times
// recorded so far.
type ExecStats struct {
	Count  int64
	MeanUs float64
	P50Us  int64
	P95Us  int64
	P99Us  int64
	MaxUs  int64
}

// Stats returns the current execution-time distribution, letting a
// caller observe overrun behavior beyond the latest snapshot's single
// instantaneous ExecRatio.
func (c *Clock) Stats() ExecStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ExecStats{
		Count:  c.execTimeCount,
		MeanUs: c.execTimes.Mean(),
		P50Us:  c.execTimes.ValueAtQuantile(50),
		P95Us:  c.execTimes.ValueAtQuantile(95),
		P99Us:  c.execTimes.ValueAtQuantile(99),
		MaxUs:  c.execTimes.Max(),
	}
}

// StepResult is returned by Step.
type StepResult struct {
	CycleCount uint64
	NeedSample bool
	TimeStr    string
	ExecRatio  float64
}

// Step advances the clock by one cycle. In ModeRealtime it measures the
// elapsed execution time since the previous Step call, warns if that time
// exceeds ExecutionTimeWarningThreshold of the cycle period, and sleeps
// out any remaining time before returning. In ModeGenerator it never
// sleeps and ExecRatio is always zero.
func (c *Clock) Step() StepResult {
	if !c.running {
		c.Start()
	}

	cycleTime := time.Duration(c.cfg.CycleTime * float64(time.Second))

	executionTime := time.Duration(0)
	now := time.Now()
	if !c.currentCycleStart.IsZero() {
		executionTime = now.Sub(c.currentCycleStart)
	}
	c.recordExecTime(executionTime)

	execRatio := 0.0

	if c.cfg.Mode == ModeRealtime && cycleTime > 0 {
		execRatio = float64(executionTime) / float64(cycleTime)
		if execRatio > 1.0 {
			execRatio = 1.0
		}

		threshold := time.Duration(float64(cycleTime) * ExecutionTimeWarningThreshold)
		if executionTime > threshold {
			c.recordWarning(Warning{
				CycleCount:    c.cycleCount,
				ExecutionTime: executionTime,
				CycleTime:     cycleTime,
			})
		}

		remaining := cycleTime - executionTime
		if remaining > 0 {
			time.Sleep(remaining)
		} else {
			c.recordWarning(Warning{
				CycleCount:    c.cycleCount,
				ExecutionTime: executionTime,
				CycleTime:     cycleTime,
			})
		}
	}

	c.currentCycleStart = time.Now()
	c.cycleCount++

	needSample := c.cycleCount%c.sampleCycles == 0

	simTime := c.SimTime()
	t := time.Unix(int64(simTime), int64((simTime-float64(int64(simTime)))*float64(time.Second))).UTC()
	layout := c.cfg.TimeFormat
	if layout == "" {
		layout = time.RFC3339
	}
	timeStr := t.Format(layout)

	return StepResult{
		CycleCount: c.cycleCount,
		NeedSample: needSample,
		TimeStr:    timeStr,
		ExecRatio:  execRatio,
	}
}
