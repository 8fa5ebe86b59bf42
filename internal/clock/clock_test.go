package clock

import (
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{CycleTime: 0.5}, false},
		{"zero cycle time", Config{CycleTime: 0}, true},
		{"negative cycle time", Config{CycleTime: -1}, true},
		{"negative sample interval", Config{CycleTime: 0.5, SampleInterval: -1}, true},
		{"sample interval below cycle time", Config{CycleTime: 1, SampleInterval: 0.5}, true},
		{"sample interval equal to cycle time", Config{CycleTime: 0.5, SampleInterval: 0.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClock_SimTimeNeverDrifts(t *testing.T) {
	c, err := New(Config{CycleTime: 0.1, Mode: ModeGenerator})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 100; i++ {
		c.Step()
	}

	want := 100 * 0.1
	got := c.SimTime()
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("SimTime() = %v, want %v", got, want)
	}
}

func TestClock_GeneratorNeverSleeps(t *testing.T) {
	c, err := New(Config{CycleTime: 5, Mode: ModeGenerator})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	start := time.Now()
	for i := 0; i < 50; i++ {
		res := c.Step()
		if res.ExecRatio != 0 {
			t.Errorf("Step() ExecRatio = %v in generator mode, want 0", res.ExecRatio)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("generator mode took %v for 50 cycles, expected no sleeping", elapsed)
	}
}

func TestClock_RealtimePaces(t *testing.T) {
	c, err := New(Config{CycleTime: 0.02, Mode: ModeRealtime})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	start := time.Now()
	for i := 0; i < 5; i++ {
		c.Step()
	}
	elapsed := time.Since(start)

	if elapsed < 80*time.Millisecond {
		t.Errorf("realtime mode took %v for 5 cycles at 20ms each, expected >= 80ms", elapsed)
	}
}

func TestClock_SampleInterval(t *testing.T) {
	c, err := New(Config{CycleTime: 0.5, SampleInterval: 2.0, Mode: ModeGenerator})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var samples []uint64
	for i := 0; i < 8; i++ {
		res := c.Step()
		if res.NeedSample {
			samples = append(samples, res.CycleCount)
		}
	}

	want := []uint64{4, 8}
	if len(samples) != len(want) {
		t.Fatalf("sample cycles = %v, want %v", samples, want)
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("sample[%d] = %d, want %d", i, samples[i], want[i])
		}
	}
}

func TestClock_OverrunWarning(t *testing.T) {
	c, err := New(Config{CycleTime: 0.01, Mode: ModeRealtime})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.Start()
	c.currentCycleStart = time.Now().Add(-20 * time.Millisecond)
	c.Step()

	if len(c.Warnings()) == 0 {
		t.Error("expected an overrun warning when execution time exceeds cycle_time")
	}
}

func TestClock_StatsTracksExecutionTimes(t *testing.T) {
	c, err := New(Config{CycleTime: 0.1, Mode: ModeGenerator})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for i := 0; i < 20; i++ {
		c.Step()
	}
	stats := c.Stats()
	if stats.Count != 20 {
		t.Errorf("Stats().Count = %d, want 20", stats.Count)
	}
	if stats.MaxUs < 0 {
		t.Errorf("Stats().MaxUs = %d, want >= 0", stats.MaxUs)
	}
}

func TestClock_Reset(t *testing.T) {
	c, err := New(Config{CycleTime: 1, Mode: ModeGenerator})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		c.Step()
	}
	c.Reset(0)
	if c.CycleCount() != 0 {
		t.Errorf("CycleCount() after Reset(0) = %d, want 0", c.CycleCount())
	}
}
