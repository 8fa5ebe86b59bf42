package program

import "math"

const (
	waveDefaultAmplitude = 100.0
	waveDefaultPeriod    = 1200.0
	waveDefaultPhase     = 0.0
)

func waveDefaults(cycleTime float64, initArgs map[string]float64) (amplitude, period, phase float64) {
	amplitude, period, phase = waveDefaultAmplitude, waveDefaultPeriod, waveDefaultPhase
	if v, ok := initArgs["amplitude"]; ok {
		amplitude = v
	}
	if v, ok := initArgs["period"]; ok {
		period = v
	}
	if v, ok := initArgs["phase"]; ok {
		phase = v
	}
	return
}

// SineWave generates out = amplitude*sin(2*pi*(cycleCount/cyclesPerPeriod) + phase).
type SineWave struct {
	cycleTime                float64
	Amplitude, Period, Phase float64
	Out                      float64
	cycleCount               int
}

// NewSineWave constructs a sine wave generator.
func NewSineWave(cycleTime float64, initArgs map[string]float64) *SineWave {
	a, p, ph := waveDefaults(cycleTime, initArgs)
	return &SineWave{cycleTime: cycleTime, Amplitude: a, Period: p, Phase: ph}
}

// Execute advances the generator by one cycle; it takes no arguments,
// maintaining its own cycle counter.
func (s *SineWave) Execute(args map[string]float64) error {
	cyclesPerPeriod := s.Period / s.cycleTime
	angle := 2*math.Pi*(math.Mod(float64(s.cycleCount), cyclesPerPeriod))/cyclesPerPeriod + s.Phase
	s.Out = s.Amplitude * math.Sin(angle)
	s.cycleCount++
	return nil
}

// StoredAttributes lists the fields projected into the variable store.
func (s *SineWave) StoredAttributes() []string { return []string{"out", "amplitude", "period", "phase"} }

// Attr reads a named field's current value.
func (s *SineWave) Attr(name string) (float64, bool) {
	switch name {
	case "out":
		return s.Out, true
	case "amplitude":
		return s.Amplitude, true
	case "period":
		return s.Period, true
	case "phase":
		return s.Phase, true
	default:
		return 0, false
	}
}

// SquareWave generates a two-level signal that is +amplitude for the
// first half of each period and -amplitude for the second half.
type SquareWave struct {
	cycleTime                float64
	Amplitude, Period, Phase float64
	Out                      float64
	cycleCount               int
}

// NewSquareWave constructs a square wave generator.
func NewSquareWave(cycleTime float64, initArgs map[string]float64) *SquareWave {
	a, p, ph := waveDefaults(cycleTime, initArgs)
	return &SquareWave{cycleTime: cycleTime, Amplitude: a, Period: p, Phase: ph}
}

// Execute advances the generator by one cycle.
func (s *SquareWave) Execute(args map[string]float64) error {
	cyclesPerPeriod := s.Period / s.cycleTime
	position := math.Mod(math.Mod(float64(s.cycleCount), cyclesPerPeriod)/cyclesPerPeriod+s.Phase, 1.0)
	if position < 0.5 {
		s.Out = s.Amplitude
	} else {
		s.Out = -s.Amplitude
	}
	s.cycleCount++
	return nil
}

// StoredAttributes lists the fields projected into the variable store.
func (s *SquareWave) StoredAttributes() []string {
	return []string{"out", "amplitude", "period", "phase"}
}

// Attr reads a named field's current value.
func (s *SquareWave) Attr(name string) (float64, bool) {
	switch name {
	case "out":
		return s.Out, true
	case "amplitude":
		return s.Amplitude, true
	case "period":
		return s.Period, true
	case "phase":
		return s.Phase, true
	default:
		return 0, false
	}
}

// TriangleWave generates a signal that ramps linearly from -amplitude to
// +amplitude over the first half of each period and back down over the
// second half.
type TriangleWave struct {
	cycleTime                float64
	Amplitude, Period, Phase float64
	Out                      float64
	cycleCount               int
}

// NewTriangleWave constructs a triangle wave generator.
func NewTriangleWave(cycleTime float64, initArgs map[string]float64) *TriangleWave {
	a, p, ph := waveDefaults(cycleTime, initArgs)
	return &TriangleWave{cycleTime: cycleTime, Amplitude: a, Period: p, Phase: ph}
}

// Execute advances the generator by one cycle.
func (t *TriangleWave) Execute(args map[string]float64) error {
	cyclesPerPeriod := t.Period / t.cycleTime
	position := math.Mod(math.Mod(float64(t.cycleCount), cyclesPerPeriod)/cyclesPerPeriod+t.Phase, 1.0)
	if position < 0.5 {
		t.Out = -t.Amplitude + 4*t.Amplitude*position
	} else {
		t.Out = t.Amplitude - 4*t.Amplitude*(position-0.5)
	}
	t.cycleCount++
	return nil
}

// StoredAttributes lists the fields projected into the variable store.
func (t *TriangleWave) StoredAttributes() []string {
	return []string{"out", "amplitude", "period", "phase"}
}

// Attr reads a named field's current value.
func (t *TriangleWave) Attr(name string) (float64, bool) {
	switch name {
	case "out":
		return t.Out, true
	case "amplitude":
		return t.Amplitude, true
	case "period":
		return t.Period, true
	case "phase":
		return t.Phase, true
	default:
		return 0, false
	}
}
