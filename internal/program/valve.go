package program

import "math"

// Valve models a valve whose current opening moves toward a target
// opening at a rate bounded by its full travel time; it cannot jump
// instantaneously.
type Valve struct {
	cycleTime float64

	MinOpening     float64
	MaxOpening     float64
	FullTravelTime float64
	InitialOpening float64

	CurrentOpening float64
	TargetOpening  float64
}

// Default parameters, grounded on programs/valve.py.
const (
	valveDefaultMinOpening     = 0.0
	valveDefaultMaxOpening     = 100.0
	valveDefaultFullTravel     = 10.0
	valveDefaultInitialOpening = 0.0
)

// NewValve constructs a valve model, applying initArgs over the
// defaults.
func NewValve(cycleTime float64, initArgs map[string]float64) *Valve {
	v := &Valve{
		cycleTime:      cycleTime,
		MinOpening:     valveDefaultMinOpening,
		MaxOpening:     valveDefaultMaxOpening,
		FullTravelTime: valveDefaultFullTravel,
		InitialOpening: valveDefaultInitialOpening,
	}
	if x, ok := initArgs["min_opening"]; ok {
		v.MinOpening = x
	}
	if x, ok := initArgs["max_opening"]; ok {
		v.MaxOpening = x
	}
	if x, ok := initArgs["full_travel_time"]; ok {
		v.FullTravelTime = x
	}
	if x, ok := initArgs["initial_opening"]; ok {
		v.InitialOpening = x
	}

	v.CurrentOpening = v.InitialOpening
	v.TargetOpening = v.InitialOpening
	return v
}

// Execute moves the current opening toward target_opening by at most
// one cycle's worth of travel.
func (v *Valve) Execute(args map[string]float64) error {
	if x, ok := hasArg(args, "target_opening"); ok {
		v.TargetOpening = clamp(x, v.MinOpening, v.MaxOpening)
	}

	maxRange := v.MaxOpening - v.MinOpening
	speed := math.Inf(1)
	if v.FullTravelTime > 0 && maxRange > 0 {
		speed = maxRange / v.FullTravelTime
	}

	distance := speed * v.cycleTime
	diff := v.TargetOpening - v.CurrentOpening

	if math.Abs(diff) <= distance {
		v.CurrentOpening = v.TargetOpening
	} else if diff > 0 {
		v.CurrentOpening += distance
	} else {
		v.CurrentOpening -= distance
	}

	v.CurrentOpening = clamp(v.CurrentOpening, v.MinOpening, v.MaxOpening)
	return nil
}

// StoredAttributes lists the fields projected into the variable store.
func (v *Valve) StoredAttributes() []string {
	return []string{"current_opening"}
}

// Attr reads a named field's current value.
func (v *Valve) Attr(name string) (float64, bool) {
	switch name {
	case "current_opening":
		return v.CurrentOpening, true
	case "target_opening":
		return v.TargetOpening, true
	default:
		return 0, false
	}
}
