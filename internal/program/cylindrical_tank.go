package program

import "math"

// gravity is the gravitational acceleration used by Torricelli's law,
// in meters per second squared.
const gravity = 9.81

// CylindricalTank models a cylindrical tank whose inlet is governed by a
// valve opening (0-100%) and whose outlet flow follows Torricelli's law
// (v = sqrt(2*g*h)).
type CylindricalTank struct {
	cycleTime float64

	Height        float64
	Radius        float64
	InletArea     float64
	InletVelocity float64
	OutletArea    float64
	InitialLevel  float64

	Level        float64
	ValveOpening float64
	baseArea     float64
}

// Default parameters, grounded on programs/cylindrical_tank.py.
const (
	tankDefaultHeight        = 2.0
	tankDefaultRadius        = 0.5
	tankDefaultInletArea     = 0.06
	tankDefaultInletVelocity = 3.0
	tankDefaultOutletArea    = 0.001
	tankDefaultInitialLevel  = 0.0
)

// NewCylindricalTank constructs a tank model, applying initArgs over the
// defaults.
func NewCylindricalTank(cycleTime float64, initArgs map[string]float64) *CylindricalTank {
	t := &CylindricalTank{
		cycleTime:     cycleTime,
		Height:        tankDefaultHeight,
		Radius:        tankDefaultRadius,
		InletArea:     tankDefaultInletArea,
		InletVelocity: tankDefaultInletVelocity,
		OutletArea:    tankDefaultOutletArea,
		InitialLevel:  tankDefaultInitialLevel,
	}
	if v, ok := initArgs["height"]; ok {
		t.Height = v
	}
	if v, ok := initArgs["radius"]; ok {
		t.Radius = v
	}
	if v, ok := initArgs["inlet_area"]; ok {
		t.InletArea = v
	}
	if v, ok := initArgs["inlet_velocity"]; ok {
		t.InletVelocity = v
	}
	if v, ok := initArgs["outlet_area"]; ok {
		t.OutletArea = v
	}
	if v, ok := initArgs["initial_level"]; ok {
		t.InitialLevel = v
	}

	t.Level = t.InitialLevel
	t.baseArea = math.Pi * t.Radius * t.Radius
	return t
}

// Execute advances the tank's level by one cycle given the inlet valve
// opening (0-100%).
func (t *CylindricalTank) Execute(args map[string]float64) error {
	if v, ok := hasArg(args, "valve_opening"); ok {
		t.ValveOpening = clamp(v, 0, 100)
	}

	openRatio := t.ValveOpening / 100.0
	inletFlow := t.InletArea * t.InletVelocity * openRatio

	outletFlow := 0.0
	if t.Level > 0 {
		outletVelocity := math.Sqrt(2 * gravity * t.Level)
		outletFlow = t.OutletArea * outletVelocity
	}

	netFlow := inletFlow - outletFlow
	levelChange := netFlow * t.cycleTime / t.baseArea

	t.Level = clamp(t.Level+levelChange, 0, t.Height)
	return nil
}

// StoredAttributes lists the fields projected into the variable store.
func (t *CylindricalTank) StoredAttributes() []string {
	return []string{"level", "height", "radius", "inlet_area", "inlet_velocity", "outlet_area", "initial_level", "valve_opening"}
}

// Attr reads a named field's current value.
func (t *CylindricalTank) Attr(name string) (float64, bool) {
	switch name {
	case "level":
		return t.Level, true
	case "height":
		return t.Height, true
	case "radius":
		return t.Radius, true
	case "inlet_area":
		return t.InletArea, true
	case "inlet_velocity":
		return t.InletVelocity, true
	case "outlet_area":
		return t.OutletArea, true
	case "initial_level":
		return t.InitialLevel, true
	case "valve_opening":
		return t.ValveOpening, true
	default:
		return 0, false
	}
}
