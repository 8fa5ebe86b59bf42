package program

// PID is a general-purpose proportional-integral-derivative controller.
// Inputs are pv (process variable) and sv (setpoint); output is mv.
type PID struct {
	cycleTime float64

	PB float64
	TI float64
	TD float64
	PV float64
	SV float64
	MV float64
	H  float64
	L  float64

	lastError float64
	integral  float64
}

// PID default parameters, grounded on programs/pid.py's default_params.
const (
	pidDefaultPB = 12.0
	pidDefaultTI = 30.0
	pidDefaultTD = 0.15
	pidDefaultH  = 100.0
	pidDefaultL  = 0.0
)

// NewPID constructs a PID controller, applying initArgs over the
// defaults.
func NewPID(cycleTime float64, initArgs map[string]float64) *PID {
	p := &PID{
		cycleTime: cycleTime,
		PB:        pidDefaultPB,
		TI:        pidDefaultTI,
		TD:        pidDefaultTD,
		H:         pidDefaultH,
		L:         pidDefaultL,
	}
	if v, ok := initArgs["pb"]; ok {
		p.PB = v
	}
	if v, ok := initArgs["ti"]; ok {
		p.TI = v
	}
	if v, ok := initArgs["td"]; ok {
		p.TD = v
	}
	if v, ok := initArgs["pv"]; ok {
		p.PV = v
	}
	if v, ok := initArgs["sv"]; ok {
		p.SV = v
	}
	if v, ok := initArgs["mv"]; ok {
		p.MV = v
	}
	if v, ok := initArgs["h"]; ok {
		p.H = v
	}
	if v, ok := initArgs["l"]; ok {
		p.L = v
	}
	return p
}

// Execute runs one control cycle: error = sv - pv, output is the sum of
// proportional, integral and derivative terms, clamped to [l, h].
func (p *PID) Execute(args map[string]float64) error {
	if v, ok := hasArg(args, "pv"); ok {
		p.PV = v
	}
	if v, ok := hasArg(args, "sv"); ok {
		p.SV = v
	}

	errVal := p.SV - p.PV

	pTerm := p.PB * errVal

	p.integral += errVal * p.cycleTime
	iTerm := 0.0
	if p.TI > 0 {
		iTerm = p.PB / p.TI * p.integral
	}

	dTerm := p.PB * p.TD * (errVal - p.lastError) / p.cycleTime
	p.lastError = errVal

	p.MV = clamp(pTerm+iTerm+dTerm, p.L, p.H)
	return nil
}

// StoredAttributes lists the fields projected into the variable store.
func (p *PID) StoredAttributes() []string {
	return []string{"mv", "pv", "sv", "pb", "ti", "td", "h", "l"}
}

// Attr reads a named field's current value.
func (p *PID) Attr(name string) (float64, bool) {
	switch name {
	case "mv":
		return p.MV, true
	case "pv":
		return p.PV, true
	case "sv":
		return p.SV, true
	case "pb":
		return p.PB, true
	case "ti":
		return p.TI, true
	case "td":
		return p.TD, true
	case "h":
		return p.H, true
	case "l":
		return p.L, true
	default:
		return 0, false
	}
}
