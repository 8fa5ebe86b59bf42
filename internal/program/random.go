package program

import (
	"math"
	"math/rand"
)

// Random performs a bounded random walk between l and h, moving by at
// most max_step per cycle.
type Random struct {
	L       float64
	H       float64
	MaxStep float64
	Out     float64

	rng *rand.Rand
}

// Default parameters, grounded on programs/random.py.
const (
	randomDefaultL       = 0.0
	randomDefaultH       = 100.0
	randomDefaultMaxStep = 3.0
)

// randomDefaultSeed is used when an init_args block names no seed; it
// keeps an unconfigured walk deterministic rather than falling back to
// a time-derived seed.
const randomDefaultSeed = 1

// NewRandom constructs a random walk generator. Its seed comes from the
// "seed" init_arg (defaulting to randomDefaultSeed) so runs stay
// reproducible without requiring every program file to name one.
func NewRandom(cycleTime float64, initArgs map[string]float64) *Random {
	seed := int64(randomDefaultSeed)
	if v, ok := initArgs["seed"]; ok {
		seed = int64(v)
	}
	r := &Random{
		L:       randomDefaultL,
		H:       randomDefaultH,
		MaxStep: randomDefaultMaxStep,
		rng:     rand.New(rand.NewSource(seed)),
	}
	if v, ok := initArgs["l"]; ok {
		r.L = v
	}
	if v, ok := initArgs["h"]; ok {
		r.H = v
	}
	if v, ok := initArgs["max_step"]; ok {
		r.MaxStep = v
	}
	r.Out = r.L + r.rng.Float64()*(r.H-r.L)
	return r
}

// Execute draws a target within [l, h] and moves out toward it by at
// most max_step.
func (r *Random) Execute(args map[string]float64) error {
	target := r.L + r.rng.Float64()*(r.H-r.L)
	step := target - r.Out
	if math.Abs(step) > r.MaxStep {
		if step > 0 {
			step = r.MaxStep
		} else {
			step = -r.MaxStep
		}
	}
	r.Out = clamp(r.Out+step, r.L, r.H)
	return nil
}

// StoredAttributes lists the fields projected into the variable store.
func (r *Random) StoredAttributes() []string { return []string{"out"} }

// Attr reads a named field's current value.
func (r *Random) Attr(name string) (float64, bool) {
	switch name {
	case "out":
		return r.Out, true
	case "l":
		return r.L, true
	case "h":
		return r.H, true
	case "max_step":
		return r.MaxStep, true
	default:
		return 0, false
	}
}
