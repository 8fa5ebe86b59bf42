package store

import "sync"

// variableState is a single variable's runtime state: its current value
// plus an optional lag history.
type variableState struct {
	value   float64
	history *RingBuffer
}

func (v *variableState) update(newValue float64) {
	v.value = newValue
	if v.history != nil {
		v.history.Append(newValue)
	}
}

func (v *variableState) getWithLag(steps int, def float64) float64 {
	if v.history == nil {
		if steps <= 0 {
			return v.value
		}
		return def
	}
	return v.history.GetByLag(steps, def)
}

// VariableStore holds every variable's current value and, for variables
// that need it, a bounded lag history. In practice the driver goroutine
// is the only writer, cycle after cycle, but every method takes mu so
// that Snapshot (and the rest of the read path) can be called from a
// sink worker goroutine concurrently with the next cycle's writes
// without racing the underlying map.
type VariableStore struct {
	mu             sync.RWMutex
	vars           map[string]*variableState
	lagRequirement map[string]int
}

// NewVariableStore constructs an empty store.
func NewVariableStore() *VariableStore {
	return &VariableStore{
		vars:           make(map[string]*variableState),
		lagRequirement: make(map[string]int),
	}
}

// ConfigureLag records that name needs history depth >= maxLagSteps.
// Calling this before or after the variable first appears is equally
// valid. Growing an existing variable's capacity preserves already
// buffered samples; setting maxLagSteps <= 0 removes the history buffer
// entirely. The buffer holds maxLagSteps+1 samples (the current value
// plus maxLagSteps earlier ones), so every lag up to maxLagSteps is
// readable.
func (s *VariableStore) ConfigureLag(name string, maxLagSteps int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lagRequirement[name] = maxLagSteps

	v, ok := s.vars[name]
	if !ok {
		return
	}
	if maxLagSteps > 0 {
		if v.history == nil {
			v.history = NewRingBuffer(maxLagSteps + 1)
		} else if v.history.Capacity() < maxLagSteps+1 {
			v.history.Resize(maxLagSteps + 1)
		}
	} else {
		v.history = nil
	}
}

// Ensure creates the variable with the given initial value (and a
// history buffer sized per any prior ConfigureLag call) if it does not
// already exist; an existing variable is left unchanged.
func (s *VariableStore) Ensure(name string, initial float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(name, initial)
}

func (s *VariableStore) ensureLocked(name string, initial float64) {
	if _, ok := s.vars[name]; ok {
		return
	}
	maxLag := s.lagRequirement[name]
	var hist *RingBuffer
	if maxLag > 0 {
		hist = NewRingBuffer(maxLag + 1)
	}
	s.vars[name] = &variableState{value: initial, history: hist}
}

// Set writes the variable's current value, appending to history if
// configured. It implicitly ensures the variable exists.
func (s *VariableStore) Set(name string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(name, 0)
	s.vars[name].update(value)
}

// Get returns the variable's current value, or def if it does not exist.
func (s *VariableStore) Get(name string, def float64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[name]
	if !ok {
		return def
	}
	return v.value
}

// GetLag returns the value `steps` cycles ago, or def if unavailable.
func (s *VariableStore) GetLag(name string, steps int, def float64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[name]
	if !ok {
		return def
	}
	return v.getWithLag(steps, def)
}

// Has reports whether the variable has been created.
func (s *VariableStore) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.vars[name]
	return ok
}

// Snapshot returns a flat name -> current value view of every variable.
// Safe to call from a goroutine other than the one driving cycles.
func (s *VariableStore) Snapshot() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.vars))
	for name, v := range s.vars {
		out[name] = v.value
	}
	return out
}
