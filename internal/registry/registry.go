// Package registry maps program type names (PID, CYLINDRICAL_TANK, ...)
// to the constructors that build their concrete instances, and caches
// the instances a running program creates from them.
//
// Grounded on core/instance.py's InstanceRegistry (type-string lookup,
// case-insensitive keys) and core/factory.py's InstanceFactory
// (name-keyed instance cache, VARIABLE rejection).
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/myorg/cyclesim/cyclesim/internal/program"
)

// Factory builds a program instance given the cycle time and the
// init_args block from a program item.
type Factory func(cycleTime float64, initArgs map[string]float64) program.Instance

var (
	mu         sync.RWMutex
	algorithms = map[string]Factory{}
	models     = map[string]Factory{}
)

// RegisterAlgorithm registers a control-algorithm type under name,
// matched case-insensitively.
func RegisterAlgorithm(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	algorithms[strings.ToUpper(name)] = f
}

// RegisterModel registers a physical-model type under name, matched
// case-insensitively.
func RegisterModel(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	models[strings.ToUpper(name)] = f
}

// Algorithm looks up a registered algorithm factory by name.
func Algorithm(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := algorithms[strings.ToUpper(name)]
	return f, ok
}

// Model looks up a registered model factory by name.
func Model(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := models[strings.ToUpper(name)]
	return f, ok
}

// ListAlgorithms returns the registered algorithm type names, sorted.
func ListAlgorithms() []string { return sortedKeys(algorithms) }

// ListModels returns the registered model type names, sorted.
func ListModels() []string { return sortedKeys(models) }

func sortedKeys(m map[string]Factory) []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func init() {
	RegisterAlgorithm("PID", func(cycleTime float64, initArgs map[string]float64) program.Instance {
		return program.NewPID(cycleTime, initArgs)
	})
	RegisterAlgorithm("SINE_WAVE", func(cycleTime float64, initArgs map[string]float64) program.Instance {
		return program.NewSineWave(cycleTime, initArgs)
	})
	RegisterAlgorithm("SQUARE_WAVE", func(cycleTime float64, initArgs map[string]float64) program.Instance {
		return program.NewSquareWave(cycleTime, initArgs)
	})
	RegisterAlgorithm("TRIANGLE_WAVE", func(cycleTime float64, initArgs map[string]float64) program.Instance {
		return program.NewTriangleWave(cycleTime, initArgs)
	})
	RegisterAlgorithm("RANDOM", func(cycleTime float64, initArgs map[string]float64) program.Instance {
		return program.NewRandom(cycleTime, initArgs)
	})
	RegisterModel("CYLINDRICAL_TANK", func(cycleTime float64, initArgs map[string]float64) program.Instance {
		return program.NewCylindricalTank(cycleTime, initArgs)
	})
	RegisterModel("VALVE", func(cycleTime float64, initArgs map[string]float64) program.Instance {
		return program.NewValve(cycleTime, initArgs)
	})
}

// VariableTypeName is the reserved program-item type that declares a
// plain expression variable rather than an algorithm or model
// instance; Factory must reject it.
const VariableTypeName = "VARIABLE"

// InstanceFactory creates and caches the algorithm/model instances
// named by a running program, mirroring core/factory.py's
// InstanceFactory.
type InstanceFactory struct {
	cycleTime float64
	mu        sync.Mutex
	instances map[string]program.Instance
	order     []string
}

// NewInstanceFactory constructs an instance factory bound to a single
// cycle time, injected into every instance it creates.
func NewInstanceFactory(cycleTime float64) *InstanceFactory {
	return &InstanceFactory{cycleTime: cycleTime, instances: make(map[string]program.Instance)}
}

// Create builds (or returns the cached) instance for name/typeName,
// passing initArgs to its constructor. It rejects the VARIABLE type,
// which never has a backing instance.
func (f *InstanceFactory) Create(name, typeName string, initArgs map[string]float64) (program.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if inst, ok := f.instances[name]; ok {
		return inst, nil
	}

	if strings.EqualFold(typeName, VariableTypeName) {
		return nil, fmt.Errorf("registry: %q is a variable, not an instance type", name)
	}

	var inst program.Instance
	if factory, ok := Algorithm(typeName); ok {
		inst = factory(f.cycleTime, initArgs)
	} else if factory, ok := Model(typeName); ok {
		inst = factory(f.cycleTime, initArgs)
	} else {
		return nil, fmt.Errorf("registry: unknown instance type %q for %q (known algorithms: %v, known models: %v)",
			typeName, name, ListAlgorithms(), ListModels())
	}

	f.instances[name] = inst
	f.order = append(f.order, name)
	return inst, nil
}

// Get returns a previously created instance by name.
func (f *InstanceFactory) Get(name string) (program.Instance, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.instances[name]
	return inst, ok
}

// Instances returns every created instance, keyed by name.
func (f *InstanceFactory) Instances() map[string]program.Instance {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]program.Instance, len(f.instances))
	for k, v := range f.instances {
		out[k] = v
	}
	return out
}

// Names returns instance names in creation order.
func (f *InstanceFactory) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}
