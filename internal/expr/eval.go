package expr

import (
	"fmt"

	"github.com/myorg/cyclesim/cyclesim/internal/store"
)

// Instance is the subset of program.Instance the evaluator needs:
// executing a cycle with keyword arguments, and reading a live attribute
// value when the variable store has no (yet) recorded value for it.
// Defined here, rather than imported from internal/program, so that
// internal/expr has no dependency on the concrete program catalog.
type Instance interface {
	Execute(args map[string]float64) error
	Attr(name string) (float64, bool)
}

// Evaluator resolves an expression AST against a variable store and a
// set of live instances. Per the engine's redesign from the original's
// operator-overloaded proxy objects, every node resolves directly to a
// float64 in one post-order walk; there are no proxy values carried
// through the tree.
type Evaluator struct {
	Store     *store.VariableStore
	Instances map[string]Instance
	Functions map[string]Func
}

// NewEvaluator constructs an Evaluator with the default builtin function
// set.
func NewEvaluator(vs *store.VariableStore, instances map[string]Instance) *Evaluator {
	return &Evaluator{Store: vs, Instances: instances, Functions: Builtins()}
}

// IsInstance reports whether name refers to a live instance, for use by
// RewriteBareInstances.
func (e *Evaluator) IsInstance(name string) bool {
	_, ok := e.Instances[name]
	return ok
}

// IsFunction reports whether name refers to a builtin function, for use
// by RewriteBareInstances.
func (e *Evaluator) IsFunction(name string) bool {
	_, ok := e.Functions[name]
	return ok
}

// Eval evaluates a fully-rewritten expression node to a float64.
func (e *Evaluator) Eval(n Node) (float64, error) {
	switch v := n.(type) {
	case *NumberLit:
		return v.Value, nil

	case *Ident:
		return e.Store.Get(v.Name, 0), nil

	case *Attr:
		base, ok := v.Base.(*Ident)
		if !ok {
			return 0, fmt.Errorf("unsupported attribute base %T", v.Base)
		}
		return e.attrValue(base.Name, v.Name)

	case *Subscript:
		lag, err := e.Eval(v.Lag)
		if err != nil {
			return 0, err
		}
		steps := int(lag)
		if steps < 0 {
			steps = -steps
		}
		switch base := v.Base.(type) {
		case *Ident:
			return e.Store.GetLag(base.Name, steps, 0), nil
		case *Attr:
			instName, ok := base.Base.(*Ident)
			if !ok {
				return 0, fmt.Errorf("unsupported attribute base %T", base.Base)
			}
			key := instName.Name + "." + base.Name
			return e.Store.GetLag(key, steps, 0), nil
		default:
			return 0, fmt.Errorf("unsupported subscript base %T", v.Base)
		}

	case *BinOp:
		left, err := e.Eval(v.Left)
		if err != nil {
			return 0, err
		}
		right, err := e.Eval(v.Right)
		if err != nil {
			return 0, err
		}
		switch v.Op {
		case "+":
			return left + right, nil
		case "-":
			return left - right, nil
		case "*":
			return left * right, nil
		case "/":
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return left / right, nil
		default:
			return 0, fmt.Errorf("unsupported operator %q", v.Op)
		}

	case *UnaryOp:
		val, err := e.Eval(v.Operand)
		if err != nil {
			return 0, err
		}
		if v.Op == "-" {
			return -val, nil
		}
		return val, nil

	case *Call:
		return e.evalCall(v)

	case *Assign:
		return e.Eval(v.Value)

	default:
		return 0, fmt.Errorf("unsupported node %T", n)
	}
}

// attrValue resolves instance.attr, preferring the variable store's
// recorded value (which may already reflect this cycle's update) and
// falling back to the instance's live field.
func (e *Evaluator) attrValue(instanceName, attrName string) (float64, error) {
	key := instanceName + "." + attrName
	if e.Store.Has(key) {
		return e.Store.Get(key, 0), nil
	}
	inst, ok := e.Instances[instanceName]
	if !ok {
		return 0, fmt.Errorf("unknown instance %q", instanceName)
	}
	if val, ok := inst.Attr(attrName); ok {
		return val, nil
	}
	return 0, nil
}

func (e *Evaluator) evalCall(c *Call) (float64, error) {
	if attr, ok := c.Func.(*Attr); ok {
		instName, ok := attr.Base.(*Ident)
		if !ok {
			return 0, fmt.Errorf("unsupported call target")
		}
		inst, ok := e.Instances[instName.Name]
		if !ok {
			return 0, fmt.Errorf("unknown instance %q", instName.Name)
		}
		args, err := e.evalKeywords(c)
		if err != nil {
			return 0, err
		}
		if err := inst.Execute(args); err != nil {
			return 0, err
		}
		return 0, nil
	}

	ident, ok := c.Func.(*Ident)
	if !ok {
		return 0, fmt.Errorf("unsupported call target %T", c.Func)
	}
	fn, ok := e.Functions[ident.Name]
	if !ok {
		return 0, fmt.Errorf("unknown function %q", ident.Name)
	}
	args := make([]float64, len(c.Args))
	for i, a := range c.Args {
		val, err := e.Eval(a)
		if err != nil {
			return 0, err
		}
		args[i] = val
	}
	return fn(args)
}

func (e *Evaluator) evalKeywords(c *Call) (map[string]float64, error) {
	args := make(map[string]float64, len(c.Keywords))
	for _, name := range c.KeywordOrder {
		val, err := e.Eval(c.Keywords[name])
		if err != nil {
			return nil, err
		}
		args[name] = val
	}
	return args, nil
}
