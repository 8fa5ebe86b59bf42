package expr

import (
	"fmt"
	"math"
)

// Func is a stateless builtin callable in an expression, e.g. sqrt(x).
type Func func(args []float64) (float64, error)

func arity1(name string, f func(float64) float64) Func {
	return func(args []float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("%s() takes exactly 1 argument, got %d", name, len(args))
		}
		return f(args[0]), nil
	}
}

// Builtins returns the default builtin function registry, grounded on
// functions/__init__.py's registrations plus the hyperbolic functions
// named in the specification but absent from the original.
func Builtins() map[string]Func {
	return map[string]Func{
		"abs":   arity1("abs", math.Abs),
		"fabs":  arity1("fabs", math.Abs),
		"floor": arity1("floor", math.Floor),
		"ceil":  arity1("ceil", math.Ceil),
		"exp":   arity1("exp", math.Exp),
		"log":   arity1("log", math.Log),
		"sin":   arity1("sin", math.Sin),
		"cos":   arity1("cos", math.Cos),
		"tan":   arity1("tan", math.Tan),
		"asin":  arity1("asin", math.Asin),
		"acos":  arity1("acos", math.Acos),
		"atan":  arity1("atan", math.Atan),
		"sinh":  arity1("sinh", math.Sinh),
		"cosh":  arity1("cosh", math.Cosh),
		"tanh":  arity1("tanh", math.Tanh),
		"sqrt": func(args []float64) (float64, error) {
			if len(args) != 1 {
				return 0, fmt.Errorf("sqrt() takes exactly 1 argument, got %d", len(args))
			}
			if args[0] < 0 {
				return 0, fmt.Errorf("sqrt() of negative number %v", args[0])
			}
			return math.Sqrt(args[0]), nil
		},
		"min": func(args []float64) (float64, error) {
			if len(args) == 0 {
				return 0, fmt.Errorf("min() requires at least 1 argument")
			}
			m := args[0]
			for _, a := range args[1:] {
				if a < m {
					m = a
				}
			}
			return m, nil
		},
		"max": func(args []float64) (float64, error) {
			if len(args) == 0 {
				return 0, fmt.Errorf("max() requires at least 1 argument")
			}
			m := args[0]
			for _, a := range args[1:] {
				if a > m {
					m = a
				}
			}
			return m, nil
		},
	}
}
