// Package lag statically analyzes parsed expressions to determine how
// much history each variable or instance attribute needs, so the engine
// can size ring buffers ahead of time instead of growing them on demand
// mid-run.
package lag

import (
	"math"

	"github.com/myorg/cyclesim/cyclesim/internal/clock"
	"github.com/myorg/cyclesim/cyclesim/internal/expr"
)

// Analyze walks a parsed expression and records, for every subscripted
// base (a variable name or "instance.attr" pair), the maximum lag depth
// it is accessed at. Requirements from multiple expressions are merged
// into dst by keeping the larger depth per key.
func Analyze(n expr.Node, dst map[string]int) {
	walk(n, dst)
}

func walk(n expr.Node, dst map[string]int) {
	switch v := n.(type) {
	case *expr.Subscript:
		steps := constLagSteps(v.Lag)
		if steps > 0 {
			if name := baseName(v.Base); name != "" {
				if steps > dst[name] {
					dst[name] = steps
				}
			}
		}
		walk(v.Base, dst)
		walk(v.Lag, dst)
	case *expr.Attr:
		walk(v.Base, dst)
	case *expr.BinOp:
		walk(v.Left, dst)
		walk(v.Right, dst)
	case *expr.UnaryOp:
		walk(v.Operand, dst)
	case *expr.Call:
		walk(v.Func, dst)
		for _, a := range v.Args {
			walk(a, dst)
		}
		for _, a := range v.Keywords {
			walk(a, dst)
		}
	case *expr.Assign:
		walk(v.Value, dst)
	}
}

// constLagSteps extracts an integer step count from a subscript's lag
// expression if it is a numeric literal or its unary negation; anything
// else (a computed lag) yields 0, meaning no static requirement can be
// inferred from it.
func constLagSteps(n expr.Node) int {
	switch v := n.(type) {
	case *expr.NumberLit:
		steps := int(v.Value)
		if steps < 0 {
			steps = -steps
		}
		return steps
	case *expr.UnaryOp:
		if lit, ok := v.Operand.(*expr.NumberLit); ok {
			steps := int(lit.Value)
			if steps < 0 {
				steps = -steps
			}
			return steps
		}
	}
	return 0
}

// baseName extracts the variable or "instance.attr" name a subscript is
// indexing into, matching core/parser.py's _extract_var_name.
func baseName(n expr.Node) string {
	switch v := n.(type) {
	case *expr.Ident:
		return v.Name
	case *expr.Attr:
		if ident, ok := v.Base.(*expr.Ident); ok {
			return ident.Name + "." + v.Name
		}
	}
	return ""
}

// RecordLength computes the history depth to provision for a given
// maximum lag requirement, grounded on core/parser.py's record-length
// formula: max(MinRecordLength, ceil(maxLag*LagSafetyMargin)).
func RecordLength(maxLag int) int {
	if maxLag <= 0 {
		return clock.MinRecordLength
	}
	length := int(math.Ceil(float64(maxLag) * clock.LagSafetyMargin))
	if length < clock.MinRecordLength {
		length = clock.MinRecordLength
	}
	return length
}
