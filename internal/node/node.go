// Package node implements the two node kinds a running program
// schedules once per cycle: AlgorithmNode, which drives an instance's
// Execute through a parsed method-call expression, and ExpressionNode,
// which evaluates a plain or assigned arithmetic expression into the
// variable store.
//
// Grounded on core/expression.py's AlgorithmNode/ExpressionNode, with
// the expression parsed once at construction rather than re-parsed
// (and, for kwargs, re-stringified via ast.unparse) every cycle the way
// the Python original's AlgorithmNode._parse_expression does.
package node

import (
	"github.com/myorg/cyclesim/cyclesim/internal/cerrors"
	"github.com/myorg/cyclesim/cyclesim/internal/expr"
	"github.com/myorg/cyclesim/cyclesim/internal/program"
	"github.com/myorg/cyclesim/cyclesim/internal/store"
)

// Node is anything the engine schedules once per cycle.
type Node interface {
	// Name returns the node's declared item name.
	Name() string
	// Step runs one cycle, reading and writing vs as needed.
	Step(vs *store.VariableStore) error
}

// AlgorithmNode wraps one program instance and its parsed
// "name.execute(k=sub, ...)" expression. Each cycle it evaluates the
// call (which resolves every keyword sub-expression and invokes
// Execute), then projects the instance's stored attributes into the
// variable store.
type AlgorithmNode struct {
	name        string
	instance    program.Instance
	storedAttrs []string
	call        *expr.Call
	evaluator   *expr.Evaluator
}

// NewAlgorithmNode parses expression once, validating that it is a
// method call of the form "<name>.execute(...)", and rewrites any bare
// instance-name references in its arguments to "<instance>.out".
func NewAlgorithmNode(name string, inst program.Instance, expression string, storedAttrs []string, ev *expr.Evaluator) (*AlgorithmNode, error) {
	parsed, err := expr.Parse(expression)
	if err != nil {
		return nil, cerrors.NewConfigError(name, "parsing expression %q: %v", expression, err)
	}

	call, ok := parsed.(*expr.Call)
	if !ok {
		return nil, cerrors.NewConfigError(name, "expression %q must be a method call", expression)
	}
	attr, ok := call.Func.(*expr.Attr)
	if !ok {
		return nil, cerrors.NewConfigError(name, "expression %q must call %s.execute(...)", expression, name)
	}
	base, ok := attr.Base.(*expr.Ident)
	if !ok || base.Name != name {
		return nil, cerrors.NewConfigError(name, "expression %q must call %s.execute(...)", expression, name)
	}
	if attr.Name != "execute" {
		return nil, cerrors.NewConfigError(name, "expression %q must call .execute(...), not .%s(...)", expression, attr.Name)
	}

	rewritten := expr.RewriteBareInstances(call, ev.IsInstance, ev.IsFunction)
	rewrittenCall, ok := rewritten.(*expr.Call)
	if !ok {
		return nil, cerrors.NewConfigError(name, "internal error rewriting expression %q", expression)
	}

	return &AlgorithmNode{
		name:        name,
		instance:    inst,
		storedAttrs: storedAttrs,
		call:        rewrittenCall,
		evaluator:   ev,
	}, nil
}

// Name returns the instance's declared name.
func (n *AlgorithmNode) Name() string { return n.name }

// Step resolves the call's keyword arguments, invokes the instance, and
// projects its stored attributes into the variable store.
func (n *AlgorithmNode) Step(vs *store.VariableStore) error {
	if _, err := n.evaluator.Eval(n.call); err != nil {
		return cerrors.NewExpressionError(n.name, "%v", err)
	}
	for _, attrName := range n.storedAttrs {
		if v, ok := n.instance.Attr(attrName); ok {
			vs.Set(n.name+"."+attrName, v)
		}
	}
	return nil
}

// ExpressionNode wraps a name plus a parsed arithmetic expression tree.
// The expression may be a plain value expression or a single top-level
// assignment whose target must equal the node's name; either way, each
// cycle evaluates the value and stores it under name.
type ExpressionNode struct {
	name      string
	value     expr.Node
	evaluator *expr.Evaluator
}

// NewExpressionNode parses expression once and rewrites bare instance
// names within it. If expression is an assignment, its target must
// equal name.
func NewExpressionNode(name, expression string, ev *expr.Evaluator) (*ExpressionNode, error) {
	parsed, err := expr.Parse(expression)
	if err != nil {
		return nil, cerrors.NewConfigError(name, "parsing expression %q: %v", expression, err)
	}

	rewritten := expr.RewriteBareInstances(parsed, ev.IsInstance, ev.IsFunction)

	value := rewritten
	if assign, ok := rewritten.(*expr.Assign); ok {
		if assign.Target != name {
			return nil, cerrors.NewConfigError(name, "assignment target %q does not match item name %q", assign.Target, name)
		}
		value = assign.Value
	}

	return &ExpressionNode{name: name, value: value, evaluator: ev}, nil
}

// Name returns the variable's declared name.
func (n *ExpressionNode) Name() string { return n.name }

// Step evaluates the expression and writes the result under name.
func (n *ExpressionNode) Step(vs *store.VariableStore) error {
	v, err := n.evaluator.Eval(n.value)
	if err != nil {
		return cerrors.NewExpressionError(n.name, "%v", err)
	}
	vs.Set(n.name, v)
	return nil
}
