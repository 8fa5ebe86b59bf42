package expr

// RewriteBareInstances rewrites bare identifiers that name a known
// instance (and are not a builtin function name) into attribute access
// on that instance's "out" field, e.g. "sin1" becomes "sin1.out". This
// mirrors the single AST pass the original evaluator runs once per
// expression: it descends into Call arguments and Subscript bases but
// does not re-descend into an Attr's base once it has entered attribute
// access, so "tank1.level" is left alone rather than becoming
// "tank1.out.level".
func RewriteBareInstances(n Node, isInstance func(name string) bool, isFunction func(name string) bool) Node {
	return rewrite(n, isInstance, isFunction, false)
}

func rewrite(n Node, isInstance, isFunction func(string) bool, inAttribute bool) Node {
	switch v := n.(type) {
	case *Ident:
		if !inAttribute && isInstance(v.Name) && !isFunction(v.Name) {
			return &Attr{Base: &Ident{Name: v.Name}, Name: "out"}
		}
		return v
	case *Attr:
		return &Attr{Base: rewrite(v.Base, isInstance, isFunction, true), Name: v.Name}
	case *Subscript:
		return &Subscript{
			Base: rewrite(v.Base, isInstance, isFunction, inAttribute),
			Lag:  rewrite(v.Lag, isInstance, isFunction, false),
		}
	case *Call:
		args := make([]Node, len(v.Args))
		for i, a := range v.Args {
			args[i] = rewrite(a, isInstance, isFunction, false)
		}
		keywords := make(map[string]Node, len(v.Keywords))
		for k, val := range v.Keywords {
			keywords[k] = rewrite(val, isInstance, isFunction, false)
		}
		return &Call{
			Func:         rewrite(v.Func, isInstance, isFunction, inAttribute),
			Args:         args,
			Keywords:     keywords,
			KeywordOrder: v.KeywordOrder,
		}
	case *BinOp:
		return &BinOp{Op: v.Op, Left: rewrite(v.Left, isInstance, isFunction, false), Right: rewrite(v.Right, isInstance, isFunction, false)}
	case *UnaryOp:
		return &UnaryOp{Op: v.Op, Operand: rewrite(v.Operand, isInstance, isFunction, false)}
	case *Assign:
		return &Assign{Target: v.Target, Value: rewrite(v.Value, isInstance, isFunction, false)}
	case *NumberLit:
		return v
	default:
		return v
	}
}
