// Package expr implements the restricted arithmetic DSL used by
// expression and algorithm nodes: a small hand-written lexer,
// recursive-descent parser, and post-order evaluator over a whitelisted
// set of AST node kinds.
package expr

// Node is any node in the expression AST. The set of concrete types
// below is exhaustive and deliberately closed: the parser never
// produces anything outside this list, so no separate AST-validation
// pass is needed the way the Python original needs one.
type Node interface {
	node()
}

// NumberLit is a numeric literal, e.g. 3.14.
type NumberLit struct {
	Value float64
}

// Ident is a bare name: a variable, an instance (pre-rewrite), or a
// builtin function used as a call target.
type Ident struct {
	Name string
}

// Attr is attribute access, e.g. tank1.level.
type Attr struct {
	Base Node
	Name string
}

// Subscript is lag access, e.g. v1[-30] or tank1.level[-30].
type Subscript struct {
	Base Node
	Lag  Node
}

// Call is a function or method call with positional and keyword
// arguments, e.g. sqrt(x) or pid1.execute(pv=tank1.level, sv=1.0).
type Call struct {
	Func     Node
	Args     []Node
	Keywords map[string]Node
	// KeywordOrder preserves the source order of keyword arguments, since
	// Go maps do not.
	KeywordOrder []string
}

// BinOp is a binary arithmetic operation.
type BinOp struct {
	Op    string // "+", "-", "*", "/"
	Left  Node
	Right Node
}

// UnaryOp is unary +/-.
type UnaryOp struct {
	Op      string // "+", "-"
	Operand Node
}

// Assign is a single top-level assignment, e.g. v3 = v1[-30] + 2*v2.
type Assign struct {
	Target string
	Value  Node
}

func (*NumberLit) node() {}
func (*Ident) node()     {}
func (*Attr) node()      {}
func (*Subscript) node() {}
func (*Call) node()      {}
func (*BinOp) node()     {}
func (*UnaryOp) node()   {}
func (*Assign) node()    {}
