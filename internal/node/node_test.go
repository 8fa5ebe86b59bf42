package node

import (
	"testing"

	"github.com/myorg/cyclesim/cyclesim/internal/expr"
	"github.com/myorg/cyclesim/cyclesim/internal/store"
)

// fakeInstance is a minimal program.Instance/expr.Instance double that
// records the last args it executed with and exposes a fixed "out".
type fakeInstance struct {
	lastArgs map[string]float64
	out      float64
	execErr  error
}

func (f *fakeInstance) Execute(args map[string]float64) error {
	f.lastArgs = args
	if f.execErr != nil {
		return f.execErr
	}
	f.out = args["pv"] + args["sv"]
	return nil
}

func (f *fakeInstance) Attr(name string) (float64, bool) {
	if name == "out" {
		return f.out, true
	}
	return 0, false
}

func (f *fakeInstance) StoredAttributes() []string { return []string{"out"} }

func newTestEvaluator(inst *fakeInstance) (*expr.Evaluator, *store.VariableStore) {
	vs := store.NewVariableStore()
	ev := expr.NewEvaluator(vs, map[string]expr.Instance{"pid1": inst})
	return ev, vs
}

func TestNewAlgorithmNode_RejectsNonCallExpression(t *testing.T) {
	inst := &fakeInstance{}
	ev, _ := newTestEvaluator(inst)
	if _, err := NewAlgorithmNode("pid1", inst, "1 + 2", []string{"out"}, ev); err == nil {
		t.Fatal("expected error for a non-call expression")
	}
}

func TestNewAlgorithmNode_RejectsMismatchedTarget(t *testing.T) {
	inst := &fakeInstance{}
	ev, _ := newTestEvaluator(inst)
	if _, err := NewAlgorithmNode("pid1", inst, "other.execute(pv=1)", []string{"out"}, ev); err == nil {
		t.Fatal("expected error when the call target does not match the node name")
	}
}

func TestNewAlgorithmNode_RejectsNonExecuteMethod(t *testing.T) {
	inst := &fakeInstance{}
	ev, _ := newTestEvaluator(inst)
	if _, err := NewAlgorithmNode("pid1", inst, "pid1.reset(pv=1)", []string{"out"}, ev); err == nil {
		t.Fatal("expected error for a method other than execute")
	}
}

func TestAlgorithmNode_StepExecutesAndProjectsAttributes(t *testing.T) {
	inst := &fakeInstance{}
	ev, vs := newTestEvaluator(inst)
	n, err := NewAlgorithmNode("pid1", inst, "pid1.execute(pv=3, sv=4)", []string{"out"}, ev)
	if err != nil {
		t.Fatalf("NewAlgorithmNode: %v", err)
	}
	if err := n.Step(vs); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if inst.lastArgs["pv"] != 3 || inst.lastArgs["sv"] != 4 {
		t.Errorf("lastArgs = %v, want pv=3 sv=4", inst.lastArgs)
	}
	if got := vs.Get("pid1.out", -1); got != 7 {
		t.Errorf("pid1.out = %v, want 7", got)
	}
}

func TestAlgorithmNode_StepRewritesBareInstanceArguments(t *testing.T) {
	tank := &fakeInstance{out: 42}
	inst := &fakeInstance{}
	vs := store.NewVariableStore()
	ev := expr.NewEvaluator(vs, map[string]expr.Instance{"pid1": inst, "tank1": tank})
	n, err := NewAlgorithmNode("pid1", inst, "pid1.execute(pv=tank1, sv=4)", []string{"out"}, ev)
	if err != nil {
		t.Fatalf("NewAlgorithmNode: %v", err)
	}
	if err := n.Step(vs); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if inst.lastArgs["pv"] != 42 {
		t.Errorf("pv = %v, want 42 (tank1.out via bare-instance rewrite)", inst.lastArgs["pv"])
	}
}

func TestAlgorithmNode_StepPropagatesExecuteError(t *testing.T) {
	inst := &fakeInstance{execErr: errStub{}}
	ev, vs := newTestEvaluator(inst)
	n, err := NewAlgorithmNode("pid1", inst, "pid1.execute(pv=1, sv=1)", []string{"out"}, ev)
	if err != nil {
		t.Fatalf("NewAlgorithmNode: %v", err)
	}
	if err := n.Step(vs); err == nil {
		t.Fatal("expected Step to propagate the instance's execute error")
	}
}

type errStub struct{}

func (errStub) Error() string { return "execute failed" }

func TestAlgorithmNode_Name(t *testing.T) {
	inst := &fakeInstance{}
	ev, _ := newTestEvaluator(inst)
	n, err := NewAlgorithmNode("pid1", inst, "pid1.execute(pv=1, sv=1)", []string{"out"}, ev)
	if err != nil {
		t.Fatalf("NewAlgorithmNode: %v", err)
	}
	if n.Name() != "pid1" {
		t.Errorf("Name() = %q, want pid1", n.Name())
	}
}

func TestNewExpressionNode_PlainExpression(t *testing.T) {
	vs := store.NewVariableStore()
	ev := expr.NewEvaluator(vs, nil)
	vs.Set("a", 2)
	vs.Set("b", 3)
	n, err := NewExpressionNode("c", "a + b", ev)
	if err != nil {
		t.Fatalf("NewExpressionNode: %v", err)
	}
	if err := n.Step(vs); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := vs.Get("c", -1); got != 5 {
		t.Errorf("c = %v, want 5", got)
	}
}

func TestNewExpressionNode_AssignmentMatchingName(t *testing.T) {
	vs := store.NewVariableStore()
	ev := expr.NewEvaluator(vs, nil)
	vs.Set("a", 10)
	n, err := NewExpressionNode("c", "c = a * 2", ev)
	if err != nil {
		t.Fatalf("NewExpressionNode: %v", err)
	}
	if err := n.Step(vs); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := vs.Get("c", -1); got != 20 {
		t.Errorf("c = %v, want 20", got)
	}
}

func TestNewExpressionNode_RejectsMismatchedAssignmentTarget(t *testing.T) {
	vs := store.NewVariableStore()
	ev := expr.NewEvaluator(vs, nil)
	if _, err := NewExpressionNode("c", "d = 1 + 2", ev); err == nil {
		t.Fatal("expected error when the assignment target does not match the item name")
	}
}

func TestNewExpressionNode_RewritesBareInstanceReference(t *testing.T) {
	tank := &fakeInstance{out: 99}
	vs := store.NewVariableStore()
	ev := expr.NewEvaluator(vs, map[string]expr.Instance{"tank1": tank})
	n, err := NewExpressionNode("c", "c = tank1 + 1", ev)
	if err != nil {
		t.Fatalf("NewExpressionNode: %v", err)
	}
	if err := n.Step(vs); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := vs.Get("c", -1); got != 100 {
		t.Errorf("c = %v, want 100 (tank1.out via bare-instance rewrite)", got)
	}
}

func TestExpressionNode_Name(t *testing.T) {
	vs := store.NewVariableStore()
	ev := expr.NewEvaluator(vs, nil)
	n, err := NewExpressionNode("c", "1 + 2", ev)
	if err != nil {
		t.Fatalf("NewExpressionNode: %v", err)
	}
	if n.Name() != "c" {
		t.Errorf("Name() = %q, want c", n.Name())
	}
}
