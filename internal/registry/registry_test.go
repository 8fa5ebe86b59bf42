package registry

import "testing"

func TestAlgorithm_CaseInsensitive(t *testing.T) {
	if _, ok := Algorithm("pid"); !ok {
		t.Fatal("expected lowercase lookup to find PID")
	}
	if _, ok := Algorithm("PiD"); !ok {
		t.Fatal("expected mixed-case lookup to find PID")
	}
}

func TestModel_CaseInsensitive(t *testing.T) {
	if _, ok := Model("valve"); !ok {
		t.Fatal("expected lowercase lookup to find VALVE")
	}
}

func TestListAlgorithms_IncludesAllRegistered(t *testing.T) {
	want := map[string]bool{"PID": true, "SINE_WAVE": true, "SQUARE_WAVE": true, "TRIANGLE_WAVE": true, "RANDOM": true}
	got := map[string]bool{}
	for _, name := range ListAlgorithms() {
		got[name] = true
	}
	for name := range want {
		if !got[name] {
			t.Errorf("ListAlgorithms() missing %q", name)
		}
	}
}

func TestInstanceFactory_CreateCachesInstance(t *testing.T) {
	f := NewInstanceFactory(1.0)
	a, err := f.Create("pid1", "PID", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := f.Create("pid1", "PID", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a != b {
		t.Error("expected second Create with same name to return cached instance")
	}
}

func TestInstanceFactory_RejectsVariableType(t *testing.T) {
	f := NewInstanceFactory(1.0)
	if _, err := f.Create("x", "VARIABLE", nil); err == nil {
		t.Fatal("expected error creating a VARIABLE-typed instance")
	}
}

func TestInstanceFactory_RejectsUnknownType(t *testing.T) {
	f := NewInstanceFactory(1.0)
	if _, err := f.Create("x", "NOT_A_TYPE", nil); err == nil {
		t.Fatal("expected error creating an unknown instance type")
	}
}

func TestInstanceFactory_NamesPreservesCreationOrder(t *testing.T) {
	f := NewInstanceFactory(1.0)
	if _, err := f.Create("b", "VALVE", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.Create("a", "PID", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	names := f.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Errorf("Names() = %v, want [b a]", names)
	}
}

func TestInstanceFactory_GetMissingReturnsFalse(t *testing.T) {
	f := NewInstanceFactory(1.0)
	if _, ok := f.Get("nope"); ok {
		t.Error("expected Get of uncreated instance to return false")
	}
}
