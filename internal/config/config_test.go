package config

import "testing"

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`
program:
  - name: pid1
    type: PID
    expression: pid1.execute(pv=tank1.level, sv=50)
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Clock.CycleTime != defaultCycleTime {
		t.Errorf("CycleTime = %v, want default %v", cfg.Clock.CycleTime, defaultCycleTime)
	}
	if cfg.RecordLength < 10 {
		t.Errorf("RecordLength = %v, want at least the minimum of 10", cfg.RecordLength)
	}
	if len(cfg.Program) != 1 || cfg.Program[0].Name != "pid1" {
		t.Fatalf("Program = %+v, want one item named pid1", cfg.Program)
	}
}

func TestParse_ExplicitCycleTimeAndSampleInterval(t *testing.T) {
	cfg, err := Parse([]byte(`
cycle_time: 0.5
sample_interval: 2.0
program: []
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Clock.CycleTime != 0.5 {
		t.Errorf("CycleTime = %v, want 0.5", cfg.Clock.CycleTime)
	}
	if cfg.Clock.SampleInterval != 2.0 {
		t.Errorf("SampleInterval = %v, want 2.0", cfg.Clock.SampleInterval)
	}
}

func TestParse_LagRequirementsDriveRecordLength(t *testing.T) {
	cfg, err := Parse([]byte(`
program:
  - name: non_sense_3
    type: VARIABLE
    expression: "non_sense_3 = non_sense_1[-30] + 2"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.LagRequirements["non_sense_1"] != 30 {
		t.Errorf("LagRequirements[non_sense_1] = %v, want 30", cfg.LagRequirements["non_sense_1"])
	}
	want := 30 * 1.5 // LagSafetyMargin
	if float64(cfg.RecordLength) != want {
		t.Errorf("RecordLength = %v, want %v", cfg.RecordLength, want)
	}
}

func TestParse_ExplicitRecordLengthOverridesComputed(t *testing.T) {
	cfg, err := Parse([]byte(`
record_length: 500
program:
  - name: non_sense_3
    type: VARIABLE
    expression: "non_sense_3 = non_sense_1[-30] + 2"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.RecordLength != 500 {
		t.Errorf("RecordLength = %v, want explicit 500", cfg.RecordLength)
	}
	if !cfg.ExplicitRecordLength {
		t.Error("ExplicitRecordLength = false, want true when record_length is set")
	}
}

func TestParse_ComputedRecordLengthNotExplicit(t *testing.T) {
	cfg, err := Parse([]byte(`program: []`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.ExplicitRecordLength {
		t.Error("ExplicitRecordLength = true, want false when record_length is absent")
	}
}

func TestParse_ModeAlwaysZeroValue(t *testing.T) {
	cfg, err := Parse([]byte(`program: []`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Clock.Mode != 0 {
		t.Errorf("Mode = %v, want the zero value (mode selection is a CLI concern)", cfg.Clock.Mode)
	}
}

func TestParse_MissingItemNameIsError(t *testing.T) {
	_, err := Parse([]byte(`
program:
  - type: PID
`))
	if err == nil {
		t.Fatal("expected error for a program item missing a name")
	}
}

func TestParse_ReservedNameCollisionIsError(t *testing.T) {
	_, err := Parse([]byte(`
program:
  - name: simTime
    type: VARIABLE
    expression: "simTime = 1 + 2"
`))
	if err == nil {
		t.Fatal("expected error for an item named after a reserved snapshot field")
	}
}

func TestParse_DuplicateItemNameIsError(t *testing.T) {
	_, err := Parse([]byte(`
program:
  - name: pid1
    type: PID
    expression: pid1.execute(pv=1, sv=2)
  - name: pid1
    type: PID
    expression: pid1.execute(pv=1, sv=2)
`))
	if err == nil {
		t.Fatal("expected error for a duplicate item name")
	}
}

func TestParse_InitArgsForbiddenForVariable(t *testing.T) {
	_, err := Parse([]byte(`
program:
  - name: v1
    type: VARIABLE
    expression: "v1 = 1 + 2"
    init_args:
      seed: 1
`))
	if err == nil {
		t.Fatal("expected error for init_args on a VARIABLE item")
	}
}

func TestParse_InvalidSampleIntervalIsError(t *testing.T) {
	_, err := Parse([]byte(`
cycle_time: 1.0
sample_interval: 0.5
program: []
`))
	if err == nil {
		t.Fatal("expected error for sample_interval < cycle_time")
	}
}

func TestParse_WrappedUnderTopLevelKey(t *testing.T) {
	cfg, err := Parse([]byte(`
cyclesim:
  cycle_time: 1.0
  program: []
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Clock.CycleTime != 1.0 {
		t.Errorf("CycleTime = %v, want 1.0 from wrapped config", cfg.Clock.CycleTime)
	}
}

func TestParse_ExportTemplateDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
program: []
export_template:
  name: moban_1
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.ExportTemplate == nil {
		t.Fatal("expected an export template")
	}
	if cfg.ExportTemplate.HeaderRows != 1 {
		t.Errorf("HeaderRows = %v, want default 1", cfg.ExportTemplate.HeaderRows)
	}
	if cfg.ExportTemplate.TimeColumnName != "timeStamp" {
		t.Errorf("TimeColumnName = %q, want default %q", cfg.ExportTemplate.TimeColumnName, "timeStamp")
	}
}

func TestParse_ExportTemplateInvalidHeaderRows(t *testing.T) {
	_, err := Parse([]byte(`
program: []
export_template:
  name: moban_1
  header_rows: 3
`))
	if err == nil {
		t.Fatal("expected error for header_rows outside [1, 2]")
	}
}
