// Package config loads a simulation program's YAML configuration file
// into a validated ProgramConfig, computing lag requirements and the
// history record length the way a hand-authored file never has to.
//
// Grounded on core/parser.py's DSLParser.parse_file (parse clock ->
// parse program items -> analyze lag -> compute record length) and the
// teacher's internal/config/config.go (load-then-Validate idiom) and
// internal/pattern/parser.go (wrapped-vs-direct YAML unmarshal trick).
// No environment variables are read.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/myorg/cyclesim/cyclesim/internal/cerrors"
	"github.com/myorg/cyclesim/cyclesim/internal/clock"
	"github.com/myorg/cyclesim/cyclesim/internal/expr"
	"github.com/myorg/cyclesim/cyclesim/internal/lag"
)

// ProgramItem is a single declaration in a program's "program:" list: an
// algorithm/model instance, or a plain VARIABLE expression.
type ProgramItem struct {
	Name       string
	Type       string
	Expression string
	InitArgs   map[string]float64
}

// ExportTemplate configures how a program's sampled history renders to
// CSV. Grounded on export_templates/template_manager.py's
// ExportTemplate dataclass.
type ExportTemplate struct {
	Name                 string `yaml:"name"`
	TimeColumnName       string `yaml:"time_column_name"`
	TimeFormat           string `yaml:"time_format"`
	HeaderRows           int    `yaml:"header_rows"`
	UppercaseColumnNames bool   `yaml:"uppercase_column_names"`
	FilterSampledOnly    bool   `yaml:"filter_sampled_only"`
}

func (t *ExportTemplate) setDefaults() {
	if t.TimeColumnName == "" {
		t.TimeColumnName = "timeStamp"
	}
	if t.TimeFormat == "" {
		t.TimeFormat = "2006/01/02 15:04:05"
	}
	if t.HeaderRows == 0 {
		t.HeaderRows = 1
	}
}

func (t *ExportTemplate) validate() error {
	if t.HeaderRows != 1 && t.HeaderRows != 2 {
		return cerrors.NewConfigError("export_template.header_rows", "must be 1 or 2, got %d", t.HeaderRows)
	}
	return nil
}

// ProgramConfig is the fully resolved configuration for one simulation
// program: the clock it drives, its declared instances/variables, the
// history depth every lagged variable needs, and an optional export
// template. Mirrors core/parser.py's ProgramConfig dataclass.
type ProgramConfig struct {
	Clock           clock.Config
	Program         []ProgramItem
	RecordLength    int
	LagRequirements map[string]int
	ExportTemplate  *ExportTemplate

	// ExplicitRecordLength reports whether RecordLength came from an
	// explicit "record_length:" key rather than being computed from
	// LagRequirements. When true, the engine applies RecordLength
	// uniformly to every lagged variable instead of sizing each
	// variable's history individually.
	ExplicitRecordLength bool
}

// rawProgramItem is the YAML shape of one "program:" list entry.
type rawProgramItem struct {
	Name       string             `yaml:"name"`
	Type       string             `yaml:"type"`
	Expression string             `yaml:"expression"`
	InitArgs   map[string]float64 `yaml:"init_args"`
}

// rawConfig is the direct YAML shape of a program file's top-level
// keys.
type rawConfig struct {
	CycleTime      *float64         `yaml:"cycle_time"`
	StartTime      *float64         `yaml:"start_time"`
	SampleInterval *float64         `yaml:"sample_interval"`
	TimeFormat     *string          `yaml:"time_format"`
	RecordLength   *int             `yaml:"record_length"`
	Program        []rawProgramItem `yaml:"program"`
	ExportTemplate *ExportTemplate  `yaml:"export_template"`
}

// wrapper lets a program file nest its configuration under a top-level
// "cyclesim:" key, for embedding inside a larger application's config
// alongside other sections — the same wrapped-vs-direct tolerance
// internal/pattern/parser.go gives LoadPattern.
type wrapper struct {
	Cyclesim *rawConfig `yaml:"cyclesim"`
}

const defaultCycleTime = 0.5

// Parse decodes program configuration YAML into a ProgramConfig,
// mirroring DSLParser.parse_file's four-step flow: parse clock config,
// parse program items, analyze lag requirements, then compute the
// record length.
func Parse(data []byte) (*ProgramConfig, error) {
	raw, err := unmarshalRaw(data)
	if err != nil {
		return nil, err
	}

	clockCfg := parseClockConfig(raw)
	if err := clockCfg.Validate(); err != nil {
		return nil, cerrors.NewConfigError("clock", "%v", err)
	}

	items, err := parseProgramItems(raw)
	if err != nil {
		return nil, err
	}

	lagRequirements, err := analyzeLagRequirements(items)
	if err != nil {
		return nil, err
	}

	recordLength := raw.recordLength(lagRequirements)

	if raw.ExportTemplate != nil {
		raw.ExportTemplate.setDefaults()
		if err := raw.ExportTemplate.validate(); err != nil {
			return nil, err
		}
	}

	return &ProgramConfig{
		Clock:                clockCfg,
		Program:              items,
		RecordLength:         recordLength,
		LagRequirements:      lagRequirements,
		ExportTemplate:       raw.ExportTemplate,
		ExplicitRecordLength: raw.RecordLength != nil,
	}, nil
}

// LoadFile reads path and parses it as program configuration.
func LoadFile(path string) (*ProgramConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

func unmarshalRaw(data []byte) (*rawConfig, error) {
	var w wrapper
	if err := yaml.Unmarshal(data, &w); err == nil && w.Cyclesim != nil {
		return w.Cyclesim, nil
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return &raw, nil
}

// parseClockConfig builds a clock.Config from the raw top-level keys.
// Mode is deliberately left at its zero value (ModeRealtime) here: the
// file format never selects REALTIME vs GENERATOR, matching
// core/parser.py's _parse_clock_config hardcoding ClockMode.GENERATOR
// regardless of file content. The CLI's run/generate subcommands
// overwrite Mode after loading.
func parseClockConfig(raw *rawConfig) clock.Config {
	cycleTime := defaultCycleTime
	if raw.CycleTime != nil {
		cycleTime = *raw.CycleTime
	}

	startTime := 0.0
	if raw.StartTime != nil {
		startTime = *raw.StartTime
	}

	sampleInterval := 0.0
	if raw.SampleInterval != nil {
		sampleInterval = *raw.SampleInterval
	}

	timeFormat := ""
	if raw.TimeFormat != nil {
		timeFormat = *raw.TimeFormat
	}

	return clock.Config{
		CycleTime:      cycleTime,
		StartTimestamp: startTime,
		SampleInterval: sampleInterval,
		TimeFormat:     timeFormat,
	}
}

// ReservedNames are the snapshot fields every cycle carries alongside
// declared variables; an item may not declare one as its name.
var ReservedNames = map[string]bool{
	"cycleCount": true,
	"needSample": true,
	"timeStr":    true,
	"simTime":    true,
	"execRatio":  true,
}

func parseProgramItems(raw *rawConfig) ([]ProgramItem, error) {
	items := make([]ProgramItem, 0, len(raw.Program))
	seen := make(map[string]bool, len(raw.Program))
	for _, ri := range raw.Program {
		if ri.Name == "" {
			return nil, cerrors.NewConfigError("program", "item is missing a name")
		}
		if ri.Type == "" {
			return nil, cerrors.NewConfigError(ri.Name, "item is missing a type")
		}
		if ReservedNames[ri.Name] {
			return nil, cerrors.NewConfigError(ri.Name, "collides with a reserved snapshot field")
		}
		if seen[ri.Name] {
			return nil, cerrors.NewConfigError(ri.Name, "duplicate item name")
		}
		seen[ri.Name] = true

		initArgs := ri.InitArgs
		if initArgs == nil {
			initArgs = map[string]float64{}
		}
		if len(initArgs) > 0 && strings.EqualFold(ri.Type, "VARIABLE") {
			return nil, cerrors.NewConfigError(ri.Name, "init_args is forbidden for VARIABLE items")
		}
		items = append(items, ProgramItem{
			Name:       ri.Name,
			Type:       ri.Type,
			Expression: ri.Expression,
			InitArgs:   initArgs,
		})
	}
	return items, nil
}

// analyzeLagRequirements parses every item's expression and merges its
// lag.Analyze results into a single map, matching
// DSLParser._analyze_lag_requirements. A syntax error in one
// expression is ignored here (deferred to node construction), the
// same tolerance the Python visitor gives malformed expressions during
// this analysis pass.
func analyzeLagRequirements(items []ProgramItem) (map[string]int, error) {
	requirements := map[string]int{}
	for _, item := range items {
		if item.Expression == "" {
			continue
		}
		node, err := expr.Parse(item.Expression)
		if err != nil {
			continue
		}
		lag.Analyze(node, requirements)
	}
	return requirements, nil
}

func (raw *rawConfig) recordLength(lagRequirements map[string]int) int {
	if raw.RecordLength != nil {
		return *raw.RecordLength
	}
	maxLag := 0
	for _, steps := range lagRequirements {
		if steps > maxLag {
			maxLag = steps
		}
	}
	return lag.RecordLength(maxLag)
}
