package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/progsnap2/progsnap2-go/internal/config"
	"github.com/progsnap2/progsnap2-go/internal/ir"
)

// Scenario is a scripted dataset write with assertions on the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config overrides config.Default(). RootPath is ignored.
	Config config.DataConfig `yaml:"config"`

	// Steps run in order against one dataset.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final dataset.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one write. Exactly one of Batch and Log is set.
type Step struct {
	Batch  *BatchStep    `yaml:"batch,omitempty"`
	Log    *LogStep      `yaml:"log,omitempty"`
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// Kind names the step type for results and messages.
func (s Step) Kind() string {
	if s.Log != nil {
		return "log"
	}
	return "batch"
}

// BatchStep hands events and codestates to a BatchWriter.
type BatchStep struct {
	Events     []map[string]any     `yaml:"events"`
	CodeStates map[string]CodeState `yaml:"codestates,omitempty"`
}

// LogStep writes one event through an EventWriter created with State.
type LogStep struct {
	EventType string         `yaml:"event_type"`
	State     map[string]any `yaml:"state,omitempty"`
	Columns   map[string]any `yaml:"columns,omitempty"`
}

// CodeState is the YAML form of an ir.Entry.
type CodeState struct {
	// Code is the unnamed section. Ignored when Sections is set.
	Code string `yaml:"code,omitempty"`

	// Sections maps section names to code.
	Sections map[string]string `yaml:"sections,omitempty"`

	Blank    bool   `yaml:"blank,omitempty"`
	Grouping string `yaml:"grouping,omitempty"`
	Project  string `yaml:"project,omitempty"`
}

// Entry converts c. Grouping or Project make the context explicit.
func (c CodeState) Entry() ir.Entry {
	var e ir.Entry
	switch {
	case c.Blank:
		e = ir.BlankEntry()
	case len(c.Sections) > 0:
		names := make([]string, 0, len(c.Sections))
		for name := range c.Sections {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			e.Sections = append(e.Sections, ir.Section{Name: name, Code: c.Sections[name]})
		}
	default:
		e = ir.EntryFromCode(c.Code)
	}

	if c.Grouping != "" || c.Project != "" {
		e = e.WithContext(ir.Context{GroupingID: c.Grouping, ProjectID: c.Project})
	}
	return e
}

// ExpectClause checks a step's LogResult. Omitted fields are not checked.
type ExpectClause struct {
	Success *bool `yaml:"success,omitempty"`

	// Warnings and Errors are substrings; each must occur in some message.
	Warnings     []string `yaml:"warnings,omitempty"`
	WarningCount *int     `yaml:"warning_count,omitempty"`
	Errors       []string `yaml:"errors,omitempty"`

	// Error is a substring of the error the step is expected to return.
	// Without it, a step error fails the scenario.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the final dataset.
type Assertion struct {
	// Type specifies the assertion type:
	// - "event_count": MainTable row count equals Count
	// - "event": row Index matches Expect (subset match)
	// - "codestate_rows": CodeStates row count equals Count, for ID if set
	// - "file_exists": Path exists under the dataset root
	Type string `yaml:"type"`

	Count  int            `yaml:"count,omitempty"`
	Index  int            `yaml:"index,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
	ID     string         `yaml:"id,omitempty"`
	Path   string         `yaml:"path,omitempty"`
}

// Assertion type constants.
const (
	AssertEventCount    = "event_count"
	AssertEvent         = "event"
	AssertCodeStateRows = "codestate_rows"
	AssertFileExists    = "file_exists"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	scenario := Scenario{Config: config.Default()}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if (step.Batch == nil) == (step.Log == nil) {
			return fmt.Errorf("steps[%d]: exactly one of batch and log is required", i)
		}
		if step.Log != nil && step.Log.EventType == "" {
			return fmt.Errorf("steps[%d].log: event_type is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventCount, AssertCodeStateRows:
	case AssertEvent:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for event", index)
		}
	case AssertFileExists:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for file_exists", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
