package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/equiv/equivalency"
)

// Scenario defines one equivalence check.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file and
	// the recorded run.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	Subject     Source  `yaml:"subject"`
	Expectation Source  `yaml:"expectation"`
	Options     Options `yaml:"options,omitempty"`
	Expect      Expect  `yaml:"expect"`

	// Path is the file the scenario was loaded from; empty for scenarios
	// built in code.
	Path string `yaml:"-"`

	dir string
}

// Source says where one side of the comparison comes from. Exactly one
// field must be set.
type Source struct {
	// Value is an inline YAML value. A present "value: null" is a nil
	// document.
	Value *yaml.Node `yaml:"value,omitempty"`

	// File is a .json, .yaml, .yml or .cue document.
	File string `yaml:"file,omitempty"`

	// Query reads rows from a SQLite database.
	Query *Query `yaml:"query,omitempty"`
}

// Query selects rows from a SQLite file. Each row becomes a map keyed by
// column name.
type Query struct {
	DB   string `yaml:"db"`
	SQL  string `yaml:"sql"`
	Args []any  `yaml:"args,omitempty"`
}

// Describe returns a short label for reports and run history.
func (s Source) Describe() string {
	switch {
	case s.File != "":
		return s.File
	case s.Query != nil:
		return fmt.Sprintf("%s: %s", s.Query.DB, strings.Join(strings.Fields(s.Query.SQL), " "))
	case s.Value != nil:
		return "inline"
	}
	return ""
}

func (s Source) kinds() int {
	n := 0
	if s.Value != nil {
		n++
	}
	if s.File != "" {
		n++
	}
	if s.Query != nil {
		n++
	}
	return n
}

// Expect is the outcome the scenario author expects.
type Expect struct {
	// Equivalent is required.
	Equivalent *bool `yaml:"equivalent"`

	// Mismatches, when set, lists the exact mismatch paths in report
	// order. Only valid with equivalent: false.
	Mismatches []string `yaml:"mismatches,omitempty"`

	// UsageError, when set, is the usage error code the comparison must
	// fail with (e.g. NO_MEMBERS).
	UsageError string `yaml:"usage_error,omitempty"`
}

// Load reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML %s: %w", path, err)
	}

	s.Path = path
	s.dir = filepath.Dir(path)

	if err := validate(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

// LoadDir loads every .yaml and .yml file directly inside dir, ordered by
// file name. Scenario names must be unique.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		s, err := Load(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("duplicate scenario name %q in %s and %s", s.Name, prev, path)
		}
		seen[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// resolve makes a scenario-relative path usable from the working directory.
func (s *Scenario) resolve(path string) string {
	if filepath.IsAbs(path) || s.dir == "" {
		return path
	}
	return filepath.Join(s.dir, path)
}

// validate checks that required fields are present and valid.
func validate(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if err := validateSource("subject", s.Subject); err != nil {
		return err
	}
	if err := validateSource("expectation", s.Expectation); err != nil {
		return err
	}

	if s.Options.MaxDepth < 0 {
		return fmt.Errorf("options.max_depth must be non-negative")
	}

	if s.Expect.Equivalent == nil {
		return fmt.Errorf("expect.equivalent is required")
	}
	if *s.Expect.Equivalent && len(s.Expect.Mismatches) > 0 {
		return fmt.Errorf("expect.mismatches requires equivalent: false")
	}
	if s.Expect.UsageError != "" {
		if *s.Expect.Equivalent {
			return fmt.Errorf("expect.usage_error requires equivalent: false")
		}
		if len(s.Expect.Mismatches) > 0 {
			return fmt.Errorf("expect.usage_error and expect.mismatches are exclusive")
		}
		if !knownUsageError(s.Expect.UsageError) {
			return fmt.Errorf("expect.usage_error: unknown code %q", s.Expect.UsageError)
		}
	}
	return nil
}

func validateSource(field string, src Source) error {
	switch src.kinds() {
	case 0:
		return fmt.Errorf("%s: one of value, file or query is required", field)
	case 1:
	default:
		return fmt.Errorf("%s: value, file and query are exclusive", field)
	}
	if src.Query != nil {
		if src.Query.DB == "" {
			return fmt.Errorf("%s.query: db is required", field)
		}
		if strings.TrimSpace(src.Query.SQL) == "" {
			return fmt.Errorf("%s.query: sql is required", field)
		}
	}
	return nil
}

func knownUsageError(code string) bool {
	switch equivalency.UsageErrorCode(code) {
	case equivalency.ErrCodeNoMembers,
		equivalency.ErrCodeNilExpectation,
		equivalency.ErrCodeInvalidConfig,
		equivalency.ErrCodeInvalidStep:
		return true
	}
	return false
}
