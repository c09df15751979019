package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/hbnb/internal/model"
)

// Scenario defines a storage scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps are executed in order against one engine.
	Steps []Step `yaml:"steps"`

	// Assertions validate the state after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one engine operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Kind is the entity kind for new and create.
	Kind string `yaml:"kind,omitempty"`

	// As names the entity created by new or create.
	As string `yaml:"as,omitempty"`

	// Ref names the entity an update or delete applies to.
	Ref string `yaml:"ref,omitempty"`

	// Attrs are literal attribute values (new, create) or the patch (update).
	Attrs map[string]any `yaml:"attrs,omitempty"`

	// Refs sets attributes to the id of another alias, e.g. state_id: ca.
	Refs map[string]string `yaml:"refs,omitempty"`

	// Place and Amenity name the pair for link and unlink. A name that is
	// not an alias is used verbatim as an id.
	Place   string `yaml:"place,omitempty"`
	Amenity string `yaml:"amenity,omitempty"`

	// Expect is the expected error code ("referential", "malformed", ...).
	// Empty means the step must succeed.
	Expect string `yaml:"expect,omitempty"`
}

// Step operations.
const (
	OpNew    = "new"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpLink   = "link"
	OpUnlink = "unlink"
	OpSave   = "save"
	OpReload = "reload"
	OpClose  = "close"
)

// Assertion validates final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Kind filters count, or names the child kind for children.
	Kind string `yaml:"kind,omitempty"`

	// Ref is the alias the assertion is about.
	Ref string `yaml:"ref,omitempty"`

	// Count is the expected number for count.
	Count int `yaml:"count,omitempty"`

	// Refs is the expected set of aliases for children and amenities.
	Refs []string `yaml:"refs,omitempty"`

	// Expect is a subset of the entity's attributes for attrs.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertCount     = "count"
	AssertExists    = "exists"
	AssertAbsent    = "absent"
	AssertAttrs     = "attrs"
	AssertChildren  = "children"
	AssertAmenities = "amenities"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
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

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	switch s.Op {
	case OpNew, OpCreate:
		if _, err := model.ParseKind(s.Kind); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
		if s.As == "" {
			return fmt.Errorf("steps[%d]: as is required for %s", index, s.Op)
		}
	case OpUpdate, OpDelete:
		if s.Ref == "" {
			return fmt.Errorf("steps[%d]: ref is required for %s", index, s.Op)
		}
	case OpLink, OpUnlink:
		if s.Place == "" || s.Amenity == "" {
			return fmt.Errorf("steps[%d]: place and amenity are required for %s", index, s.Op)
		}
	case OpSave, OpReload, OpClose:
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertCount:
		if a.Kind != "" {
			if _, err := model.ParseKind(a.Kind); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertExists, AssertAbsent, AssertAmenities:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for %s", index, a.Type)
		}
	case AssertAttrs:
		if a.Ref == "" || len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: ref and expect are required for attrs", index)
		}
	case AssertChildren:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for children", index)
		}
		if _, err := model.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
