package harness

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: one schema graph and a list
// of SQL cases with their expected gauntlet verdicts.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description,omitempty"`

	// Schema is the path to the schema graph YAML, relative to the
	// scenario file.
	Schema string `yaml:"schema"`

	// Cases are run in order against the same schema.
	Cases []Case `yaml:"cases"`
}

// Case is one SQL statement and its expected verdict.
type Case struct {
	Name   string `yaml:"name"`
	SQL    string `yaml:"sql"`
	Expect Expect `yaml:"expect"`
}

// Expect describes the verdict a case must produce.
type Expect struct {
	// Valid is the expected overall verdict.
	Valid bool `yaml:"valid"`

	// FailingStage names the stage expected to reject the statement.
	// Stages before it must pass, stages after it must be skipped.
	FailingStage string `yaml:"failing_stage,omitempty"`

	// Errors are substrings that must each appear in the failing
	// stage's error list.
	Errors []string `yaml:"errors,omitempty"`

	// Formula and Gloss pin the TRC explanation of an accepted query.
	Formula string `yaml:"formula,omitempty"`
	Gloss   string `yaml:"gloss,omitempty"`
}

// Stage names usable in Expect.FailingStage, in pipeline order.
const (
	StageSyntactic = "syntactic"
	StageSemantic  = "semantic"
	StageLogical   = "logical"
)

var stageOrder = []string{StageSyntactic, StageSemantic, StageLogical}

// LoadScenario reads and checks a scenario file. The schema path is
// resolved relative to the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if sc.Schema == "" {
		return nil, fmt.Errorf("scenario %s: schema is required", path)
	}
	if len(sc.Cases) == 0 {
		return nil, fmt.Errorf("scenario %s: at least one case is required", path)
	}
	for i, c := range sc.Cases {
		if c.Name == "" {
			return nil, fmt.Errorf("scenario %s: case %d: name is required", path, i)
		}
		if c.SQL == "" {
			return nil, fmt.Errorf("scenario %s: case %q: sql is required", path, c.Name)
		}
		if c.Expect.FailingStage != "" && !validStage(c.Expect.FailingStage) {
			return nil, fmt.Errorf("scenario %s: case %q: unknown stage %q", path, c.Name, c.Expect.FailingStage)
		}
	}
	if !filepath.IsAbs(sc.Schema) {
		sc.Schema = filepath.Join(filepath.Dir(path), sc.Schema)
	}
	return &sc, nil
}

func validStage(name string) bool {
	for _, s := range stageOrder {
		if s == name {
			return true
		}
	}
	return false
}
