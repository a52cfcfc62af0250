package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safequery/safequery/internal/gauntlet"
	"github.com/safequery/safequery/internal/schema"
)

// CaseResult pairs a case with the report the gauntlet produced for it.
type CaseResult struct {
	Name   string           `json:"name"`
	SQL    string           `json:"sql"`
	Report *gauntlet.Report `json:"report"`
}

// Result is one executed scenario.
type Result struct {
	ScenarioName string       `json:"scenario_name"`
	Cases        []CaseResult `json:"cases"`
}

// Run loads the scenario's schema graph and runs every case through the
// gauntlet. Case order is preserved so results line up with the
// scenario for Verify and golden comparison.
func Run(sc *Scenario) (*Result, error) {
	g, err := schema.Load(sc.Schema)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	result := &Result{ScenarioName: sc.Name}
	for _, c := range sc.Cases {
		result.Cases = append(result.Cases, CaseResult{
			Name:   c.Name,
			SQL:    c.SQL,
			Report: gauntlet.Run(c.SQL, g),
		})
	}
	return result, nil
}

// Verify asserts every case's report against its expectations, each
// case as its own subtest.
func Verify(t *testing.T, sc *Scenario, result *Result) {
	t.Helper()
	require.Len(t, result.Cases, len(sc.Cases))

	for i, c := range sc.Cases {
		report := result.Cases[i].Report
		t.Run(c.Name, func(t *testing.T) {
			assert.Equal(t, c.Expect.Valid, report.OverallValid)

			if c.Expect.Valid {
				require.NotNil(t, report.TRC, "an accepted query must carry its explanation")
				if c.Expect.Formula != "" {
					assert.Equal(t, c.Expect.Formula, report.TRC.FormulaText)
				}
				if c.Expect.Gloss != "" {
					assert.Equal(t, c.Expect.Gloss, report.TRC.NaturalLanguage)
				}
				return
			}

			assert.Nil(t, report.TRC, "a rejected query must not carry an explanation")
			if c.Expect.FailingStage == "" {
				return
			}
			verifyStages(t, report, c.Expect)
		})
	}
}

// verifyStages checks the failing stage's verdict and errors, that the
// stages before it passed, and that the stages after it were skipped.
func verifyStages(t *testing.T, report *gauntlet.Report, expect Expect) {
	t.Helper()
	failIdx := stageIndex(expect.FailingStage)

	for idx, name := range stageOrder {
		stage := stageResult(report, name)
		switch {
		case idx < failIdx:
			assert.True(t, stage.Valid, "stage %s should pass before the failure", name)
		case idx == failIdx:
			assert.False(t, stage.Valid, "stage %s should fail", name)
			assert.False(t, stage.Skipped, "the failing stage actually ran")
			joined := strings.Join(stage.Errors, "\n")
			for _, want := range expect.Errors {
				assert.Contains(t, joined, want)
			}
		default:
			assert.True(t, stage.Skipped, "stage %s should be skipped after the failure", name)
			assert.False(t, stage.Valid, "a skipped stage never reads as passed")
		}
	}
}

func stageIndex(name string) int {
	for i, s := range stageOrder {
		if s == name {
			return i
		}
	}
	return -1
}

func stageResult(report *gauntlet.Report, name string) gauntlet.StageResult {
	switch name {
	case StageSemantic:
		return report.Semantic
	case StageLogical:
		return report.Logical
	default:
		return report.Syntactic
	}
}
