package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runScenarioFile(t *testing.T, name string) (*Scenario, *Result) {
	t.Helper()
	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
	require.NoError(t, err)
	result, err := Run(sc)
	require.NoError(t, err)
	return sc, result
}

func TestScenario_HRConformance(t *testing.T) {
	sc, result := runScenarioFile(t, "hr_conformance.yaml")
	Verify(t, sc, result)
	AssertGolden(t, result)
}

func TestScenario_StageOrdering(t *testing.T) {
	sc, result := runScenarioFile(t, "stage_ordering.yaml")
	Verify(t, sc, result)
}

func TestLoadScenario_ResolvesSchemaPath(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", "hr_conformance.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "schemas", "hr.yaml"), sc.Schema)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "no-such.yaml"))
	require.Error(t, err)
}

func TestLoadScenario_RejectsBadStage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	doc := `name: bad
schema: hr.yaml
cases:
  - name: c
    sql: SELECT 1 FROM t
    expect:
      valid: false
      failing_stage: lexical
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lexical")
}
