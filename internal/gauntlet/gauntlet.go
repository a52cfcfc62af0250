// Package gauntlet sequences the three validation stages over a
// candidate SQL statement and produces the aggregated report.
//
// The orchestrator is a strictly linear state machine: syntactic →
// semantic → logical → done. A stage runs only when every earlier stage
// passed; on failure the remaining stages are reported as skipped,
// never as passed. Validation is pure and deterministic, so there are
// no retries: rerunning the gauntlet on the same input reproduces the
// report byte for byte.
package gauntlet

import (
	"github.com/safequery/safequery/internal/parser"
	"github.com/safequery/safequery/internal/safety"
	"github.com/safequery/safequery/internal/schema"
	"github.com/safequery/safequery/internal/semantic"
	"github.com/safequery/safequery/internal/sqlast"
	"github.com/safequery/safequery/internal/trc"
)

// StageResult is the verdict of one stage.
type StageResult struct {
	Valid   bool     `json:"valid"`
	Skipped bool     `json:"skipped,omitempty"`
	Errors  []string `json:"errors"`
}

// Explanation is the TRC artifact shown to end users when the query
// passes: the canonical symbolic formula and its English gloss.
type Explanation struct {
	FormulaText     string `json:"formula_text"`
	NaturalLanguage string `json:"natural_language"`
}

// Report is the immutable result of one gauntlet invocation.
type Report struct {
	OverallValid bool         `json:"overall_valid"`
	Syntactic    StageResult  `json:"syntactic"`
	Semantic     StageResult  `json:"semantic"`
	Logical      StageResult  `json:"logical"`
	TRC          *Explanation `json:"trc"`
}

func passed() StageResult {
	return StageResult{Valid: true, Errors: []string{}}
}

func failed(errs []string) StageResult {
	return StageResult{Valid: false, Errors: errs}
}

func skipped() StageResult {
	return StageResult{Valid: false, Skipped: true, Errors: []string{}}
}

// Run validates one SQL statement against a schema graph snapshot.
//
// The graph is read-only for the duration of the call and no state is
// retained between calls, so arbitrarily many invocations may run
// concurrently against the same graph.
func Run(sqlText string, g *schema.Graph) *Report {
	report := &Report{
		Syntactic: skipped(),
		Semantic:  skipped(),
		Logical:   skipped(),
	}

	// Stage 1: syntactic. A parse failure is fatal; later stages need a
	// valid tree.
	stmt, err := parser.Parse(sqlText)
	if err != nil {
		report.Syntactic = failed([]string{err.Error()})
		return report
	}
	if errs := unsupportedClauses(stmt); len(errs) > 0 {
		report.Syntactic = failed(errs)
		return report
	}
	report.Syntactic = passed()

	// Stage 2: semantic. All reference/type errors are reported at once.
	semErrs := semantic.Validate(stmt, g)
	if len(semErrs) > 0 {
		report.Semantic = failed(errorStrings(semErrs))
		return report
	}
	report.Semantic = passed()

	// Stage 3: logical/security over the TRC translation.
	var query *trc.Query
	var issues []trc.Issue
	if sel, ok := stmt.(*sqlast.Select); ok {
		query, issues = trc.Translate(sel, g)
	}
	safetyErrs := safety.Check(stmt, query, issues)
	if len(safetyErrs) > 0 {
		report.Logical = failed(errorStrings(safetyErrs))
		return report
	}
	report.Logical = passed()
	report.OverallValid = true
	if query != nil {
		report.TRC = &Explanation{
			FormulaText:     trc.Render(query),
			NaturalLanguage: trc.Gloss(query),
		}
	}
	return report
}

// unsupportedClauses returns stage-1 diagnostics for clauses the
// grammar recognizes but the pipeline rejects by name.
func unsupportedClauses(stmt sqlast.Statement) []string {
	sel, ok := stmt.(*sqlast.Select)
	if !ok {
		return nil
	}
	var errs []string
	if len(sel.GroupBy) > 0 {
		errs = append(errs, "GROUP BY is not supported in validated queries")
	}
	if sel.Having != nil {
		errs = append(errs, "HAVING is not supported in validated queries")
	}
	if len(sel.OrderBy) > 0 {
		errs = append(errs, "ORDER BY is not supported in validated queries")
	}
	if sel.Limit != nil {
		errs = append(errs, "LIMIT is not supported in validated queries")
	}
	return errs
}

func errorStrings[E error](errs []E) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}
