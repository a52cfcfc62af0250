// Package harness runs conformance scenarios against the gauntlet.
//
// A scenario is a YAML file naming a schema graph and a list of SQL
// cases with expected verdicts: overall validity, the failing stage,
// error substrings, and for accepted queries the exact TRC formula and
// gloss. Scenario results can additionally be pinned byte for byte
// against golden files, which is how report-shape regressions are
// caught.
package harness
