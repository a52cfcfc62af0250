package safety

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safequery/safequery/internal/sqlast"
	"github.com/safequery/safequery/internal/trc"
)

func parseQuery(t *testing.T, notation string) *trc.Query {
	t.Helper()
	q, err := trc.ParseQuery(notation)
	require.NoError(t, err)
	return q
}

func check(t *testing.T, notation string) []*Error {
	t.Helper()
	return Check(&sqlast.Select{}, parseQuery(t, notation), nil)
}

func hasCode(errs []*Error, code ErrorCode) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}

func TestCheck_RejectsWrites(t *testing.T) {
	w := &sqlast.Write{Kind: sqlast.WriteDrop, Table: "employees"}
	errs := Check(w, nil, nil)

	require.Len(t, errs, 1)
	assert.Equal(t, CodeWriteOperationForbidden, errs[0].Code)
	assert.Contains(t, errs[0].Message, "DROP")
	assert.Contains(t, errs[0].Message, "employees")
}

func TestCheck_SafeFormulas(t *testing.T) {
	inputs := []string{
		"{t | t∈employees}",
		"{t | t∈employees ∧ t.age > 30}",
		"{t | t∈employees ∧ (t.age > 65 ∨ t.age < 18)}",
		// Negation with a relation atom conjoined outside the ¬.
		"{t | t∈employees ∧ ¬t.age > 30}",
		"{t | t∈employees ∧ ¬(t∈employees ∧ t.age > 30)}",
		"{t0 | t0∈employees ∧ ∃t1 (t1∈departments ∧ t0.department_id = t1.dept_id)}",
		"{t0 | t0∈employees ∧ (∃t1 (t1∈departments ∧ t0.department_id = t1.dept_id) ∨ ¬∃t1 (t1∈departments ∧ t0.department_id = t1.dept_id))}",
		"{t | t∈employees ∧ ∀u (u∈departments ∧ u.dept_id >= 1)}",
		// Both disjunction branches restrict the head variable.
		"{t | t∈employees ∧ t.age > 65 ∨ t∈employees ∧ t.age < 18}",
	}
	for _, input := range inputs {
		assert.Empty(t, check(t, input), input)
	}
}

func TestCheck_UnrestrictedHeadVariable(t *testing.T) {
	errs := check(t, "{t | t.age > 30}")

	require.Len(t, errs, 1)
	assert.Equal(t, CodeUnsafeFormula, errs[0].Code)
	assert.Contains(t, errs[0].Message, "t")
}

func TestCheck_DisjunctionRestrictsOnlyOneBranch(t *testing.T) {
	errs := check(t, "{t | t∈employees ∨ t.age > 30}")

	require.NotEmpty(t, errs)
	assert.True(t, hasCode(errs, CodeUnsafeFormula))
}

func TestCheck_NegationAsSoleRestrictor(t *testing.T) {
	errs := check(t, "{t | ¬t∈employees}")

	require.NotEmpty(t, errs)
	assert.True(t, hasCode(errs, CodeUnsafeFormula))
	assert.Contains(t, errs[0].Message, "t")
}

func TestCheck_UnrestrictedExistential(t *testing.T) {
	errs := check(t, "{t | t∈employees ∧ ∃u (u.age > 30)}")

	require.Len(t, errs, 1)
	assert.Equal(t, CodeUnsafeFormula, errs[0].Code)
	assert.Contains(t, errs[0].Message, "u")
}

func TestCheck_UnrestrictedUniversal(t *testing.T) {
	errs := check(t, "{t | t∈employees ∧ ∀u (u.age > 30)}")

	require.Len(t, errs, 1)
	assert.Equal(t, CodeUnsafeFormula, errs[0].Code)
	assert.Contains(t, errs[0].Message, "u")
}

func TestCheck_UnsafeVariableReportedOnce(t *testing.T) {
	// The head check and the negation check both fire for t; one error.
	errs := check(t, "{t | ¬t.age > 30}")

	require.Len(t, errs, 1)
	assert.Equal(t, CodeUnsafeFormula, errs[0].Code)
}

func TestCheck_AmbiguousQuantifier(t *testing.T) {
	errs := check(t, "{t | t∈employees ∧ t∈departments}")

	require.Len(t, errs, 1)
	assert.Equal(t, CodeAmbiguousQuantifier, errs[0].Code)
	assert.Contains(t, errs[0].Message, "employees")
	assert.Contains(t, errs[0].Message, "departments")
}

func TestCheck_RebindingOpensFreshScope(t *testing.T) {
	// The inner ∃t shadows the outer t; no ambiguity.
	errs := check(t, "{t | t∈employees ∧ ∃t (t∈departments ∧ t.dept_id > 0)}")
	assert.Empty(t, errs)
}

func TestCheck_GroupByUnsupported(t *testing.T) {
	sel := &sqlast.Select{GroupBy: []sqlast.Expr{&sqlast.ColumnRef{Column: "age"}}}
	q := parseQuery(t, "{t | t∈employees}")
	errs := Check(sel, q, nil)

	require.Len(t, errs, 1)
	assert.Equal(t, CodeUnsupportedConstruct, errs[0].Code)
	assert.Contains(t, errs[0].Message, "GROUP BY")
}

func TestCheck_TranslatorIssuesSurfaceAsUnsupported(t *testing.T) {
	q := parseQuery(t, "{t | t∈employees}")
	issues := []trc.Issue{{Code: trc.IssueUnsupportedConstruct, Message: "aggregate COUNT() is not supported"}}
	errs := Check(&sqlast.Select{}, q, issues)

	require.Len(t, errs, 1)
	assert.Equal(t, CodeUnsupportedConstruct, errs[0].Code)
	assert.Contains(t, errs[0].Message, "COUNT")
}

var genTables = []string{"employees", "departments", "projects"}

// genSafeQuery builds a query that is range-restricted by construction:
// every variable gets a conjoined relation atom, and extras only add
// comparisons, negated comparisons, disjunctions of comparisons, or
// properly bounded quantifiers.
func genSafeQuery(r *rand.Rand) *trc.Query {
	nVars := 1 + r.Intn(3)
	var body trc.Formula
	vars := make([]string, nVars)
	for i := 0; i < nVars; i++ {
		vars[i] = fmt.Sprintf("t%d", i)
		atom := &trc.RelationAtom{Var: vars[i], Table: genTables[r.Intn(len(genTables))]}
		if body == nil {
			body = atom
		} else {
			body = &trc.And{Left: body, Right: atom}
		}
	}
	extras := r.Intn(4)
	for i := 0; i < extras; i++ {
		v := vars[r.Intn(nVars)]
		var extra trc.Formula
		switch r.Intn(4) {
		case 0:
			extra = genComparison(r, v)
		case 1:
			extra = &trc.Not{Inner: genComparison(r, v)}
		case 2:
			extra = &trc.Or{Left: genComparison(r, v), Right: genComparison(r, v)}
		case 3:
			extra = &trc.Exists{Var: "u", Body: &trc.And{
				Left:  &trc.RelationAtom{Var: "u", Table: genTables[r.Intn(len(genTables))]},
				Right: genComparison(r, "u"),
			}}
		}
		body = &trc.And{Left: body, Right: extra}
	}
	return &trc.Query{FreeVar: vars[0], Body: body}
}

// genUnsafeQuery injects exactly one of the known unsafety shapes.
func genUnsafeQuery(r *rand.Rand) *trc.Query {
	table := genTables[r.Intn(len(genTables))]
	atom := &trc.RelationAtom{Var: "t", Table: table}
	switch r.Intn(5) {
	case 0: // head variable never restricted
		return &trc.Query{FreeVar: "t", Body: genComparison(r, "t")}
	case 1: // only one disjunction branch restricts the head
		return &trc.Query{FreeVar: "t", Body: &trc.Or{Left: atom, Right: genComparison(r, "t")}}
	case 2: // negation as sole restrictor
		return &trc.Query{FreeVar: "t", Body: &trc.Not{Inner: atom}}
	case 3: // unrestricted existential
		return &trc.Query{FreeVar: "t", Body: &trc.And{
			Left:  atom,
			Right: &trc.Exists{Var: "u", Body: genComparison(r, "u")},
		}}
	default: // unrestricted universal
		return &trc.Query{FreeVar: "t", Body: &trc.And{
			Left:  atom,
			Right: &trc.ForAll{Var: "u", Body: genComparison(r, "u")},
		}}
	}
}

func genComparison(r *rand.Rand, v string) *trc.AttrComparison {
	ops := []sqlast.CompareOp{sqlast.OpEq, sqlast.OpNe, sqlast.OpLt, sqlast.OpGt, sqlast.OpLe, sqlast.OpGe}
	return &trc.AttrComparison{
		Var:   v,
		Attr:  fmt.Sprintf("attr%d", r.Intn(3)),
		Op:    ops[r.Intn(len(ops))],
		Right: &trc.ValueTerm{Kind: sqlast.LitNumber, Raw: fmt.Sprintf("%d", r.Intn(100))},
	}
}

func TestCheck_GeneratedSafeFormulas(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		q := genSafeQuery(r)
		errs := Check(&sqlast.Select{}, q, nil)
		assert.Empty(t, errs, trc.Render(q))
	}
}

func TestCheck_GeneratedUnsafeFormulas(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		q := genUnsafeQuery(r)
		errs := Check(&sqlast.Select{}, q, nil)
		assert.True(t, hasCode(errs, CodeUnsafeFormula), trc.Render(q))
	}
}
