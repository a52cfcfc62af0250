package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safequery/safequery/internal/sqlast"
)

func parseSelect(t *testing.T, sql string) *sqlast.Select {
	t.Helper()
	stmt, err := Parse(sql)
	require.NoError(t, err)
	sel, ok := stmt.(*sqlast.Select)
	require.True(t, ok, "expected a SELECT, got %T", stmt)
	return sel
}

func TestParse_SimpleSelect(t *testing.T) {
	sel := parseSelect(t, "SELECT name FROM employees WHERE age > 30")

	require.Len(t, sel.Projections, 1)
	ref, ok := sel.Projections[0].(*sqlast.ColumnRef)
	require.True(t, ok)
	assert.Equal(t, "name", ref.Column)
	assert.Empty(t, ref.Table)

	require.Len(t, sel.From, 1)
	assert.Equal(t, "employees", sel.From[0].Table)

	cmp, ok := sel.Where.(*sqlast.Comparison)
	require.True(t, ok)
	assert.Equal(t, sqlast.OpGt, cmp.Op)
	lit, ok := cmp.Right.(*sqlast.Literal)
	require.True(t, ok)
	assert.Equal(t, sqlast.LitNumber, lit.Kind)
	assert.Equal(t, "30", lit.Raw)
}

func TestParse_CaseInsensitiveKeywords(t *testing.T) {
	sel := parseSelect(t, "select Name from Employees where AGE >= 21")
	assert.Equal(t, "Employees", sel.From[0].Table)
}

func TestParse_Star(t *testing.T) {
	sel := parseSelect(t, "SELECT * FROM departments")
	require.Len(t, sel.Projections, 1)
	_, ok := sel.Projections[0].(*sqlast.Star)
	assert.True(t, ok)
}

func TestParse_AliasedJoin(t *testing.T) {
	sel := parseSelect(t, `SELECT e.name, d.dept_name
		FROM employees e
		JOIN departments AS d ON e.department_id = d.dept_id`)

	require.Len(t, sel.From, 1)
	assert.Equal(t, "e", sel.From[0].Alias)

	require.Len(t, sel.Joins, 1)
	join := sel.Joins[0]
	assert.Equal(t, sqlast.JoinInner, join.Kind)
	assert.Equal(t, "departments", join.Right.Table)
	assert.Equal(t, "d", join.Right.Alias)

	cmp, ok := join.On.(*sqlast.Comparison)
	require.True(t, ok)
	left := cmp.Left.(*sqlast.ColumnRef)
	assert.Equal(t, "e", left.Table)
	assert.Equal(t, "department_id", left.Column)
}

func TestParse_OuterJoinKinds(t *testing.T) {
	cases := map[string]sqlast.JoinKind{
		"LEFT JOIN":       sqlast.JoinLeft,
		"LEFT OUTER JOIN": sqlast.JoinLeft,
		"RIGHT JOIN":      sqlast.JoinRight,
		"FULL OUTER JOIN": sqlast.JoinFull,
		"INNER JOIN":      sqlast.JoinInner,
	}
	for clause, kind := range cases {
		sql := "SELECT a FROM t1 " + clause + " t2 ON t1.x = t2.y"
		sel := parseSelect(t, sql)
		require.Len(t, sel.Joins, 1, clause)
		assert.Equal(t, kind, sel.Joins[0].Kind, clause)
	}
}

func TestParse_PredicatePrecedence(t *testing.T) {
	// NOT binds tighter than AND, AND tighter than OR.
	sel := parseSelect(t, "SELECT a FROM t WHERE NOT x = 1 AND y = 2 OR z = 3")

	or, ok := sel.Where.(*sqlast.Or)
	require.True(t, ok)

	and, ok := or.Left.(*sqlast.And)
	require.True(t, ok)
	_, ok = and.Left.(*sqlast.Not)
	assert.True(t, ok)
	_, ok = or.Right.(*sqlast.Comparison)
	assert.True(t, ok)
}

func TestParse_ParenthesesOverridePrecedence(t *testing.T) {
	sel := parseSelect(t, "SELECT a FROM t WHERE x = 1 AND (y = 2 OR z = 3)")

	and, ok := sel.Where.(*sqlast.And)
	require.True(t, ok)
	_, ok = and.Right.(*sqlast.Or)
	assert.True(t, ok)
}

func TestParse_StringLiteralEscapes(t *testing.T) {
	sel := parseSelect(t, "SELECT a FROM t WHERE name = 'O''Brien'")
	cmp := sel.Where.(*sqlast.Comparison)
	lit := cmp.Right.(*sqlast.Literal)
	assert.Equal(t, sqlast.LitString, lit.Kind)
	assert.Equal(t, "O'Brien", lit.Raw)
}

func TestParse_NotEqualsSpellings(t *testing.T) {
	for _, op := range []string{"<>", "!="} {
		sel := parseSelect(t, "SELECT a FROM t WHERE x "+op+" 5")
		cmp := sel.Where.(*sqlast.Comparison)
		assert.Equal(t, sqlast.OpNe, cmp.Op, op)
	}
}

func TestParse_UnsupportedClausesStillParse(t *testing.T) {
	sel := parseSelect(t, `SELECT dept, COUNT(*) FROM employees
		GROUP BY dept HAVING COUNT(*) > 3 ORDER BY dept LIMIT 10`)

	assert.NotEmpty(t, sel.GroupBy)
	assert.NotNil(t, sel.Having)
	assert.NotEmpty(t, sel.OrderBy)
	require.NotNil(t, sel.Limit)
	assert.Equal(t, int64(10), *sel.Limit)
}

func TestParse_Aggregates(t *testing.T) {
	sel := parseSelect(t, "SELECT COUNT(*), avg(salary) FROM employees")

	require.Len(t, sel.Projections, 2)
	count := sel.Projections[0].(*sqlast.Aggregate)
	assert.Equal(t, "COUNT", count.Fn)
	assert.Nil(t, count.Arg)

	avg := sel.Projections[1].(*sqlast.Aggregate)
	assert.Equal(t, "AVG", avg.Fn)
	assert.NotNil(t, avg.Arg)
}

func TestParse_WriteStatements(t *testing.T) {
	cases := []struct {
		sql   string
		kind  sqlast.WriteKind
		table string
	}{
		{"DROP TABLE employees", sqlast.WriteDrop, "employees"},
		{"DELETE FROM employees WHERE age > 90", sqlast.WriteDelete, "employees"},
		{"INSERT INTO departments VALUES (1, 'Sales')", sqlast.WriteInsert, "departments"},
		{"UPDATE employees SET age = 31 WHERE emp_id = 7;", sqlast.WriteUpdate, "employees"},
		{"TRUNCATE TABLE audit_log", sqlast.WriteTruncate, "audit_log"},
	}
	for _, tc := range cases {
		stmt, err := Parse(tc.sql)
		require.NoError(t, err, tc.sql)
		w, ok := stmt.(*sqlast.Write)
		require.True(t, ok, tc.sql)
		assert.Equal(t, tc.kind, w.Kind, tc.sql)
		assert.Equal(t, tc.table, w.Table, tc.sql)
	}
}

func TestParse_TrailingSemicolon(t *testing.T) {
	_, err := Parse("SELECT a FROM t;")
	assert.NoError(t, err)
}

func TestParse_SyntaxErrorsCarryPositions(t *testing.T) {
	cases := []struct {
		name string
		sql  string
	}{
		{"empty", ""},
		{"missing from", "SELECT name employees"},
		{"dangling operator", "SELECT a FROM t WHERE x ="},
		{"unterminated string", "SELECT a FROM t WHERE n = 'oops"},
		{"bare bang", "SELECT a FROM t WHERE x ! 1"},
		{"garbage", "EXPLAIN SELECT 1"},
		{"trailing junk", "SELECT a FROM t WHERE x = 1 banana"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.sql)
			require.Error(t, err)
			var synErr *SyntaxError
			require.ErrorAs(t, err, &synErr)
			assert.GreaterOrEqual(t, synErr.Pos.Line, 1)
			assert.GreaterOrEqual(t, synErr.Pos.Col, 1)
		})
	}
}

func TestParse_DepthLimit(t *testing.T) {
	sql := "SELECT a FROM t WHERE " + strings.Repeat("(", 100) +
		"x = 1" + strings.Repeat(")", 100)

	_, err := Parse(sql)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too complex")
}

func TestParse_TokenLimit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("SELECT a FROM t WHERE x = 1")
	for i := 0; i < 3000; i++ {
		sb.WriteString(" AND x = 1")
	}

	_, err := Parse(sb.String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too complex")
}

func TestParse_TablesInFromThenJoinOrder(t *testing.T) {
	sel := parseSelect(t, "SELECT a FROM t1, t2 JOIN t3 ON t1.x = t3.y")

	tables := sel.Tables()
	require.Len(t, tables, 3)
	assert.Equal(t, "t1", tables[0].Table)
	assert.Equal(t, "t2", tables[1].Table)
	assert.Equal(t, "t3", tables[2].Table)
}
